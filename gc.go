// gc.go
//
// Precise, single-threaded mark-and-sweep over pool nodes.  Roots are the
// guard stack, ROOT-flagged nodes, the data stack, every live frame's
// out/spare/varlist prefix and feed slots, the symbol canon chains, lib,
// and the mold machinery.  Cells contribute children through the
// FIRST/SECOND_IS_NODE flags and their binding; series through the
// LINK/MISC needs-mark flags and (for arrays) their cells up to used.
//
// Recycling is deferred: the ballast counter raises a signal that the
// evaluator honors at step boundaries, never inside argument fulfillment.

package reb

// guardCell / guardSeries push GC roots for the span of native code that
// holds loose pointers; dropGuard pops in LIFO order.
func (rt *Runtime) guardCell(c *Cell)     { rt.guarded = append(rt.guarded, c) }
func (rt *Runtime) guardSeries(s *Series) { rt.guarded = append(rt.guarded, s) }

func (rt *Runtime) dropGuard(n int) {
	rt.guarded = rt.guarded[:len(rt.guarded)-n]
}

// Recycle runs a full collection and returns the number of nodes swept
// back to the pools.
func (rt *Runtime) Recycle() int {
	rt.clearSignal(sigRecycle)
	rt.ballast = rt.opts.RecycleBallast

	rt.markRoots()
	freed := rt.sweep()
	return freed
}

// maybeRecycle is the safe-point check used at frame push/drop and
// evaluator step boundaries.
func (rt *Runtime) maybeRecycle() {
	if rt.getSignal(sigRecycle) {
		rt.Recycle()
	}
}

func (rt *Runtime) markRoots() {
	// ROOT-flagged nodes (API handles).
	for _, seg := range rt.nodes.segments {
		for i := range seg {
			s := &seg[i]
			if s.header&nodeFlagFree == 0 && s.header&nodeFlagRoot != 0 {
				rt.markSeries(s)
			}
		}
	}

	// Guard stack.
	for _, g := range rt.guarded {
		switch v := g.(type) {
		case *Cell:
			rt.markCell(v)
		case *Series:
			rt.markSeries(v)
		}
	}

	// Manuals are not GC-owned but their contents may reference managed
	// nodes; trace through them.
	for _, s := range rt.manuals {
		rt.markSeriesContent(s)
	}

	// Data stack.
	for i := 1; i <= rt.dsp; i++ {
		rt.markCell(&rt.ds[i])
	}

	// Frames: out, spare, varlist prefix up to the arg cursor (cells past
	// it are not initialized yet), and feed slots.
	for f := rt.topFrame; f != nil; f = f.prior {
		if f.out != nil {
			rt.markCell(f.out)
		}
		rt.markCell(&f.spare)
		if f.varlist != nil {
			rt.markSeriesNodeOnly(f.varlist)
			if kl := f.varlist.link.node; kl != nil {
				rt.markSeries(kl)
			}
			limit := f.varlist.Len()
			if f.fulfilling() && f.argIndex < limit {
				limit = f.argIndex + 1
			}
			for i := 0; i < limit; i++ {
				rt.markCell(f.varlist.at(i))
			}
		}
		if f.original != nil {
			rt.markSeries(f.original)
		}
		if f.optLabel != nil {
			rt.markSeries(f.optLabel)
		}
		if f.feed != nil {
			rt.markFeed(f.feed)
		}
	}

	// Symbols and canon chains stay live for the process.
	for _, s := range rt.spellings {
		rt.markSeries(s)
	}

	if rt.lib != nil {
		rt.markSeries(rt.lib)
	}
	if rt.moldBuf != nil {
		rt.markSeries(rt.moldBuf)
	}
	for _, s := range rt.moldStack {
		rt.markSeries(s)
	}
	rt.markCell(&rt.thrownLabel)
	rt.markCell(&rt.thrownValue)
}

func (rt *Runtime) markFeed(fd *Feed) {
	if fd.array != nil {
		rt.markSeries(fd.array)
	}
	if fd.specifier != nil {
		rt.markSeries(fd.specifier)
	}
	rt.markCell(&fd.fetched)
	rt.markCell(&fd.lookback)
	if fd.value != nil && fd.value != &endCell {
		rt.markCell(fd.value)
	}
	for _, c := range fd.pending {
		rt.markCell(c)
	}
}

// markCell traces a cell's node children without marking the cell itself
// (cells are not pool nodes; pairings and series are).
func (rt *Runtime) markCell(c *Cell) {
	if c.IsEnd() || c.header&nodeFlagFree != 0 {
		return
	}
	if isBindableKind(c.Heart()) || c.Heart() == KindVarargs {
		if b := c.extra.node; b != nil {
			rt.markSeries(b)
		}
	}
	if c.getFlag(cellFlagFirstIsNode) && c.first.node != nil {
		rt.markSeries(c.first.node)
	}
	if c.getFlag(cellFlagSecondIsNode) && c.second.node != nil {
		rt.markSeries(c.second.node)
	}
}

func (rt *Runtime) markSeries(s *Series) {
	if s.header&nodeFlagMarked != 0 {
		return
	}
	s.header |= nodeFlagMarked
	rt.markSeriesContent(s)
}

// markSeriesNodeOnly marks the node live without tracing content (used for
// frame varlists whose tail is not yet initialized: the caller traces the
// defined prefix itself).
func (rt *Runtime) markSeriesNodeOnly(s *Series) {
	s.header |= nodeFlagMarked
}

func (rt *Runtime) markSeriesContent(s *Series) {
	if s.getFlag(seriesFlagLinkNodeNeedsMark) && s.link.node != nil {
		rt.markSeries(s.link.node)
	}
	if s.getFlag(seriesFlagMiscNodeNeedsMark) && s.misc.node != nil {
		rt.markSeries(s.misc.node)
	}
	if s.isPairing() {
		rt.markCell(&s.leader[0])
		rt.markCell(&s.leader[1])
		return
	}
	if s.isArray() {
		for i := 0; i < s.Len(); i++ {
			rt.markCell(s.at(i))
		}
	}
}

// sweep frees every unmarked managed node back to its pool and clears the
// marks on survivors.
func (rt *Runtime) sweep() int {
	freed := 0
	for _, seg := range rt.nodes.segments {
		for i := range seg {
			s := &seg[i]
			if s.header&nodeFlagFree != 0 {
				continue
			}
			if s.header&nodeFlagMarked != 0 {
				s.header &^= nodeFlagMarked
				continue
			}
			if s.header&nodeFlagManaged == 0 {
				continue // manual lifetime; freed explicitly
			}
			delete(rt.actionNames, s)
			rt.freeSeriesNode(s)
			freed++
		}
	}
	return freed
}
