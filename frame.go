// frame.go
//
// Frames are Go-stack records chained through the runtime's top-frame
// pointer in strict tree discipline: the Go call stack and the logical
// frame stack mirror each other exactly, and a fail unwinds both together
// through the trap chain.  A frame's varlist (argument storage) is
// allocated lazily, reused across actions on the same frame, and detached
// to the GC only if a FRAME! value escaped.

package reb

const (
	frameFlagNextArgFromOut uint32 = 1 << iota // enfix left arg pre-placed in out
	frameFlagRunningEnfix                      // this call is an enfix dispatch
	frameFlagFulfillingArg                     // this frame computes an argument of its parent
	frameFlagDispatching                       // fulfillment done; dispatcher running
	frameFlagNoLookaheadSeen                   // feed NO_LOOKAHEAD captured at Begin_Action
)

type Frame struct {
	prior *Frame
	feed  *Feed
	out   *Cell // destination; must live outside relocatable storage
	spare Cell  // dispatcher scratch

	varlist *Series // argument store; index 0 is the frame archetype
	rootvar *Cell

	// Parallel cursors over argument slots, parameter cells, and
	// exemplar/specialization values (all 1-based slot indices).
	argIndex     int
	paramIndex   int
	specialIndex int
	special      *Series // exemplar varlist, or nil

	original *Series // paramlist of the running action (nil until pushAction)
	optLabel *Series // symbol the action was invoked by, or nil

	requotes  int
	dspOrig   int
	exprIndex int
	flags     uint32
}

// fulfilling reports whether argument slots past argIndex are still
// uninitialized (GC must not trace them).
func (f *Frame) fulfilling() bool {
	return f.original != nil && f.flags&frameFlagDispatching == 0
}

// pushFrame chains a new frame on top; the caller supplies the feed and
// the out cell.
func (rt *Runtime) pushFrame(fd *Feed, out *Cell) *Frame {
	f := &Frame{feed: fd, out: out, dspOrig: rt.dsp}
	f.spare.Erase()
	f.prior = rt.topFrame
	rt.topFrame = f
	rt.maybeRecycle()
	return f
}

func (rt *Runtime) dropFrame(f *Frame) {
	if rt.topFrame != f {
		panicDiag("frame drop out of tree order")
	}
	if f.varlist != nil && !f.varlist.isManaged() {
		rt.freeUnmanagedSeries(f.varlist)
		f.varlist = nil
	}
	rt.topFrame = f.prior
	rt.maybeRecycle()
}

// arg/param/special accessors for the current cursors.
func (f *Frame) arg(i int) *Cell   { return f.varlist.at(i) }
func (f *Frame) param(i int) *Cell { return f.original.at(i) }

// ---------------------------------------------------------------------------
// Push_Action / Begin_Action / Drop_Action
// ---------------------------------------------------------------------------

// pushAction sizes the frame's varlist to the action's parameter count
// plus the archetype, recycling a previous varlist when capacity allows.
// Cells past the archetype are prepared as trash so the GC sees defined
// content up to the arg cursor.
func (rt *Runtime) pushAction(f *Frame, action *Cell, label *Series) {
	paramlist := action.actionParamlist()
	need := numParams(paramlist) + 1

	if f.varlist != nil && f.varlist.isManaged() {
		f.varlist = nil // escaped to user code; GC owns it now
	}
	if f.varlist != nil && f.varlist.rest < need {
		rt.freeUnmanagedSeries(f.varlist)
		f.varlist = nil
	}
	if f.varlist == nil {
		f.varlist = rt.makeArray(need, seriesFlagIsVarlist|seriesFlagFixedSize)
	}
	vl := f.varlist
	if !vl.isDynamic() {
		rt.promoteToDynamic(vl, need)
	}
	vl.used = need
	for i := 0; i < need; i++ {
		vl.at(i).Erase()
	}

	// The archetype carries the current phase (action) and binding.
	f.rootvar = vl.at(0)
	f.rootvar.reset(KindFrame, cellFlagFirstIsNode|cellFlagSecondIsNode)
	f.rootvar.first.node = vl
	f.rootvar.second.node = paramlist
	f.rootvar.extra.node = action.binding()
	vl.link.node = paramlist // keylist role is served by the paramlist
	vl.setFlag(seriesFlagLinkNodeNeedsMark)

	f.original = paramlist
	f.optLabel = label
	f.argIndex = 1
	f.paramIndex = 1
	f.specialIndex = 1
	f.special = exemplarOf(action)
	f.flags &^= frameFlagDispatching

	// Partially specialized refinement order: sym-word sentinels planted
	// in the exemplar go onto the data stack before any callsite
	// refinements, so callsite refinements override only unspecialized
	// slots.
	if f.special != nil {
		for i := numParams(paramlist); i >= 1; i-- {
			sp := contextVar(f.special, i)
			if !sp.getFlag(cellFlagArgMarkedChecked) && sp.Heart() == KindSymWord {
				rt.dsPushCell(sp)
			}
		}
	}
	rt.maybeRecycle()
}

// beginAction records enfix state and clears per-call bookkeeping.
func (rt *Runtime) beginAction(f *Frame, enfix bool) {
	f.requotes = 0
	f.flags &^= frameFlagRunningEnfix | frameFlagNoLookaheadSeen
	if f.feed != nil && f.feed.flags&feedFlagNoLookahead != 0 {
		f.flags |= frameFlagNoLookaheadSeen
	}
	if enfix {
		f.flags |= frameFlagRunningEnfix | frameFlagNextArgFromOut
		if f.feed != nil {
			f.feed.flags &^= feedFlagNoLookahead
		}
	}
}

// dropAction releases the action state.  The varlist is kept for reuse
// when it never escaped; if it became managed (a FRAME! value survived),
// it is detached and flagged expired for the GC to deal with.
func (rt *Runtime) dropAction(f *Frame) {
	if f.varlist != nil && f.varlist.isManaged() {
		f.varlist.setInfo(infoFlagInaccessible)
		f.varlist = nil
		f.rootvar = nil
	}
	if f.original != nil && f.original.getFlag(paramlistFlagInvisible) &&
		f.flags&frameFlagNoLookaheadSeen != 0 && f.feed != nil {
		// Invisibles restore the lookahead suppression they saw.
		f.feed.flags |= feedFlagNoLookahead
	}
	f.original = nil
	f.optLabel = nil
	f.special = nil
	f.flags &^= frameFlagNextArgFromOut | frameFlagRunningEnfix | frameFlagDispatching
	rt.maybeRecycle()
}
