// eval.go
//
// One evaluator step lifts the next expression from a feed into an out
// cell: inert values copy, words dereference (invoking actions), groups
// recurse, paths dispatch with refinements via the data stack.  After the
// step, lookahead checks whether the next word is an enfix action and, if
// so, runs it with the finished out as its left argument.  Deferred enfix
// (one level only) lets `add 1 2 then [...]` hand the *completed* add
// result to THEN rather than splicing into the second argument.
//
// Argument fulfillment walks the paramlist with three parallel cursors
// (arg, param, special), honoring parameter classes, refinement ordering
// from the data stack, variadics, and the requote convention.

package reb

import "sort"

type evalFlags uint32

const (
	evalFlagFulfillingArg evalFlags = 1 << iota
)

// evalExpression evaluates one expression step from the feed into out.
// Returns true if a throw is in flight.
func (rt *Runtime) evalExpression(fd *Feed, out *Cell, flags evalFlags) bool {
	if fd.atEnd() {
		InitVoid(out)
		return false
	}
	v := fd.value

	switch {
	case v.QuoteDepth() > 0:
		// A literal evaluates by shedding one quote level.
		copyCell(out, v)
		rt.derelativize(out, fd.specifier)
		Unquotify(rt, out, 1)
		fd.fetchNext()

	case v.Heart() == KindWord:
		spelling := v.wordSpelling()
		gotten := rt.lookupWord(v, fd.specifier)
		if gotten.Type() == KindAction {
			if gotten.getFlag(cellFlagEnfixed) {
				failDispatch("enfix-missing-left-argument")
			}
			action := *gotten
			fd.fetchNext()
			if rt.applyAction(fd, out, &action, spelling, false, -1) {
				return true
			}
		} else {
			if gotten.Type() == KindNull {
				failBinding("word-has-no-value", symbolText(spelling))
			}
			copyCell(out, gotten)
			fd.fetchNext()
		}

	case v.Heart() == KindSetWord:
		target := *v
		fd.fetchNext()
		if fd.atEnd() {
			failDispatch("set-word-needs-value")
		}
		if rt.evalExpression(fd, out, evalFlagFulfillingArg) {
			return true
		}
		rt.setWordValue(&target, fd.specifier, out)

	case v.Heart() == KindSetPath:
		target := *v
		fd.fetchNext()
		if fd.atEnd() {
			failDispatch("set-path-needs-value")
		}
		if rt.evalExpression(fd, out, evalFlagFulfillingArg) {
			return true
		}
		rt.setPathValue(&target, fd.specifier, out)

	case v.Heart() == KindGetWord:
		v2 := rt.lookupWord(v, fd.specifier)
		copyCell(out, v2)
		fd.fetchNext()

	case v.Heart() == KindGroup:
		grp := *v
		fd.fetchNext()
		if rt.evalGroupInto(out, &grp, fd.specifier) {
			return true
		}

	case v.Heart() == KindPath || v.Heart() == KindGetPath:
		pathCell := *v
		fd.fetchNext()
		if rt.evalPath(fd, out, &pathCell, v.Heart() == KindGetPath) {
			return true
		}

	case v.Heart() == KindAction:
		action := *v
		fd.fetchNext()
		if rt.applyAction(fd, out, &action, nil, false, -1) {
			return true
		}

	default:
		// Inert: blocks, scalars, strings... carry their value as-is.
		copyCell(out, v)
		rt.derelativize(out, fd.specifier)
		out.setFlag(cellFlagUnevaluated)
		fd.fetchNext()
	}

	return rt.lookahead(fd, out, flags)
}

// lookahead runs trailing enfix actions against the freshly computed out.
func (rt *Runtime) lookahead(fd *Feed, out *Cell, flags evalFlags) bool {
	for {
		if fd.flags&feedFlagNoLookahead != 0 {
			// Enfix right-arg evaluation: one step only, the parent
			// enfix completes before any further infix applies.
			return false
		}
		if fd.atEnd() || fd.value.Heart() != KindWord {
			return false
		}
		gotten := rt.tryLookupWord(fd.value, fd.specifier)
		if gotten == nil || gotten.Type() != KindAction || !gotten.getFlag(cellFlagEnfixed) {
			fd.gotten = gotten
			return false
		}
		paramlist := gotten.actionParamlist()
		if paramlist.getFlag(paramlistFlagDefersLookback) && flags&evalFlagFulfillingArg != 0 {
			// Hold this enfix back so the parent expression completes;
			// a second simultaneous deferral is the defined error.
			if fd.flags&feedFlagDeferPending != 0 {
				failDispatch("enfix-defer-twice")
			}
			fd.flags |= feedFlagDeferPending
			return false
		}
		fd.flags &^= feedFlagDeferPending

		action := *gotten
		label := fd.value.wordSpelling()
		fd.fetchNext()
		if rt.applyAction(fd, out, &action, label, true, -1) {
			return true
		}
	}
}

// tryLookupWord is the non-failing lookup used by lookahead.
func (rt *Runtime) tryLookupWord(w *Cell, specifier *Series) *Cell {
	b := w.binding()
	if b == nil {
		return nil
	}
	if b.isParamlist() {
		if specifier == nil || !specifier.isVarlist() || specifier.getInfo(infoFlagInaccessible) {
			return nil
		}
		return specifier.at(w.wordIndex())
	}
	if b.getInfo(infoFlagInaccessible) {
		return nil
	}
	return b.at(w.wordIndex())
}

// derelativize rewrites a relative binding into a specific one using the
// feed's specifier, so the value can outlive the feed.
func (rt *Runtime) derelativize(c *Cell, specifier *Series) {
	u := c.unquotedCell()
	if isBindableKind(u.Heart()) && u.isRelative() {
		rt.unquotedCellMutable(c).extra.node = specifier
	}
}

// evalGroupInto evaluates a group's content to a single result (the last
// expression's value; void when empty).
func (rt *Runtime) evalGroupInto(out *Cell, group *Cell, outerSpecifier *Series) bool {
	spec := outerSpecifier
	if b := group.binding(); b != nil && b.isVarlist() {
		spec = b
	}
	fd := rt.newFeed(group.series(), group.seriesIndex(), spec)
	defer fd.free()
	InitVoid(out)
	for !fd.atEnd() {
		if rt.evalExpression(fd, out, 0) {
			return true
		}
	}
	return false
}

// evalArrayInto is the top-level entry: evaluate every expression of an
// array, leaving the last result in out.
func (rt *Runtime) evalArrayInto(out *Cell, a *Series, specifier *Series) bool {
	fd := rt.newFeed(a, 0, specifier)
	defer fd.free()
	InitVoid(out)
	for !fd.atEnd() {
		if rt.evalExpression(fd, out, 0) {
			return true
		}
		rt.maybeRecycle()
	}
	rt.assertAllWhite()
	return false
}

// ---------------------------------------------------------------------------
// Path evaluation
// ---------------------------------------------------------------------------

// evalPath handles PATH!/GET-PATH! heads.  An action head gathers the
// path's remaining words as refinements (pushed in reverse of invocation
// order), then dispatches.  A get-path never invokes.
func (rt *Runtime) evalPath(fd *Feed, out *Cell, pathCell *Cell, getting bool) bool {
	a := pathCell.series()
	if a.Len() == 0 {
		failDispatch("empty-path")
	}
	head := a.at(0)
	spec := fd.specifier
	if b := pathCell.binding(); b != nil && b.isVarlist() {
		spec = b
	}

	if head.Heart() != KindWord {
		failDispatch("path-head-not-word")
	}
	gotten := rt.lookupWord(head, spec)

	if gotten.Type() != KindAction {
		// Data path: pick through contexts field by field.
		cur := *gotten
		for i := 1; i < a.Len(); i++ {
			picker := a.at(i)
			rt.pickStep(&cur, picker, spec)
		}
		copyCell(out, &cur)
		return false
	}

	if getting {
		// :f/a/b — fetch the action with its refinement path applied as
		// a specialization rather than invoking it.
		names := make([]string, 0, a.Len()-1)
		for i := 1; i < a.Len(); i++ {
			p := a.at(i)
			if p.Heart() != KindWord {
				failDispatch("bad-refinement")
			}
			names = append(names, symbolText(canonOf(p.wordSpelling())))
		}
		spec := rt.specializeAction(gotten, nil, names)
		copyCell(out, spec)
		return false
	}

	// Reverse-of-invocation push: the first-named refinement ends up on
	// top of the stack.
	dspBase := rt.dsp
	for i := a.Len() - 1; i >= 1; i-- {
		p := a.at(i)
		if p.Heart() != KindWord {
			failDispatch("bad-refinement")
		}
		c := rt.dsPush()
		InitSymWord(c, p.wordSpelling())
	}
	action := *gotten
	return rt.applyAction(fd, out, &action, head.wordSpelling(), false, dspBase)
}

// pickStep reads one path segment via the datatype's Path hook.
func (rt *Runtime) pickStep(cur *Cell, picker *Cell, spec *Series) {
	var out Cell
	out.Erase()
	if !rt.hooks[cur.Heart()].Path(rt, &out, cur, picker, nil) {
		failDispatch("path-pick-not-supported")
	}
	copyCell(cur, &out)
}

// setPathValue writes a value through a set-path: pick through every
// segment but the last, then poke at the final one.
func (rt *Runtime) setPathValue(pathCell *Cell, specifier *Series, v *Cell) {
	a := pathCell.series()
	if a.Len() < 2 {
		failDispatch("empty-path")
	}
	head := a.at(0)
	spec := specifier
	if b := pathCell.binding(); b != nil && b.isVarlist() {
		spec = b
	}
	if head.Heart() != KindWord {
		failDispatch("path-head-not-word")
	}
	cur := *rt.lookupWord(head, spec)
	for i := 1; i < a.Len()-1; i++ {
		rt.pickStep(&cur, a.at(i), spec)
	}
	rt.pokeStep(&cur, a.at(a.Len()-1), v)
}

// pokeStep writes through a path segment via the Path hook.
func (rt *Runtime) pokeStep(cur *Cell, picker *Cell, setval *Cell) {
	if !rt.hooks[cur.Heart()].Path(rt, nil, cur, picker, setval) {
		failDispatch("path-poke-not-supported")
	}
}

// ---------------------------------------------------------------------------
// Action application
// ---------------------------------------------------------------------------

// applyAction pushes a frame, fulfills arguments, and dispatches.  dspBase
// marks where this invocation's refinement stack region starts (-1 when
// the caller pushed none).
func (rt *Runtime) applyAction(fd *Feed, out *Cell, action *Cell, label *Series, enfix bool, dspBase int) bool {
	f := rt.pushFrame(fd, out)
	if dspBase >= 0 {
		f.dspOrig = dspBase
	}
	rt.pushAction(f, action, label)
	rt.beginAction(f, enfix)

	for {
		if rt.fulfillArguments(f) {
			rt.dsp = f.dspOrig
			rt.dropAction(f)
			rt.dropFrame(f)
			return true
		}

		phase := f.rootvar.second.node
		disp := actionDispatcher(phase)
		r := disp(rt, f)

		if r == throwSentinel {
			if newPhase, ok := rt.catchRedo(f); ok {
				// Tail-call re-entry: swap phase and refulfill.
				f.rootvar.second.node = newPhase
				f.original = newPhase
				f.argIndex = 1
				f.paramIndex = 1
				f.specialIndex = 1
				f.flags &^= frameFlagDispatching
				continue
			}
			rt.dsp = f.dspOrig
			rt.dropAction(f)
			rt.dropFrame(f)
			return true
		}

		if r == invisibleSentinel {
			// Output untouched; whatever was in out stays.
			out.setFlag(cellFlagOutMarkedStale)
			break
		}

		if f.original.getFlag(paramlistFlagRequotes) && f.requotes > 0 {
			// A null return under requote stays plain null, unless the
			// action takes nulls on purpose: then the quoting sticks.
			if out.Type() != KindNull || actionAcceptsNull(f.original) {
				Quotify(rt, out, f.requotes)
			}
		}
		break
	}

	rt.dsp = f.dspOrig
	rt.dropAction(f)
	rt.dropFrame(f)
	return false
}

// catchRedo inspects an in-flight throw for a REDO aimed at this frame.
func (rt *Runtime) catchRedo(f *Frame) (*Series, bool) {
	if !rt.hasThrown {
		panicDiag("throw sentinel without thrown state")
	}
	if rt.thrownLabel.Heart() != KindSymWord ||
		canonOf(rt.thrownLabel.wordSpelling()) != rt.symRedo {
		return nil, false
	}
	if rt.thrownValue.Heart() != KindFrame ||
		rt.thrownValue.contextVarlist() != f.varlist {
		return nil, false
	}
	newPhase := rt.thrownValue.second.node
	if newPhase == nil {
		newPhase = f.original
	}
	if !frameCompatible(newPhase, f.original) {
		failDispatch("redo-phase-not-frame-compatible")
	}
	rt.hasThrown = false
	return newPhase, true
}

// ---------------------------------------------------------------------------
// Argument fulfillment
// ---------------------------------------------------------------------------

type pickup struct {
	slot     int
	stackPos int
}

func (rt *Runtime) fulfillArguments(f *Frame) bool {
	n := numParams(f.original)
	var pickups []pickup

	for i := 1; i <= n; i++ {
		f.argIndex = i
		f.paramIndex = i
		param := f.param(i)
		arg := f.arg(i)
		arg.Erase()

		// Specialized-out slot: value comes from the exemplar, already
		// checked.
		if f.special != nil {
			f.specialIndex = i
			sp := contextVar(f.special, i)
			if sp.getFlag(cellFlagArgMarkedChecked) {
				copyCell(arg, sp)
				arg.setFlag(cellFlagArgMarkedChecked)
				continue
			}
		}

		switch param.paramClass() {
		case paramClassLocal:
			InitNull(arg)
			arg.setFlag(cellFlagArgMarkedChecked)

		case paramClassReturn:
			// The return slot's typeset carries the return types; the
			// value starts void.
			InitVoid(arg)
			arg.setFlag(cellFlagArgMarkedChecked)

		case paramClassRefinement:
			pos := rt.findRefinementOnStack(f.dspOrig, param.paramSpelling())
			if pos == 0 {
				InitNull(arg)
				arg.setFlag(cellFlagArgMarkedChecked)
				continue
			}
			rt.ds[pos].Erase() // consumed
			if param.paramTypes() == 0 {
				// Argless refinement: the arg is the refinement name.
				InitSymWord(arg, param.paramSpelling())
				arg.setFlag(cellFlagArgMarkedChecked)
			} else {
				pickups = append(pickups, pickup{slot: i, stackPos: pos})
			}

		case paramClassVariadic:
			InitVarargs(arg, f.varlist, i)
			arg.setFlag(cellFlagArgMarkedChecked)

		default:
			if rt.fulfillArgFromFeed(f, param, arg) {
				return true
			}
			rt.typecheckArg(f, param, arg)
		}
	}

	// Refinement-argument pickups run in invocation order: the stack was
	// pushed in reverse of invocation, so topmost first.
	sort.Slice(pickups, func(a, b int) bool { return pickups[a].stackPos > pickups[b].stackPos })
	for _, pk := range pickups {
		f.argIndex = pk.slot
		param := f.param(pk.slot)
		arg := f.arg(pk.slot)
		if rt.fulfillArgFromFeed(f, param, arg) {
			return true
		}
		rt.typecheckArg(f, param, arg)
	}

	// Any unconsumed refinement word above dspOrig names something the
	// action does not have.
	for i := f.dspOrig + 1; i <= rt.dsp; i++ {
		if !rt.ds[i].IsFree() && rt.ds[i].Heart() == KindSymWord {
			failDispatch("bad-refinement")
		}
	}

	f.argIndex = n + 1
	f.flags |= frameFlagDispatching
	return false
}

// findRefinementOnStack scans this invocation's stack region for a
// refinement word matching the spelling; 0 when absent.
func (rt *Runtime) findRefinementOnStack(dspOrig int, spelling *Series) int {
	canon := canonOf(spelling)
	for i := rt.dsp; i > dspOrig; i-- {
		c := &rt.ds[i]
		if !c.IsFree() && c.Heart() == KindSymWord && canonOf(c.wordSpelling()) == canon {
			return i
		}
	}
	return 0
}

// fulfillArgFromFeed fills one slot per its quoting class.
func (rt *Runtime) fulfillArgFromFeed(f *Frame, param *Cell, arg *Cell) bool {
	fd := f.feed

	if f.flags&frameFlagNextArgFromOut != 0 {
		// Enfix left argument was pre-placed in out.
		f.flags &^= frameFlagNextArgFromOut
		if f.out.getFlag(cellFlagOutMarkedStale) {
			failDispatch("enfix-missing-left-argument")
		}
		copyCell(arg, f.out)
		rt.captureRequote(f, arg)
		return false
	}

	if fd.atEnd() {
		failType("missing-argument", rt.argErrorName(f, param))
	}

	switch param.paramClass() {
	case paramClassHard:
		copyCell(arg, fd.value)
		rt.derelativize(arg, fd.specifier)
		arg.setFlag(cellFlagUnevaluated)
		fd.fetchNext()

	case paramClassSoft, paramClassModal:
		if fd.value.Heart() == KindGroup && fd.value.QuoteDepth() == 0 {
			grp := *fd.value
			fd.fetchNext()
			if rt.evalGroupInto(arg, &grp, fd.specifier) {
				return true
			}
		} else {
			copyCell(arg, fd.value)
			rt.derelativize(arg, fd.specifier)
			arg.setFlag(cellFlagUnevaluated)
			fd.fetchNext()
		}

	default: // paramClassNormal
		restore := false
		if f.flags&frameFlagRunningEnfix != 0 {
			// Enfix right arguments take one evaluation unit without
			// lookahead: 1 + 2 * 3 is (1 + 2) * 3.
			if fd.flags&feedFlagNoLookahead == 0 {
				fd.flags |= feedFlagNoLookahead
				restore = true
			}
		}
		threw := rt.evalExpression(fd, arg, evalFlagFulfillingArg)
		if restore {
			fd.flags &^= feedFlagNoLookahead
		}
		if threw {
			return true
		}
	}

	rt.captureRequote(f, arg)
	return false
}

// captureRequote records (and strips) the quoting of the first fulfilled
// argument when the action declares the requote convention.
func (rt *Runtime) captureRequote(f *Frame, arg *Cell) {
	if !f.original.getFlag(paramlistFlagRequotes) || f.requotes != 0 {
		return
	}
	if d := arg.QuoteDepth(); d > 0 {
		f.requotes = d
		Unquotify(rt, arg, d)
	}
}

func (rt *Runtime) typecheckArg(f *Frame, param *Cell, arg *Cell) {
	if arg.getFlag(cellFlagArgMarkedChecked) {
		return
	}
	if !typecheckCell(arg, param.paramTypes()) {
		failType("arg-type", rt.argErrorName(f, param))
	}
	arg.setFlag(cellFlagArgMarkedChecked)
}

func (rt *Runtime) argErrorName(f *Frame, param *Cell) string {
	label := rt.actionLabel(f.original)
	if f.optLabel != nil {
		label = symbolText(f.optLabel)
	}
	return label + "/" + symbolText(param.paramSpelling())
}
