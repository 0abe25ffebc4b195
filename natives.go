// natives.go
//
// The core native actions registered into lib at runtime boot.  These
// are deliberately few: enough arithmetic, control flow, and series
// tooling to exercise the evaluator's parameter conventions (enfix,
// deferred lookback, hard quoting, requote, refinements, variadics,
// throw/catch, and REDO).

package reb

var tsNumeric = typesetBit(KindInteger) | typesetBit(KindDecimal) |
	typesetBit(KindPercent) | typesetBit(KindPair) | typesetBit(KindChar) |
	typesetBit(KindTime)

var tsArrayAny = typesetBit(KindBlock) | typesetBit(KindGroup) |
	typesetBit(KindPath) | typesetBit(KindSetPath) | typesetBit(KindGetPath)

// registerCoreNatives builds the native actions and binds them (plus the
// enfix operator aliases) into lib.
func (rt *Runtime) registerCoreNatives() {
	add := rt.registerNative("add", []paramSpec{
		{name: "value1", class: paramClassNormal, types: tsNumeric},
		{name: "value2", class: paramClassNormal, types: tsNumeric},
	}, natArith, paramlistFlagRequotes)
	subtract := rt.registerNative("subtract", []paramSpec{
		{name: "value1", class: paramClassNormal, types: tsNumeric},
		{name: "value2", class: paramClassNormal, types: tsNumeric},
	}, natArith, paramlistFlagRequotes)
	multiply := rt.registerNative("multiply", []paramSpec{
		{name: "value1", class: paramClassNormal, types: tsNumeric},
		{name: "value2", class: paramClassNormal, types: tsNumeric},
	}, natArith, paramlistFlagRequotes)

	rt.registerEnfixAlias("+", add)
	rt.registerEnfixAlias("-", subtract)
	rt.registerEnfixAlias("*", multiply)

	equal := rt.registerNative("equal?", []paramSpec{
		{name: "value1", class: paramClassNormal, types: tsAnyValue},
		{name: "value2", class: paramClassNormal, types: tsAnyValue},
	}, natCompare, 0)
	lesser := rt.registerNative("lesser?", []paramSpec{
		{name: "value1", class: paramClassNormal, types: tsAnyValue},
		{name: "value2", class: paramClassNormal, types: tsAnyValue},
	}, natCompare, 0)
	greater := rt.registerNative("greater?", []paramSpec{
		{name: "value1", class: paramClassNormal, types: tsAnyValue},
		{name: "value2", class: paramClassNormal, types: tsAnyValue},
	}, natCompare, 0)
	notEqual := rt.registerNative("not-equal?", []paramSpec{
		{name: "value1", class: paramClassNormal, types: tsAnyValue},
		{name: "value2", class: paramClassNormal, types: tsAnyValue},
	}, natCompare, 0)
	notGreater := rt.registerNative("lesser-or-equal?", []paramSpec{
		{name: "value1", class: paramClassNormal, types: tsAnyValue},
		{name: "value2", class: paramClassNormal, types: tsAnyValue},
	}, natCompare, 0)
	notLesser := rt.registerNative("greater-or-equal?", []paramSpec{
		{name: "value1", class: paramClassNormal, types: tsAnyValue},
		{name: "value2", class: paramClassNormal, types: tsAnyValue},
	}, natCompare, 0)
	rt.registerEnfixAlias("=", equal)
	rt.registerEnfixAlias("<", lesser)
	rt.registerEnfixAlias(">", greater)
	rt.registerEnfixAlias("<>", notEqual)
	rt.registerEnfixAlias("<=", notGreater)
	rt.registerEnfixAlias(">=", notLesser)

	rt.registerNative("eval", []paramSpec{
		{name: "source", class: paramClassNormal,
			types: tsArrayAny | typesetBit(KindAction)},
	}, natEval, 0)

	rt.registerNative("literal", []paramSpec{
		{name: "value", class: paramClassHard, types: tsAnyValue},
	}, natLiteral, 0)
	rt.registerNative("the", []paramSpec{
		{name: "value", class: paramClassHard, types: tsAnyValue},
	}, natLiteral, 0)

	then := rt.registerNative("then", []paramSpec{
		{name: "optional", class: paramClassNormal, types: tsAnyValue},
		{name: "branch", class: paramClassHard,
			types: typesetBit(KindBlock) | typesetBit(KindGroup)},
	}, natThen, paramlistFlagDefersLookback)
	rt.bindEnfix("then", then)

	rt.registerNative("if", []paramSpec{
		{name: "condition", class: paramClassNormal, types: tsAnyValue},
		{name: "branch", class: paramClassNormal, types: typesetBit(KindBlock)},
	}, natIf, 0)

	rt.registerNative("comment", []paramSpec{
		{name: "discarded", class: paramClassHard, types: tsAnyValue},
	}, natComment, paramlistFlagInvisible)

	rt.registerNative("catch", []paramSpec{
		{name: "block", class: paramClassNormal, types: typesetBit(KindBlock)},
		{name: "name", class: paramClassRefinement,
			types: typesetBit(KindWord)},
	}, natCatch, 0)
	rt.registerNative("throw", []paramSpec{
		{name: "value", class: paramClassNormal, types: tsAnyValue},
		{name: "name", class: paramClassRefinement,
			types: typesetBit(KindWord)},
	}, natThrow, 0)

	rt.registerNative("trap", []paramSpec{
		{name: "block", class: paramClassNormal, types: typesetBit(KindBlock)},
	}, natTrap, 0)

	rt.registerNative("redo", []paramSpec{
		{name: "frame", class: paramClassNormal, types: typesetBit(KindFrame)},
	}, natRedo, 0)

	rt.registerNative("mold", []paramSpec{
		{name: "value", class: paramClassNormal, types: tsAnyValue},
	}, natMold, 0)
	rt.registerNative("form", []paramSpec{
		{name: "value", class: paramClassNormal, types: tsAnyValue},
	}, natForm, 0)

	rt.registerNative("protect", []paramSpec{
		{name: "value", class: paramClassNormal, types: tsAnyValue},
	}, natProtect, 0)
	rt.registerNative("unprotect", []paramSpec{
		{name: "value", class: paramClassNormal, types: tsAnyValue},
	}, natUnprotect, 0)
	rt.registerNative("freeze", []paramSpec{
		{name: "value", class: paramClassNormal, types: tsAnyValue},
	}, natFreeze, 0)

	rt.registerNative("recycle", nil, natRecycle, 0)

	rt.registerNative("wait", []paramSpec{
		{name: "duration", class: paramClassNormal,
			types: typesetBit(KindInteger) | typesetBit(KindDecimal) |
				typesetBit(KindTime) | typesetBit(KindBlank) |
				typesetBit(KindPort) | typesetBit(KindBlock)},
	}, natWait, 0)

	rt.registerNative("take", []paramSpec{
		{name: "source", class: paramClassVariadic, types: tsAnyValue},
	}, natTakeVararg, 0)

	rt.registerNative("make", []paramSpec{
		{name: "type", class: paramClassNormal, types: typesetBit(KindDatatype)},
		{name: "def", class: paramClassNormal, types: tsAnyValue},
	}, natMake, 0)
	rt.registerNative("to", []paramSpec{
		{name: "type", class: paramClassNormal, types: typesetBit(KindDatatype)},
		{name: "value", class: paramClassNormal, types: tsAnyValue},
	}, natTo, 0)

	// Datatype words: integer!, block!, and so on.
	for k := Kind(1); k < KindMax; k++ {
		name := kindName(k)
		if name == "unknown" {
			continue
		}
		InitDatatype(rt.ensureContextVar(rt.lib, rt.internSymbol(name+"!")), k)
	}

	// Constant words.  NULL is an arity-0 native because a variable
	// holding null reads as unset.
	InitLogic(rt.ensureContextVar(rt.lib, rt.internSymbol("true")), true)
	InitLogic(rt.ensureContextVar(rt.lib, rt.internSymbol("false")), false)
	InitBlank(rt.ensureContextVar(rt.lib, rt.internSymbol("blank")))
	rt.registerNative("null", nil, natNull, 0)
}

func natNull(rt *Runtime, f *Frame) *Cell { return InitNull(f.out) }

// registerNative builds the action and binds it into lib under name.
func (rt *Runtime) registerNative(name string, params []paramSpec, disp dispatcher, flags uint64) *Series {
	paramlist := rt.makeAction(name, params, disp, flags)
	v := rt.ensureContextVar(rt.lib, rt.internSymbol(name))
	InitAction(v, paramlist, nil)
	return paramlist
}

// registerEnfixAlias binds an operator spelling to an existing action
// with the enfix bit set on the variable cell.
func (rt *Runtime) registerEnfixAlias(name string, paramlist *Series) {
	v := rt.ensureContextVar(rt.lib, rt.internSymbol(name))
	InitAction(v, paramlist, nil)
	v.setFlag(cellFlagEnfixed)
}

// bindEnfix sets the enfix bit on an already-registered lib action.
func (rt *Runtime) bindEnfix(name string, paramlist *Series) {
	v := rt.ensureContextVar(rt.lib, rt.internSymbol(name))
	InitAction(v, paramlist, nil)
	v.setFlag(cellFlagEnfixed)
}

// ---------------------------------------------------------------------------
// Arithmetic
// ---------------------------------------------------------------------------

func natArith(rt *Runtime, f *Frame) *Cell {
	verb := rt.actionLabel(f.original)
	a, b := f.arg(1), f.arg(2)

	// Pairs combine componentwise.
	if a.Heart() == KindPair && b.Heart() == KindPair {
		pa, pb := a.pairing(), b.pairing()
		x := arithFloat(verb, pa.pairedCell(0).Float64(), pb.pairedCell(0).Float64())
		y := arithFloat(verb, pa.pairedCell(1).Float64(), pb.pairedCell(1).Float64())
		p := rt.allocPairing(0)
		InitDecimal(p.pairedCell(0), x)
		InitDecimal(p.pairedCell(1), y)
		return InitPair(f.out, rt.manageSeries(p))
	}
	if a.Heart() == KindPair || b.Heart() == KindPair {
		failType("arith-pair-mix", verb)
	}

	// TIME! combines with TIME! (and scales by numbers under multiply).
	if a.Heart() == KindTime || b.Heart() == KindTime {
		return natArithTime(rt, f, verb, a, b)
	}

	if a.Heart() == KindChar || b.Heart() == KindChar {
		return natArithChar(rt, f, verb, a, b)
	}

	if a.Heart() == KindInteger && b.Heart() == KindInteger {
		x, y := a.Int64(), b.Int64()
		switch verb {
		case "add":
			return InitInteger(f.out, x+y)
		case "subtract":
			return InitInteger(f.out, x-y)
		default:
			return InitInteger(f.out, x*y)
		}
	}

	r := arithFloat(verb, cellToFloat(a), cellToFloat(b))
	if a.Heart() == KindPercent && b.Heart() == KindPercent {
		return InitPercent(f.out, r)
	}
	return InitDecimal(f.out, r)
}

func arithFloat(verb string, x, y float64) float64 {
	switch verb {
	case "add":
		return x + y
	case "subtract":
		return x - y
	default:
		return x * y
	}
}

func natArithTime(rt *Runtime, f *Frame, verb string, a, b *Cell) *Cell {
	if a.Heart() == KindTime && b.Heart() == KindTime {
		switch verb {
		case "add":
			return InitTime(f.out, a.timeNanos()+b.timeNanos())
		case "subtract":
			return InitTime(f.out, a.timeNanos()-b.timeNanos())
		}
		failType("arith-time-time", verb)
	}
	// time * number scales; time +- number treats the number as seconds.
	t, n := a, b
	if t.Heart() != KindTime {
		t, n = b, a
	}
	scale := cellToFloat(n)
	switch verb {
	case "multiply":
		return InitTime(f.out, int64(float64(t.timeNanos())*scale))
	case "add":
		return InitTime(f.out, t.timeNanos()+int64(scale*1e9))
	default:
		return InitTime(f.out, t.timeNanos()-int64(scale*1e9))
	}
}

func natArithChar(rt *Runtime, f *Frame, verb string, a, b *Cell) *Cell {
	var base rune
	var delta int64
	switch {
	case a.Heart() == KindChar && b.Heart() == KindInteger:
		base, delta = a.Char(), b.Int64()
	case a.Heart() == KindInteger && b.Heart() == KindChar && verb == "add":
		base, delta = b.Char(), a.Int64()
	default:
		failType("arith-char-mix", verb)
	}
	switch verb {
	case "add":
		return InitChar(f.out, base+rune(delta))
	case "subtract":
		return InitChar(f.out, base-rune(delta))
	default:
		failType("arith-char-mix", verb)
		return nil
	}
}

// ---------------------------------------------------------------------------
// Comparison
// ---------------------------------------------------------------------------

func natCompare(rt *Runtime, f *Frame) *Cell {
	d := rt.compareCells(f.arg(1).unquotedCell(), f.arg(2).unquotedCell(), false)
	switch rt.actionLabel(f.original) {
	case "equal?":
		return InitLogic(f.out, d == 0)
	case "not-equal?":
		return InitLogic(f.out, d != 0)
	case "lesser?":
		return InitLogic(f.out, d < 0)
	case "lesser-or-equal?":
		return InitLogic(f.out, d <= 0)
	case "greater-or-equal?":
		return InitLogic(f.out, d >= 0)
	default:
		return InitLogic(f.out, d > 0)
	}
}

// ---------------------------------------------------------------------------
// Control flow
// ---------------------------------------------------------------------------

func natEval(rt *Runtime, f *Frame) *Cell {
	src := f.arg(1)
	if src.Heart() == KindAction {
		if rt.applyAction(f.feed, f.out, src, nil, false, -1) {
			return throwSentinel
		}
		return f.out
	}
	if rt.evalArrayInto(f.out, src.series(), src.binding()) {
		return throwSentinel
	}
	return f.out
}

func natLiteral(rt *Runtime, f *Frame) *Cell {
	copyCell(f.out, f.arg(1))
	f.out.header &^= cellFlagUnevaluated
	return f.out
}

// natThen: a deferred-lookback enfix branch.  Null input skips the
// branch and stays null; anything else runs it.
func natThen(rt *Runtime, f *Frame) *Cell {
	if f.arg(1).Heart() == KindNull {
		return InitNull(f.out)
	}
	branch := f.arg(2)
	if rt.evalArrayInto(f.out, branch.series(), branch.binding()) {
		return throwSentinel
	}
	return f.out
}

func natIf(rt *Runtime, f *Frame) *Cell {
	cond := f.arg(1)
	if cond.Heart() == KindNull || (cond.Heart() == KindLogic && !cond.Logic()) {
		return InitNull(f.out)
	}
	branch := f.arg(2)
	if rt.evalArrayInto(f.out, branch.series(), branch.binding()) {
		return throwSentinel
	}
	return f.out
}

func natComment(rt *Runtime, f *Frame) *Cell {
	return invisibleSentinel
}

func natCatch(rt *Runtime, f *Frame) *Cell {
	block := f.arg(1)
	name := f.arg(2)
	if !rt.evalArrayInto(f.out, block.series(), block.binding()) {
		return f.out
	}
	// Something threw.  A named catch takes only its label; an unnamed
	// catch takes unlabeled throws.
	if name.Heart() == KindWord || name.Heart() == KindSymWord {
		if isWordKind(rt.thrownLabel.Heart()) &&
			canonOf(rt.thrownLabel.wordSpelling()) == canonOf(name.wordSpelling()) {
			rt.catchThrown(f.out)
			return f.out
		}
		return throwSentinel
	}
	if rt.thrownLabel.Heart() == KindNull || rt.thrownLabel.Heart() == KindBlank {
		rt.catchThrown(f.out)
		return f.out
	}
	return throwSentinel
}

func natThrow(rt *Runtime, f *Frame) *Cell {
	label := &Cell{}
	label.Erase()
	name := f.arg(2)
	if name.Heart() == KindWord || name.Heart() == KindSymWord {
		InitSymWord(label, name.wordSpelling())
	} else {
		InitNull(label)
	}
	return rt.initThrow(label, f.arg(1))
}

// natTrap runs a block and returns the ERROR! context of any failure
// instead of propagating it; clean evaluation returns the result.
func natTrap(rt *Runtime, f *Frame) *Cell {
	block := f.arg(1)
	blockCopy := *block
	threw := false
	err := rt.Trap(func() {
		threw = rt.evalArrayInto(f.out, blockCopy.series(), blockCopy.binding())
	})
	if threw {
		return throwSentinel
	}
	if err != nil {
		InitContext(f.out, KindError, rt.errorContext(err))
		return f.out
	}
	return f.out
}

// natRedo throws a FRAME! back to its owning applyAction for a phase
// re-entry with the current argument values.
func natRedo(rt *Runtime, f *Frame) *Cell {
	label := &Cell{}
	InitSymWord(label, rt.symRedo)
	return rt.initThrow(label, f.arg(1))
}

// ---------------------------------------------------------------------------
// Rendering, protection, memory
// ---------------------------------------------------------------------------

func natMold(rt *Runtime, f *Frame) *Cell {
	text := rt.MoldCell(f.arg(1))
	return InitText(f.out, rt.manageSeries(rt.stringFrom(text)))
}

func natForm(rt *Runtime, f *Frame) *Cell {
	text := rt.FormCell(f.arg(1))
	return InitText(f.out, rt.manageSeries(rt.stringFrom(text)))
}

func natProtect(rt *Runtime, f *Frame) *Cell {
	v := f.arg(1).unquotedCell()
	if v.getFlag(cellFlagFirstIsNode) && v.first.node != nil {
		v.first.node.Protect()
	}
	copyCell(f.out, f.arg(1))
	return f.out
}

func natUnprotect(rt *Runtime, f *Frame) *Cell {
	v := f.arg(1).unquotedCell()
	if v.getFlag(cellFlagFirstIsNode) && v.first.node != nil {
		v.first.node.Unprotect()
	}
	copyCell(f.out, f.arg(1))
	return f.out
}

func natFreeze(rt *Runtime, f *Frame) *Cell {
	v := f.arg(1).unquotedCell()
	if v.getFlag(cellFlagFirstIsNode) && v.first.node != nil {
		rt.Freeze(v.first.node)
	}
	copyCell(f.out, f.arg(1))
	return f.out
}

func natRecycle(rt *Runtime, f *Frame) *Cell {
	n := rt.Recycle()
	return InitInteger(f.out, int64(n))
}

func natWait(rt *Runtime, f *Frame) *Cell {
	woken, halted := rt.waitOn(f.arg(1))
	if halted {
		// Halted from within the wait loop.
		label := &Cell{}
		InitSymWord(label, rt.symHalt)
		var null Cell
		InitNull(null.Erase())
		return rt.initThrow(label, &null)
	}
	if woken != nil {
		return InitContext(f.out, KindPort, woken)
	}
	return InitNull(f.out)
}

// natTakeVararg consumes one value from a variadic feed, demonstrating
// VARARGS! access to the caller's evaluation position.
func natTakeVararg(rt *Runtime, f *Frame) *Cell {
	if rt.varargsNext(f.arg(1), f.out) {
		return throwSentinel
	}
	return f.out
}
