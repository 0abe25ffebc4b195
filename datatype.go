// datatype.go
//
// Per-datatype hook tables.  Every kind routes its generic actions,
// path picking, comparison, construction, conversion, and molding
// through its HookTable slot in the runtime; extension datatypes swap
// their slots in at load time and restore the unloaded stubs when they
// unload.

package reb

// GenericHook services generic action dispatch for a kind.  verb is the
// canonical action symbol; f carries the fulfilled arguments.
type GenericHook func(rt *Runtime, f *Frame, verb *Series) *Cell

// PathHook picks (or pokes, when setval is non-nil) a path step.
type PathHook func(rt *Runtime, out *Cell, value *Cell, picker *Cell, setval *Cell) bool

// CompareHook orders two values of the same kind: negative, zero, or
// positive, like bytes.Compare.  strict requests exact-type equality.
type CompareHook func(rt *Runtime, a, b *Cell, strict bool) int

// MakeHook constructs a value of the kind from a definition.
type MakeHook func(rt *Runtime, out *Cell, def *Cell) *Cell

// ToHook converts an existing value into the kind.
type ToHook func(rt *Runtime, out *Cell, value *Cell) *Cell

// MoldHook renders a value into the mold buffer.
type MoldHook func(rt *Runtime, mo *molder, value *Cell, form bool)

// HookTable is the dispatch surface of one datatype.
type HookTable struct {
	Generic GenericHook
	Path    PathHook
	Compare CompareHook
	Make    MakeHook
	To      ToHook
	Mold    MoldHook
}

// Unloaded-extension stubs.  A kind whose extension is not loaded keeps
// these installed so any use reports the condition instead of crashing.

func unhookedGeneric(rt *Runtime, f *Frame, verb *Series) *Cell {
	failWith("dispatch", "extension-unloaded", "datatype extension not loaded: "+symbolText(verb))
	return nil
}

func unhookedPath(rt *Runtime, out *Cell, value *Cell, picker *Cell, setval *Cell) bool {
	failWith("dispatch", "extension-unloaded", "datatype extension not loaded")
	return false
}

func unhookedCompare(rt *Runtime, a, b *Cell, strict bool) int {
	failWith("dispatch", "extension-unloaded", "datatype extension not loaded")
	return 0
}

func unhookedMake(rt *Runtime, out *Cell, def *Cell) *Cell {
	failWith("dispatch", "extension-unloaded", "datatype extension not loaded")
	return nil
}

func unhookedTo(rt *Runtime, out *Cell, value *Cell) *Cell {
	failWith("dispatch", "extension-unloaded", "datatype extension not loaded")
	return nil
}

func unhookedMold(rt *Runtime, mo *molder, value *Cell, form bool) {
	failWith("dispatch", "extension-unloaded", "datatype extension not loaded")
}

var unhookedTable = HookTable{
	Generic: unhookedGeneric,
	Path:    unhookedPath,
	Compare: unhookedCompare,
	Make:    unhookedMake,
	To:      unhookedTo,
	Mold:    unhookedMold,
}

// InstallHooks swaps a kind's hook table in, returning the previous
// table so an unloading extension can restore it.
func (rt *Runtime) InstallHooks(kind Kind, table HookTable) HookTable {
	if kind <= KindEnd || kind >= KindMax {
		panicDiag("InstallHooks: kind out of range")
	}
	prev := rt.hooks[kind]
	if table.Generic == nil {
		table.Generic = unhookedGeneric
	}
	if table.Path == nil {
		table.Path = unhookedPath
	}
	if table.Compare == nil {
		table.Compare = unhookedCompare
	}
	if table.Make == nil {
		table.Make = unhookedMake
	}
	if table.To == nil {
		table.To = unhookedTo
	}
	if table.Mold == nil {
		table.Mold = unhookedMold
	}
	rt.hooks[kind] = table
	return prev
}

// UninstallHooks returns a kind to the unloaded-extension stubs.
func (rt *Runtime) UninstallHooks(kind Kind) {
	rt.hooks[kind] = unhookedTable
}

func (rt *Runtime) hooksFor(kind Kind) *HookTable {
	return &rt.hooks[kind]
}

// compareCells routes through the Compare hook of the first value's
// heart; values of different hearts order by kind number.
func (rt *Runtime) compareCells(a, b *Cell, strict bool) int {
	ha, hb := a.Heart(), b.Heart()
	if ha != hb {
		// Numeric kinds compare across INTEGER!/DECIMAL!/PERCENT!.
		if isNumericKind(ha) && isNumericKind(hb) && !strict {
			return compareNumeric(a, b)
		}
		if ha < hb {
			return -1
		}
		return 1
	}
	return rt.hooks[ha].Compare(rt, a, b, strict)
}

func isNumericKind(k Kind) bool {
	return k == KindInteger || k == KindDecimal || k == KindPercent
}

func cellToFloat(c *Cell) float64 {
	if c.Heart() == KindInteger {
		return float64(c.Int64())
	}
	return c.Float64()
}

func compareNumeric(a, b *Cell) int {
	fa, fb := cellToFloat(a), cellToFloat(b)
	switch {
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	default:
		return 0
	}
}

// installDefaultHooks seeds every kind with the built-in tables.  Kinds
// implemented by extensions (EVENT!, IMAGE!) install theirs separately
// during runtime boot.
func (rt *Runtime) installDefaultHooks() {
	for k := Kind(0); k < KindMax; k++ {
		rt.hooks[k] = unhookedTable
	}

	for _, k := range []Kind{
		KindNull, KindVoid, KindBlank, KindLogic, KindInteger,
		KindDecimal, KindPercent, KindChar, KindTime, KindDate,
		KindTuple, KindPair, KindDatatype,
	} {
		rt.InstallHooks(k, HookTable{
			Compare: compareScalar, Mold: moldScalar,
			Make: makeScalarHookFor(k), To: toScalarHookFor(k),
		})
	}

	word := HookTable{Compare: compareWord, Mold: moldWord}
	for k := KindWord; k <= KindIssue; k++ {
		rt.InstallHooks(k, word)
	}

	for _, k := range []Kind{KindText, KindFile, KindEmail, KindURL, KindTag, KindBinary} {
		rt.InstallHooks(k, HookTable{
			Compare: compareStringlike, Mold: moldStringlike,
			Path: pathStringlike, To: toStringlikeHookFor(k),
		})
	}

	for k := KindBlock; k <= KindGetPath; k++ {
		rt.InstallHooks(k, HookTable{
			Compare: compareArraylike, Mold: moldArraylike,
			Path: pathArraylike, To: toArraylikeHookFor(k),
		})
	}

	ctx := HookTable{Compare: compareContextlike, Mold: moldContextlike, Path: pathContextlike}
	for _, k := range []Kind{KindObject, KindFrame, KindModule, KindError, KindPort} {
		if k == KindObject {
			ctx.Make = makeObjectHook
		} else {
			ctx.Make = nil
		}
		rt.InstallHooks(k, ctx)
	}

	rt.InstallHooks(KindAction, HookTable{Compare: compareIdentity, Mold: moldActionCell})
	rt.InstallHooks(KindVarargs, HookTable{Compare: compareIdentity, Mold: moldVarargsCell})

	rt.installEventHooks()
	rt.installImageHooks()
}

// compareIdentity: actions and varargs compare by node identity.
func compareIdentity(rt *Runtime, a, b *Cell, strict bool) int {
	if a.first.node == b.first.node {
		return 0
	}
	return 1
}
