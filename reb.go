// reb.go — public surface of the value/series runtime.
//
// All interpreter state hangs off one *Runtime: the node pools, the data
// stack, the frame stack, the symbol tables, the mold buffer, and the
// signal word.  There is no package-level mutability; independent runtimes
// are fully isolated (though a single Runtime is single-threaded by
// design: the evaluator, pools, and mold buffer are shared resources of
// one cooperative thread of control).
//
// The canonical entry points:
//
//	rt := reb.NewRuntime()
//	result, err := rt.Do("1 + 2 * 3")   // scan, bind, evaluate, mold
//
// Internal code signals errors with fail(), a panic routed through the
// trap chain; every public method converts that to a *Error return.

package reb

import "sync/atomic"

// Version of the runtime library.
const Version = "0.5.0"

// Options tune a runtime at construction.
type Options struct {
	// RecycleBallast is how many allocated bytes may accumulate before
	// the RECYCLE signal is raised (honored at evaluator safe points).
	RecycleBallast int

	// MoldLimit truncates molded output with an ellipsis when positive.
	MoldLimit int

	// DataStackCapacity is the initial data stack size in cells.
	DataStackCapacity int
}

func defaultOptions() Options {
	return Options{
		RecycleBallast:    1 << 20,
		MoldLimit:         0,
		DataStackCapacity: 1024,
	}
}

// Signal bits (shared with the WAIT facility; HALT may be set from
// another goroutine, hence the atomic word).
const (
	sigRecycle uint32 = 1 << iota
	sigHalt
	sigInterrupt
)

type Runtime struct {
	opts Options

	// Memory.
	nodes             nodePool
	dataPools         dataPool
	manuals           []*Series
	guarded           []any
	ballast           int
	totalManagedBytes int

	// Symbols.
	spellings map[string]*Series // exact spelling → symbol
	canons    map[string]*Series // case-folded spelling → canon
	binderLowLive  bool
	binderHighLive bool

	// Data stack (index 0 unused; entries 1..dsp live).
	ds  []Cell
	dsp int

	// Frame stack.
	topFrame *Frame

	// Throw state (propagated by dispatcher sentinel, not by panic).
	hasThrown   bool
	thrownLabel Cell
	thrownValue Cell

	// Well-known canons.
	symRedo   *Series
	symHalt   *Series

	// The lib context: default binding target for loaded source.
	lib *Series

	// Mold machinery (process-wide singletons of this runtime).
	moldBuf   *Series
	moldStack []*Series
	byteBuf   []byte

	// Datatype extension hook table.
	hooks [KindMax]HookTable

	// Device layer for WAIT.
	devices []Device

	// Diagnostics.
	blackCount  int
	actionNames map[*Series]string

	sigs atomic.Uint32
}

// NewRuntime builds a runtime with default options and the core natives
// loaded into lib.
func NewRuntime() *Runtime {
	return NewRuntimeWith(defaultOptions())
}

func NewRuntimeWith(opts Options) *Runtime {
	rt := &Runtime{
		opts:        opts,
		ballast:     opts.RecycleBallast,
		spellings:   map[string]*Series{},
		canons:      map[string]*Series{},
		ds:          make([]Cell, opts.DataStackCapacity),
		actionNames: map[*Series]string{},
	}
	rt.initDataPools()

	rt.symRedo = rt.internSymbol("redo")
	rt.symHalt = rt.internSymbol("halt")

	rt.lib = rt.manageSeries(rt.makeContext(KindModule, 64))
	rt.moldBuf = rt.manageSeries(rt.makeString(256))

	rt.installDefaultHooks()
	rt.registerCoreNatives()
	rt.RegisterDevice(timerDevice{})
	return rt
}

func (rt *Runtime) initDataPools() {
	// One free-slab stack per size class.
	rt.dataPools.freeBytes = make([][][]byte, len(poolBucketSizes))
	rt.dataPools.freeCells = make([][][]Cell, len(poolBucketSizes))
}

// ---------------------------------------------------------------------------
// Signals
// ---------------------------------------------------------------------------

func (rt *Runtime) setSignal(bit uint32) {
	for {
		old := rt.sigs.Load()
		if rt.sigs.CompareAndSwap(old, old|bit) {
			return
		}
	}
}

func (rt *Runtime) clearSignal(bit uint32) {
	for {
		old := rt.sigs.Load()
		if rt.sigs.CompareAndSwap(old, old&^bit) {
			return
		}
	}
}

func (rt *Runtime) getSignal(bit uint32) bool { return rt.sigs.Load()&bit != 0 }

// Halt requests an interrupt of the running evaluation; safe to call from
// another goroutine (a console Ctrl-C handler, typically).
func (rt *Runtime) Halt() { rt.setSignal(sigHalt) }

// ---------------------------------------------------------------------------
// Data stack
// ---------------------------------------------------------------------------

func (rt *Runtime) dsPush() *Cell {
	rt.dsp++
	if rt.dsp >= len(rt.ds) {
		grown := make([]Cell, len(rt.ds)*2)
		copy(grown, rt.ds)
		rt.ds = grown
	}
	c := &rt.ds[rt.dsp]
	c.Erase()
	return c
}

func (rt *Runtime) dsPushCell(v *Cell) *Cell {
	c := rt.dsPush()
	return copyCell(c, v)
}

func (rt *Runtime) dsTop() *Cell { return &rt.ds[rt.dsp] }

func (rt *Runtime) dsDrop() { rt.dsp-- }

// ---------------------------------------------------------------------------
// Throw plumbing
// ---------------------------------------------------------------------------

// initThrow records a labeled throw and returns the sentinel every
// dispatcher propagates.
func (rt *Runtime) initThrow(label *Cell, value *Cell) *Cell {
	copyCell(&rt.thrownLabel, label)
	copyCell(&rt.thrownValue, value)
	rt.hasThrown = true
	return throwSentinel
}

// catchThrown moves the thrown value into out and clears the state.
func (rt *Runtime) catchThrown(out *Cell) {
	if !rt.hasThrown {
		panicDiag("catchThrown without throw in flight")
	}
	copyCell(out, &rt.thrownValue)
	rt.hasThrown = false
}

// ---------------------------------------------------------------------------
// Public entry points
// ---------------------------------------------------------------------------

// Do scans, binds into lib, evaluates, and molds the result.
func (rt *Runtime) Do(source string) (result string, err *Error) {
	err = rt.Trap(func() {
		block := rt.scanSource(source)
		rt.guardSeries(block)
		defer rt.dropGuard(1)
		rt.bindValuesDeep(block, rt.lib, bindKindsAll, typesetBit(KindSetWord))

		var out Cell
		out.Erase()
		rt.guardCell(&out)
		defer rt.dropGuard(1)
		if rt.evalArrayInto(&out, block, nil) {
			e := rt.uncaughtThrowError()
			fail(e)
		}
		result = rt.MoldCell(&out)
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

// EvalSource is Do without the mold: the raw result cell is copied into a
// caller-owned cell.
func (rt *Runtime) EvalSource(source string, out *Cell) (err *Error) {
	return rt.Trap(func() {
		block := rt.scanSource(source)
		rt.guardSeries(block)
		defer rt.dropGuard(1)
		rt.bindValuesDeep(block, rt.lib, bindKindsAll, typesetBit(KindSetWord))
		if rt.evalArrayInto(out, block, nil) {
			fail(rt.uncaughtThrowError())
		}
	})
}

// Scan lifts source text into a block without binding or evaluating.
func (rt *Runtime) Scan(source string) (block *Series, err *Error) {
	err = rt.Trap(func() {
		block = rt.scanSource(source)
	})
	if err != nil {
		return nil, err
	}
	return block, nil
}

func (rt *Runtime) uncaughtThrowError() *Error {
	label := "(unlabeled)"
	if rt.thrownLabel.Heart() == KindSymWord || rt.thrownLabel.Heart() == KindWord {
		label = symbolText(rt.thrownLabel.wordSpelling())
	}
	rt.hasThrown = false
	if label == "halt" {
		return &Error{Type: "halt", ID: "halted", Message: "evaluation halted"}
	}
	return &Error{Type: "dispatch", ID: "no-catch", Message: "uncaught throw: " + label}
}

// LibVar exposes a lib variable cell for embedding and tests.
func (rt *Runtime) LibVar(name string) *Cell {
	return selectContext(rt.lib, rt.internSymbol(name))
}
