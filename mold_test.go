package reb

import (
	"strings"
	"testing"
)

func moldOf(t *testing.T, rt *Runtime, source string) string {
	t.Helper()
	c := scanOne(t, rt, source)
	return rt.MoldCell(c)
}

func TestMoldScalars(t *testing.T) {
	rt := NewRuntime()
	var c Cell
	c.Erase()

	InitNull(&c)
	if rt.MoldCell(&c) != "null" || rt.FormCell(&c) != "" {
		t.Fatalf("null renders as %q / %q", rt.MoldCell(&c), rt.FormCell(&c))
	}
	InitBlank(&c)
	if rt.MoldCell(&c) != "_" {
		t.Fatalf("blank = %q", rt.MoldCell(&c))
	}
	InitLogic(&c, true)
	if rt.MoldCell(&c) != "true" {
		t.Fatalf("logic = %q", rt.MoldCell(&c))
	}
	InitDecimal(&c, 2)
	if rt.MoldCell(&c) != "2.0" {
		t.Fatalf("whole decimals keep a point: %q", rt.MoldCell(&c))
	}
	InitPercent(&c, 0.15)
	if rt.MoldCell(&c) != "15%" {
		t.Fatalf("percent = %q", rt.MoldCell(&c))
	}
	InitChar(&c, '\t')
	if rt.MoldCell(&c) != `#"^-"` {
		t.Fatalf("tab char = %q", rt.MoldCell(&c))
	}
}

func TestMoldTextNewlineUsesCaret(t *testing.T) {
	rt := NewRuntime()
	var c Cell
	c.Erase()
	InitText(&c, rt.manageSeries(rt.stringFrom("a\nb")))
	if got := rt.MoldCell(&c); got != `"a^/b"` {
		t.Fatalf("newline text = %q, want %q", got, `"a^/b"`)
	}
	// braced source reloads the same way
	c2 := scanOne(t, rt, "{x\ny}")
	if got := rt.MoldCell(c2); got != `"x^/y"` {
		t.Fatalf("braced source molds %q", got)
	}
}

func TestFormDropsDecoration(t *testing.T) {
	rt := NewRuntime()
	c := scanOne(t, rt, `"hi there"`)
	if rt.FormCell(c) != "hi there" {
		t.Fatalf("form text = %q", rt.FormCell(c))
	}
	c = scanOne(t, rt, "foo:")
	if rt.FormCell(c) != "foo" {
		t.Fatalf("form set-word = %q", rt.FormCell(c))
	}
	c = scanOne(t, rt, "''x")
	if rt.FormCell(c) != "x" {
		t.Fatalf("form drops quotes: %q", rt.FormCell(c))
	}
}

func TestMoldBlockNewlines(t *testing.T) {
	rt := NewRuntime()
	if got := moldOf(t, rt, "[1 2 3]"); got != "[1 2 3]" {
		t.Fatalf("flat block = %q", got)
	}
	got := moldOf(t, rt, "[1\n2]")
	if !strings.Contains(got, "\n") {
		t.Fatalf("newline markers must re-render: %q", got)
	}
}

func TestMoldCycle(t *testing.T) {
	rt := NewRuntime()
	arr := rt.makeArray(1, 0)
	var self Cell
	self.Erase()
	InitBlock(&self, arr)
	rt.appendCell(arr, &self)

	if got := rt.MoldCell(&self); got != "[[...]]" {
		t.Fatalf("self-referencing block = %q", got)
	}
	rt.freeUnmanagedSeries(arr)
}

func TestMoldLimit(t *testing.T) {
	opts := defaultOptions()
	opts.MoldLimit = 10
	rt := NewRuntimeWith(opts)

	blk, err := rt.Scan("[1 2 3 4 5 6 7 8 9]")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	got := rt.MoldCell(blk.at(0))
	if len(got) != 10 || !strings.HasSuffix(got, "...") {
		t.Fatalf("limited mold = %q", got)
	}
}

func TestNestedMoldsRewind(t *testing.T) {
	rt := NewRuntime()
	// A mold that molds inside itself must leave the shared buffer clean.
	before := strSize(rt.moldBuf)
	blk, _ := rt.Scan(`[a "b" [c]]`)
	_ = rt.MoldCell(blk.at(0))
	_ = rt.FormCell(blk.at(0))
	if strSize(rt.moldBuf) != before {
		t.Fatalf("mold buffer not rewound: %d -> %d", before, strSize(rt.moldBuf))
	}
}

func TestMoldObjectContext(t *testing.T) {
	rt := NewRuntime()
	ctx := rt.makeContext(KindObject, 2)
	var v Cell
	v.Erase()
	InitInteger(&v, 1)
	copyCell(rt.ensureContextVar(ctx, rt.internSymbol("a")), &v)

	var c Cell
	c.Erase()
	InitContext(&c, KindObject, ctx)
	got := rt.MoldCell(&c)
	if !strings.HasPrefix(got, "make object! [") || !strings.Contains(got, "a: 1") {
		t.Fatalf("object mold = %q", got)
	}
}
