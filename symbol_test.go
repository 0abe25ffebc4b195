package reb

import "testing"

func TestInternIdentity(t *testing.T) {
	rt := NewRuntime()
	a := rt.internSymbol("foo")
	b := rt.internSymbol("foo")
	if a != b {
		t.Fatalf("same spelling must intern to the same node")
	}
	if symbolText(a) != "foo" {
		t.Fatalf("spelling = %q", symbolText(a))
	}
}

func TestCanonCaseInsensitive(t *testing.T) {
	rt := NewRuntime()
	lower := rt.internSymbol("word")
	upper := rt.internSymbol("WORD")
	mixed := rt.internSymbol("Word")
	if lower == upper || lower == mixed {
		t.Fatalf("distinct casings are distinct symbols")
	}
	if !sameWord(lower, upper) || !sameWord(upper, mixed) {
		t.Fatalf("casings of one spelling must share a canon")
	}
	if canonOf(lower) != canonOf(mixed) {
		t.Fatalf("canon nodes differ")
	}
	other := rt.internSymbol("words")
	if sameWord(lower, other) {
		t.Fatalf("different spellings must not share a canon")
	}
}

func TestBinderAddGetRelease(t *testing.T) {
	rt := NewRuntime()
	x := rt.internSymbol("x")
	y := rt.internSymbol("y")

	b := rt.newBinder()
	b.add(x, 1)
	b.add(y, 2)
	if b.get(x) != 1 || b.get(y) != 2 {
		t.Fatalf("binder lookup: x=%d y=%d", b.get(x), b.get(y))
	}
	if b.get(rt.internSymbol("z")) != 0 {
		t.Fatalf("unbound symbol must read as zero")
	}
	b.replace(x, 7)
	if b.get(x) != 7 {
		t.Fatalf("replace did not take: %d", b.get(x))
	}
	b.release()

	// After release the indices must be scrubbed so a fresh binder starts
	// clean.
	b2 := rt.newBinder()
	if b2.get(x) != 0 || b2.get(y) != 0 {
		t.Fatalf("release leaked binder indices")
	}
	b2.release()
}

func TestBindValuesDeep(t *testing.T) {
	rt := NewRuntime()
	blk := rt.scanSource("x [x y] z")
	ctx := rt.makeContext(KindObject, 2)
	var ten Cell
	ten.Erase()
	InitInteger(&ten, 10)
	copyCell(rt.ensureContextVar(ctx, rt.internSymbol("x")), &ten)
	InitInteger(&ten, 20)
	copyCell(rt.ensureContextVar(ctx, rt.internSymbol("y")), &ten)

	rt.bindValuesDeep(blk, ctx, bindKindsAll, 0)

	xw := blk.at(0)
	if xw.binding() != ctx {
		t.Fatalf("top-level x did not bind")
	}
	inner := blk.at(1).first.node
	if inner.at(0).binding() != ctx || inner.at(1).binding() != ctx {
		t.Fatalf("deep bind must reach nested blocks")
	}
	if blk.at(2).binding() != nil {
		t.Fatalf("z has no key and must stay unbound")
	}

	var out Cell
	out.Erase()
	rt.getWordValue(&out, inner.at(1), nil)
	if out.Int64() != 20 {
		t.Fatalf("bound y = %d, want 20", out.Int64())
	}
}

func TestVirtualBind(t *testing.T) {
	rt := NewRuntime()
	body := rt.scanSource("n n")

	var v Cell
	v.Erase()
	InitWord(&v, rt.internSymbol("n"))

	ctx, bound := rt.virtualBind([]*Cell{&v}, body, true)
	if bound == body {
		t.Fatalf("copyBody must not alias the original")
	}
	if body.at(0).binding() != nil {
		t.Fatalf("original body must stay unbound")
	}
	if bound.at(0).binding() != ctx {
		t.Fatalf("copied body must bind to the new context")
	}
	if contextLen(ctx) != 1 {
		t.Fatalf("contextLen = %d, want 1", contextLen(ctx))
	}
}

func TestVirtualBindHiddenDummies(t *testing.T) {
	rt := NewRuntime()
	body := rt.scanSource("n")

	var blank, v Cell
	InitBlank(blank.Erase())
	InitWord(v.Erase(), rt.internSymbol("n"))

	ctx, _ := rt.virtualBind([]*Cell{&blank, &v}, body, true)
	if !contextKey(ctx, 1).getFlag(cellFlagVarMarkedHidden) {
		t.Fatalf("blank slot must get a hidden dummy key")
	}

	var c Cell
	c.Erase()
	InitContext(&c, KindObject, ctx)
	if got := rt.MoldCell(&c); got != "make object! [n: null]" {
		t.Fatalf("hidden keys must not mold: %q", got)
	}
}
