package reb

import (
	"strconv"
	"testing"
)

func TestRegrowKeepsContent(t *testing.T) {
	rt := NewRuntime()
	a := rt.makeArray(4, 0)
	var c Cell
	for i := int64(0); i < 8; i++ {
		InitInteger(c.Erase(), i)
		rt.appendCell(a, &c)
	}

	// Head removal leaves bias; the relocation that follows must carry
	// both the length and the content across.
	rt.removeSeriesUnits(a, 0, 3)
	for i := int64(8); i < 80; i++ {
		InitInteger(c.Erase(), i)
		rt.appendCell(a, &c)
	}
	if a.Len() != 77 {
		t.Fatalf("Len = %d, want 77", a.Len())
	}
	for i := 0; i < 77; i++ {
		if got := a.at(i).Int64(); got != int64(i+3) {
			t.Fatalf("at(%d) = %d, want %d", i, got, i+3)
		}
	}
}

func TestContextGrowth(t *testing.T) {
	rt := NewRuntime()
	ctx := rt.makeContext(KindObject, 4)
	for i := 0; i < 70; i++ {
		name := "field-" + strconv.Itoa(i)
		InitInteger(rt.ensureContextVar(ctx, rt.internSymbol(name)), int64(i))
	}
	if contextLen(ctx) != 70 {
		t.Fatalf("contextLen = %d, want 70", contextLen(ctx))
	}
	v := selectContext(ctx, rt.internSymbol("field-33"))
	if v == nil || v.Int64() != 33 {
		t.Fatalf("field-33 lost across keylist growth")
	}
}

func TestArrayAppendAndGrowth(t *testing.T) {
	rt := NewRuntime()
	a := rt.makeArray(2, 0)
	var c Cell
	for i := int64(0); i < 50; i++ {
		c.Erase()
		InitInteger(&c, i)
		rt.appendCell(a, &c)
	}
	if a.Len() != 50 {
		t.Fatalf("Len = %d, want 50", a.Len())
	}
	for i := 0; i < 50; i++ {
		if got := a.at(i).Int64(); got != int64(i) {
			t.Fatalf("at(%d) = %d", i, got)
		}
	}
	if !a.isDynamic() {
		t.Fatalf("50 cells must have promoted the array to dynamic storage")
	}
}

func TestByteSeriesAppendAndRemove(t *testing.T) {
	rt := NewRuntime()
	s := rt.makeBinary(4)
	rt.appendBytes(s, []byte("hello world"))
	if s.Len() != 11 {
		t.Fatalf("Len = %d, want 11", s.Len())
	}
	rt.removeSeriesUnits(s, 0, 6)
	if s.Len() != 5 || string(s.bytes()) != "world" {
		t.Fatalf("after head removal: %q", s.bytes())
	}
	rt.removeSeriesUnits(s, 4, 1)
	if string(s.bytes()) != "worl" {
		t.Fatalf("after tail removal: %q", s.bytes())
	}
}

func TestExpandInMiddle(t *testing.T) {
	rt := NewRuntime()
	s := rt.makeBinary(8)
	rt.appendBytes(s, []byte("abcd"))
	rt.expandSeries(s, 2, 3)
	b := s.bytes()
	if len(b) != 7 || b[0] != 'a' || b[1] != 'b' || b[5] != 'c' || b[6] != 'd' {
		t.Fatalf("expand misplaced content: %q", b)
	}
}

func TestLockPriority(t *testing.T) {
	rt := NewRuntime()
	s := rt.makeBinary(4)

	writeErr := func() *Error {
		return rt.Trap(func() { s.ensureWritable() })
	}

	if err := writeErr(); err != nil {
		t.Fatalf("unlocked series should be writable: %v", err)
	}

	s.Protect()
	if err := writeErr(); err == nil || err.ID != "series-protected" {
		t.Fatalf("want series-protected, got %v", err)
	}

	rt.Freeze(s)
	if err := writeErr(); err == nil || err.ID != "series-frozen" {
		t.Fatalf("frozen outranks protected, got %v", err)
	}

	if !s.takeHold() {
		t.Fatalf("first hold should succeed")
	}
	if err := writeErr(); err == nil || err.ID != "series-held" {
		t.Fatalf("held outranks frozen, got %v", err)
	}
	if s.takeHold() {
		t.Fatalf("second hold must report already-held")
	}
	s.releaseHold()

	s.setInfo(infoFlagAutoLocked)
	if err := writeErr(); err == nil || err.ID != "series-auto-locked" {
		t.Fatalf("auto-locked outranks everything, got %v", err)
	}
}

func TestFreezeIsDeep(t *testing.T) {
	rt := NewRuntime()
	inner := rt.makeBinary(4)
	outer := rt.makeArray(2, 0)
	var c Cell
	c.Erase()
	InitBinary(&c, inner)
	rt.appendCell(outer, &c)

	rt.Freeze(outer)
	if !inner.isFrozen() {
		t.Fatalf("freeze of an array must reach series its cells reference")
	}
	// Freezing twice is fine; there is no thaw.
	rt.Freeze(outer)
	if err := rt.Trap(func() { inner.ensureWritable() }); err == nil {
		t.Fatalf("frozen inner series should refuse writes")
	}
}

func TestColoringBalance(t *testing.T) {
	rt := NewRuntime()
	s := rt.makeArray(2, 0)
	if !rt.Blacken(s) {
		t.Fatalf("first blacken should report a transition")
	}
	if rt.Blacken(s) {
		t.Fatalf("second blacken must be a no-op")
	}
	rt.Whiten(s)
	rt.assertAllWhite()
}

func TestNewlineAtTailFlag(t *testing.T) {
	rt := NewRuntime()
	blk := rt.scanSource("[1\n2\n]")
	inner := blk.at(0)
	if inner.Heart() != KindBlock {
		t.Fatalf("expected a block, got %v", inner.Heart())
	}
	arr := inner.first.node
	if !arr.getFlag(seriesFlagNewlineAtTail) {
		t.Fatalf("trailing newline before ] must set the tail flag")
	}
	if !arr.at(1).getFlag(cellFlagNewlineBefore) {
		t.Fatalf("2 follows a newline and must carry the marker")
	}
}
