package reb

import "testing"

func TestQuoteDepthInCell(t *testing.T) {
	rt := NewRuntime()
	var c Cell
	c.Erase()
	InitInteger(&c, 42)

	Quotify(rt, &c, 2)
	if got := c.QuoteDepth(); got != 2 {
		t.Fatalf("QuoteDepth = %d, want 2", got)
	}
	if c.Heart() != KindInteger {
		t.Fatalf("Heart = %v, want KindInteger", c.Heart())
	}

	Unquotify(rt, &c, 2)
	if c.QuoteDepth() != 0 {
		t.Fatalf("QuoteDepth after unquote = %d, want 0", c.QuoteDepth())
	}
	if c.Int64() != 42 {
		t.Fatalf("payload lost through quoting: %d", c.Int64())
	}
}

func TestQuoteDepthContainerEscape(t *testing.T) {
	rt := NewRuntime()
	var c Cell
	c.Erase()
	InitInteger(&c, 7)

	Quotify(rt, &c, 5)
	if Kind(c.kindByte()) != KindQuoted {
		t.Fatalf("depth 5 should escape to the container form")
	}
	if c.QuoteDepth() != 5 {
		t.Fatalf("QuoteDepth = %d, want 5", c.QuoteDepth())
	}
	if c.Heart() != KindInteger {
		t.Fatalf("Heart through container = %v, want KindInteger", c.Heart())
	}

	// Dropping below the threshold collapses back into the cell.
	Unquotify(rt, &c, 3)
	if Kind(c.kindByte()) == KindQuoted {
		t.Fatalf("depth 2 should be carried in the kind byte")
	}
	if c.QuoteDepth() != 2 || c.unquotedCell().Int64() != 7 {
		t.Fatalf("collapse lost state: depth=%d", c.QuoteDepth())
	}
}

func TestContainerQuoteCopyOnWrite(t *testing.T) {
	rt := NewRuntime()
	ctx := rt.makeContext(KindObject, 1)
	rt.guardSeries(ctx)
	defer rt.dropGuard(1)
	InitInteger(rt.ensureContextVar(ctx, rt.internSymbol("q")), 7)

	// Copies of a container-form quote share the pairing; mutating the
	// payload of one copy must not reach the other.
	var a, b Cell
	InitWord(a.Erase(), rt.internSymbol("q"))
	Quotify(rt, &a, 5)
	copyCell(b.Erase(), &a)

	rt.unquotedCellMutable(&b).bindWord(ctx, 1)
	if a.unquotedCell().binding() != nil {
		t.Fatalf("binding one copy leaked into the other")
	}
	if b.unquotedCell().binding() != ctx {
		t.Fatalf("mutated copy lost its binding")
	}
	if b.QuoteDepth() != 5 {
		t.Fatalf("depth = %d, want 5", b.QuoteDepth())
	}
}

func TestTuplePadsToThree(t *testing.T) {
	var c Cell
	c.Erase()
	InitTuple(&c, []byte{1, 2})
	if c.tupleLen() != 3 {
		t.Fatalf("tupleLen = %d, want 3", c.tupleLen())
	}
	if c.tupleByte(0) != 1 || c.tupleByte(1) != 2 || c.tupleByte(2) != 0 {
		t.Fatalf("tuple bytes = %d.%d.%d, want 1.2.0",
			c.tupleByte(0), c.tupleByte(1), c.tupleByte(2))
	}
}

func TestDatePacking(t *testing.T) {
	var c Cell
	c.Erase()
	InitDate(&c, 2000, 1, 1, 90, 12*3600*1e9, true, true)
	if c.dateYear() != 2000 || c.dateMonth() != 1 || c.dateDay() != 1 {
		t.Fatalf("date = %d/%d/%d", c.dateYear(), c.dateMonth(), c.dateDay())
	}
	if !c.dateHasTime() || c.dateNanos() != 12*3600*1e9 {
		t.Fatalf("time of day lost")
	}
	if !c.dateHasZone() || c.dateZoneMinutes() != 90 {
		t.Fatalf("zone = %d, want 90", c.dateZoneMinutes())
	}

	var d Cell
	d.Erase()
	InitDate(&d, 1999, 12, 31, 0, 0, false, false)
	if d.dateHasTime() || d.dateHasZone() {
		t.Fatalf("date-only value should have no time or zone")
	}
}

func TestCopyCellPreservesSlotFlags(t *testing.T) {
	var src, dst Cell
	src.Erase()
	dst.Erase()
	InitInteger(&src, 5)
	src.setFlag(cellFlagEnfixed)
	dst.setFlag(cellFlagProtected)

	copyCell(&dst, &src)
	if !dst.getFlag(cellFlagProtected) {
		t.Fatalf("slot protection must survive a copy")
	}
	if dst.getFlag(cellFlagEnfixed) {
		t.Fatalf("enfix is a slot flag and must not travel with the value")
	}
	if dst.Int64() != 5 {
		t.Fatalf("payload = %d, want 5", dst.Int64())
	}
}

func TestTypecheckUnquotesFirst(t *testing.T) {
	rt := NewRuntime()
	var c Cell
	c.Erase()
	InitInteger(&c, 1)
	Quotify(rt, &c, 1)

	if !typecheckCell(&c, tsAnyValue) {
		t.Fatalf("quoted value should pass the any-value typeset")
	}
}
