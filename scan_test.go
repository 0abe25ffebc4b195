package reb

import "testing"

// scanOne scans a single value and returns its cell.
func scanOne(t *testing.T, rt *Runtime, source string) *Cell {
	t.Helper()
	blk, err := rt.Scan(source)
	if err != nil {
		t.Fatalf("scan %q: %v", source, err)
	}
	if blk.Len() != 1 {
		t.Fatalf("scan %q: %d values, want 1", source, blk.Len())
	}
	return blk.at(0)
}

// scanMold checks a token's kind and how it renders back.
func scanMold(t *testing.T, rt *Runtime, source string, kind Kind, want string) {
	t.Helper()
	c := scanOne(t, rt, source)
	if c.unquotedCell().Heart() != kind {
		t.Fatalf("scan %q: kind %v, want %v", source, c.unquotedCell().Heart(), kind)
	}
	if got := rt.MoldCell(c); got != want {
		t.Fatalf("scan %q molds %q, want %q", source, got, want)
	}
}

func TestScanIntegers(t *testing.T) {
	rt := NewRuntime()
	scanMold(t, rt, "0", KindInteger, "0")
	scanMold(t, rt, "-42", KindInteger, "-42")
	scanMold(t, rt, "+7", KindInteger, "7")
	scanMold(t, rt, "1'234'567", KindInteger, "1234567")
	if c := scanOne(t, rt, "9223372036854775807"); c.Int64() != 9223372036854775807 {
		t.Fatalf("max int64 = %d", c.Int64())
	}
	if _, err := rt.Scan("9223372036854775808"); err == nil {
		t.Fatalf("integer overflow must be a scan error")
	}
}

func TestScanDecimals(t *testing.T) {
	rt := NewRuntime()
	scanMold(t, rt, "1.5", KindDecimal, "1.5")
	scanMold(t, rt, "1'234.5", KindDecimal, "1234.5")
	scanMold(t, rt, "-0.25", KindDecimal, "-0.25")
	scanMold(t, rt, "1e3", KindDecimal, "1000.0")
	scanMold(t, rt, ".5", KindDecimal, "0.5")
	scanMold(t, rt, "50%", KindPercent, "50%")
}

func TestScanTuple(t *testing.T) {
	rt := NewRuntime()
	scanMold(t, rt, "1.2.3", KindTuple, "1.2.3")
	scanMold(t, rt, "255.0.0.10", KindTuple, "255.0.0.10")
	// a dotted run only falls through to a date when a part overflows
	// the tuple range
	scanMold(t, rt, "1.2.2000", KindDate, "1-Feb-2000")
	c := scanOne(t, rt, "1.2.3")
	if c.tupleLen() != 3 {
		t.Fatalf("tupleLen = %d", c.tupleLen())
	}
}

func TestScanPair(t *testing.T) {
	rt := NewRuntime()
	scanMold(t, rt, "10x20", KindPair, "10x20")
	scanMold(t, rt, "-1.5x3", KindPair, "-1.5x3")
}

func TestScanTime(t *testing.T) {
	rt := NewRuntime()
	scanMold(t, rt, "10:30", KindTime, "10:30:00")
	scanMold(t, rt, "0:00:05.5", KindTime, "0:00:05.5")
	scanMold(t, rt, "-1:00", KindTime, "-1:00:00")
	c := scanOne(t, rt, "1:02:03")
	if c.timeNanos() != (3600+2*60+3)*1e9 {
		t.Fatalf("nanos = %d", c.timeNanos())
	}
}

func TestScanDates(t *testing.T) {
	rt := NewRuntime()
	scanMold(t, rt, "2000/01/01/12:00:00+0:00", KindDate, "1-Jan-2000/12:00:00+0:00")
	scanMold(t, rt, "1-Jan-2000", KindDate, "1-Jan-2000")
	scanMold(t, rt, "1999-12-31", KindDate, "31-Dec-1999")
	scanMold(t, rt, "29-Feb-2020", KindDate, "29-Feb-2020")
	if _, err := rt.Scan("29-Feb-2019"); err == nil {
		t.Fatalf("29-Feb-2019 is not a valid date")
	}
}

func TestScanBinary(t *testing.T) {
	rt := NewRuntime()
	scanMold(t, rt, "#{DECAFBAD}", KindBinary, "#{DECAFBAD}")
	scanMold(t, rt, "2#{10100101}", KindBinary, "#{A5}")
	scanMold(t, rt, "#{}", KindBinary, "#{}")
	if _, err := rt.Scan("#{ABC}"); err == nil {
		t.Fatalf("odd-length hex binary must fail")
	}
}

func TestScanStrings(t *testing.T) {
	rt := NewRuntime()
	scanMold(t, rt, `"hello"`, KindText, `"hello"`)
	scanMold(t, rt, `"a^/b"`, KindText, `"a^/b"`)
	scanMold(t, rt, "{braced {nested} ok}", KindText, `"braced {nested} ok"`)
	scanMold(t, rt, `#"A"`, KindChar, `#"A"`)
	scanMold(t, rt, `#"^/"`, KindChar, `#"^/"`)
}

func TestScanWordsAndSigils(t *testing.T) {
	rt := NewRuntime()
	scanMold(t, rt, "foo", KindWord, "foo")
	scanMold(t, rt, "foo:", KindSetWord, "foo:")
	scanMold(t, rt, ":foo", KindGetWord, ":foo")
	scanMold(t, rt, "#foo", KindIssue, "#foo")
	scanMold(t, rt, "'foo", KindWord, "'foo")
	scanMold(t, rt, "<=", KindWord, "<=")
	scanMold(t, rt, "<>", KindWord, "<>")
	scanMold(t, rt, ">", KindWord, ">")
	scanMold(t, rt, ">=", KindWord, ">=")
	scanMold(t, rt, ">>", KindWord, ">>")
}

func TestScanTagVsAngleWord(t *testing.T) {
	rt := NewRuntime()
	scanMold(t, rt, "<a href>", KindTag, "<a href>")
	scanMold(t, rt, "<br/>", KindTag, "<br/>")
}

func TestScanFileEmailURL(t *testing.T) {
	rt := NewRuntime()
	scanMold(t, rt, "%foo.txt", KindFile, "%foo.txt")
	scanMold(t, rt, "a@b.com", KindEmail, "a@b.com")
	scanMold(t, rt, "http://example.com/x", KindURL, "http://example.com/x")
}

func TestScanPaths(t *testing.T) {
	rt := NewRuntime()
	scanMold(t, rt, "a/b/c", KindPath, "a/b/c")
	scanMold(t, rt, "a/2", KindPath, "a/2")
	scanMold(t, rt, "a/b:", KindSetPath, "a/b:")
	scanMold(t, rt, "a/2:", KindSetPath, "a/2:")
	scanMold(t, rt, ":a/b", KindGetPath, ":a/b")
}

func TestScanBlocksAndGroups(t *testing.T) {
	rt := NewRuntime()
	scanMold(t, rt, "[1 2 [3]]", KindBlock, "[1 2 [3]]")
	scanMold(t, rt, "(a b)", KindGroup, "(a b)")
}

func TestScanQuoteDepth(t *testing.T) {
	rt := NewRuntime()
	c := scanOne(t, rt, "''x")
	if c.QuoteDepth() != 2 || c.Heart() != KindWord {
		t.Fatalf("depth=%d heart=%v", c.QuoteDepth(), c.Heart())
	}
}

func TestScanErrorsCarryPosition(t *testing.T) {
	rt := NewRuntime()
	_, err := rt.Scan("[1 2")
	if err == nil || err.ID != "missing-close" {
		t.Fatalf("want missing-close, got %v", err)
	}

	_, err = rt.Scan("1 2\n 3 ]")
	if err == nil || err.ID != "extra-close" {
		t.Fatalf("want extra-close, got %v", err)
	}
	if err.Line != 2 {
		t.Fatalf("error line = %d, want 2", err.Line)
	}

	_, err = rt.Scan(`"unterminated`)
	if err == nil || err.ID != "unterminated-string" {
		t.Fatalf("want unterminated-string, got %v", err)
	}
}

func TestScanComments(t *testing.T) {
	rt := NewRuntime()
	blk, err := rt.Scan("1 ; trailing comment\n2")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if blk.Len() != 2 {
		t.Fatalf("comments must vanish: %d values", blk.Len())
	}
	if !blk.at(1).getFlag(cellFlagNewlineBefore) {
		t.Fatalf("value after a comment line keeps its newline marker")
	}
}

func TestScanDateVersusIntegerPath(t *testing.T) {
	rt := NewRuntime()
	// Digit-led runs with slashes try a date first, then fall back to an
	// integer-headed path.
	scanMold(t, rt, "2000/01/01", KindDate, "1-Jan-2000")
	c := scanOne(t, rt, "1/2")
	if c.Heart() != KindPath {
		t.Fatalf("1/2 is no date and must scan as a path, got %v", c.Heart())
	}
}

func TestScanNetHeader(t *testing.T) {
	rt := NewRuntime()
	src := "Subject: hello\r\nTo: a@b.com\r\nTo: c@d.com\r\nX-Long: first\r\n second\r\n\r\nbody ignored"
	var c Cell
	rt.scanNetHeader(&c, []byte(src))
	if c.Heart() != KindObject {
		t.Fatalf("header scans to an object, got %v", c.Heart())
	}
	ctx := c.contextVarlist()

	v := selectContext(ctx, rt.internSymbol("subject"))
	if v == nil || v.Heart() != KindText {
		t.Fatalf("subject field missing or not text")
	}
	if got := rt.FormCell(v); got != "hello" {
		t.Fatalf("subject = %q, want %q", got, "hello")
	}

	// Repeated keys collapse into a block of values.
	v = selectContext(ctx, rt.internSymbol("to"))
	if v == nil || v.Heart() != KindBlock {
		t.Fatalf("repeated key must collapse to a block")
	}
	if v.series().Len() != 2 {
		t.Fatalf("to block has %d values, want 2", v.series().Len())
	}

	// Indented continuation lines join the previous value.
	v = selectContext(ctx, rt.internSymbol("x-long"))
	if v == nil {
		t.Fatalf("x-long field missing")
	}
	if got := rt.FormCell(v); got != "first second" {
		t.Fatalf("x-long = %q, want %q", got, "first second")
	}
}
