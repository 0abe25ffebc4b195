// compare.go
//
// Compare and Path hook implementations for the built-in datatypes.
// Comparison follows three-way ordering; lax comparison folds case for
// words and strings and lets the numeric kinds interconvert (handled
// upstream in compareCells).

package reb

import (
	"bytes"
	"strings"
)

// ---------------------------------------------------------------------------
// Compare hooks
// ---------------------------------------------------------------------------

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareScalar(rt *Runtime, a, b *Cell, strict bool) int {
	switch a.Heart() {
	case KindNull, KindVoid, KindBlank:
		return 0
	case KindLogic:
		var na, nb int64
		if a.Logic() {
			na = 1
		}
		if b.Logic() {
			nb = 1
		}
		return cmpInt64(na, nb)
	case KindInteger:
		return cmpInt64(a.Int64(), b.Int64())
	case KindDecimal, KindPercent:
		return cmpFloat64(a.Float64(), b.Float64())
	case KindChar:
		ca, cb := a.Char(), b.Char()
		if !strict {
			ca, cb = foldRune(ca), foldRune(cb)
		}
		return cmpInt64(int64(ca), int64(cb))
	case KindTime:
		return cmpInt64(a.timeNanos(), b.timeNanos())
	case KindDate:
		if d := cmpInt64(dateOrdinal(a), dateOrdinal(b)); d != 0 {
			return d
		}
		return cmpInt64(a.dateNanos(), b.dateNanos())
	case KindTuple:
		return compareTuple(a, b)
	case KindPair:
		pa, pb := a.pairing(), b.pairing()
		if d := cmpFloat64(pa.pairedCell(0).Float64(), pb.pairedCell(0).Float64()); d != 0 {
			return d
		}
		return cmpFloat64(pa.pairedCell(1).Float64(), pb.pairedCell(1).Float64())
	case KindDatatype:
		return cmpInt64(int64(a.datatypeKind()), int64(b.datatypeKind()))
	}
	panicDiag("compareScalar: unexpected kind")
	return 0
}

func foldRune(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

func dateOrdinal(c *Cell) int64 {
	return int64(c.dateYear())<<16 | int64(c.dateMonth())<<8 | int64(c.dateDay())
}

// compareTuple compares lexicographically with the shorter padded by
// zero bytes.
func compareTuple(a, b *Cell) int {
	n := a.tupleLen()
	if b.tupleLen() > n {
		n = b.tupleLen()
	}
	for i := 0; i < n; i++ {
		var ba, bb byte
		if i < a.tupleLen() {
			ba = a.tupleByte(i)
		}
		if i < b.tupleLen() {
			bb = b.tupleByte(i)
		}
		if ba != bb {
			return cmpInt64(int64(ba), int64(bb))
		}
	}
	return 0
}

func compareWord(rt *Runtime, a, b *Cell, strict bool) int {
	sa := symbolText(a.wordSpelling())
	sb := symbolText(b.wordSpelling())
	if !strict {
		sa = symbolText(canonOf(a.wordSpelling()))
		sb = symbolText(canonOf(b.wordSpelling()))
	}
	return strings.Compare(sa, sb)
}

func compareStringlike(rt *Runtime, a, b *Cell, strict bool) int {
	ba := a.series().bytes()
	bb := b.series().bytes()
	if ia := byteIndexOf(rt, a); ia > 0 {
		ba = ba[ia:]
	}
	if ib := byteIndexOf(rt, b); ib > 0 {
		bb = bb[ib:]
	}
	if a.Heart() != KindBinary && !strict {
		return strings.Compare(strings.ToLower(string(ba)), strings.ToLower(string(bb)))
	}
	return bytes.Compare(ba, bb)
}

// byteIndexOf converts a cell's codepoint index into a byte offset (a
// raw byte offset for binaries).
func byteIndexOf(rt *Runtime, c *Cell) int {
	idx := c.seriesIndex()
	if idx <= 0 {
		return 0
	}
	if c.Heart() == KindBinary {
		if idx > c.series().Len() {
			return c.series().Len()
		}
		return idx
	}
	s := c.series()
	if idx >= strLen(s) {
		return strSize(s)
	}
	return rt.strAt(s, idx).ofs
}

func compareArraylike(rt *Runtime, a, b *Cell, strict bool) int {
	ca := a.series().arraySlice()[a.seriesIndex():]
	cb := b.series().arraySlice()[b.seriesIndex():]
	n := len(ca)
	if len(cb) < n {
		n = len(cb)
	}
	for i := 0; i < n; i++ {
		if d := rt.compareCells(&ca[i], &cb[i], strict); d != 0 {
			return d
		}
	}
	return cmpInt64(int64(len(ca)), int64(len(cb)))
}

func compareContextlike(rt *Runtime, a, b *Cell, strict bool) int {
	if a.contextVarlist() == b.contextVarlist() {
		return 0
	}
	return 1
}

// ---------------------------------------------------------------------------
// Path hooks
// ---------------------------------------------------------------------------

// pathArraylike: integer pickers index 1-based from the cell's position;
// word pickers do a select (find the word, yield the next value).
func pathArraylike(rt *Runtime, out *Cell, value *Cell, picker *Cell, setval *Cell) bool {
	arr := value.series()
	switch picker.Heart() {
	case KindInteger:
		idx := value.seriesIndex() + int(picker.Int64()) - 1
		if setval != nil {
			if idx < 0 || idx >= arr.Len() {
				failAccess("index-out-of-range")
			}
			arr.ensureWritable()
			copyCell(arr.at(idx), setval)
			return true
		}
		if idx < 0 || idx >= arr.Len() {
			InitNull(out)
			return true
		}
		copyCell(out, arr.at(idx))
		return true
	case KindWord:
		canon := canonOf(picker.wordSpelling())
		cells := arr.arraySlice()
		for i := value.seriesIndex(); i < len(cells); i++ {
			c := &cells[i]
			if isWordKind(c.Heart()) && canonOf(c.wordSpelling()) == canon {
				if setval != nil {
					if i+1 >= len(cells) {
						failAccess("index-out-of-range")
					}
					arr.ensureWritable()
					copyCell(arr.at(i+1), setval)
					return true
				}
				if i+1 < len(cells) {
					copyCell(out, arr.at(i+1))
				} else {
					InitNull(out)
				}
				return true
			}
		}
		if setval != nil {
			failBinding("not-in-context", symbolText(picker.wordSpelling()))
		}
		InitNull(out)
		return true
	}
	return false
}

// pathStringlike: integer pickers yield (or replace) the character at a
// 1-based position; binaries yield the byte as an integer.
func pathStringlike(rt *Runtime, out *Cell, value *Cell, picker *Cell, setval *Cell) bool {
	if picker.Heart() != KindInteger {
		return false
	}
	s := value.series()
	idx := value.seriesIndex() + int(picker.Int64()) - 1

	if value.Heart() == KindBinary {
		if setval != nil {
			if setval.Heart() != KindInteger || idx < 0 || idx >= s.Len() {
				failAccess("index-out-of-range")
			}
			s.ensureWritable()
			s.bytes()[idx] = byte(setval.Int64())
			return true
		}
		if idx < 0 || idx >= s.Len() {
			InitNull(out)
			return true
		}
		InitInteger(out, int64(s.bytes()[idx]))
		return true
	}

	if setval != nil {
		if setval.Heart() != KindChar || idx < 0 || idx >= strLen(s) {
			failAccess("index-out-of-range")
		}
		rt.setCharAt(s, idx, setval.Char())
		return true
	}
	if idx < 0 || idx >= strLen(s) {
		InitNull(out)
		return true
	}
	InitChar(out, rt.charAt(s, idx))
	return true
}

// pathContextlike: word pickers address context fields.
func pathContextlike(rt *Runtime, out *Cell, value *Cell, picker *Cell, setval *Cell) bool {
	if picker.Heart() != KindWord {
		return false
	}
	v := selectContext(value.contextVarlist(), picker.wordSpelling())
	if v == nil {
		failBinding("not-in-context", symbolText(picker.wordSpelling()))
	}
	if setval != nil {
		if v.getFlag(cellFlagProtected) {
			failAccess("protected-var")
		}
		copyCell(v, setval)
		return true
	}
	copyCell(out, v)
	return true
}
