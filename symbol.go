// symbol.go
//
// Symbols are immutable UTF-8 spellings interned by the runtime.  All
// spellings that differ only in case form a circular chain through their
// link slots, with one designated canon.  Binders stamp a transient integer
// index on the canon's misc slot; the 32-bit field is split into low and
// high halves so two binders can be live at once.

package reb

import "strings"

const seriesFlagIsCanon uint64 = 1 << 20 // designated representative of its chain

// internSymbol returns the symbol series for a spelling, creating and
// chaining it if new.  Symbols are auto-locked: write attempts fail.
func (rt *Runtime) internSymbol(spelling string) *Series {
	if s, ok := rt.spellings[spelling]; ok {
		return s
	}
	s := rt.allocSeriesNode(seriesFlagIsString | seriesFlagIsSymbol | nodeFlagManaged)
	s.info |= uint64(1) << infoWideShift
	s.setLenByte(lenByteDynamic)
	s.data = []byte(spelling)
	s.used = len(s.data)
	s.rest = s.used
	s.misc.i = 0
	s.setInfo(infoFlagAutoLocked)

	folded := foldSpelling(spelling)
	if canon, ok := rt.canons[folded]; ok {
		// Splice into the circular case-variant chain after the canon.
		s.link.node = canon.link.node
		canon.link.node = s
	} else {
		s.setFlag(seriesFlagIsCanon)
		s.link.node = s // chain of one
		rt.canons[folded] = s
	}
	s.setFlag(seriesFlagLinkNodeNeedsMark)
	rt.spellings[spelling] = s
	return s
}

func foldSpelling(spelling string) string { return strings.ToLower(spelling) }

func symbolText(s *Series) string {
	if !s.isSymbol() {
		panicDiag("symbolText on non-symbol")
	}
	return string(s.data[:s.used])
}

// canonOf walks to the designated canon of a symbol's chain.
func canonOf(s *Series) *Series {
	c := s
	for !c.getFlag(seriesFlagIsCanon) {
		c = c.link.node
		if c == s {
			panicDiag("canon chain has no canon")
		}
	}
	return c
}

// sameWord compares two spellings case-insensitively: true when they share
// a canon.
func sameWord(a, b *Series) bool { return canonOf(a) == canonOf(b) }

// ---------------------------------------------------------------------------
// Binder index storage
// ---------------------------------------------------------------------------

// The canon's misc.i carries two independent signed 16-bit binder indices.
// A positive index points into a keylist; a negative one refers to a
// fallback context (lib import); zero means unbound.

func binderIndex(canon *Series, high bool) int {
	if high {
		return int(int16(canon.misc.i >> 16))
	}
	return int(int16(canon.misc.i))
}

func setBinderIndex(canon *Series, high bool, index int) {
	if index < -32768 || index > 32767 {
		failCapacity("binder-index-overflow")
	}
	if high {
		canon.misc.i = canon.misc.i&^(int64(0xFFFF)<<16) | int64(uint16(int16(index)))<<16
	} else {
		canon.misc.i = canon.misc.i&^int64(0xFFFF) | int64(uint16(int16(index)))
	}
}

// binder is the transient canon→index mapping.  It records which canons it
// touched so teardown can zero them; it must be fully torn down before any
// operation that can fail runs.
type binder struct {
	rt      *Runtime
	high    bool
	touched []*Series
}

func (rt *Runtime) newBinder() *binder {
	b := &binder{rt: rt}
	if rt.binderLowLive {
		if rt.binderHighLive {
			panicDiag("more than two live binders")
		}
		b.high = true
		rt.binderHighLive = true
	} else {
		rt.binderLowLive = true
	}
	return b
}

func (b *binder) add(sym *Series, index int) {
	canon := canonOf(sym)
	if binderIndex(canon, b.high) != 0 {
		panicDiag("binder add over live index")
	}
	setBinderIndex(canon, b.high, index)
	b.touched = append(b.touched, canon)
}

// get returns the index for a spelling's canon, 0 if this binder never
// added it.
func (b *binder) get(sym *Series) int {
	return binderIndex(canonOf(sym), b.high)
}

// replace updates an existing entry (used when a midstream append assigns
// a later slot).
func (b *binder) replace(sym *Series, index int) {
	setBinderIndex(canonOf(sym), b.high, index)
}

// release zeroes every touched canon and frees the binder slot.
func (b *binder) release() {
	for _, canon := range b.touched {
		setBinderIndex(canon, b.high, 0)
	}
	b.touched = nil
	if b.high {
		b.rt.binderHighLive = false
	} else {
		b.rt.binderLowLive = false
	}
}
