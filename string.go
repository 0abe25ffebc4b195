// string.go
//
// Strings are byte series flagged IS_STRING: UTF-8 content, a cached
// codepoint length in misc, and at most one "bookmark" in link mapping a
// single (codepoint index, byte offset) pair for amortized O(1) indexing.
// All traversal goes through the cursor type; raw pointer arithmetic over
// string bytes outside these operations is not allowed.

package reb

import "unicode/utf8"

// strCursor is the codepoint cursor: a string plus a byte offset that is
// always at a codepoint boundary (or at the tail).
type strCursor struct {
	s   *Series
	ofs int // byte offset from the head of content
}

// nextChr decodes the codepoint at the cursor and returns the cursor
// advanced past it.
func (cp strCursor) nextChr() (rune, strCursor) {
	b := cp.s.bytes()
	r, size := utf8.DecodeRune(b[cp.ofs:])
	return r, strCursor{cp.s, cp.ofs + size}
}

// backChr skips back over continuation bytes, decodes, and returns the
// cursor positioned at the new codepoint's start.
func (cp strCursor) backChr() (rune, strCursor) {
	b := cp.s.bytes()
	r, size := utf8.DecodeLastRune(b[:cp.ofs])
	return r, strCursor{cp.s, cp.ofs - size}
}

// nextStr / backStr move without decoding.
func (cp strCursor) nextStr() strCursor {
	b := cp.s.bytes()
	_, size := utf8.DecodeRune(b[cp.ofs:])
	return strCursor{cp.s, cp.ofs + size}
}

func (cp strCursor) backStr() strCursor {
	b := cp.s.bytes()
	_, size := utf8.DecodeLastRune(b[:cp.ofs])
	return strCursor{cp.s, cp.ofs - size}
}

// skipChr takes a signed number of codepoint steps, returning the decoded
// codepoint at the destination (0 at the tail) and the new cursor.
func (cp strCursor) skipChr(delta int) (rune, strCursor) {
	for delta > 0 {
		cp = cp.nextStr()
		delta--
	}
	for delta < 0 {
		cp = cp.backStr()
		delta++
	}
	if cp.ofs >= len(cp.s.bytes()) {
		return 0, cp
	}
	r, _ := cp.nextChr()
	return r, cp
}

// chrCode decodes without moving.
func (cp strCursor) chrCode() rune {
	b := cp.s.bytes()
	r, _ := utf8.DecodeRune(b[cp.ofs:])
	return r
}

// writeChr encodes a codepoint at the cursor; the caller must have
// reserved exactly the encoded width.  Returns the advanced cursor.
func (cp strCursor) writeChr(r rune) strCursor {
	b := cp.s.bytes()
	n := utf8.EncodeRune(b[cp.ofs:], r)
	return strCursor{cp.s, cp.ofs + n}
}

// ---------------------------------------------------------------------------
// String construction and length
// ---------------------------------------------------------------------------

// makeString allocates an empty string with room for capacity bytes.
func (rt *Runtime) makeString(capacity int) *Series {
	s := rt.makeSeriesCore(capacity, 1, seriesFlagIsString)
	s.misc.i = 0 // cached codepoint length
	return s
}

// stringFrom copies Go string content, computing the codepoint length.
func (rt *Runtime) stringFrom(text string) *Series {
	s := rt.makeString(len(text))
	rt.appendStringBytes(s, []byte(text))
	return s
}

func strLen(s *Series) int {
	if !s.isString() {
		panicDiag("strLen on non-string series")
	}
	return int(s.misc.i)
}

func strSize(s *Series) int { return s.Len() } // bytes, not codepoints

// appendStringBytes appends UTF-8 bytes, maintaining the cached length.
// The bytes must be valid UTF-8 (scanner and molder guarantee this).
func (rt *Runtime) appendStringBytes(s *Series, b []byte) {
	rt.appendBytes(s, b)
	s.misc.i += int64(utf8.RuneCount(b))
	// Appends at the tail leave any bookmark's (index, offset) pair valid.
}

// appendStringRune appends one codepoint.
func (rt *Runtime) appendStringRune(s *Series, r rune) {
	var buf [utf8.UTFMax]byte
	n := utf8.EncodeRune(buf[:], r)
	rt.appendBytes(s, buf[:n])
	s.misc.i++
}

// ---------------------------------------------------------------------------
// Bookmarks
// ---------------------------------------------------------------------------

// A bookmark is a single-cell node: index in the cell's first slot, byte
// offset in the second.

func (rt *Runtime) allocBookmark(s *Series) *Series {
	bm := rt.allocSeriesNode(seriesFlagIsBookmark | nodeFlagManaged)
	bm.setLenByte(1)
	bm.leader[0].reset(KindUnreadable, 0)
	s.link.node = bm
	s.setFlag(seriesFlagLinkNodeNeedsMark)
	return bm
}

func stringBookmark(s *Series) *Series {
	if !s.isString() || s.isSymbol() {
		return nil
	}
	return s.link.node
}

func (rt *Runtime) freeBookmark(s *Series) {
	if bm := stringBookmark(s); bm != nil {
		s.link.node = nil
		s.clearFlag(seriesFlagLinkNodeNeedsMark)
		if !bm.isManaged() {
			rt.freeSeriesNode(bm)
		}
	}
}

func bookmarkIndex(bm *Series) int  { return int(bm.leader[0].first.i) }
func bookmarkOffset(bm *Series) int { return int(bm.leader[0].second.i) }

func setBookmark(bm *Series, index, offset int) {
	bm.leader[0].first.i = int64(index)
	bm.leader[0].second.i = int64(offset)
}

// strAt seeks to a codepoint index.  Strategy: pick the cheaper end to
// seek from (head for the first half, tail for the second), but prefer the
// bookmark when it is closer than either.  Small strings never allocate a
// bookmark; larger ones update it to the new position after the seek.
func (rt *Runtime) strAt(s *Series, index int) strCursor {
	length := strLen(s)
	if index < 0 || index > length {
		failAccess("string-index-out-of-range")
	}
	size := strSize(s)

	// All-ASCII fast path: offset equals index.
	if size == length {
		return strCursor{s, index}
	}

	bm := stringBookmark(s)
	small := size < cellPayloadBytes

	cp := strCursor{s, 0}
	walk := index
	fromTail := false
	if index > length/2 {
		cp = strCursor{s, size}
		walk = length - index
		fromTail = true
	}
	if bm != nil {
		d := bookmarkIndex(bm) - index
		if d < 0 {
			d = -d
		}
		if d < walk {
			cp = strCursor{s, bookmarkOffset(bm)}
			walk = bookmarkIndex(bm) - index
			fromTail = walk > 0
			if fromTail {
				// walk stays positive; step backward below.
			} else {
				walk = -walk
			}
		}
	}
	if fromTail {
		for ; walk > 0; walk-- {
			cp = cp.backStr()
		}
	} else {
		for ; walk > 0; walk-- {
			cp = cp.nextStr()
		}
	}

	if !small {
		if bm == nil {
			bm = rt.allocBookmark(s)
		}
		setBookmark(bm, index, cp.ofs)
	}
	return cp
}

// charAt returns the codepoint at an index.
func (rt *Runtime) charAt(s *Series, index int) rune {
	return rt.strAt(s, index).chrCode()
}

// setCharAt replaces the codepoint at index in place.  Same encoded width
// overwrites bytes directly; a different width shifts the tail (possibly
// expanding) and frees the bookmark.  The cached codepoint length never
// changes here.
func (rt *Runtime) setCharAt(s *Series, index int, r rune) {
	s.ensureWritable()
	cp := rt.strAt(s, index)
	b := s.bytes()
	_, oldW := utf8.DecodeRune(b[cp.ofs:])
	newW := utf8.RuneLen(r)
	if newW == oldW {
		cp.writeChr(r)
		return
	}
	rt.freeBookmark(s)
	if newW > oldW {
		rt.expandSeries(s, cp.ofs+oldW, newW-oldW)
	} else {
		rt.removeSeriesUnits(s, cp.ofs+newW, oldW-newW)
	}
	strCursor{s, cp.ofs}.writeChr(r)
}

// insertCharAt inserts one codepoint before index.
func (rt *Runtime) insertCharAt(s *Series, index int, r rune) {
	s.ensureWritable()
	cp := rt.strAt(s, index)
	rt.freeBookmark(s)
	w := utf8.RuneLen(r)
	rt.expandSeries(s, cp.ofs, w)
	strCursor{s, cp.ofs}.writeChr(r)
	s.misc.i++
}

// removeCharAt deletes the codepoint at index.
func (rt *Runtime) removeCharAt(s *Series, index int) {
	s.ensureWritable()
	cp := rt.strAt(s, index)
	rt.freeBookmark(s)
	b := s.bytes()
	_, w := utf8.DecodeRune(b[cp.ofs:])
	rt.removeSeriesUnits(s, cp.ofs, w)
	s.misc.i--
}
