// series.go
//
// Series are the polymorphic contiguous-storage primitive: one node header
// plus either a single inline cell (tiny series) or a dynamic buffer with
// head bias.  Arrays store cells (width 0 in the info word, since cells
// know their own size); byte series store bytes (width 1).  The link and
// misc slots are polymorphic per subclass: strings keep a bookmark and a
// cached codepoint length there, varlists keep keylist and meta, paramlists
// keep the underlying paramlist and the dispatcher.

package reb

// Series subclass and behavior flags (low header bits; cells use a
// different flag set in the same range, see cell.go).
const (
	seriesFlagLinkNodeNeedsMark uint64 = 1 << iota // link slot holds a node for GC
	seriesFlagMiscNodeNeedsMark                    // misc slot likewise
	seriesFlagFixedSize                            // buffer may never relocate
	seriesFlagPowerOf2                             // large data requests round up
	seriesFlagIsArray
	seriesFlagIsString // byte series carrying codepoints + bookmark + length
	seriesFlagIsSymbol // immutable spelling; link is the canon chain
	seriesFlagIsVarlist
	seriesFlagIsParamlist
	seriesFlagIsKeylist
	seriesFlagIsPairing // two cells in one node, no buffer
	seriesFlagIsBookmark
	seriesFlagNewlineAtTail
)

// Info word layout: byte 2 = element width, byte 3 = inline length or the
// dynamic sentinel (255); low bits are lock/traversal state.
const (
	infoWideShift = 16
	infoLenShift  = 24

	infoFlagHold       uint64 = 1 << 0 // scoped read hold (feeds, iterators)
	infoFlagProtected  uint64 = 1 << 1 // user protect, reversible
	infoFlagFrozen     uint64 = 1 << 2 // permanent, deep for arrays
	infoFlagAutoLocked uint64 = 1 << 3 // locked by the system (symbols etc.)
	infoFlagBlack      uint64 = 1 << 4 // GC-orthogonal traversal color
	infoFlagInaccessible uint64 = 1 << 5 // varlist of a dropped frame
)

const lenByteDynamic = 255

// Series is the node record.  The content region is modeled with explicit
// Go fields: leader[0] is the inline cell for tiny series (leader[1] exists
// for pairings), data/cells are the dynamic buffers, and bias/used/rest
// form the descriptor.  Invariants: used <= rest; bias+rest = capacity;
// wide > 0 for non-arrays.
type Series struct {
	header uint64
	info   uint64
	link   slot
	misc   slot

	leader [2]Cell // inline content; pairings use both cells

	data  []byte // dynamic content, byte series
	cells []Cell // dynamic content, arrays
	bias  int
	used  int
	rest  int

	// Free-list chain while the node is on a pool free list.  Kept out of
	// link so a freed node never aliases a live GC-visible slot.
	nextFree *Series
}

func (s *Series) getFlag(f uint64) bool  { return s.header&f != 0 }
func (s *Series) setFlag(f uint64)       { s.header |= f }
func (s *Series) clearFlag(f uint64)     { s.header &^= f }
func (s *Series) getInfo(f uint64) bool  { return s.info&f != 0 }
func (s *Series) setInfo(f uint64)       { s.info |= f }
func (s *Series) clearInfo(f uint64)     { s.info &^= f }

func (s *Series) isArray() bool     { return s.getFlag(seriesFlagIsArray) }
func (s *Series) isString() bool    { return s.getFlag(seriesFlagIsString) }
func (s *Series) isSymbol() bool    { return s.getFlag(seriesFlagIsSymbol) }
func (s *Series) isVarlist() bool   { return s.getFlag(seriesFlagIsVarlist) }
func (s *Series) isParamlist() bool { return s.getFlag(seriesFlagIsParamlist) }
func (s *Series) isKeylist() bool   { return s.getFlag(seriesFlagIsKeylist) }
func (s *Series) isPairing() bool   { return s.getFlag(seriesFlagIsPairing) }
func (s *Series) isManaged() bool   { return s.getFlag(nodeFlagManaged) }

func (s *Series) wide() int { return int(s.info>>infoWideShift) & 0xFF }

func (s *Series) lenByte() int { return int(s.info>>infoLenShift) & 0xFF }

func (s *Series) setLenByte(n int) {
	s.info = s.info&^(uint64(0xFF)<<infoLenShift) | uint64(n&0xFF)<<infoLenShift
}

func (s *Series) isDynamic() bool { return s.lenByte() == lenByteDynamic }

// Len is the used count: elements for arrays, bytes for byte series.
func (s *Series) Len() int {
	if !s.isDynamic() {
		return s.lenByte()
	}
	return s.used
}

func (s *Series) setLen(n int) {
	if s.isDynamic() {
		s.used = n
		return
	}
	if n > 1 {
		panicDiag("inline series length exceeds one element")
	}
	s.setLenByte(n)
}

// pairedCell accesses the two cells of a pairing.
func (s *Series) pairedCell(i int) *Cell {
	if !s.isPairing() {
		panicDiag("pairedCell on non-pairing")
	}
	return &s.leader[i]
}

// at returns the i'th cell of an array series.
func (s *Series) at(i int) *Cell {
	if !s.isDynamic() {
		if i != 0 {
			panicDiag("inline array index out of range")
		}
		return &s.leader[0]
	}
	return &s.cells[s.bias+i]
}

// head/tail views over array content.
func (s *Series) arraySlice() []Cell {
	if !s.isDynamic() {
		return s.leader[:s.lenByte()]
	}
	return s.cells[s.bias : s.bias+s.used]
}

// bytes returns the used byte content of a byte series.
func (s *Series) bytes() []byte {
	return s.data[s.bias : s.bias+s.Len()]
}

// byteAt returns a pointer into the byte content (cursor ops only).
func (s *Series) byteAt(i int) int { return s.bias + i }

// ---------------------------------------------------------------------------
// Locking
// ---------------------------------------------------------------------------

func (s *Series) isFrozen() bool { return s.getInfo(infoFlagFrozen) }
func (s *Series) isHeld() bool   { return s.getInfo(infoFlagHold) }

// ensureWritable is the write guard.  It fails with the highest-priority
// lock: auto-locked, held, frozen, protected.
func (s *Series) ensureWritable() {
	if s.info&(infoFlagAutoLocked|infoFlagHold|infoFlagFrozen|infoFlagProtected) == 0 {
		if s.getInfo(infoFlagInaccessible) {
			failAccess("series-inaccessible")
		}
		return
	}
	switch {
	case s.getInfo(infoFlagAutoLocked):
		failAccess("series-auto-locked")
	case s.getInfo(infoFlagHold):
		failAccess("series-held")
	case s.getInfo(infoFlagFrozen):
		failAccess("series-frozen")
	default:
		failAccess("series-protected")
	}
}

// Freeze permanently locks a series; for arrays the freeze is deep over
// everything reachable from its cells.
func (rt *Runtime) Freeze(s *Series) {
	if s.isFrozen() {
		return
	}
	s.setInfo(infoFlagFrozen)
	if !s.isArray() {
		return
	}
	for i := range s.arraySlice() {
		c := s.at(i)
		if c.getFlag(cellFlagFirstIsNode) && c.first.node != nil {
			rt.Freeze(c.first.node)
		}
		if c.getFlag(cellFlagSecondIsNode) && c.second.node != nil {
			rt.Freeze(c.second.node)
		}
	}
}

func (s *Series) Protect()   { s.setInfo(infoFlagProtected) }
func (s *Series) Unprotect() { s.clearInfo(infoFlagProtected) }

// takeHold sets the scoped read hold; returns false if the hold was already
// taken so the caller knows not to clear it on drop.
func (s *Series) takeHold() bool {
	if s.getInfo(infoFlagHold) {
		return false
	}
	s.setInfo(infoFlagHold)
	return true
}

func (s *Series) releaseHold() { s.clearInfo(infoFlagHold) }

// ---------------------------------------------------------------------------
// Coloring (GC-orthogonal traversal flag)
// ---------------------------------------------------------------------------

// Blacken marks a series for a temporary traversal (mold cycle detection,
// bind walks).  Every balanced operation must restore all series to white;
// the runtime keeps a count so that can be asserted.
func (rt *Runtime) Blacken(s *Series) bool {
	if s.getInfo(infoFlagBlack) {
		return false
	}
	s.setInfo(infoFlagBlack)
	rt.blackCount++
	return true
}

func (rt *Runtime) Whiten(s *Series) {
	if !s.getInfo(infoFlagBlack) {
		panicDiag("whiten of non-black series")
	}
	s.clearInfo(infoFlagBlack)
	rt.blackCount--
}

func (rt *Runtime) assertAllWhite() {
	if rt.blackCount != 0 {
		panicDiag("black series leaked past a balance point")
	}
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

// makeSeriesCore allocates a node and, when capacity demands it, a dynamic
// buffer.  flags select the subclass; wide is the element width in bytes
// (0 for arrays).
func (rt *Runtime) makeSeriesCore(capacity int, wide int, flags uint64) *Series {
	s := rt.allocSeriesNode(flags)
	s.info |= uint64(wide) << infoWideShift
	if flags&seriesFlagIsArray != 0 && wide != 0 {
		panicDiag("array series must have width 0")
	}
	inlineOK := capacity <= 1 && flags&seriesFlagFixedSize == 0
	if flags&seriesFlagIsArray != 0 && inlineOK {
		s.setLenByte(0)
		s.leader[0].SetEnd()
		return s
	}
	if flags&seriesFlagIsArray == 0 && capacity <= inlineByteCapacity(wide) {
		s.setLenByte(0)
		rt.ensureInlineBytes(s, inlineByteCapacity(wide)*wide)
		return s
	}
	s.setLenByte(lenByteDynamic)
	rt.seriesDataAlloc(s, capacity)
	return s
}

// inlineByteCapacity: a non-array series can keep up to one cell's worth of
// bytes inline.  Small strings below this threshold never get bookmarks.
func inlineByteCapacity(wide int) int {
	if wide == 0 {
		return 0
	}
	return cellPayloadBytes / wide
}

const cellPayloadBytes = 24 // three slots' worth of raw storage

// makeArray allocates an array series with the given capacity in cells.
func (rt *Runtime) makeArray(capacity int, flags uint64) *Series {
	return rt.makeSeriesCore(capacity, 0, flags|seriesFlagIsArray)
}

// makeBinary allocates a byte series.
func (rt *Runtime) makeBinary(capacity int) *Series {
	return rt.makeSeriesCore(capacity, 1, 0)
}

// inline storage for tiny byte series shares the leader cell's payload
// area.  Rather than aliasing cell slots byte-wise (unsafe in Go), tiny
// byte series still get a small heap buffer but keep the "inline" length
// accounting so the bookmark and length-byte logic behaves as specified.
func (rt *Runtime) ensureInlineBytes(s *Series, capacity int) {
	if s.data == nil {
		s.data = make([]byte, 0, capacity)
	}
}

// ---------------------------------------------------------------------------
// Expansion
// ---------------------------------------------------------------------------

// expandSeries inserts delta empty units at index at, shifting the tail.
// When inserting at the head of a biased series, bias is consumed instead
// of moving data.
func (rt *Runtime) expandSeries(s *Series, at, delta int) {
	if delta == 0 {
		return
	}
	s.ensureWritable()
	used := s.Len()
	if at > used {
		at = used
	}

	if !s.isDynamic() {
		// Promote inline content to a dynamic buffer first.
		rt.promoteToDynamic(s, used+delta)
	}

	if at == 0 && s.bias >= delta {
		// Head insert can eat bias: slide the window left.
		s.bias -= delta
		s.used += delta
		if s.isArray() {
			for i := 0; i < delta; i++ {
				s.cells[s.bias+i].Erase()
			}
		}
		return
	}

	if s.used+delta > s.rest {
		if s.getFlag(seriesFlagFixedSize) {
			failCapacity("series-fixed-size")
		}
		rt.regrowSeries(s, s.used+delta)
	}

	if s.isArray() {
		content := s.cells[s.bias:]
		copy(content[at+delta:s.used+delta], content[at:s.used])
		for i := 0; i < delta; i++ {
			content[at+i].Erase()
		}
	} else {
		content := s.data[s.bias:]
		copy(content[at+delta:s.used+delta], content[at:s.used])
		for i := 0; i < delta; i++ {
			content[at+i] = badUTF8Lead // poison; caller must fill
		}
	}
	s.used += delta
}

const badUTF8Lead = 0xFE // never valid in UTF-8; marks unfilled bytes

// promoteToDynamic moves inline content into a freshly allocated dynamic
// buffer with at least the requested capacity.
func (rt *Runtime) promoteToDynamic(s *Series, capacity int) {
	used := s.lenByte()
	if s.isArray() {
		saved := s.leader[0]
		s.setLenByte(lenByteDynamic)
		rt.seriesDataAlloc(s, capacity)
		if used > 0 {
			s.cells[0] = saved
		}
		s.used = used
		return
	}
	saved := append([]byte(nil), s.data[:used]...)
	s.setLenByte(lenByteDynamic)
	rt.seriesDataAlloc(s, capacity)
	copy(s.data, saved)
	s.used = used
}

// regrowSeries relocates the dynamic buffer to at least need elements,
// dropping accumulated bias in the process.
func (rt *Runtime) regrowSeries(s *Series, need int) {
	newCap := s.rest * 2
	if newCap < need {
		newCap = need
	}
	// seriesDataAllocRaw resets the descriptor; the length survives the
	// relocation, only the bias is dropped.
	used := s.used
	if s.isArray() {
		old := s.cells[s.bias : s.bias+s.used]
		s.cells = nil
		rt.seriesDataAllocRaw(s, newCap)
		copy(s.cells, old)
	} else {
		old := s.data[s.bias : s.bias+s.used]
		s.data = nil
		rt.seriesDataAllocRaw(s, newCap)
		copy(s.data, old)
	}
	s.used = used
	s.bias = 0
}

// appendCell adds one cell at the tail of an array.
func (rt *Runtime) appendCell(a *Series, v *Cell) *Cell {
	n := a.Len()
	rt.expandSeries(a, n, 1)
	dst := a.at(n)
	dst.Erase()
	copyCell(dst, v)
	return dst
}

// appendBytes adds raw bytes at the tail of a byte series.
func (rt *Runtime) appendBytes(s *Series, b []byte) {
	n := s.Len()
	if !s.isDynamic() && n+len(b) <= cap(s.data) {
		s.data = s.data[:n+len(b)]
		copy(s.data[n:], b)
		s.setLenByte(n + len(b))
		return
	}
	rt.expandSeries(s, n, len(b))
	copy(s.data[s.bias+n:], b)
}

// ---------------------------------------------------------------------------
// Removal
// ---------------------------------------------------------------------------

// removeSeriesUnits deletes count units at index at.  Removal at the head
// adds bias instead of moving the tail.
func (rt *Runtime) removeSeriesUnits(s *Series, at, count int) {
	if count <= 0 {
		return
	}
	s.ensureWritable()
	used := s.Len()
	if at+count > used {
		count = used - at
	}
	if !s.isDynamic() {
		if s.isArray() {
			if at == 0 {
				s.leader[0].SetEnd()
			}
		} else {
			s.data = append(s.data[:at], s.data[at+count:used]...)
		}
		s.setLenByte(used - count)
		return
	}
	if at == 0 {
		s.bias += count
		s.used -= count
		return
	}
	if s.isArray() {
		content := s.cells[s.bias:]
		copy(content[at:], content[at+count:used])
	} else {
		content := s.data[s.bias:]
		copy(content[at:], content[at+count:used])
	}
	s.used -= count
}
