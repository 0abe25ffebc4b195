// cell.go
//
// The cell is the universal value carrier of the runtime: a fixed-shape
// record of one packed header word plus three payload slots (extra, first,
// second).  The header's second byte is the "kind" byte and its third byte
// is the "mirror" byte.  Kinds 1..63 are fundamental; a kind byte >= 64
// encodes an in-cell quoted literal whose underlying kind is kind%64 and
// whose quote depth is kind/64 (depths 0..3).  Deeper literals use the
// QUOTED container kind, which points at a pairing holding the payload.
// The mirror byte always records the underlying layout kind, so code that
// cares about payload shape never does modulo arithmetic.
//
// A kind byte of zero is the END sentinel; any header whose kind byte reads
// zero terminates an array, whether or not the rest of the bits describe a
// full cell.

package reb

import "math"

// Kind enumerates the fundamental cell kinds.  The ordering is meaningful:
// bindable word kinds are contiguous, as are the array kinds, which lets
// range checks stand in for per-kind switches.
type Kind byte

const (
	KindEnd Kind = iota // array terminator, never a user-visible value

	KindNull
	KindVoid
	KindBlank
	KindLogic
	KindInteger
	KindDecimal
	KindPercent
	KindChar
	KindPair
	KindTuple
	KindTime
	KindDate

	// Bindable word kinds (contiguous: see isWordKind).
	KindWord
	KindSetWord
	KindGetWord
	KindSymWord
	KindIssue

	// Byte-series kinds.
	KindBinary
	KindText
	KindFile
	KindEmail
	KindURL
	KindTag

	// Array kinds (contiguous: see isArrayKind).
	KindBlock
	KindGroup
	KindPath
	KindSetPath
	KindGetPath

	KindBitset
	KindMap
	KindVarargs

	// Context kinds (contiguous: see isContextKind).
	KindObject
	KindFrame
	KindModule
	KindError
	KindPort

	KindEvent
	KindImage
	KindAction
	KindDatatype

	// QUOTED is the escape for literals whose depth exceeds 3.
	KindQuoted

	// Internal kinds, never produced by the scanner.
	KindParam    // paramlist entry: typeset + symbol + class
	KindUnreadable // trash; readable headers only in debug inspection

	KindMax
)

const kindQuoteBase = 64 // kind bytes >= this are in-cell quoted literals

func isWordKind(k Kind) bool    { return k >= KindWord && k <= KindIssue }
func isArrayKind(k Kind) bool   { return k >= KindBlock && k <= KindGetPath }
func isContextKind(k Kind) bool { return k >= KindObject && k <= KindPort }

// isBindableKind reports whether the cell's extra slot is a binding node
// (null, paramlist, or varlist) rather than raw payload.
func isBindableKind(k Kind) bool {
	return isWordKind(k) || isArrayKind(k) || k == KindVarargs
}

// ---------------------------------------------------------------------------
// Header layout
// ---------------------------------------------------------------------------

// The top byte of the header holds the node-level base flags shared with
// series headers; the next two bytes are the kind and mirror bytes; the low
// bits hold per-cell (or per-series) flags.

const (
	nodeFlagNode    uint64 = 1 << 63 // set on every node header (cell or series)
	nodeFlagCell    uint64 = 1 << 62 // set on cells, clear on series
	nodeFlagManaged uint64 = 1 << 61 // lifetime owned by the GC
	nodeFlagMarked  uint64 = 1 << 60 // transient GC mark
	nodeFlagRoot    uint64 = 1 << 59 // pinned by an API handle
	nodeFlagFree    uint64 = 1 << 58 // node is on a pool free list
	nodeFlagStack   uint64 = 1 << 57 // scoped lifetime (frame varlist cell)
)

const (
	kindShift   = 48 // second byte of the header
	mirrorShift = 40 // third byte
)

// Per-cell flags (low bits; series headers use a separate flag set in the
// same bit range, see series.go).
const (
	cellFlagProtected uint64 = 1 << iota
	cellFlagConst
	cellFlagExplicitlyMutable
	cellFlagEnfixed
	cellFlagUnevaluated
	cellFlagArgMarkedChecked
	cellFlagNewlineBefore
	cellFlagOutMarkedStale
	cellFlagFirstIsNode  // payload first slot holds a node the GC must mark
	cellFlagSecondIsNode // payload second slot likewise
	cellFlagVarMarkedHidden
)

// slot is one machine-word-equivalent payload position.  Go cannot overlay
// raw words the way the C original does, so a slot carries a node pointer,
// a raw integer, and an out-of-band Go payload side by side; the header
// flags (and the kind's layout contract) say which is live.
type slot struct {
	node *Series
	i    int64
	p    any
}

// Cell is the fixed-size tagged value record.
type Cell struct {
	header uint64
	extra  slot
	first  slot
	second slot
}

// endCell is the shared END sentinel.  Feeds that run off the end of their
// array point here rather than at nil.
var endCell = Cell{header: nodeFlagNode | nodeFlagCell}

func (c *Cell) kindByte() byte   { return byte(c.header >> kindShift) }
func (c *Cell) mirrorByte() byte { return byte(c.header >> mirrorShift) }

// changeHeart rewrites the layout kind in place, keeping any in-cell
// quote depth.  Only valid across kinds sharing a payload layout.
func (c *Cell) changeHeart(kind Kind) {
	depth := c.kindByte() / kindQuoteBase
	c.header = c.header&^(uint64(0xFFFF)<<mirrorShift) |
		uint64(byte(kind)+depth*kindQuoteBase)<<kindShift |
		uint64(kind)<<mirrorShift
}

// Heart returns the underlying layout kind, quoting stripped.
func (c *Cell) Heart() Kind { return Kind(c.mirrorByte()) }

// Type returns the user-visible datatype: KindQuoted for any literal with
// nonzero depth, otherwise the fundamental kind.
func (c *Cell) Type() Kind {
	kb := c.kindByte()
	if kb >= kindQuoteBase || Kind(kb) == KindQuoted {
		return KindQuoted
	}
	return Kind(kb)
}

func (c *Cell) IsEnd() bool  { return c.kindByte() == 0 }
func (c *Cell) IsFree() bool { return c.header&nodeFlagFree != 0 }

// readable panics on cells that are not safe to interpret: freed cells,
// non-cell headers, or trash.
func (c *Cell) readable() *Cell {
	if c.header&nodeFlagNode == 0 || c.header&nodeFlagCell == 0 {
		panicDiag("non-cell header read as cell")
	}
	if c.header&nodeFlagFree != 0 {
		panicDiag("freed cell read")
	}
	return c
}

func (c *Cell) getFlag(f uint64) bool { return c.header&f != 0 }
func (c *Cell) setFlag(f uint64)      { c.header |= f }
func (c *Cell) clearFlag(f uint64)    { c.header &^= f }

// writeHeader stamps a fresh header, preserving only lifetime-relevant bits
// (managed/marked/root/stack and the persistent cell flags supplied).
func (c *Cell) writeHeader(kind, mirror Kind, flags uint64) {
	keep := c.header & (nodeFlagManaged | nodeFlagMarked | nodeFlagRoot | nodeFlagStack |
		cellFlagProtected | cellFlagConst | cellFlagNewlineBefore)
	c.header = nodeFlagNode | nodeFlagCell | keep | flags |
		uint64(kind)<<kindShift | uint64(mirror)<<mirrorShift
}

// reset prepares a cell for initialization, clearing payload slots.
func (c *Cell) reset(kind Kind, flags uint64) *Cell {
	c.writeHeader(kind, kind, flags)
	c.extra = slot{}
	c.first = slot{}
	c.second = slot{}
	return c
}

// Erase makes a cell an unreadable trash value; the GC treats it as having
// no node children.
func (c *Cell) Erase() *Cell {
	c.header = nodeFlagNode | nodeFlagCell | uint64(KindUnreadable)<<kindShift |
		uint64(KindUnreadable)<<mirrorShift
	c.extra = slot{}
	c.first = slot{}
	c.second = slot{}
	return c
}

// SetEnd overwrites the header so the kind byte reads zero.  Only the
// header is touched: two bytes suffice to terminate an array, which is what
// permits non-cell structures to act as terminators too.
func (c *Cell) SetEnd() *Cell {
	c.header = nodeFlagNode | nodeFlagCell
	return c
}

// ---------------------------------------------------------------------------
// Binding
//
// For bindable kinds the extra slot is the binding node: nil (unbound), a
// paramlist (relative to an action), or a varlist (specific to a context).
// The three-way discrimination is O(1): the series' own subclass flags say
// which it is.
// ---------------------------------------------------------------------------

func (c *Cell) binding() *Series { return c.extra.node }

func (c *Cell) setBinding(b *Series) {
	if b != nil && !b.isVarlist() && !b.isParamlist() {
		panicDiag("cell binding must be a varlist or paramlist")
	}
	c.extra.node = b
}

func (c *Cell) isRelative() bool {
	return c.extra.node != nil && c.extra.node.isParamlist()
}

func (c *Cell) isSpecific() bool {
	return c.extra.node == nil || c.extra.node.isVarlist()
}

// ---------------------------------------------------------------------------
// Initializers
// ---------------------------------------------------------------------------

func InitNull(c *Cell) *Cell  { return c.reset(KindNull, 0) }
func InitVoid(c *Cell) *Cell  { return c.reset(KindVoid, 0) }
func InitBlank(c *Cell) *Cell { return c.reset(KindBlank, 0) }

// InitUnreadableBlank is what failed scanners leave in their out cell: a
// blank that trips the readable() check if examined.
func InitUnreadableBlank(c *Cell) *Cell {
	c.reset(KindBlank, 0)
	c.header |= nodeFlagFree
	return c
}

func InitLogic(c *Cell, b bool) *Cell {
	c.reset(KindLogic, 0)
	if b {
		c.first.i = 1
	}
	return c
}

func InitInteger(c *Cell, n int64) *Cell {
	c.reset(KindInteger, 0)
	c.first.i = n
	return c
}

func InitDecimal(c *Cell, f float64) *Cell {
	c.reset(KindDecimal, 0)
	c.first.i = int64(math.Float64bits(f))
	return c
}

func InitPercent(c *Cell, f float64) *Cell {
	InitDecimal(c, f)
	c.writeHeader(KindPercent, KindPercent, 0)
	return c
}

func InitChar(c *Cell, cp rune) *Cell {
	c.reset(KindChar, 0)
	c.first.i = int64(cp)
	return c
}

// InitTime stores nanoseconds since midnight (may exceed a day or be
// negative; TIME! is a span, not a clock).
func InitTime(c *Cell, nanos int64) *Cell {
	c.reset(KindTime, 0)
	c.first.i = nanos
	return c
}

const noZone = -128 // zone field value meaning "no zone on this date"

// InitDate packs year/month/day and optional zone into extra, with the
// optional time-of-day in the first slot (nanoSentinel when absent).
func InitDate(c *Cell, year, month, day int, zoneMinutes int, nanos int64, hasTime, hasZone bool) *Cell {
	c.reset(KindDate, 0)
	z := int64(noZone)
	if hasZone {
		z = int64(zoneMinutes / 15) // stored in 15-minute quanta
	}
	c.extra.i = int64(year)<<32 | int64(month)<<24 | int64(day)<<16 | (z & 0xFFFF)
	if hasTime {
		c.first.i = nanos
		c.second.i = 1
	} else {
		c.first.i = 0
		c.second.i = 0
	}
	return c
}

func (c *Cell) dateYear() int  { return int(c.extra.i >> 32) }
func (c *Cell) dateMonth() int { return int(c.extra.i>>24) & 0xFF }
func (c *Cell) dateDay() int   { return int(c.extra.i>>16) & 0xFF }
func (c *Cell) dateHasTime() bool { return c.second.i != 0 }
func (c *Cell) dateNanos() int64  { return c.first.i }
func (c *Cell) dateHasZone() bool { return int16(c.extra.i&0xFFFF) != noZone }
func (c *Cell) dateZoneMinutes() int {
	return int(int16(c.extra.i&0xFFFF)) * 15
}

// InitPair points at a pairing node (two cells in one series-node-sized
// allocation) holding the X and Y coordinates.
func InitPair(c *Cell, p *Series) *Cell {
	if !p.isPairing() {
		panicDiag("pair payload must be a pairing")
	}
	c.reset(KindPair, cellFlagFirstIsNode)
	c.first.node = p
	return c
}

func (c *Cell) pairing() *Series { return c.first.node }

const maxTuple = 8

// InitTuple packs up to 8 bytes into the payload slots with the length in
// extra.  Lengths below 3 are padded with zero bytes so 1.2.3 == 1.2.3.0.
func InitTuple(c *Cell, bytes []byte) *Cell {
	if len(bytes) > maxTuple {
		panicDiag("tuple too long")
	}
	c.reset(KindTuple, 0)
	n := len(bytes)
	if n < 3 {
		n = 3
	}
	c.extra.i = int64(n)
	var lo, hi int64
	for i, b := range bytes {
		if i < 4 {
			lo |= int64(b) << (8 * i)
		} else {
			hi |= int64(b) << (8 * (i - 4))
		}
	}
	c.first.i = lo
	c.second.i = hi
	return c
}

func (c *Cell) tupleLen() int { return int(c.extra.i) }

func (c *Cell) tupleByte(i int) byte {
	if i < 4 {
		return byte(c.first.i >> (8 * i))
	}
	return byte(c.second.i >> (8 * (i - 4)))
}

// InitAnyWord fills a word-class cell.  The spelling is a symbol series;
// binding starts empty.  Bound words get a context (or paramlist) stamped
// into extra and the slot index into the second payload slot.
func InitAnyWord(c *Cell, kind Kind, spelling *Series) *Cell {
	if !spelling.isSymbol() {
		panicDiag("word spelling must be a symbol series")
	}
	c.reset(kind, cellFlagFirstIsNode)
	c.first.node = spelling
	return c
}

func InitWord(c *Cell, spelling *Series) *Cell    { return InitAnyWord(c, KindWord, spelling) }
func InitSetWord(c *Cell, spelling *Series) *Cell { return InitAnyWord(c, KindSetWord, spelling) }
func InitGetWord(c *Cell, spelling *Series) *Cell { return InitAnyWord(c, KindGetWord, spelling) }
func InitSymWord(c *Cell, spelling *Series) *Cell { return InitAnyWord(c, KindSymWord, spelling) }

func (c *Cell) wordSpelling() *Series { return c.first.node }
func (c *Cell) wordIndex() int        { return int(c.second.i) }

func (c *Cell) bindWord(ctx *Series, index int) {
	c.setBinding(ctx)
	c.second.i = int64(index)
}

func (c *Cell) unbindWord() {
	c.extra.node = nil
	c.second.i = 0
}

// InitAnySeries covers both byte-series and array kinds: the payload is the
// series node plus a zero-based index.
func InitAnySeries(c *Cell, kind Kind, s *Series, index int) *Cell {
	c.reset(kind, cellFlagFirstIsNode)
	c.first.node = s
	c.second.i = int64(index)
	return c
}

func InitBlock(c *Cell, a *Series) *Cell  { return InitAnySeries(c, KindBlock, a, 0) }
func InitGroup(c *Cell, a *Series) *Cell  { return InitAnySeries(c, KindGroup, a, 0) }
func InitPath(c *Cell, a *Series) *Cell   { return InitAnySeries(c, KindPath, a, 0) }
func InitText(c *Cell, s *Series) *Cell   { return InitAnySeries(c, KindText, s, 0) }
func InitBinary(c *Cell, s *Series) *Cell { return InitAnySeries(c, KindBinary, s, 0) }

func (c *Cell) series() *Series { return c.first.node }
func (c *Cell) seriesIndex() int { return int(c.second.i) }
func (c *Cell) setSeriesIndex(i int) { c.second.i = int64(i) }

// InitContext makes a cell referring to a context (object, frame, error,
// port, module) through its varlist.
func InitContext(c *Cell, kind Kind, varlist *Series) *Cell {
	if !varlist.isVarlist() {
		panicDiag("context payload must be a varlist")
	}
	c.reset(kind, cellFlagFirstIsNode)
	c.first.node = varlist
	return c
}

func (c *Cell) contextVarlist() *Series { return c.first.node }

// InitAction: first = paramlist, second = details (body or exemplar),
// extra = binding.
func InitAction(c *Cell, paramlist *Series, details *Series) *Cell {
	if !paramlist.isParamlist() {
		panicDiag("action payload must be a paramlist")
	}
	flags := uint64(cellFlagFirstIsNode)
	if details != nil {
		flags |= cellFlagSecondIsNode
	}
	c.reset(KindAction, flags)
	c.first.node = paramlist
	c.second.node = details
	return c
}

func (c *Cell) actionParamlist() *Series { return c.first.node }
func (c *Cell) actionDetails() *Series   { return c.second.node }

// InitVarargs refers back to the frame feeding a variadic parameter.
func InitVarargs(c *Cell, varlist *Series, paramIndex int) *Cell {
	c.reset(KindVarargs, 0)
	c.setBinding(varlist)
	c.second.i = int64(paramIndex)
	return c
}

// InitParam builds a paramlist entry: a typeset with a symbol and a
// parameter class.
func InitParam(c *Cell, class paramClass, spelling *Series, typeset uint64) *Cell {
	c.reset(KindParam, cellFlagFirstIsNode)
	c.first.node = spelling
	c.extra.i = int64(typeset)
	c.second.i = int64(class)
	return c
}

// InitDatatype: the represented kind rides in the first payload slot.
func InitDatatype(c *Cell, kind Kind) *Cell {
	c.reset(KindDatatype, 0)
	c.first.i = int64(kind)
	return c
}

func (c *Cell) datatypeKind() Kind { return Kind(c.first.i) }

func (c *Cell) paramClass() paramClass { return paramClass(c.second.i) }
func (c *Cell) paramSpelling() *Series { return c.first.node }
func (c *Cell) paramTypes() uint64     { return uint64(c.extra.i) }

func (c *Cell) Logic() bool     { return c.first.i != 0 }
func (c *Cell) Int64() int64    { return c.first.i }
func (c *Cell) Float64() float64 { return math.Float64frombits(uint64(c.first.i)) }
func (c *Cell) Char() rune      { return rune(c.first.i) }
func (c *Cell) timeNanos() int64 { return c.first.i }

// ---------------------------------------------------------------------------
// Copying
// ---------------------------------------------------------------------------

// copyCell moves a value, dropping transient evaluation flags but keeping
// the payload and binding intact.  The destination's protect/const bits are
// preserved (they belong to the slot, not the value).
func copyCell(dst, src *Cell) *Cell {
	src.readable()
	keep := dst.header & (nodeFlagManaged | nodeFlagMarked | nodeFlagRoot | nodeFlagStack |
		cellFlagProtected | cellFlagNewlineBefore)
	dst.header = src.header&^(nodeFlagManaged|nodeFlagMarked|nodeFlagRoot|nodeFlagStack|
		cellFlagProtected|cellFlagNewlineBefore|cellFlagUnevaluated|cellFlagEnfixed|
		cellFlagOutMarkedStale) | keep
	dst.extra = src.extra
	dst.first = src.first
	dst.second = src.second
	return dst
}

// ---------------------------------------------------------------------------
// Quoting
// ---------------------------------------------------------------------------

// QuoteDepth returns the literal depth of a cell (0 for ordinary values).
func (c *Cell) QuoteDepth() int {
	kb := c.kindByte()
	if Kind(kb) == KindQuoted {
		return int(c.extra.i)
	}
	return int(kb) / kindQuoteBase
}

// Quotify adds depth quoting levels to a cell in place.  Depths up to 3 are
// carried in the kind byte; beyond that the payload is moved out into a
// pairing referenced by a QUOTED container cell.
func Quotify(rt *Runtime, c *Cell, depth int) *Cell {
	if depth == 0 {
		return c
	}
	cur := c.QuoteDepth()
	total := cur + depth
	if Kind(c.kindByte()) == KindQuoted {
		c.extra.i = int64(total)
		return c
	}
	if total <= 3 {
		c.header = c.header&^(uint64(0xFF)<<kindShift) |
			uint64(byte(c.mirrorByte())+byte(total)*kindQuoteBase)<<kindShift
		return c
	}
	// Escape to the container form: payload cell lives at depth 0 in a
	// pairing so layout code can still use the mirror byte.
	p := rt.allocPairing(0)
	payload := p.pairedCell(0)
	copyCell(payload, c)
	payload.header = payload.header&^(uint64(0xFF)<<kindShift) |
		uint64(payload.mirrorByte())<<kindShift
	InitBlank(p.pairedCell(1))
	heart := Kind(payload.mirrorByte())
	c.reset(KindQuoted, cellFlagFirstIsNode)
	// Mirror tracks the payload heart so Heart() sees through the container.
	c.header = c.header&^(uint64(0xFF)<<mirrorShift) |
		uint64(heart)<<mirrorShift
	c.first.node = p
	c.extra.i = int64(total)
	return c
}

// Unquotify removes depth quoting levels, collapsing a container back to
// the in-cell form when the remaining depth allows it.
func Unquotify(rt *Runtime, c *Cell, depth int) *Cell {
	if depth == 0 {
		return c
	}
	cur := c.QuoteDepth()
	if depth > cur {
		panicDiag("unquotify depth exceeds quote depth")
	}
	rest := cur - depth
	if Kind(c.kindByte()) == KindQuoted {
		if rest > 3 {
			c.extra.i = int64(rest)
			return c
		}
		payload := c.first.node.pairedCell(0)
		copyCell(c, payload)
		return Quotify(rt, c, rest)
	}
	c.header = c.header&^(uint64(0xFF)<<kindShift) |
		uint64(byte(c.mirrorByte())+byte(rest)*kindQuoteBase)<<kindShift
	return c
}

// unquotedCell returns the cell carrying the payload at depth 0: the cell
// itself for in-cell literals, the pairing payload for containers.  The
// result must be treated as read-only when it aliases a container.
func (c *Cell) unquotedCell() *Cell {
	if Kind(c.kindByte()) == KindQuoted {
		return c.first.node.pairedCell(0)
	}
	return c
}

// unquotedCellMutable returns the payload cell for in-place mutation.
// Copies of a container-form quote share one pairing, so the pairing is
// cloned before a writable payload is handed out.
func (rt *Runtime) unquotedCellMutable(c *Cell) *Cell {
	if Kind(c.kindByte()) != KindQuoted {
		return c
	}
	p := rt.allocPairing(0)
	copyCell(p.pairedCell(0), c.first.node.pairedCell(0))
	copyCell(p.pairedCell(1), c.first.node.pairedCell(1))
	c.first.node = p
	return p.pairedCell(0)
}

// ---------------------------------------------------------------------------
// Typesets
// ---------------------------------------------------------------------------

func typesetBit(k Kind) uint64 { return 1 << uint(k) }

// tsAnyValue admits every fundamental kind except the internals.
var tsAnyValue = func() uint64 {
	var ts uint64
	for k := KindNull; k < KindQuoted; k++ {
		ts |= typesetBit(k)
	}
	return ts | typesetBit(KindQuoted)
}()

func typecheckCell(c *Cell, typeset uint64) bool {
	t := c.Type()
	if t == KindQuoted {
		// Quoted input unquotes before the check.
		t = c.Heart()
		if typeset&typesetBit(KindQuoted) != 0 {
			return true
		}
	}
	return typeset&typesetBit(t) != 0
}
