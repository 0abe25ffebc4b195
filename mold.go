// mold.go
//
// Molding renders cells back into loadable source text; forming renders
// them for humans (strings lose their quotes, words their sigils).  All
// rendering goes through the runtime's shared mold buffer: pushMold
// marks a start offset, popMolded extracts everything written since and
// rewinds.  Nested molds stack naturally.  Cycles in arrays and
// contexts render as ellipses via the mold stack.

package reb

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

type molder struct {
	rt    *Runtime
	base  int // byte offset into moldBuf where this mold began
	stack int // moldStack watermark for cycle tracking
	form  bool
	limit int // codepoint budget, 0 means unlimited
}

func (rt *Runtime) pushMold(form bool) *molder {
	return &molder{
		rt:    rt,
		base:  strSize(rt.moldBuf),
		stack: len(rt.moldStack),
		form:  form,
		limit: rt.opts.MoldLimit,
	}
}

// popMolded extracts the text written since pushMold and rewinds the
// buffer, applying the truncation limit with a trailing ellipsis.
func (mo *molder) popMolded() string {
	rt := mo.rt
	b := rt.moldBuf.bytes()[mo.base:]
	text := string(b)
	rt.moldStack = rt.moldStack[:mo.stack]
	mo.rewind()
	if mo.limit >= 3 && utf8.RuneCountInString(text) > mo.limit {
		runes := []rune(text)
		text = string(runes[:mo.limit-3]) + "..."
	}
	return text
}

// popMoldedString is popMolded into a managed string series.
func (mo *molder) popMoldedString() *Series {
	rt := mo.rt
	return rt.manageSeries(rt.stringFrom(mo.popMolded()))
}

// dropMold rewinds without extracting (a failed mold attempt).
func (mo *molder) dropMold() {
	mo.rt.moldStack = mo.rt.moldStack[:mo.stack]
	mo.rewind()
}

func (mo *molder) rewind() {
	rt := mo.rt
	dropped := rt.moldBuf.bytes()[mo.base:]
	rt.moldBuf.misc.i -= int64(utf8.RuneCount(dropped))
	rt.moldBuf.setLen(mo.base)
}

func (mo *molder) write(s string)    { mo.rt.appendStringBytes(mo.rt.moldBuf, []byte(s)) }
func (mo *molder) writeByte(b byte)  { mo.rt.appendStringBytes(mo.rt.moldBuf, []byte{b}) }
func (mo *molder) writeRune(r rune)  { mo.rt.appendStringRune(mo.rt.moldBuf, r) }
func (mo *molder) writef(format string, args ...any) {
	mo.write(fmt.Sprintf(format, args...))
}

// cycle tracking: enter pushes the series if absent, returning false
// (and molding nothing) when it is already being molded above us.
func (mo *molder) enter(s *Series) bool {
	for _, m := range mo.rt.moldStack {
		if m == s {
			return false
		}
	}
	mo.rt.moldStack = append(mo.rt.moldStack, s)
	return true
}

func (mo *molder) leave() {
	mo.rt.moldStack = mo.rt.moldStack[:len(mo.rt.moldStack)-1]
}

// ---------------------------------------------------------------------------
// Entry points
// ---------------------------------------------------------------------------

// MoldCell renders a cell as loadable text.
func (rt *Runtime) MoldCell(c *Cell) string {
	mo := rt.pushMold(false)
	mo.moldValue(c)
	return mo.popMolded()
}

// FormCell renders a cell for display.
func (rt *Runtime) FormCell(c *Cell) string {
	mo := rt.pushMold(true)
	mo.moldValue(c)
	return mo.popMolded()
}

// moldValue writes quote marks for literal depth and dispatches on the
// heart's hook table.
func (mo *molder) moldValue(c *Cell) {
	rt := mo.rt
	depth := c.QuoteDepth()
	if !mo.form {
		for i := 0; i < depth; i++ {
			mo.writeByte('\'')
		}
	}
	v := c
	if depth > 0 {
		v = c.unquotedCell()
	}
	heart := v.Heart()
	if heart == KindEnd || heart == KindUnreadable {
		panicDiag("mold of unreadable cell")
	}
	rt.hooks[heart].Mold(rt, mo, v, mo.form)
}

// ---------------------------------------------------------------------------
// Scalars
// ---------------------------------------------------------------------------

var kindNames = [KindMax]string{
	KindNull: "null", KindVoid: "void", KindBlank: "blank", KindLogic: "logic",
	KindInteger: "integer", KindDecimal: "decimal", KindPercent: "percent",
	KindChar: "char", KindPair: "pair", KindTuple: "tuple", KindTime: "time",
	KindDate: "date", KindWord: "word", KindSetWord: "set-word",
	KindGetWord: "get-word", KindSymWord: "sym-word", KindIssue: "issue",
	KindBinary: "binary", KindText: "text", KindFile: "file",
	KindEmail: "email", KindURL: "url", KindTag: "tag", KindBlock: "block",
	KindGroup: "group", KindPath: "path", KindSetPath: "set-path",
	KindGetPath: "get-path", KindBitset: "bitset", KindMap: "map",
	KindVarargs: "varargs", KindObject: "object", KindFrame: "frame",
	KindModule: "module", KindError: "error", KindPort: "port",
	KindEvent: "event", KindImage: "image", KindAction: "action",
	KindDatatype: "datatype", KindQuoted: "quoted",
}

func kindName(k Kind) string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

// moldPercentText renders the value scaled by 100.  Fifteen significant
// digits round away the noise that scaling and percent arithmetic
// accumulate, and a whole percentage needs no decimal point.
func moldPercentText(f float64) string {
	return strconv.FormatFloat(f*100, 'g', 15, 64)
}

func moldDecimalText(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	// Loadable decimals need a point or exponent.
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func moldScalar(rt *Runtime, mo *molder, v *Cell, form bool) {
	switch v.Heart() {
	case KindNull:
		if !form {
			mo.write("null")
		}
	case KindVoid:
		mo.write("~void~")
	case KindBlank:
		mo.writeByte('_')
	case KindLogic:
		if v.Logic() {
			mo.write("true")
		} else {
			mo.write("false")
		}
	case KindInteger:
		mo.write(strconv.FormatInt(v.Int64(), 10))
	case KindDecimal:
		mo.write(moldDecimalText(v.Float64()))
	case KindPercent:
		mo.write(moldPercentText(v.Float64()) + "%")
	case KindChar:
		if form {
			mo.writeRune(v.Char())
		} else {
			mo.write("#\"")
			moldCharBody(mo, v.Char())
			mo.writeByte('"')
		}
	case KindTime:
		moldTime(mo, v.timeNanos())
	case KindDate:
		moldDate(mo, v)
	case KindTuple:
		for i := 0; i < v.tupleLen(); i++ {
			if i > 0 {
				mo.writeByte('.')
			}
			mo.write(strconv.Itoa(int(v.tupleByte(i))))
		}
	case KindPair:
		p := v.pairing()
		mo.write(trimPairNum(p.pairedCell(0).Float64()))
		mo.writeByte('x')
		mo.write(trimPairNum(p.pairedCell(1).Float64()))
	case KindDatatype:
		mo.write(kindName(v.datatypeKind()) + "!")
	}
}

func trimPairNum(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func moldCharBody(mo *molder, r rune) {
	switch r {
	case '\n':
		mo.write("^/")
	case '\t':
		mo.write("^-")
	case '^':
		mo.write("^^")
	case '"':
		mo.write("^\"")
	default:
		if r < ' ' {
			mo.writef("^(%02x)", r)
		} else {
			mo.writeRune(r)
		}
	}
}

func moldTime(mo *molder, nanos int64) {
	if nanos < 0 {
		mo.writeByte('-')
		nanos = -nanos
	}
	secs := nanos / 1e9
	frac := nanos % 1e9
	mo.writef("%d:%02d:%02d", secs/3600, secs/60%60, secs%60)
	if frac != 0 {
		s := strconv.FormatInt(frac+1e9, 10)[1:] // zero-padded
		mo.writeByte('.')
		mo.write(strings.TrimRight(s, "0"))
	}
}

var monthAbbrevs = [12]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

func moldDate(mo *molder, v *Cell) {
	mo.writef("%d-%s-%d", v.dateDay(), monthAbbrevs[v.dateMonth()-1], v.dateYear())
	if v.dateHasTime() {
		mo.writeByte('/')
		moldTime(mo, v.dateNanos())
		if v.dateHasZone() {
			z := v.dateZoneMinutes()
			sign := byte('+')
			if z < 0 {
				sign, z = '-', -z
			}
			mo.writeByte(sign)
			mo.writef("%d:%02d", z/60, z%60)
		}
	}
}

// ---------------------------------------------------------------------------
// Words
// ---------------------------------------------------------------------------

func moldWord(rt *Runtime, mo *molder, v *Cell, form bool) {
	spelling := symbolText(v.wordSpelling())
	if form {
		mo.write(spelling)
		return
	}
	switch v.Heart() {
	case KindSetWord:
		mo.write(spelling + ":")
	case KindGetWord:
		mo.write(":" + spelling)
	case KindSymWord:
		mo.write("@" + spelling)
	case KindIssue:
		mo.write("#" + spelling)
	default:
		mo.write(spelling)
	}
}

// ---------------------------------------------------------------------------
// Strings and binaries
// ---------------------------------------------------------------------------

const hexDigits = "0123456789ABCDEF"

func moldStringlike(rt *Runtime, mo *molder, v *Cell, form bool) {
	s := v.series()
	idx := v.seriesIndex()
	switch v.Heart() {
	case KindBinary:
		mo.write("#{")
		for _, b := range s.bytes()[idx:] {
			mo.writeByte(hexDigits[b>>4])
			mo.writeByte(hexDigits[b&0xF])
		}
		mo.writeByte('}')
		return
	case KindTag:
		mo.writeByte('<')
		mo.write(stringTailFrom(rt, s, idx))
		mo.writeByte('>')
		return
	case KindFile:
		if !form {
			mo.writeByte('%')
		}
		mo.write(stringTailFrom(rt, s, idx))
		return
	case KindEmail, KindURL:
		mo.write(stringTailFrom(rt, s, idx))
		return
	}
	// TEXT!
	text := stringTailFrom(rt, s, idx)
	if form {
		mo.write(text)
		return
	}
	mo.writeByte('"')
	var sb strings.Builder
	moldEscapeText(&sb, text)
	mo.write(sb.String())
	mo.writeByte('"')
}

// stringTailFrom renders a string series from a codepoint index on.
func stringTailFrom(rt *Runtime, s *Series, index int) string {
	if index <= 0 {
		return string(s.bytes())
	}
	if index >= strLen(s) {
		return ""
	}
	cur := rt.strAt(s, index)
	return string(s.bytes()[cur.ofs:])
}

// ---------------------------------------------------------------------------
// Arrays
// ---------------------------------------------------------------------------

func moldArraylike(rt *Runtime, mo *molder, v *Cell, form bool) {
	arr := v.series()
	heart := v.Heart()

	if isPathKind(heart) {
		moldPathCell(rt, mo, v)
		return
	}

	opener, closer := "[", "]"
	if heart == KindGroup {
		opener, closer = "(", ")"
	}
	if !form || heart != KindBlock {
		mo.write(opener)
	}
	if !mo.enter(arr) {
		mo.write("...")
	} else {
		moldArrayContents(rt, mo, arr, v.seriesIndex(), form)
		mo.leave()
	}
	if !form || heart != KindBlock {
		mo.write(closer)
	}
}

func isPathKind(k Kind) bool {
	return k == KindPath || k == KindSetPath || k == KindGetPath
}

func moldArrayContents(rt *Runtime, mo *molder, arr *Series, index int, form bool) {
	cells := arr.arraySlice()
	for i := index; i < len(cells); i++ {
		c := &cells[i]
		if i > index {
			if c.getFlag(cellFlagNewlineBefore) {
				mo.writeByte('\n')
			} else {
				mo.writeByte(' ')
			}
		}
		mo.moldValue(c)
	}
}

func moldPathCell(rt *Runtime, mo *molder, v *Cell) {
	if v.Heart() == KindGetPath {
		mo.writeByte(':')
	}
	arr := v.series()
	if !mo.enter(arr) {
		mo.write("...")
		return
	}
	cells := arr.arraySlice()
	for i := v.seriesIndex(); i < len(cells); i++ {
		if i > v.seriesIndex() {
			mo.writeByte('/')
		}
		mo.moldValue(&cells[i])
	}
	mo.leave()
	if v.Heart() == KindSetPath {
		mo.writeByte(':')
	}
}

// ---------------------------------------------------------------------------
// Contexts, actions, varargs
// ---------------------------------------------------------------------------

func moldContextlike(rt *Runtime, mo *molder, v *Cell, form bool) {
	varlist := v.contextVarlist()
	mo.write("make " + kindName(v.Heart()) + "! [")
	if !mo.enter(varlist) {
		mo.write("...]")
		return
	}
	n := contextLen(varlist)
	first := true
	for i := 1; i <= n; i++ {
		key := contextKey(varlist, i)
		val := contextVar(varlist, i)
		if key.getFlag(cellFlagVarMarkedHidden) {
			continue
		}
		if !first {
			mo.writeByte(' ')
		}
		first = false
		mo.write(symbolText(key.paramSpelling()) + ": ")
		if val.Heart() == KindNull {
			mo.write("null")
		} else {
			mo.moldValue(val)
		}
	}
	mo.leave()
	mo.writeByte(']')
}

func moldActionCell(rt *Runtime, mo *molder, v *Cell, form bool) {
	mo.write("#[action! " + rt.actionLabel(v.actionParamlist()) + "]")
}

func moldVarargsCell(rt *Runtime, mo *molder, v *Cell, form bool) {
	mo.write("make varargs! [...]")
}
