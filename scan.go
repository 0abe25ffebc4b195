// scan.go
//
// The block scanner lifts UTF-8 source text into arrays of cells.  It
// works in a single pass with no token stream: each call to scanValue
// consumes one value (recursing for nested blocks, groups, and paths)
// and records whether a newline preceded it so mold can round-trip the
// source layout.
//
// Typed token decoders (integers, decimals, pairs, tuples, dates, times,
// emails, files, urls, binaries) live in lextypes.go; the scanner's job
// is delimiting and classification.

package reb

import (
	"strings"
	"unicode/utf8"
)

type scanState struct {
	rt       *Runtime
	src      []byte
	pos      int
	line     int
	lineHead int // pos of the first byte of the current line

	pendingNewline bool
}

// scanSource lifts source into a managed block array.  Scan errors take
// the failSignal path with line, column, and the source attached.
func (rt *Runtime) scanSource(source string) *Series {
	ss := &scanState{rt: rt, src: []byte(source), line: 1}
	arr := ss.scanArray(0)
	return rt.manageSeries(arr)
}

func (ss *scanState) col() int { return ss.pos - ss.lineHead + 1 }

func (ss *scanState) fail(id string, near string) {
	fail(&Error{
		Type: "scan", ID: id, Near: near,
		Line: ss.line, Col: ss.col(), Src: string(ss.src),
	})
}

func (ss *scanState) atEnd() bool { return ss.pos >= len(ss.src) }

func (ss *scanState) peek() byte {
	if ss.atEnd() {
		return 0
	}
	return ss.src[ss.pos]
}

func (ss *scanState) peekAt(n int) byte {
	if ss.pos+n >= len(ss.src) {
		return 0
	}
	return ss.src[ss.pos+n]
}

func (ss *scanState) advance() byte {
	c := ss.src[ss.pos]
	ss.pos++
	if c == '\n' {
		ss.line++
		ss.lineHead = ss.pos
	}
	return c
}

// ---------------------------------------------------------------------------
// Delimiting
// ---------------------------------------------------------------------------

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// isDelimiter reports a byte that can never continue a token.
func isDelimiter(b byte) bool {
	if isSpace(b) || b == 0 {
		return true
	}
	switch b {
	case '[', ']', '(', ')', '{', '}', '"', ';':
		return true
	}
	return false
}

// skipBlanks consumes whitespace and ;-comments, noting newlines so the
// next value gets a newline-before flag.
func (ss *scanState) skipBlanks() {
	for !ss.atEnd() {
		c := ss.peek()
		switch {
		case c == '\n':
			ss.pendingNewline = true
			ss.advance()
		case isSpace(c):
			ss.advance()
		case c == ';':
			for !ss.atEnd() && ss.peek() != '\n' {
				ss.advance()
			}
		default:
			return
		}
	}
}

// ---------------------------------------------------------------------------
// Array scanning
// ---------------------------------------------------------------------------

// scanArray scans values until the terminator byte (0 means end of
// input).  The terminator is consumed.
func (ss *scanState) scanArray(terminator byte) *Series {
	rt := ss.rt
	arr := rt.makeArray(8, 0)
	rt.guardSeries(arr)
	defer rt.dropGuard(1)

	for {
		ss.skipBlanks()
		if ss.atEnd() {
			if terminator != 0 {
				ss.fail("missing-close", string(terminator))
			}
			break
		}
		c := ss.peek()
		if c == terminator {
			ss.advance()
			break
		}
		if c == ']' || c == ')' {
			ss.fail("extra-close", string(c))
		}
		var v Cell
		v.Erase()
		ss.scanValue(&v)
		slot := rt.appendCell(arr, &v)
		if ss.pendingNewline {
			slot.setFlag(cellFlagNewlineBefore)
			ss.pendingNewline = false
		}
	}
	if ss.pendingNewline {
		arr.header |= seriesFlagNewlineAtTail
		ss.pendingNewline = false
	}
	return arr
}

// ---------------------------------------------------------------------------
// Single-value scanning
// ---------------------------------------------------------------------------

func (ss *scanState) scanValue(out *Cell) {
	rt := ss.rt
	c := ss.peek()
	switch {
	case c == '\'':
		depth := 0
		for ss.peek() == '\'' {
			depth++
			ss.advance()
		}
		if ss.atEnd() || isDelimiter(ss.peek()) {
			ss.fail("invalid-word", "'")
		}
		ss.scanValue(out)
		Quotify(rt, out, depth)

	case c == '[':
		ss.advance()
		InitBlock(out, rt.manageSeries(ss.scanArray(']')))

	case c == '(':
		ss.advance()
		InitGroup(out, rt.manageSeries(ss.scanArray(')')))

	case c == '"':
		ss.scanQuotedString(out)

	case c == '{':
		ss.scanBracedString(out)

	case c == '#':
		ss.scanHashToken(out)

	case c == '%':
		ss.advance()
		rest, ok := rt.scanFileToken(out, ss.src[ss.pos:])
		if !ok {
			ss.fail("unterminated-file", "%")
		}
		ss.skipTo(rest)

	case c == ':':
		ss.advance()
		if ss.atEnd() || isDelimiter(ss.peek()) {
			ss.fail("invalid-word", ":")
		}
		ss.scanWordish(out, true)

	case c == '<' || c == '>':
		ss.scanAngleToken(out)

	case isDigit(c):
		ss.scanNumeric(out)

	case (c == '+' || c == '-') &&
		(isDigit(ss.peekAt(1)) || (ss.peekAt(1) == '.' && isDigit(ss.peekAt(2)))):
		ss.scanNumeric(out)

	case c == '.' && isDigit(ss.peekAt(1)):
		ss.scanNumeric(out)

	case isWordStart(c):
		ss.scanWordish(out, false)

	default:
		ss.fail("invalid-char", string(c))
	}
}

func (ss *scanState) skipTo(rest []byte) {
	target := len(ss.src) - len(rest)
	for ss.pos < target {
		ss.advance()
	}
}

// ---------------------------------------------------------------------------
// Strings, chars, binaries, issues
// ---------------------------------------------------------------------------

// decodeEscape handles the caret escapes inside strings and chars.  The
// leading '^' is already consumed.
func (ss *scanState) decodeEscape(buf []byte) []byte {
	if ss.atEnd() {
		ss.fail("unterminated-string", "^")
	}
	c := ss.advance()
	switch c {
	case '/':
		return append(buf, '\n')
	case '-':
		return append(buf, '\t')
	case '^':
		return append(buf, '^')
	case '"':
		return append(buf, '"')
	case '{':
		return append(buf, '{')
	case '}':
		return append(buf, '}')
	case '@':
		return append(buf, 0)
	case '(':
		cp := rune(0)
		n := 0
		for !ss.atEnd() && ss.peek() != ')' {
			d := ss.advance()
			if !isHexDigit(d) {
				ss.fail("invalid-escape", "^("+string(d))
			}
			cp = cp<<4 | rune(hexNibble(d))
			n++
		}
		if ss.atEnd() || n == 0 || n > 6 {
			ss.fail("invalid-escape", "^(")
		}
		ss.advance() // ')'
		return appendRuneUTF8(buf, cp)
	default:
		if c >= 'A' && c <= 'Z' {
			return append(buf, c-'A'+1) // control characters
		}
		if c >= 'a' && c <= 'z' {
			return append(buf, c-'a'+1)
		}
		ss.fail("invalid-escape", "^"+string(c))
		return nil
	}
}

func appendRuneUTF8(buf []byte, cp rune) []byte {
	return append(buf, string(cp)...)
}

func (ss *scanState) scanQuotedString(out *Cell) {
	rt := ss.rt
	ss.advance() // opening quote
	buf := rt.byteBuf[:0]
	for {
		if ss.atEnd() || ss.peek() == '\n' {
			ss.fail("unterminated-string", "\"")
		}
		c := ss.advance()
		if c == '"' {
			break
		}
		if c == '^' {
			buf = ss.decodeEscape(buf)
			continue
		}
		buf = append(buf, c)
	}
	rt.byteBuf = buf[:0]
	InitText(out, rt.manageSeries(rt.stringFrom(string(buf))))
}

// scanBracedString handles {...} with nested braces; newlines are kept,
// CRLF normalized to LF.
func (ss *scanState) scanBracedString(out *Cell) {
	rt := ss.rt
	ss.advance() // opening brace
	buf := rt.byteBuf[:0]
	depth := 1
	for {
		if ss.atEnd() {
			ss.fail("unterminated-string", "{")
		}
		c := ss.advance()
		switch c {
		case '{':
			depth++
			buf = append(buf, c)
		case '}':
			depth--
			if depth == 0 {
				rt.byteBuf = buf[:0]
				InitText(out, rt.manageSeries(rt.stringFrom(string(buf))))
				return
			}
			buf = append(buf, c)
		case '^':
			buf = ss.decodeEscape(buf)
		case '\r':
			if ss.peek() == '\n' {
				ss.advance()
			}
			buf = append(buf, '\n')
		default:
			buf = append(buf, c)
		}
	}
}

// scanHashToken: #"c" char, #{..} binary, #issue.
func (ss *scanState) scanHashToken(out *Cell) {
	rt := ss.rt
	switch ss.peekAt(1) {
	case '"':
		ss.advance() // '#'
		ss.advance() // '"'
		var buf []byte
		if ss.atEnd() || ss.peek() == '\n' {
			ss.fail("unterminated-char", "#\"")
		}
		c := ss.advance()
		if c == '^' {
			buf = ss.decodeEscape(nil)
		} else if c < 0x80 {
			buf = []byte{c}
		} else {
			buf = []byte{c}
			for !ss.atEnd() && ss.peek()&0xC0 == 0x80 {
				buf = append(buf, ss.advance())
			}
		}
		if ss.atEnd() || ss.peek() != '"' {
			ss.fail("unterminated-char", "#\"")
		}
		ss.advance()
		cp, size := utf8.DecodeRune(buf)
		if size != len(buf) || cp == utf8.RuneError && size == 1 {
			ss.fail("invalid-char", string(buf))
		}
		InitChar(out, cp)

	case '{':
		rest, ok := rt.scanBinaryToken(out, ss.src[ss.pos:])
		if !ok {
			ss.fail("invalid-binary", "#{")
		}
		ss.skipTo(rest)

	default:
		ss.advance() // '#'
		start := ss.pos
		for !ss.atEnd() && isWordByte(ss.peek()) {
			ss.advance()
		}
		if ss.pos == start {
			ss.fail("invalid-word", "#")
		}
		spelling := string(ss.src[start:ss.pos])
		InitAnyWord(out, KindIssue, rt.internSymbol(spelling))
	}
}

// ---------------------------------------------------------------------------
// Tags and comparison words
// ---------------------------------------------------------------------------

// scanAngleToken distinguishes the comparison words <, >, <=, >=, <>,
// <<, >> from tags: an angle bracket followed by a delimiter-terminated
// run of <, >, = is a word; a '<' opening anything else scans as a TAG!
// to the closing '>'.
func (ss *scanState) scanAngleToken(out *Cell) {
	rt := ss.rt
	n := 0
	for {
		c := ss.peekAt(n)
		if c != '<' && c != '>' && c != '=' {
			break
		}
		n++
	}
	if n > 0 && isDelimiter(ss.peekAt(n)) {
		run := string(ss.src[ss.pos : ss.pos+n])
		switch run {
		case "<", "<=", "<>", "<<", "<=>", ">", ">=", ">>":
			for i := 0; i < n; i++ {
				ss.advance()
			}
			InitWord(out, rt.internSymbol(run))
			return
		}
	}
	if ss.peek() == '>' {
		ss.fail("invalid-char", ">")
	}
	ss.advance() // '<'
	start := ss.pos
	for !ss.atEnd() && ss.peek() != '>' && ss.peek() != '\n' {
		ss.advance()
	}
	if ss.atEnd() || ss.peek() != '>' {
		ss.fail("unterminated-tag", "<")
	}
	content := string(ss.src[start:ss.pos])
	ss.advance() // '>'
	InitAnySeries(out, KindTag, rt.manageSeries(rt.stringFrom(content)), 0)
}

// ---------------------------------------------------------------------------
// Numeric tokens
// ---------------------------------------------------------------------------

// isNumericByte: bytes that can continue a numeric run (month names and
// pair 'x' include letters; dates use '-', times ':').
func isNumericByte(b byte) bool {
	return isDigit(b) || isLetter(b) ||
		b == '.' || b == ',' || b == '\'' || b == ':' ||
		b == '+' || b == '-' || b == '%'
}

func (ss *scanState) scanNumeric(out *Cell) {
	rt := ss.rt
	start := ss.pos
	for !ss.atEnd() && isNumericByte(ss.peek()) {
		ss.advance()
	}
	run := ss.src[start:ss.pos]

	// A based binary like 2#{...} or 64#{...}.
	if ss.peek() == '#' && ss.peekAt(1) == '{' {
		rest, ok := rt.scanBinaryToken(out, ss.src[start:])
		if !ok {
			ss.fail("invalid-binary", string(run))
		}
		ss.skipTo(rest)
		return
	}

	// A date can continue across '/': re-collect with slashes included
	// and let the date decoder judge.
	if ss.peek() == '/' && runIsAllDigits(run) {
		save := *ss
		for !ss.atEnd() && (isNumericByte(ss.peek()) || ss.peek() == '/') {
			ss.advance()
		}
		full := ss.src[start:ss.pos]
		if rest, ok := scanDateToken(out, full); ok && len(rest) == 0 {
			return
		}
		*ss = save
		// Not a date: an integer head of a path.
		var head Cell
		if rest, ok := scanIntegerToken(&head, run); !ok || len(rest) != 0 {
			ss.fail("invalid-date", string(full))
		}
		ss.scanPathFrom(out, &head, false)
		return
	}

	if ss.decodeNumericRun(out, run) {
		return
	}
	ss.fail("invalid-number", string(run))
}

func runIsAllDigits(run []byte) bool {
	for _, b := range run {
		if !isDigit(b) {
			return false
		}
	}
	return len(run) > 0
}

// decodeNumericRun tries the typed decoders in order; a decoder only
// wins by consuming the entire run.
func (ss *scanState) decodeNumericRun(out *Cell, run []byte) bool {
	rt := ss.rt
	hasX := false
	hasColon := false
	dots := 0
	hasSep := false
	for i, b := range run {
		switch {
		case b == 'x' || b == 'X':
			hasX = true
		case b == ':':
			hasColon = true
		case b == '.':
			dots++
		case (b == '-' || b == '/') && i > 0:
			hasSep = true
		case isLetter(b):
			hasSep = true // month names
		}
	}
	if hasX {
		if rest, ok := rt.scanPairToken(out, run); ok && len(rest) == 0 {
			return true
		}
		return false
	}
	if hasColon {
		if rest, ok := scanTimeToken(out, run); ok && len(rest) == 0 {
			return true
		}
		return false
	}
	// Two or more dots is a tuple unless a part overflows a byte, in
	// which case the date decoder gets a chance (1.2.2000).
	if dots >= 2 {
		if rest, ok := scanTupleToken(out, run); ok && len(rest) == 0 {
			return true
		}
	}
	if hasSep || dots == 2 {
		if rest, ok := scanDateToken(out, run); ok && len(rest) == 0 {
			return true
		}
	}
	if rest, ok := scanDecimalToken(out, run, false); ok && len(rest) == 0 {
		return true
	}
	if rest, ok := scanIntegerToken(out, run); ok && len(rest) == 0 {
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Words, paths, urls, emails
// ---------------------------------------------------------------------------

func isWordStart(b byte) bool {
	if isLetter(b) {
		return true
	}
	switch b {
	case '+', '-', '*', '!', '&', '?', '=', '_', '~', '|', '^', '.':
		return true
	}
	return false
}

func isWordByte(b byte) bool {
	return isWordStart(b) || isDigit(b)
}

// scanWordish scans a word-leading token: word, set-word, lit handled by
// the caller, url (scheme:...), email (user@host), path and set-path.
// getForm marks that a ':' prefix was consumed (get-word / get-path).
func (ss *scanState) scanWordish(out *Cell, getForm bool) {
	rt := ss.rt
	start := ss.pos
	for !ss.atEnd() && isWordByte(ss.peek()) {
		ss.advance()
	}
	if ss.pos == start {
		ss.fail("invalid-word", string(ss.peek()))
	}
	run := string(ss.src[start:ss.pos])

	switch ss.peek() {
	case ':':
		// scheme:rest is a URL when something other than a delimiter
		// follows the colon; otherwise a set-word.
		if !isDelimiter(ss.peekAt(1)) && ss.peekAt(1) != ':' {
			if getForm {
				ss.fail("invalid-word", run)
			}
			ss.scanURLFrom(out, start)
			return
		}
		ss.advance() // ':'
		if getForm {
			ss.fail("invalid-word", run+":")
		}
		InitSetWord(out, rt.internSymbol(run))
		return

	case '@':
		if getForm {
			ss.fail("invalid-word", run)
		}
		ss.scanEmailFrom(out, start)
		return

	case '/':
		var head Cell
		InitWord(&head, rt.internSymbol(run))
		ss.scanPathFrom(out, &head, getForm)
		return
	}

	if getForm {
		InitGetWord(out, rt.internSymbol(run))
	} else {
		InitWord(out, rt.internSymbol(run))
	}
}

func (ss *scanState) scanURLFrom(out *Cell, start int) {
	for !ss.atEnd() && !isDelimiter(ss.peek()) {
		ss.advance()
	}
	if _, ok := ss.rt.scanURLToken(out, ss.src[start:ss.pos]); !ok {
		ss.fail("invalid-url", string(ss.src[start:ss.pos]))
	}
}

func (ss *scanState) scanEmailFrom(out *Cell, start int) {
	for !ss.atEnd() && !isDelimiter(ss.peek()) {
		ss.advance()
	}
	if _, ok := ss.rt.scanEmailToken(out, ss.src[start:ss.pos]); !ok {
		ss.fail("invalid-email", string(ss.src[start:ss.pos]))
	}
}

// scanPathFrom builds a path from an already-scanned head value.  The
// cursor sits on the first '/'.  Segments may be words, integers, or
// groups; a trailing ':' makes a set-path.
func (ss *scanState) scanPathFrom(out *Cell, head *Cell, getForm bool) {
	rt := ss.rt
	arr := rt.makeArray(4, 0)
	rt.guardSeries(arr)
	defer rt.dropGuard(1)
	rt.appendCell(arr, head)

	for ss.peek() == '/' {
		ss.advance()
		var seg Cell
		seg.Erase()
		c := ss.peek()
		switch {
		case c == '(':
			ss.advance()
			InitGroup(&seg, rt.manageSeries(ss.scanArray(')')))
		case c == '\'':
			ss.advance()
			if ss.atEnd() || !isWordStart(ss.peek()) {
				ss.fail("invalid-path", "'")
			}
			segStart := ss.pos
			for !ss.atEnd() && isWordByte(ss.peek()) {
				ss.advance()
			}
			InitWord(&seg, rt.internSymbol(string(ss.src[segStart:ss.pos])))
			Quotify(rt, &seg, 1)
		case isDigit(c):
			segStart := ss.pos
			for !ss.atEnd() && isNumericByte(ss.peek()) {
				// a colon at a delimiter belongs to the set-path, not
				// the segment (x/2: vs x/10:30)
				if ss.peek() == ':' && isDelimiter(ss.peekAt(1)) {
					break
				}
				ss.advance()
			}
			if !ss.decodeNumericRun(&seg, ss.src[segStart:ss.pos]) {
				ss.fail("invalid-path", string(ss.src[segStart:ss.pos]))
			}
		case isWordStart(c):
			segStart := ss.pos
			for !ss.atEnd() && isWordByte(ss.peek()) {
				ss.advance()
			}
			InitWord(&seg, rt.internSymbol(string(ss.src[segStart:ss.pos])))
		default:
			ss.fail("invalid-path", string(c))
		}
		rt.appendCell(arr, &seg)
	}

	kind := KindPath
	if getForm {
		kind = KindGetPath
	} else if ss.peek() == ':' && isDelimiter(ss.peekAt(1)) {
		ss.advance()
		kind = KindSetPath
	}
	InitAnySeries(out, kind, rt.manageSeries(arr), 0)
}

// moldEscapeText writes a string's content with scanner escapes applied,
// shared with mold.
func moldEscapeText(sb *strings.Builder, text string) {
	for _, r := range text {
		switch r {
		case '"':
			sb.WriteString("^\"")
		case '^':
			sb.WriteString("^^")
		case '\n':
			sb.WriteString("^/")
		case '\t':
			sb.WriteString("^-")
		default:
			sb.WriteRune(r)
		}
	}
}
