// lextypes.go
//
// Typed-token decoders: each Scan_X takes raw bytes and fills the out
// cell, returning the remaining bytes and whether the token was accepted.
// On rejection the out cell is left an unreadable blank and the input is
// not consumed.  The decoders are side-effect-free except through the out
// cell (and allocations that end up referenced by it).

package reb

import (
	"encoding/base64"
	"math"
	"strconv"
	"strings"
)

const maxIntDigits = 19 // int64 has at most 19 decimal digits

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func hexNibble(b byte) byte {
	switch {
	case isDigit(b):
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	default:
		return b - 'A' + 10
	}
}

// scanIntegerToken: optional sign, digits with ' group separators.
// More than 19 digits or int64 overflow rejects.
func scanIntegerToken(out *Cell, b []byte) ([]byte, bool) {
	InitUnreadableBlank(out)
	i := 0
	neg := false
	if i < len(b) && (b[i] == '+' || b[i] == '-') {
		neg = b[i] == '-'
		i++
	}
	digits := 0
	var val uint64
	for i < len(b) {
		switch {
		case isDigit(b[i]):
			digits++
			if digits > maxIntDigits {
				return nil, false
			}
			val = val*10 + uint64(b[i]-'0')
			i++
		case b[i] == '\'':
			i++ // group separator, ignored
		default:
			goto done
		}
	}
done:
	if digits == 0 {
		return nil, false
	}
	// Range check against the sign.
	if neg {
		if val > uint64(math.MaxInt64)+1 {
			return nil, false
		}
		InitInteger(out, -int64(val))
	} else {
		if val > uint64(math.MaxInt64) {
			return nil, false
		}
		InitInteger(out, int64(val))
	}
	return b[i:], true
}

// scanDecimalToken: integer part, '.' or ',', fraction, optional eE
// exponent with signed integer, optional '%' percent suffix (rejected
// when numericOnly).
func scanDecimalToken(out *Cell, b []byte, numericOnly bool) ([]byte, bool) {
	InitUnreadableBlank(out)
	i := 0
	var sb strings.Builder
	if i < len(b) && (b[i] == '+' || b[i] == '-') {
		sb.WriteByte(b[i])
		i++
	}
	sawDigit := false
	sawPoint := false
	for i < len(b) {
		switch {
		case isDigit(b[i]):
			sawDigit = true
			sb.WriteByte(b[i])
			i++
		case b[i] == '\'':
			i++
		case (b[i] == '.' || b[i] == ',') && !sawPoint:
			sawPoint = true
			sb.WriteByte('.')
			i++
		default:
			goto mantissaDone
		}
	}
mantissaDone:
	if !sawDigit {
		return nil, false
	}
	if i < len(b) && (b[i] == 'e' || b[i] == 'E') {
		j := i + 1
		var exp strings.Builder
		if j < len(b) && (b[j] == '+' || b[j] == '-') {
			exp.WriteByte(b[j])
			j++
		}
		expDigits := 0
		for j < len(b) && isDigit(b[j]) {
			exp.WriteByte(b[j])
			expDigits++
			j++
		}
		if expDigits > 0 {
			sb.WriteByte('e')
			sb.WriteString(exp.String())
			i = j
			sawPoint = true
		}
	}
	percent := false
	if i < len(b) && b[i] == '%' {
		if numericOnly {
			return nil, false
		}
		percent = true
		i++
	}
	if !sawPoint && !percent {
		return nil, false // integers are not decimals
	}
	f, err := strconv.ParseFloat(sb.String(), 64)
	if err != nil || math.IsInf(f, 0) {
		return nil, false
	}
	if percent {
		InitPercent(out, f/100)
	} else {
		InitDecimal(out, f)
	}
	return b[i:], true
}

// scanHexToken decodes up to maxLen hex digits, 4 bits each.
func scanHexToken(out *Cell, b []byte, maxLen int) ([]byte, bool) {
	InitUnreadableBlank(out)
	var val int64
	i := 0
	for i < len(b) && isHexDigit(b[i]) {
		if i >= maxLen {
			return nil, false
		}
		val = val<<4 | int64(hexNibble(b[i]))
		i++
	}
	if i == 0 {
		return nil, false
	}
	InitInteger(out, val)
	return b[i:], true
}

// scanPairToken: number, 'x' or 'X', number.  The pair lives in a
// pairing node holding two decimal cells.
func (rt *Runtime) scanPairToken(out *Cell, b []byte) ([]byte, bool) {
	InitUnreadableBlank(out)
	var x, y Cell
	rest, ok := scanPairPart(&x, b)
	if !ok {
		return nil, false
	}
	if len(rest) == 0 || (rest[0] != 'x' && rest[0] != 'X') {
		return nil, false
	}
	rest, ok = scanPairPart(&y, rest[1:])
	if !ok {
		return nil, false
	}
	p := rt.allocPairing(0)
	copyCell(p.pairedCell(0), &x)
	copyCell(p.pairedCell(1), &y)
	InitPair(out, p)
	return rest, true
}

func scanPairPart(out *Cell, b []byte) ([]byte, bool) {
	if rest, ok := scanDecimalToken(out, b, true); ok {
		return rest, true
	}
	if rest, ok := scanIntegerToken(out, b); ok {
		InitDecimal(out, float64(out.Int64()))
		return rest, true
	}
	return nil, false
}

// scanTupleToken: up to 8 dot-separated byte-sized integers; length is
// padded to at least 3 with zero bytes so 1.2 compares equal to 1.2.0.
func scanTupleToken(out *Cell, b []byte) ([]byte, bool) {
	InitUnreadableBlank(out)
	var parts []byte
	i := 0
	for {
		start := i
		n := 0
		for i < len(b) && isDigit(b[i]) {
			n = n*10 + int(b[i]-'0')
			if n > 255 {
				return nil, false
			}
			i++
		}
		if i == start {
			return nil, false
		}
		parts = append(parts, byte(n))
		if len(parts) > maxTuple {
			return nil, false
		}
		if i < len(b) && b[i] == '.' {
			i++
			continue
		}
		break
	}
	if len(parts) < 2 {
		return nil, false
	}
	InitTuple(out, parts)
	return b[i:], true
}

// ---------------------------------------------------------------------------
// Time and date
// ---------------------------------------------------------------------------

// scanTimeToken: H:MM, H:MM:SS, H:MM:SS.fraction; optional sign.
func scanTimeToken(out *Cell, b []byte) ([]byte, bool) {
	InitUnreadableBlank(out)
	i := 0
	neg := false
	if i < len(b) && (b[i] == '+' || b[i] == '-') {
		neg = b[i] == '-'
		i++
	}
	readNum := func() (int, bool) {
		start := i
		n := 0
		for i < len(b) && isDigit(b[i]) {
			n = n*10 + int(b[i]-'0')
			i++
		}
		return n, i > start
	}
	hours, ok := readNum()
	if !ok || i >= len(b) || b[i] != ':' {
		return nil, false
	}
	i++
	minutes, ok := readNum()
	if !ok || minutes > 59 {
		return nil, false
	}
	seconds := 0
	fracNanos := int64(0)
	if i < len(b) && b[i] == ':' {
		i++
		seconds, ok = readNum()
		if !ok || seconds > 59 {
			return nil, false
		}
		if i < len(b) && b[i] == '.' {
			i++
			scale := int64(100000000)
			digits := 0
			for i < len(b) && isDigit(b[i]) {
				fracNanos += int64(b[i]-'0') * scale
				scale /= 10
				digits++
				i++
			}
			if digits == 0 {
				return nil, false
			}
		}
	}
	nanos := (int64(hours)*3600+int64(minutes)*60+int64(seconds))*1e9 + fracNanos
	if neg {
		nanos = -nanos
	}
	InitTime(out, nanos)
	return b[i:], true
}

var monthNames = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

var dayNames = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

// matchMonthName matches a 3-or-more letter prefix of a month name,
// case-insensitive; returns month 1..12 and consumed length.
func matchMonthName(b []byte) (int, int) {
	n := 0
	for n < len(b) && isLetter(b[n]) {
		n++
	}
	if n < 3 {
		return 0, 0
	}
	word := strings.ToLower(string(b[:n]))
	for m, name := range monthNames {
		if strings.HasPrefix(name, word) {
			return m + 1, n
		}
	}
	return 0, 0
}

func isLeapYear(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}

var daysInMonthTable = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

func daysInMonth(y, m int) int {
	if m == 2 && isLeapYear(y) {
		return 29
	}
	return daysInMonthTable[m-1]
}

// scanDateToken handles: optional day name + comma, then day/month/year
// or year-month-day (year recognized as 4+ digits or > 31), separators
// '/', '-', '.', with an optional time after '/' and an optional zone
// "+H:MM"/"-HHMM" (range up to 15 hours).
func scanDateToken(out *Cell, b []byte) ([]byte, bool) {
	InitUnreadableBlank(out)
	i := 0

	// Optional leading day name followed by a comma.
	if i < len(b) && isLetter(b[i]) {
		n := 0
		for i+n < len(b) && isLetter(b[i+n]) {
			n++
		}
		word := strings.ToLower(string(b[i : i+n]))
		matched := false
		for _, d := range dayNames {
			if n >= 3 && strings.HasPrefix(d, word) {
				matched = true
				break
			}
		}
		if !matched || i+n >= len(b) || b[i+n] != ',' {
			return nil, false
		}
		i += n + 1
		for i < len(b) && b[i] == ' ' {
			i++
		}
	}

	readNum := func() (int, int) {
		start := i
		n := 0
		for i < len(b) && isDigit(b[i]) {
			n = n*10 + int(b[i]-'0')
			if n > 99999 {
				return -1, 0
			}
			i++
		}
		return n, i - start
	}

	first, w1 := readNum()
	if w1 == 0 || first < 0 {
		return nil, false
	}
	if i >= len(b) {
		return nil, false
	}
	sep := b[i]
	if sep != '/' && sep != '-' && sep != '.' {
		return nil, false
	}
	i++

	// Month: number or 3+ letter name.
	month := 0
	if m, n := matchMonthName(b[i:]); m != 0 {
		month = m
		i += n
	} else {
		m, w := readNum()
		if w == 0 {
			return nil, false
		}
		month = m
	}
	if i >= len(b) || b[i] != sep {
		return nil, false
	}
	i++
	third, w3 := readNum()
	if w3 == 0 || third < 0 {
		return nil, false
	}

	var year, day int
	switch {
	case w1 >= 4 || first > 31:
		year, day = first, third
	case w3 >= 4 || third > 31:
		year, day = third, first
	default:
		// Two-digit years pivot around the epoch era.
		year, day = third, first
		if year < 100 {
			if year < 50 {
				year += 2000
			} else {
				year += 1900
			}
		}
	}
	if month < 1 || month > 12 {
		return nil, false
	}
	if day < 1 || day > daysInMonth(year, month) {
		return nil, false
	}

	// Optional time after '/' (or a space in header-ish input).
	hasTime := false
	var nanos int64
	if i < len(b) && b[i] == '/' {
		var t Cell
		rest, ok := scanTimeToken(&t, b[i+1:])
		if !ok {
			return nil, false
		}
		hasTime = true
		nanos = t.timeNanos()
		i = len(b) - len(rest)
	}

	// Optional zone.
	hasZone := false
	zoneMinutes := 0
	if hasTime && i < len(b) && (b[i] == '+' || b[i] == '-') {
		negZ := b[i] == '-'
		i++
		h, wh := readNum()
		if wh == 0 {
			return nil, false
		}
		var mm int
		if i < len(b) && b[i] == ':' {
			i++
			m2, wm := readNum()
			if wm == 0 {
				return nil, false
			}
			mm = m2
		} else if wh >= 3 {
			// ±HHMM packed form.
			mm = h % 100
			h = h / 100
		}
		if h > 15 || (h == 15 && mm > 0) || mm > 59 {
			return nil, false
		}
		zoneMinutes = h*60 + mm
		if negZ {
			zoneMinutes = -zoneMinutes
		}
		hasZone = true
	}

	InitDate(out, year, month, day, zoneMinutes, nanos, hasTime, hasZone)
	return b[i:], true
}

// ---------------------------------------------------------------------------
// Email, file, URL
// ---------------------------------------------------------------------------

// scanEmailToken: codepoints to the end of the token, exactly one '@',
// with %HH escapes decoded.
func (rt *Runtime) scanEmailToken(out *Cell, b []byte) ([]byte, bool) {
	InitUnreadableBlank(out)
	ats := 0
	buf := rt.byteBuf[:0]
	i := 0
	for i < len(b) {
		c := b[i]
		if c == '@' {
			ats++
			if ats > 1 {
				return nil, false
			}
			buf = append(buf, c)
			i++
			continue
		}
		if c == '%' && i+2 < len(b) && isHexDigit(b[i+1]) && isHexDigit(b[i+2]) {
			buf = append(buf, hexNibble(b[i+1])<<4|hexNibble(b[i+2]))
			i += 3
			continue
		}
		buf = append(buf, c)
		i++
	}
	rt.byteBuf = buf[:0]
	if ats != 1 {
		return nil, false
	}
	s := rt.stringFrom(string(buf))
	InitAnySeries(out, KindEmail, rt.manageSeries(s), 0)
	return b[i:], true
}

// scanFileToken: optional '%' already stripped by the caller.  A leading
// '"' means quoted form (to the closing quote); otherwise bytes run to
// one of `:;()[]"` with CRLF normalized to LF.
func (rt *Runtime) scanFileToken(out *Cell, b []byte) ([]byte, bool) {
	InitUnreadableBlank(out)
	buf := rt.byteBuf[:0]
	i := 0
	if len(b) > 0 && b[0] == '"' {
		i = 1
		for i < len(b) && b[i] != '"' {
			if b[i] == '\r' && i+1 < len(b) && b[i+1] == '\n' {
				buf = append(buf, '\n')
				i += 2
				continue
			}
			buf = append(buf, b[i])
			i++
		}
		if i >= len(b) {
			return nil, false // unterminated
		}
		i++ // closing quote
	} else {
		for i < len(b) {
			c := b[i]
			if c == ':' || c == ';' || c == '(' || c == ')' ||
				c == '[' || c == ']' || c == '"' {
				break
			}
			if c == '\r' && i+1 < len(b) && b[i+1] == '\n' {
				buf = append(buf, '\n')
				i += 2
				continue
			}
			buf = append(buf, c)
			i++
		}
	}
	rt.byteBuf = buf[:0]
	s := rt.stringFrom(string(buf))
	InitAnySeries(out, KindFile, rt.manageSeries(s), 0)
	return b[i:], true
}

// scanURLToken: raw UTF-8, no decoding.
func (rt *Runtime) scanURLToken(out *Cell, b []byte) ([]byte, bool) {
	InitUnreadableBlank(out)
	s := rt.stringFrom(string(b))
	InitAnySeries(out, KindURL, rt.manageSeries(s), 0)
	return b[len(b):], true
}

// ---------------------------------------------------------------------------
// Binary
// ---------------------------------------------------------------------------

// scanBinaryToken: optional leading base (2, 16, 64) then #{...}; the
// closing brace is consumed.
func (rt *Runtime) scanBinaryToken(out *Cell, b []byte) ([]byte, bool) {
	InitUnreadableBlank(out)
	base := 16
	i := 0
	if i < len(b) && isDigit(b[i]) {
		n := 0
		for i < len(b) && isDigit(b[i]) {
			n = n*10 + int(b[i]-'0')
			i++
		}
		base = n
	}
	if i+1 >= len(b) || b[i] != '#' || b[i+1] != '{' {
		return nil, false
	}
	i += 2
	start := i
	for i < len(b) && b[i] != '}' {
		i++
	}
	if i >= len(b) {
		return nil, false // unterminated
	}
	content := b[start:i]
	i++ // consume '}'

	var decoded []byte
	switch base {
	case 16:
		var ok bool
		decoded, ok = decodeBase16(content)
		if !ok {
			return nil, false
		}
	case 2:
		var ok bool
		decoded, ok = decodeBase2(content)
		if !ok {
			return nil, false
		}
	case 64:
		stripped := stripWhitespace(content)
		var err error
		decoded, err = base64.StdEncoding.DecodeString(string(stripped))
		if err != nil {
			return nil, false
		}
	default:
		return nil, false
	}

	bin := rt.makeBinary(len(decoded))
	rt.appendBytes(bin, decoded)
	InitBinary(out, rt.manageSeries(bin))
	return b[i:], true
}

func stripWhitespace(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			continue
		}
		out = append(out, c)
	}
	return out
}

func decodeBase16(b []byte) ([]byte, bool) {
	s := stripWhitespace(b)
	if len(s)%2 != 0 {
		return nil, false
	}
	out := make([]byte, 0, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		if !isHexDigit(s[i]) || !isHexDigit(s[i+1]) {
			return nil, false
		}
		out = append(out, hexNibble(s[i])<<4|hexNibble(s[i+1]))
	}
	return out, true
}

func decodeBase2(b []byte) ([]byte, bool) {
	s := stripWhitespace(b)
	if len(s)%8 != 0 {
		return nil, false
	}
	out := make([]byte, 0, len(s)/8)
	for i := 0; i < len(s); i += 8 {
		var v byte
		for j := 0; j < 8; j++ {
			v <<= 1
			switch s[i+j] {
			case '1':
				v |= 1
			case '0':
			default:
				return nil, false
			}
		}
		out = append(out, v)
	}
	return out, true
}

// ---------------------------------------------------------------------------
// Net header (RFC-822-ish)
// ---------------------------------------------------------------------------

// scanNetHeader parses "word: value" lines with continuation indent into
// a context.  Keys compare case-insensitively; a repeated key collapses
// its values into a block.
func (rt *Runtime) scanNetHeader(out *Cell, src []byte) *Cell {
	ctx := rt.makeContext(KindObject, 8)
	lines := strings.Split(string(src), "\n")

	var curKey *Series
	var curVal strings.Builder
	flush := func() {
		if curKey == nil {
			return
		}
		rt.netHeaderAdd(ctx, curKey, strings.TrimRight(curVal.String(), "\r "))
		curKey = nil
		curVal.Reset()
	}
	for _, line := range lines {
		if line == "" || line == "\r" {
			flush()
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			// Continuation of the previous value.
			if curKey != nil {
				curVal.WriteByte(' ')
				curVal.WriteString(strings.TrimSpace(line))
			}
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			continue // not a field line; skip
		}
		flush()
		name := strings.TrimSpace(line[:colon])
		if name == "" {
			continue
		}
		curKey = rt.internSymbol(name)
		curVal.WriteString(strings.TrimSpace(line[colon+1:]))
	}
	flush()
	InitContext(out, KindObject, rt.manageSeries(ctx))
	return out
}

// netHeaderAdd appends a value under a key, collapsing repeats into a
// block of values.
func (rt *Runtime) netHeaderAdd(ctx *Series, key *Series, value string) {
	text := &Cell{}
	InitText(text, rt.manageSeries(rt.stringFrom(value)))

	existing := selectContext(ctx, key)
	if existing == nil {
		v := rt.appendContextKey(ctx, key)
		copyCell(v, text)
		return
	}
	if existing.Heart() == KindBlock {
		rt.appendCell(existing.series(), text)
		return
	}
	block := rt.makeArray(2, nodeFlagManaged)
	rt.appendCell(block, existing)
	rt.appendCell(block, text)
	InitBlock(existing, block)
}
