// convert.go
//
// Make and To hook implementations for the built-in datatypes, plus the
// MAKE and TO natives that route through them.  MAKE constructs a value
// of a kind from a definition (a spec block for composites); TO
// reinterprets an existing value as the target kind.  For the scalar
// kinds the two coincide.

package reb

import (
	"strconv"
	"strings"
)

func natMake(rt *Runtime, f *Frame) *Cell {
	kind := f.arg(1).datatypeKind()
	return rt.hooks[kind].Make(rt, f.out, f.arg(2))
}

func natTo(rt *Runtime, f *Frame) *Cell {
	kind := f.arg(1).datatypeKind()
	return rt.hooks[kind].To(rt, f.out, f.arg(2))
}

// ---------------------------------------------------------------------------
// Scalars
// ---------------------------------------------------------------------------

func makeScalarHookFor(kind Kind) MakeHook {
	return func(rt *Runtime, out *Cell, def *Cell) *Cell {
		return rt.convertScalar(out, kind, def)
	}
}

func toScalarHookFor(kind Kind) ToHook {
	return func(rt *Runtime, out *Cell, value *Cell) *Cell {
		return rt.convertScalar(out, kind, value)
	}
}

func (rt *Runtime) convertScalar(out *Cell, kind Kind, v *Cell) *Cell {
	if v.Heart() == kind {
		return copyCell(out, v)
	}
	switch kind {
	case KindBlank:
		return InitBlank(out)

	case KindLogic:
		switch v.Heart() {
		case KindNull, KindBlank:
			return InitLogic(out, false)
		case KindInteger:
			return InitLogic(out, v.Int64() != 0)
		}
		return InitLogic(out, true)

	case KindInteger:
		switch v.Heart() {
		case KindDecimal, KindPercent:
			return InitInteger(out, int64(v.Float64()))
		case KindChar:
			return InitInteger(out, int64(v.Char()))
		case KindLogic:
			if v.Logic() {
				return InitInteger(out, 1)
			}
			return InitInteger(out, 0)
		case KindIssue:
			// Issues convert as hexadecimal: #FF -> 255.
			spelling := symbolText(v.wordSpelling())
			var c Cell
			if rest, ok := scanHexToken(&c, []byte(spelling), 16); ok && len(rest) == 0 {
				return copyCell(out, &c)
			}
			failType("bad-hex-issue", spelling)
		case KindText:
			return rt.convertFromText(out, kind, v)
		case KindTime:
			return InitInteger(out, v.timeNanos()/1e9)
		}

	case KindDecimal, KindPercent:
		switch v.Heart() {
		case KindInteger:
			f := float64(v.Int64())
			if kind == KindPercent {
				return InitPercent(out, f)
			}
			return InitDecimal(out, f)
		case KindDecimal, KindPercent:
			if kind == KindPercent {
				return InitPercent(out, v.Float64())
			}
			return InitDecimal(out, v.Float64())
		case KindText:
			return rt.convertFromText(out, kind, v)
		}

	case KindChar:
		switch v.Heart() {
		case KindInteger:
			return InitChar(out, rune(v.Int64()))
		case KindText:
			s := v.series()
			if v.seriesIndex() >= strLen(s) {
				failType("empty-text-to-char", "")
			}
			return InitChar(out, rt.charAt(s, v.seriesIndex()))
		}

	case KindTime:
		switch v.Heart() {
		case KindInteger:
			return InitTime(out, v.Int64()*1e9)
		case KindDecimal:
			return InitTime(out, int64(v.Float64()*1e9))
		case KindText:
			return rt.convertFromText(out, kind, v)
		}

	case KindDate, KindTuple, KindPair:
		if v.Heart() == KindText {
			return rt.convertFromText(out, kind, v)
		}
		if kind == KindPair && v.Heart() == KindBlock && v.series().Len()-v.seriesIndex() >= 2 {
			a := v.series()
			x := a.at(v.seriesIndex())
			y := a.at(v.seriesIndex() + 1)
			p := rt.allocPairing(0)
			InitDecimal(p.pairedCell(0), cellToFloat(x))
			InitDecimal(p.pairedCell(1), cellToFloat(y))
			return InitPair(out, rt.manageSeries(p))
		}
	}
	failType("bad-conversion", kindName(v.Heart())+" to "+kindName(kind)+"!")
	return nil
}

// convertFromText runs the scanner's token decoder for the target kind
// over the text's remaining content; the decoder must consume it all.
func (rt *Runtime) convertFromText(out *Cell, kind Kind, v *Cell) *Cell {
	text := rt.textContent(v)
	b := []byte(strings.TrimSpace(text))
	var ok bool
	var rest []byte
	switch kind {
	case KindInteger:
		rest, ok = scanIntegerToken(out, b)
	case KindDecimal, KindPercent:
		rest, ok = scanDecimalToken(out, b, false)
		if ok && kind == KindPercent && out.Heart() != KindPercent {
			InitPercent(out, out.Float64())
		}
		if ok && kind == KindDecimal && out.Heart() == KindPercent {
			InitDecimal(out, out.Float64())
		}
	case KindTime:
		rest, ok = scanTimeToken(out, b)
	case KindDate:
		rest, ok = scanDateToken(out, b)
	case KindTuple:
		rest, ok = scanTupleToken(out, b)
	case KindPair:
		rest, ok = rt.scanPairToken(out, b)
	}
	if !ok || len(rest) != 0 {
		failType("bad-conversion", "\""+text+"\" to "+kindName(kind)+"!")
	}
	return out
}

// textContent extracts the remaining codepoints of a text-like cell.
func (rt *Runtime) textContent(v *Cell) string {
	s := v.series()
	b := s.bytes()
	if idx := v.seriesIndex(); idx > 0 {
		b = b[byteIndexOf(rt, v):]
	}
	return string(b)
}

// ---------------------------------------------------------------------------
// Strings and blocks
// ---------------------------------------------------------------------------

// toStringlikeHookFor forms the value into a fresh string series of the
// target kind.  Binary is the exception: text converts by its UTF-8
// bytes and integers by a single byte.
func toStringlikeHookFor(kind Kind) ToHook {
	return func(rt *Runtime, out *Cell, v *Cell) *Cell {
		if kind == KindBinary {
			switch v.Heart() {
			case KindBinary:
				return copyCell(out, v)
			case KindText, KindFile, KindEmail, KindURL, KindTag:
				bin := rt.makeBinary(0)
				rt.appendBytes(bin, []byte(rt.textContent(v)))
				return InitBinary(out, rt.manageSeries(bin))
			case KindInteger:
				bin := rt.makeBinary(1)
				rt.appendBytes(bin, []byte{byte(v.Int64())})
				return InitBinary(out, rt.manageSeries(bin))
			}
			failType("bad-conversion", kindName(v.Heart())+" to binary!")
		}
		var text string
		if isStringKind(v.Heart()) {
			text = rt.textContent(v)
		} else {
			text = rt.FormCell(v)
		}
		s := rt.manageSeries(rt.stringFrom(text))
		return InitAnySeries(out, kind, s, 0)
	}
}

func isStringKind(k Kind) bool {
	switch k {
	case KindText, KindFile, KindEmail, KindURL, KindTag:
		return true
	}
	return false
}

// toArraylikeHookFor changes an array value's kind without copying the
// underlying series; a non-array value becomes a one-element array.
func toArraylikeHookFor(kind Kind) ToHook {
	return func(rt *Runtime, out *Cell, v *Cell) *Cell {
		if isArrayKind(v.Heart()) {
			copyCell(out, v)
			out.changeHeart(kind)
			return out
		}
		a := rt.makeArray(1, 0)
		rt.appendCell(a, v)
		return InitAnySeries(out, kind, rt.manageSeries(a), 0)
	}
}

// ---------------------------------------------------------------------------
// Composites: object, event, image
// ---------------------------------------------------------------------------

// makeObjectHook builds an object from a spec block of set-word/value
// pairs taken literally.
func makeObjectHook(rt *Runtime, out *Cell, def *Cell) *Cell {
	if def.Heart() != KindBlock {
		failType("make-object-spec", "object spec must be a block")
	}
	a := def.series()
	pairs := make([]*Cell, 0, a.Len())
	for i := def.seriesIndex(); i < a.Len(); i++ {
		pairs = append(pairs, a.at(i))
	}
	if len(pairs)%2 != 0 {
		failType("make-object-spec", "object spec needs set-word/value pairs")
	}
	return InitContext(out, KindObject, rt.makeObjectFromPairs(pairs))
}

// makeEventHook reads the mold round-trip spec: [type: down offset: 3x4
// code: 65 double: true control: true shift: true].  Flag words accept
// the word or logic true.
func makeEventHook(rt *Runtime, out *Cell, def *Cell) *Cell {
	if def.Heart() != KindBlock {
		failType("make-event-spec", "event spec must be a block")
	}
	typ := EvtIgnore
	var flags uint8
	var data int32
	model := ModelDevice
	var window uint8

	a := def.series()
	for i := def.seriesIndex(); i+1 < a.Len(); i += 2 {
		sw, v := a.at(i), a.at(i+1)
		if sw.Heart() != KindSetWord {
			failType("make-event-spec", "event spec needs set-word/value pairs")
		}
		switch symbolText(canonOf(sw.wordSpelling())) {
		case "type":
			if v.Heart() != KindWord {
				failType("make-event-spec", "type must be a word")
			}
			typ = eventTypeByName(symbolText(canonOf(v.wordSpelling())))
		case "offset":
			if v.Heart() != KindPair {
				failType("make-event-spec", "offset must be a pair")
			}
			p := v.pairing()
			x := int16(p.pairedCell(0).Float64())
			y := int16(p.pairedCell(1).Float64())
			data = int32(uint16(x)) | int32(uint16(y))<<16
			flags |= EventFlagHasXY
		case "code":
			if v.Heart() != KindInteger {
				failType("make-event-spec", "code must be an integer")
			}
			data = int32(v.Int64())
		case "double":
			if specFlagTruthy(v) {
				flags |= EventFlagDouble
			}
		case "control":
			if specFlagTruthy(v) {
				flags |= EventFlagControl
			}
		case "shift":
			if specFlagTruthy(v) {
				flags |= EventFlagShift
			}
		case "model":
			if v.Heart() != KindWord {
				failType("make-event-spec", "model must be a word")
			}
			model = eventModelByName(symbolText(canonOf(v.wordSpelling())))
		case "window":
			if v.Heart() != KindInteger || v.Int64() < 0 || v.Int64() > 255 {
				failType("make-event-spec", "window must be an integer 0-255")
			}
			window = uint8(v.Int64())
		default:
			failType("make-event-spec", "unknown event field: "+
				symbolText(sw.wordSpelling()))
		}
	}
	return InitEventFull(out, typ, flags, model, window, data, nil)
}

func specFlagTruthy(v *Cell) bool {
	if v.Heart() == KindLogic {
		return v.Logic()
	}
	return v.Heart() == KindWord && symbolText(canonOf(v.wordSpelling())) == "true"
}

func eventTypeByName(name string) EventType {
	for i, n := range eventTypeNames {
		if n == name {
			return EventType(i)
		}
	}
	failType("make-event-spec", "unknown event type: "+name)
	return EvtIgnore
}

func eventModelByName(name string) EventModel {
	for i, n := range eventModelNames {
		if n == name {
			return EventModel(i)
		}
	}
	failType("make-event-spec", "unknown event model: "+name)
	return ModelDevice
}

// makeImageHook reads the mold round-trip spec: [WxH] zeroed, or
// [WxH #{pixel bytes}] with short data zero-filled.
func makeImageHook(rt *Runtime, out *Cell, def *Cell) *Cell {
	var size *Cell
	var pixels *Cell
	switch def.Heart() {
	case KindPair:
		size = def
	case KindBlock:
		a := def.series()
		i := def.seriesIndex()
		if i < a.Len() && a.at(i).Heart() == KindPair {
			size = a.at(i)
			i++
		}
		if i < a.Len() && a.at(i).Heart() == KindBinary {
			pixels = a.at(i)
		}
	}
	if size == nil {
		failType("make-image-spec", "image spec needs a WxH pair")
	}
	p := size.pairing()
	w := int(p.pairedCell(0).Float64())
	h := int(p.pairedCell(1).Float64())
	singular := rt.MakeImage(w, h)
	if pixels != nil {
		dst := imagePixels(singular).bytes()
		src := pixels.series().bytes()
		if len(src) > len(dst) {
			failCapacity("image-pixel-data: " + strconv.Itoa(len(src)) +
				" bytes for " + strconv.Itoa(len(dst)))
		}
		copy(dst, src)
	}
	return InitImage(out, singular, 0)
}
