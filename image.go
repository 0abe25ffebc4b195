// image.go
//
// IMAGE! is a singular array: an array series of one cell whose single
// element is a BINARY! of RGBA pixel data (4 bytes per pixel).  The
// width rides in the singular's misc slot and the height in its link
// slot, so the image cell itself stays a plain series reference with a
// pixel-indexed position.

package reb

import "strconv"

const imageBytesPerPixel = 4

// MakeImage allocates a width x height image zeroed to transparent
// black, returning its singular array.
func (rt *Runtime) MakeImage(width, height int) *Series {
	if width < 0 || height < 0 {
		failCapacity("image-size")
	}
	bin := rt.makeBinary(width * height * imageBytesPerPixel)
	rt.appendBytes(bin, make([]byte, width*height*imageBytesPerPixel))
	rt.manageSeries(bin)

	singular := rt.makeArray(1, 0)
	rt.appendCell(singular, InitBinary(&Cell{}, bin))
	singular.misc.i = int64(width)
	singular.link.i = int64(height)
	return rt.manageSeries(singular)
}

// InitImage points a cell at an image singular with a pixel index.
func InitImage(c *Cell, singular *Series, index int) *Cell {
	return InitAnySeries(c, KindImage, singular, index)
}

func imageWidth(singular *Series) int  { return int(singular.misc.i) }
func imageHeight(singular *Series) int { return int(singular.link.i) }

func imagePixels(singular *Series) *Series {
	return singular.at(0).series()
}

// imagePixel reads the RGBA quad at a pixel index.
func imagePixel(singular *Series, index int) (r, g, b, a byte) {
	p := imagePixels(singular).bytes()[index*imageBytesPerPixel:]
	return p[0], p[1], p[2], p[3]
}

func setImagePixel(singular *Series, index int, r, g, b, a byte) {
	pixels := imagePixels(singular)
	pixels.ensureWritable()
	p := pixels.bytes()[index*imageBytesPerPixel:]
	p[0], p[1], p[2], p[3] = r, g, b, a
}

// ---------------------------------------------------------------------------
// Hooks
// ---------------------------------------------------------------------------

func (rt *Runtime) installImageHooks() {
	rt.InstallHooks(KindImage, HookTable{
		Compare: compareImage,
		Mold:    moldImage,
		Path:    pathImage,
		Make:    makeImageHook,
	})
}

// compareImage: dimensions first, then pixel bytes.
func compareImage(rt *Runtime, a, b *Cell, strict bool) int {
	sa, sb := a.series(), b.series()
	if d := cmpInt64(int64(imageWidth(sa)), int64(imageWidth(sb))); d != 0 {
		return d
	}
	if d := cmpInt64(int64(imageHeight(sa)), int64(imageHeight(sb))); d != 0 {
		return d
	}
	ba := imagePixels(sa).bytes()
	bb := imagePixels(sb).bytes()
	for i := range ba {
		if ba[i] != bb[i] {
			return cmpInt64(int64(ba[i]), int64(bb[i]))
		}
	}
	return 0
}

const imageMoldHexDigits = "0123456789ABCDEF"

func moldImage(rt *Runtime, mo *molder, v *Cell, form bool) {
	s := v.series()
	mo.write("make image! [" +
		strconv.Itoa(imageWidth(s)) + "x" + strconv.Itoa(imageHeight(s)) + " #{")
	for _, b := range imagePixels(s).bytes() {
		mo.writeByte(imageMoldHexDigits[b>>4])
		mo.writeByte(imageMoldHexDigits[b&0xF])
	}
	mo.write("}]")
}

// pathImage: integer pickers index pixels 1-based from the cell's pixel
// position, yielding (or replacing) a TUPLE! of R.G.B.A; word pickers
// answer size, width, and height.
func pathImage(rt *Runtime, out *Cell, value *Cell, picker *Cell, setval *Cell) bool {
	s := value.series()
	total := imageWidth(s) * imageHeight(s)

	if picker.Heart() == KindInteger {
		idx := value.seriesIndex() + int(picker.Int64()) - 1
		if setval != nil {
			if setval.Heart() != KindTuple || idx < 0 || idx >= total {
				failAccess("index-out-of-range")
			}
			r, g, b, a := setval.tupleByte(0), setval.tupleByte(1), setval.tupleByte(2), byte(255)
			if setval.tupleLen() > 3 {
				a = setval.tupleByte(3)
			}
			setImagePixel(s, idx, r, g, b, a)
			return true
		}
		if idx < 0 || idx >= total {
			InitNull(out)
			return true
		}
		r, g, b, a := imagePixel(s, idx)
		InitTuple(out, []byte{r, g, b, a})
		return true
	}

	if picker.Heart() == KindWord && setval == nil {
		switch symbolText(canonOf(picker.wordSpelling())) {
		case "size":
			p := rt.allocPairing(0)
			InitDecimal(p.pairedCell(0), float64(imageWidth(s)))
			InitDecimal(p.pairedCell(1), float64(imageHeight(s)))
			InitPair(out, rt.manageSeries(p))
			return true
		case "width":
			InitInteger(out, int64(imageWidth(s)))
			return true
		case "height":
			InitInteger(out, int64(imageHeight(s)))
			return true
		}
	}
	return false
}
