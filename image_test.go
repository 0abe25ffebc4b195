package reb

import "testing"

func TestMakeImageZeroed(t *testing.T) {
	rt := NewRuntime()
	img := rt.MakeImage(3, 2)
	rt.guardSeries(img)
	defer rt.dropGuard(1)

	if imageWidth(img) != 3 || imageHeight(img) != 2 {
		t.Fatalf("size = %dx%d", imageWidth(img), imageHeight(img))
	}
	if imagePixels(img).Len() != 3*2*imageBytesPerPixel {
		t.Fatalf("pixel bytes = %d", imagePixels(img).Len())
	}
	r, g, b, a := imagePixel(img, 0)
	if r != 0 || g != 0 || b != 0 || a != 0 {
		t.Fatalf("fresh image must be zeroed: %d.%d.%d.%d", r, g, b, a)
	}
}

func TestImagePixelRoundTrip(t *testing.T) {
	rt := NewRuntime()
	img := rt.MakeImage(2, 2)
	rt.guardSeries(img)
	defer rt.dropGuard(1)

	setImagePixel(img, 3, 255, 128, 64, 32)
	r, g, b, a := imagePixel(img, 3)
	if r != 255 || g != 128 || b != 64 || a != 32 {
		t.Fatalf("pixel = %d.%d.%d.%d", r, g, b, a)
	}
	// Neighbors untouched.
	if r, _, _, _ := imagePixel(img, 2); r != 0 {
		t.Fatalf("neighbor pixel disturbed")
	}
}

func TestImagePathPickPoke(t *testing.T) {
	rt := NewRuntime()
	img := rt.MakeImage(2, 1)
	rt.guardSeries(img)
	defer rt.dropGuard(1)

	var cell, picker, out Cell
	cell.Erase()
	picker.Erase()
	out.Erase()
	InitImage(&cell, img, 0)

	// Poke a 3-part tuple: alpha defaults to opaque.
	var val Cell
	val.Erase()
	InitTuple(&val, []byte{10, 20, 30})
	InitInteger(&picker, 1)
	if !rt.hooks[KindImage].Path(rt, nil, &cell, &picker, &val) {
		t.Fatalf("poke refused")
	}
	r, g, b, a := imagePixel(img, 0)
	if r != 10 || g != 20 || b != 30 || a != 255 {
		t.Fatalf("poked pixel = %d.%d.%d.%d", r, g, b, a)
	}

	if !rt.hooks[KindImage].Path(rt, &out, &cell, &picker, nil) {
		t.Fatalf("pick refused")
	}
	if out.Heart() != KindTuple || out.tupleByte(0) != 10 || out.tupleByte(3) != 255 {
		t.Fatalf("pick = %s", rt.MoldCell(&out))
	}

	// Out of range picks null; out of range pokes fail.
	InitInteger(&picker, 99)
	rt.hooks[KindImage].Path(rt, &out, &cell, &picker, nil)
	if out.Heart() != KindNull {
		t.Fatalf("out-of-range pick must be null")
	}
	err := rt.Trap(func() {
		rt.hooks[KindImage].Path(rt, nil, &cell, &picker, &val)
	})
	if err == nil || err.ID != "index-out-of-range" {
		t.Fatalf("want index-out-of-range, got %v", err)
	}
}

func TestImagePathWords(t *testing.T) {
	rt := NewRuntime()
	img := rt.MakeImage(4, 3)
	rt.guardSeries(img)
	defer rt.dropGuard(1)

	var cell, picker, out Cell
	cell.Erase()
	picker.Erase()
	out.Erase()
	InitImage(&cell, img, 0)

	InitWord(&picker, rt.internSymbol("width"))
	rt.hooks[KindImage].Path(rt, &out, &cell, &picker, nil)
	if out.Int64() != 4 {
		t.Fatalf("width = %d", out.Int64())
	}
	InitWord(&picker, rt.internSymbol("size"))
	rt.hooks[KindImage].Path(rt, &out, &cell, &picker, nil)
	if out.Heart() != KindPair || rt.MoldCell(&out) != "4x3" {
		t.Fatalf("size = %s", rt.MoldCell(&out))
	}
}

func TestImageCompareAndMold(t *testing.T) {
	rt := NewRuntime()
	a := rt.MakeImage(1, 1)
	rt.guardSeries(a)
	b := rt.MakeImage(1, 1)
	rt.guardSeries(b)
	defer rt.dropGuard(2)

	var ca, cb Cell
	ca.Erase()
	cb.Erase()
	InitImage(&ca, a, 0)
	InitImage(&cb, b, 0)
	if rt.compareCells(&ca, &cb, false) != 0 {
		t.Fatalf("identical images compare equal")
	}
	setImagePixel(b, 0, 1, 2, 3, 255)
	if rt.compareCells(&ca, &cb, false) == 0 {
		t.Fatalf("differing pixels compare unequal")
	}

	want := "make image! [1x1 #{01020300}]"
	setImagePixel(b, 0, 1, 2, 3, 0)
	if got := rt.MoldCell(&cb); got != want {
		t.Fatalf("mold = %q, want %q", got, want)
	}
}
