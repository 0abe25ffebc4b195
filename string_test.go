package reb

import "testing"

func TestStringLengthCache(t *testing.T) {
	rt := NewRuntime()
	s := rt.stringFrom("héllo")
	if strLen(s) != 5 {
		t.Fatalf("strLen = %d, want 5 codepoints", strLen(s))
	}
	if strSize(s) != 6 {
		t.Fatalf("strSize = %d, want 6 bytes", strSize(s))
	}
	rt.appendStringRune(s, '€')
	if strLen(s) != 6 || strSize(s) != 9 {
		t.Fatalf("after append: len=%d size=%d", strLen(s), strSize(s))
	}
}

func TestCharAtMixedWidth(t *testing.T) {
	rt := NewRuntime()
	s := rt.stringFrom("héllo")
	want := []rune{'h', 'é', 'l', 'l', 'o'}
	for i, r := range want {
		if got := rt.charAt(s, i); got != r {
			t.Fatalf("charAt(%d) = %q, want %q", i, got, r)
		}
	}
	// Walking backward exercises the seek-from-tail path.
	for i := len(want) - 1; i >= 0; i-- {
		if got := rt.charAt(s, i); got != want[i] {
			t.Fatalf("reverse charAt(%d) = %q", i, got)
		}
	}
	if err := rt.Trap(func() { rt.charAt(s, 99) }); err == nil {
		t.Fatalf("out-of-range index must fail")
	}
}

func TestSetCharAtSameWidth(t *testing.T) {
	rt := NewRuntime()
	s := rt.stringFrom("héllo")
	rt.setCharAt(s, 4, 'a')
	if string(s.bytes()) != "hélla" {
		t.Fatalf("got %q", s.bytes())
	}
	if strLen(s) != 5 || strSize(s) != 6 {
		t.Fatalf("same-width replace must not change counts")
	}
}

func TestSetCharAtWidthChange(t *testing.T) {
	rt := NewRuntime()
	s := rt.stringFrom("héllo")

	rt.setCharAt(s, 0, 'ü') // 1 byte -> 2 bytes
	if string(s.bytes()) != "üéllo" {
		t.Fatalf("widen: got %q", s.bytes())
	}
	if strLen(s) != 5 || strSize(s) != 7 {
		t.Fatalf("widen: len=%d size=%d", strLen(s), strSize(s))
	}

	rt.setCharAt(s, 1, 'e') // 2 bytes -> 1 byte
	if string(s.bytes()) != "üello" {
		t.Fatalf("narrow: got %q", s.bytes())
	}
	if strLen(s) != 5 || strSize(s) != 6 {
		t.Fatalf("narrow: len=%d size=%d", strLen(s), strSize(s))
	}
}

func TestInsertRemoveChar(t *testing.T) {
	rt := NewRuntime()
	s := rt.stringFrom("abc")
	rt.insertCharAt(s, 1, 'é')
	if string(s.bytes()) != "aébc" || strLen(s) != 4 {
		t.Fatalf("insert: %q len=%d", s.bytes(), strLen(s))
	}
	rt.removeCharAt(s, 1)
	if string(s.bytes()) != "abc" || strLen(s) != 3 {
		t.Fatalf("remove: %q len=%d", s.bytes(), strLen(s))
	}
}

func TestBookmarkAllocation(t *testing.T) {
	rt := NewRuntime()

	small := rt.stringFrom("héllo")
	rt.charAt(small, 3)
	if stringBookmark(small) != nil {
		t.Fatalf("small strings never get bookmarks")
	}

	big := rt.stringFrom("é123456789012345678901234567890")
	rt.charAt(big, 20)
	bm := stringBookmark(big)
	if bm == nil {
		t.Fatalf("large non-ASCII string should get a bookmark")
	}
	if bookmarkIndex(bm) != 20 || bookmarkOffset(bm) != 21 {
		t.Fatalf("bookmark = (%d, %d), want (20, 21)",
			bookmarkIndex(bm), bookmarkOffset(bm))
	}

	// A width-changing edit invalidates and frees the bookmark.
	rt.setCharAt(big, 0, 'e')
	if stringBookmark(big) != nil {
		t.Fatalf("width change must drop the bookmark")
	}
}

func TestBookmarkASCIIFastPath(t *testing.T) {
	rt := NewRuntime()
	s := rt.stringFrom("0123456789012345678901234567890123456789")
	rt.charAt(s, 30)
	if stringBookmark(s) != nil {
		t.Fatalf("all-ASCII strings index directly and skip bookmarks")
	}
}
