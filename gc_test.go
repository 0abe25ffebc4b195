package reb

import "testing"

func TestRecycleFreesUnreferenced(t *testing.T) {
	rt := NewRuntime()
	rt.Recycle() // settle startup garbage

	// A managed series nothing points at is garbage.
	rt.manageSeries(rt.makeBinary(64))
	if freed := rt.Recycle(); freed < 1 {
		t.Fatalf("freed %d, want at least 1", freed)
	}
}

func TestGuardProtectsFromRecycle(t *testing.T) {
	rt := NewRuntime()
	s := rt.manageSeries(rt.makeBinary(8))
	rt.appendBytes(s, []byte("data"))
	rt.guardSeries(s)

	rt.Recycle()
	if s.getFlag(nodeFlagFree) {
		t.Fatalf("guarded series must survive a recycle")
	}
	if string(s.bytes()) != "data" {
		t.Fatalf("content lost: %q", s.bytes())
	}

	rt.dropGuard(1)
	rt.Recycle()
	if !s.getFlag(nodeFlagFree) {
		t.Fatalf("dropping the guard makes the series garbage")
	}
}

func TestGuardedCellKeepsChildren(t *testing.T) {
	rt := NewRuntime()
	inner := rt.manageSeries(rt.makeBinary(8))
	outer := rt.manageSeries(rt.makeArray(1, 0))
	var c Cell
	c.Erase()
	InitBinary(&c, inner)
	rt.appendCell(outer, &c)

	var holder Cell
	holder.Erase()
	InitBlock(&holder, outer)
	rt.guardCell(&holder)

	rt.Recycle()
	if outer.getFlag(nodeFlagFree) || inner.getFlag(nodeFlagFree) {
		t.Fatalf("mark must follow cells into array content")
	}
	rt.dropGuard(1)
}

func TestManualsSurviveRecycle(t *testing.T) {
	rt := NewRuntime()
	s := rt.makeBinary(8) // unmanaged: caller owns it
	rt.appendBytes(s, []byte("keep"))

	rt.Recycle()
	if s.getFlag(nodeFlagFree) {
		t.Fatalf("unmanaged series are not GC candidates")
	}
	rt.freeUnmanagedSeries(s)
}

func TestTrapDropsManuals(t *testing.T) {
	rt := NewRuntime()
	before := len(rt.manuals)
	err := rt.Trap(func() {
		rt.makeBinary(8)
		rt.makeArray(4, 0)
		failAccess("deliberate")
	})
	if err == nil || err.ID != "deliberate" {
		t.Fatalf("want the deliberate failure, got %v", err)
	}
	if len(rt.manuals) != before {
		t.Fatalf("trap must release manuals made inside the failing span: %d -> %d",
			before, len(rt.manuals))
	}
}

func TestSweepPrunesActionNames(t *testing.T) {
	rt := NewRuntime()
	pl := rt.makeArray(1, nodeFlagManaged)
	rt.actionNames[pl] = "doomed"
	rt.Recycle()
	if _, ok := rt.actionNames[pl]; ok {
		t.Fatalf("swept paramlist must drop its label entry")
	}
	if _, ok := rt.actionNames[rt.LibVar("add").actionParamlist()]; !ok {
		t.Fatalf("live action labels must survive the sweep")
	}
}

func TestLibSurvivesRecycle(t *testing.T) {
	rt := NewRuntime()
	rt.Recycle()
	rt.Recycle()
	out, err := rt.Do("add 1 2")
	if err != nil {
		t.Fatalf("lib natives must survive back-to-back recycles: %v", err)
	}
	if out != "3" {
		t.Fatalf("add 1 2 = %q", out)
	}
}
