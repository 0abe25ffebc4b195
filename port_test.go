package reb

import "testing"

func TestMakePortShape(t *testing.T) {
	rt := NewRuntime()
	port := rt.MakePort("console")
	rt.guardSeries(port)
	defer rt.dropGuard(1)

	scheme := rt.portField(port, portFieldScheme)
	if scheme.Heart() != KindWord || symbolText(scheme.wordSpelling()) != "console" {
		t.Fatalf("scheme = %s", rt.MoldCell(scheme))
	}
	pending := rt.portField(port, portFieldPending)
	if pending.Heart() != KindBlock || pending.series().Len() != 0 {
		t.Fatalf("pending must start as an empty block")
	}
	if rt.portField(port, portFieldAwake).Heart() != KindNull {
		t.Fatalf("awake must start null")
	}
}

func TestQueueAndAwakeWithoutHandler(t *testing.T) {
	rt := NewRuntime()
	port := rt.MakePort("test")
	rt.guardSeries(port)
	defer rt.dropGuard(1)

	if rt.portAwake(port) {
		t.Fatalf("empty queue and no handler: nothing happened")
	}

	var ev Cell
	ev.Erase()
	InitEvent(&ev, EvtClose, 0, 0, port)
	rt.QueuePortEvent(port, &ev)
	rt.QueuePortEvent(port, &ev)

	if !rt.portAwake(port) {
		t.Fatalf("queued events with no handler still end the wait")
	}
	if rt.portField(port, portFieldPending).series().Len() != 0 {
		t.Fatalf("queue must be drained even without a handler")
	}
}

func TestAwakeHandlerTruthyEndsWait(t *testing.T) {
	rt := NewRuntime()
	port := rt.MakePort("test")
	rt.guardSeries(port)
	defer rt.dropGuard(1)

	// MOLD takes one argument and yields a TEXT!, which is truthy; any
	// arity-1 action works as a handler here.
	copyCell(rt.portField(port, portFieldAwake), rt.LibVar("mold"))

	var ev Cell
	ev.Erase()
	InitEventXY(&ev, EvtDown, 0, 3, 4, port)
	rt.QueuePortEvent(port, &ev)

	if !rt.portAwake(port) {
		t.Fatalf("truthy handler result must end the wait")
	}
}

func TestPortFieldUnknownFails(t *testing.T) {
	rt := NewRuntime()
	port := rt.MakePort("test")
	rt.guardSeries(port)
	defer rt.dropGuard(1)

	err := rt.Trap(func() { rt.portField(port, "no-such-field") })
	if err == nil || err.ID != "not-in-context" {
		t.Fatalf("want not-in-context, got %v", err)
	}
}
