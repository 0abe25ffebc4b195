package reb

import (
	"errors"
	"testing"
	"time"
)

// pollDevice becomes ready after a fixed number of polls, optionally
// queuing an event onto a port first.
type pollDevice struct {
	polls      int
	readyAfter int
	port       *Series
}

func (d *pollDevice) Name() string { return "test-poll" }

func (d *pollDevice) Poll(rt *Runtime) (bool, error) {
	d.polls++
	if d.polls < d.readyAfter {
		return false, nil
	}
	if d.port != nil {
		var ev Cell
		ev.Erase()
		InitEvent(&ev, EvtRead, 0, 0, d.port)
		rt.QueuePortEvent(d.port, &ev)
	}
	return true, nil
}

type failingDevice struct{}

func (failingDevice) Name() string                 { return "broken" }
func (failingDevice) Poll(rt *Runtime) (bool, error) { return false, errors.New("io fault") }

func TestWaitDeadline(t *testing.T) {
	rt := NewRuntime()
	var spec Cell
	spec.Erase()
	InitDecimal(&spec, 0.01)

	start := time.Now()
	woken, halted := rt.waitOn(&spec)
	if halted {
		t.Fatalf("timed wait must not report a halt")
	}
	if woken != nil {
		t.Fatalf("plain timeout must not report a woken port")
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatalf("returned before the deadline")
	}
}

func TestWaitHalt(t *testing.T) {
	rt := NewRuntime()
	rt.Halt()
	var spec Cell
	spec.Erase()
	InitBlank(&spec)
	if _, halted := rt.waitOn(&spec); !halted {
		t.Fatalf("pending halt must end the wait")
	}
	if rt.getSignal(sigHalt) {
		t.Fatalf("the halt signal is consumed by the wait")
	}
}

func TestWaitDeviceReady(t *testing.T) {
	rt := NewRuntime()
	dev := &pollDevice{readyAfter: 3}
	rt.RegisterDevice(dev)

	var spec Cell
	spec.Erase()
	InitBlank(&spec)
	if _, halted := rt.waitOn(&spec); halted {
		t.Fatalf("device readiness is not a halt")
	}
	if dev.polls != 3 {
		t.Fatalf("polled %d times, want 3", dev.polls)
	}
}

func TestWaitDeviceError(t *testing.T) {
	rt := NewRuntime()
	rt.RegisterDevice(failingDevice{})

	err := rt.Trap(func() {
		var spec Cell
		spec.Erase()
		InitBlank(&spec)
		rt.waitOn(&spec)
	})
	if err == nil || err.ID != "device-error" {
		t.Fatalf("want device-error, got %v", err)
	}
}

func TestWaitOnPortDrainsPending(t *testing.T) {
	rt := NewRuntime()
	port := rt.MakePort("test")
	rt.guardSeries(port)
	defer rt.dropGuard(1)
	rt.RegisterDevice(&pollDevice{readyAfter: 2, port: port})

	var spec Cell
	spec.Erase()
	InitContext(&spec, KindPort, port)
	woken, halted := rt.waitOn(&spec)
	if halted {
		t.Fatalf("port wait halted unexpectedly")
	}
	if woken != port {
		t.Fatalf("port wait must return the port that woke")
	}
	pending := rt.portField(port, portFieldPending)
	if pending.series().Len() != 0 {
		t.Fatalf("pending queue not drained: %d left", pending.series().Len())
	}
}

func TestWaitBlockSpec(t *testing.T) {
	rt := NewRuntime()
	port := rt.MakePort("test")
	rt.guardSeries(port)
	defer rt.dropGuard(1)
	rt.RegisterDevice(&pollDevice{readyAfter: 2, port: port})

	// The block form mixes ports with a timeout.
	blk := rt.makeArray(2, 0)
	rt.guardSeries(blk)
	defer rt.dropGuard(1)
	var c Cell
	InitContext(c.Erase(), KindPort, port)
	rt.appendCell(blk, &c)
	InitInteger(c.Erase(), 5)
	rt.appendCell(blk, &c)

	var spec Cell
	spec.Erase()
	InitBlock(&spec, blk)
	woken, halted := rt.waitOn(&spec)
	if halted {
		t.Fatalf("block wait halted unexpectedly")
	}
	if woken != port {
		t.Fatalf("block wait must return the port that woke")
	}
}

func TestWaitBadSpec(t *testing.T) {
	rt := NewRuntime()
	err := rt.Trap(func() {
		var spec Cell
		spec.Erase()
		InitLogic(&spec, true)
		rt.waitOn(&spec)
	})
	if err == nil || err.ID != "wait-spec" {
		t.Fatalf("want wait-spec, got %v", err)
	}
}
