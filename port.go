// port.go
//
// Ports are contexts with a conventional shape: scheme, spec, state,
// data, a pending-event queue, and an AWAKE handler.  Devices enqueue
// events onto a port; the WAIT loop drains the queue through the AWAKE
// handler (the WAKE-UP verb), and a truthy handler result ends the
// wait.

package reb

// Standard port field names.
const (
	portFieldScheme  = "scheme"
	portFieldSpec    = "spec"
	portFieldState   = "state"
	portFieldData    = "data"
	portFieldAwake   = "awake"
	portFieldPending = "pending"
)

// MakePort builds a port context for a scheme.  The pending queue
// starts as an empty block; awake starts null (events are then dropped
// on wake).
func (rt *Runtime) MakePort(scheme string) *Series {
	port := rt.makeContext(KindPort, 6)
	rt.guardSeries(port)
	defer rt.dropGuard(1)

	v := rt.appendContextKey(port, rt.internSymbol(portFieldScheme))
	InitAnyWord(v, KindWord, rt.internSymbol(scheme))
	rt.appendContextKey(port, rt.internSymbol(portFieldSpec))
	rt.appendContextKey(port, rt.internSymbol(portFieldState))
	rt.appendContextKey(port, rt.internSymbol(portFieldData))
	rt.appendContextKey(port, rt.internSymbol(portFieldAwake))
	v = rt.appendContextKey(port, rt.internSymbol(portFieldPending))
	InitBlock(v, rt.makeArray(4, nodeFlagManaged))

	return rt.manageSeries(port)
}

func (rt *Runtime) portField(port *Series, name string) *Cell {
	v := selectContext(port, rt.internSymbol(name))
	if v == nil {
		failBinding("not-in-context", name)
	}
	return v
}

// QueuePortEvent appends an event to the port's pending queue (devices
// call this from Poll).
func (rt *Runtime) QueuePortEvent(port *Series, event *Cell) {
	pending := rt.portField(port, portFieldPending)
	if pending.Heart() != KindBlock {
		failType("port-pending", "port pending queue is not a block")
	}
	rt.appendCell(pending.series(), event)
}

// portAwake drains the pending queue through the AWAKE handler.  The
// wait ends when the handler yields a truthy value for any event (or
// when the port has no handler and had events).
func (rt *Runtime) portAwake(port *Series) bool {
	pending := rt.portField(port, portFieldPending)
	awake := rt.portField(port, portFieldAwake)
	arr := pending.series()
	hadEvents := arr.Len() > 0
	done := false

	for arr.Len() > 0 {
		var event Cell
		event.Erase()
		copyCell(&event, arr.at(0))
		rt.removeSeriesUnits(arr, 0, 1)

		if awake.Heart() != KindAction {
			continue
		}
		var out Cell
		out.Erase()
		rt.guardCell(&out)
		fd := rt.newVariadicFeed([]*Cell{&event})
		if rt.applyAction(fd, &out, awake, nil, false, -1) {
			fd.free()
			rt.dropGuard(1)
			fail(rt.uncaughtThrowError())
		}
		fd.free()
		rt.dropGuard(1)
		if out.Heart() == KindLogic && out.Logic() || out.Heart() != KindNull && out.Heart() != KindLogic && out.Heart() != KindVoid {
			done = true
		}
	}
	if awake.Heart() != KindAction {
		return hadEvents
	}
	return done
}
