// event.go
//
// EVENT! is a compact fixed-size value: an event type, modifier flags,
// an optional XY position or key code, and an optional eventee (the
// port or series the event belongs to).  Everything but the eventee
// packs into the cell's numeric slots, so events copy freely without
// allocation.

package reb

import "strconv"

// Event types.
type EventType uint8

const (
	EvtIgnore EventType = iota
	EvtDone
	EvtTime
	EvtOpen
	EvtClose
	EvtConnect
	EvtRead
	EvtWrote
	EvtLookup
	EvtKey
	EvtKeyUp
	EvtDown
	EvtUp
	EvtMove
	EvtResize
)

var eventTypeNames = []string{
	"ignore", "done", "time", "open", "close", "connect",
	"read", "wrote", "lookup", "key", "key-up", "down", "up",
	"move", "resize",
}

// Event modifier and state flags.
const (
	EventFlagCopied  uint8 = 1 << iota // payload was copied on queue
	EventFlagHasXY                     // data slot is a packed position
	EventFlagDouble                    // double-click
	EventFlagControl                   // control key held
	EventFlagShift                     // shift key held
)

// EventModel says what the eventee node refers to.
type EventModel uint8

const (
	ModelDevice EventModel = iota
	ModelPort
	ModelObject
	ModelGUI
	ModelCallback
)

var eventModelNames = []string{"device", "port", "object", "gui", "callback"}

// InitEventFull packs an event into a cell: type, flags, model, window
// and data go into the numeric slots, the eventee node (interpreted per
// the model) into the first slot.  eventee may be nil.
func InitEventFull(c *Cell, typ EventType, flags uint8, model EventModel,
	window uint8, data int32, eventee *Series) *Cell {
	cellFlags := uint64(0)
	if eventee != nil {
		cellFlags = cellFlagFirstIsNode
	}
	c.reset(KindEvent, cellFlags)
	c.first.node = eventee
	c.second.i = int64(typ) | int64(flags)<<8 | int64(model)<<16 | int64(window)<<24
	c.extra.i = int64(data)
	return c
}

// InitEvent packs a port event.  port may be nil, in which case the
// event carries the device model.
func InitEvent(c *Cell, typ EventType, flags uint8, data int32, port *Series) *Cell {
	model := ModelDevice
	if port != nil {
		model = ModelPort
	}
	return InitEventFull(c, typ, flags, model, 0, data, port)
}

// InitEventXY packs a positional event.
func InitEventXY(c *Cell, typ EventType, flags uint8, x, y int16, port *Series) *Cell {
	data := int32(uint16(x)) | int32(uint16(y))<<16
	return InitEvent(c, typ, flags|EventFlagHasXY, data, port)
}

func (c *Cell) eventType() EventType   { return EventType(c.second.i & 0xFF) }
func (c *Cell) eventFlags() uint8      { return uint8(c.second.i >> 8) }
func (c *Cell) eventModel() EventModel { return EventModel(c.second.i >> 16) }
func (c *Cell) eventWindow() uint8     { return uint8(c.second.i >> 24) }
func (c *Cell) eventData() int32       { return int32(c.extra.i) }
func (c *Cell) eventPort() *Series     { return c.first.node }

func (c *Cell) eventX() int16 { return int16(c.eventData()) }
func (c *Cell) eventY() int16 { return int16(c.eventData() >> 16) }

func eventTypeName(t EventType) string {
	if int(t) < len(eventTypeNames) {
		return eventTypeNames[t]
	}
	return "unknown"
}

func eventModelName(m EventModel) string {
	if int(m) < len(eventModelNames) {
		return eventModelNames[m]
	}
	return "unknown"
}

// ---------------------------------------------------------------------------
// Hooks
// ---------------------------------------------------------------------------

func (rt *Runtime) installEventHooks() {
	rt.InstallHooks(KindEvent, HookTable{
		Compare: compareEvent,
		Mold:    moldEvent,
		Path:    pathEvent,
		Make:    makeEventHook,
	})
}

// compareEvent orders by type, then flags, then data.  The eventee does
// not participate: two events on different ports with the same shape
// compare equal.
func compareEvent(rt *Runtime, a, b *Cell, strict bool) int {
	if d := cmpInt64(int64(a.eventType()), int64(b.eventType())); d != 0 {
		return d
	}
	if d := cmpInt64(int64(a.eventFlags()), int64(b.eventFlags())); d != 0 {
		return d
	}
	return cmpInt64(int64(a.eventData()), int64(b.eventData()))
}

func moldEvent(rt *Runtime, mo *molder, v *Cell, form bool) {
	mo.write("make event! [type: " + eventTypeName(v.eventType()))
	if v.eventFlags()&EventFlagHasXY != 0 {
		mo.write(" offset: " + strconv.Itoa(int(v.eventX())) +
			"x" + strconv.Itoa(int(v.eventY())))
	} else if v.eventData() != 0 {
		mo.write(" code: " + strconv.Itoa(int(v.eventData())))
	}
	if v.eventFlags()&EventFlagDouble != 0 {
		mo.write(" double: true")
	}
	if v.eventFlags()&EventFlagControl != 0 {
		mo.write(" control: true")
	}
	if v.eventFlags()&EventFlagShift != 0 {
		mo.write(" shift: true")
	}
	if v.eventModel() != ModelDevice {
		mo.write(" model: " + eventModelName(v.eventModel()))
	}
	if v.eventWindow() != 0 {
		mo.write(" window: " + strconv.Itoa(int(v.eventWindow())))
	}
	mo.writeByte(']')
}

// pathEvent answers event/type, event/x, event/y, event/code,
// event/port, event/flags, event/model, event/window.  Events are
// immutable through paths.
func pathEvent(rt *Runtime, out *Cell, value *Cell, picker *Cell, setval *Cell) bool {
	if setval != nil || picker.Heart() != KindWord {
		return false
	}
	switch symbolText(canonOf(picker.wordSpelling())) {
	case "type":
		InitAnyWord(out, KindWord, rt.internSymbol(eventTypeName(value.eventType())))
	case "x":
		InitInteger(out, int64(value.eventX()))
	case "y":
		InitInteger(out, int64(value.eventY()))
	case "code":
		InitInteger(out, int64(value.eventData()))
	case "port":
		if value.eventPort() == nil {
			InitNull(out)
		} else {
			InitContext(out, KindPort, value.eventPort())
		}
	case "flags":
		InitInteger(out, int64(value.eventFlags()))
	case "model":
		InitAnyWord(out, KindWord, rt.internSymbol(eventModelName(value.eventModel())))
	case "window":
		InitInteger(out, int64(value.eventWindow()))
	default:
		return false
	}
	return true
}
