// wait.go
//
// The WAIT facility: a polling loop over registered devices with
// exponential backoff.  There is no background reactor; devices are
// polled on the goroutine that called WAIT, so evaluator state never
// needs locking.

package reb

import "time"

// Device is a pollable event source (timers, console, network).  Poll
// reports whether the device produced work; a ready device ends the
// wait.  Devices that become ready may enqueue events on a port before
// returning true.
type Device interface {
	Name() string
	Poll(rt *Runtime) (ready bool, err error)
}

// RegisterDevice adds a device to the wait set.
func (rt *Runtime) RegisterDevice(d Device) {
	rt.devices = append(rt.devices, d)
}

const (
	waitBackoffMin = time.Millisecond
	waitBackoffMax = 64 * time.Millisecond
)

// waitOn blocks per the WAIT argument: a number of seconds, a TIME!
// span, a PORT! (until that port wakes), a block mixing ports with an
// optional timeout, or blank to wait until any device is ready.
// Returns the port whose AWAKE ended the wait (nil on a plain timeout)
// and whether a halt interrupted the wait.
func (rt *Runtime) waitOn(spec *Cell) (woken *Series, halted bool) {
	var deadline time.Time
	hasDeadline := false
	var ports []*Series

	setDeadline := func(d time.Duration) {
		deadline = time.Now().Add(d)
		hasDeadline = true
	}
	addSpec := func(c *Cell) {
		switch c.Heart() {
		case KindInteger:
			setDeadline(time.Duration(c.Int64()) * time.Second)
		case KindDecimal:
			setDeadline(time.Duration(c.Float64() * float64(time.Second)))
		case KindTime:
			setDeadline(time.Duration(c.timeNanos()))
		case KindPort:
			ports = append(ports, c.contextVarlist())
		case KindBlank, KindNull:
			// No deadline: until a device is ready (or a halt).
		default:
			failType("wait-spec", "WAIT takes a number, time, port, block, or blank")
		}
	}
	if spec.Heart() == KindBlock {
		arr := spec.series()
		for i := 0; i < arr.Len(); i++ {
			addSpec(arr.at(i).unquotedCell())
		}
	} else {
		addSpec(spec)
	}

	backoff := waitBackoffMin
	for {
		if rt.getSignal(sigHalt) {
			rt.clearSignal(sigHalt)
			return nil, true
		}
		ready := false
		for _, d := range rt.devices {
			r, err := d.Poll(rt)
			if err != nil {
				failWith("access", "device-error", d.Name()+": "+err.Error())
			}
			if r {
				ready = true
			}
		}
		if ready {
			if len(ports) == 0 {
				return nil, false
			}
			for _, p := range ports {
				if rt.portAwake(p) {
					return p, false
				}
			}
		}
		if hasDeadline && !time.Now().Before(deadline) {
			return nil, false
		}
		sleep := backoff
		if hasDeadline {
			if remain := time.Until(deadline); remain < sleep {
				sleep = remain
			}
		}
		if sleep > 0 {
			time.Sleep(sleep)
		}
		backoff *= 2
		if backoff > waitBackoffMax {
			backoff = waitBackoffMax
		}
	}
}

// timerDevice is the built-in device backing pure-duration waits: it is
// never ready, so timed waits run to their deadline unless halted.
type timerDevice struct{}

func (timerDevice) Name() string { return "timer" }

func (timerDevice) Poll(rt *Runtime) (bool, error) { return false, nil }
