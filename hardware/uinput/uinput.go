// Package uinput owns the virtual device that all synthetic and forwarded
// events are written to.
package uinput

import (
	"github.com/holoplot/go-evdev"
	"github.com/juju/errors"

	"github.com/ttttcrngyblflpp/sc2remap/hardware/input"
	"github.com/ttttcrngyblflpp/sc2remap/log2"
)

const DeviceName = "sc2input"

// Sink accepts fully-formed output events and delivers them to the OS input
// subsystem in the exact order calls are made. It carries no decision logic.
type Sink interface {
	// WriteOne emits a single record with no accompanying sync; flushing
	// rides on the synchronization events of the surrounding stream.
	WriteOne(event input.Event) error
	// Tap emits a complete keystroke: press, sync, release, sync.
	Tap(code evdev.EvCode) error
	Close() error
}

// Device is the uinput-backed Sink.
type Device struct {
	Log *log2.Log
	dev *evdev.InputDevice
}

var _ Sink = new(Device) // compile-time interface check

// NewDevice registers the virtual device. Every key and relative-motion code
// is declared up front so any event the daemon may emit is legal.
func NewDevice(log *log2.Log) (*Device, error) {
	caps := map[evdev.EvType][]evdev.EvCode{
		evdev.EV_KEY: codesOf(evdev.KEYToString),
		evdev.EV_REL: codesOf(evdev.RELToString),
		evdev.EV_MSC: codesOf(evdev.MSCToString),
	}
	dev, err := evdev.CreateDevice(DeviceName, evdev.InputID{
		BusType: 0x03,
		Vendor:  1,
		Product: 1,
		Version: 1,
	}, caps)
	if err != nil {
		return nil, errors.Annotatef(err, "uinput create name=%s", DeviceName)
	}
	log.Debugf("uinput created name=%s", DeviceName)
	return &Device{Log: log, dev: dev}, nil
}

func (self *Device) String() string { return DeviceName }

func (self *Device) WriteOne(event input.Event) error {
	self.Log.Tracef("uinput write %s", event.String())
	raw := event.Raw()
	if err := self.dev.WriteOne(&raw); err != nil {
		return errors.Annotatef(err, "uinput write event=%s", event.String())
	}
	return nil
}

func (self *Device) Tap(code evdev.EvCode) error {
	seq := tapSequence(code)
	for i := range seq {
		if err := self.WriteOne(seq[i]); err != nil {
			return errors.Annotatef(err, "uinput tap code=%s", evdev.CodeName(evdev.EV_KEY, code))
		}
	}
	return nil
}

func (self *Device) Close() error {
	return self.dev.Close()
}

// tapSequence is the canonical four-write shape of a synthetic keystroke.
// Each edge is flushed by its own SYN_REPORT so no reader can coalesce or
// miss the press.
func tapSequence(code evdev.EvCode) [4]input.Event {
	return [4]input.Event{
		input.KeyEvent(code, input.KeyDown),
		input.SyncEvent(),
		input.KeyEvent(code, input.KeyUp),
		input.SyncEvent(),
	}
}

func codesOf(names map[evdev.EvCode]string) []evdev.EvCode {
	cs := make([]evdev.EvCode, 0, len(names))
	for c := range names {
		cs = append(cs, c)
	}
	return cs
}
