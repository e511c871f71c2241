package input

import (
	"fmt"

	"github.com/holoplot/go-evdev"
	"github.com/juju/errors"
)

const DevInputEventTag = "dev-input-event"

// DevInputEventSource owns one /dev/input/eventN handle. Reads block in the
// runtime poller; Close unblocks a pending Read.
type DevInputEventSource struct {
	dev *evdev.InputDevice
	tag string
}

// compile-time interface compliance test
var _ Source = new(DevInputEventSource)

func NewDevInputEventSource(path string, grab bool) (*DevInputEventSource, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, errors.Annotatef(err, "%s open device=%s", DevInputEventTag, path)
	}
	if grab {
		// Exclusive grab: the compositor must not see the physical events we
		// re-emit transformed through the virtual device.
		if err := dev.Grab(); err != nil {
			_ = dev.Close()
			return nil, errors.Annotatef(err, "%s grab device=%s", DevInputEventTag, path)
		}
	}
	return &DevInputEventSource{
		dev: dev,
		tag: fmt.Sprintf("%s(%s)", DevInputEventTag, path),
	}, nil
}

func (self *DevInputEventSource) String() string { return self.tag }

func (self *DevInputEventSource) Name() string {
	name, err := self.dev.Name()
	if err != nil {
		return ""
	}
	return name
}

func (self *DevInputEventSource) Read() (Event, error) {
	raw, err := self.dev.ReadOne()
	if err != nil {
		return Event{}, err
	}
	return FromRaw(*raw), nil
}

// Close releases the device; the kernel drops an active grab with the handle.
func (self *DevInputEventSource) Close() error {
	return self.dev.Close()
}
