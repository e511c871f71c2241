package input

import (
	"fmt"
	"syscall"

	"github.com/holoplot/go-evdev"
	"github.com/juju/errors"
)

//go:generate stringer -type=Role -trimprefix=Role
type Role uint8

const (
	RoleInvalid Role = iota
	RoleKeyboard
	RoleMouse
)

// Key event values as delivered by the kernel.
const (
	KeyUp     int32 = 0
	KeyDown   int32 = 1
	KeyRepeat int32 = 2
)

// Code is a closed set over the event classes this daemon reasons about.
// Matching on it covers key, relative-motion, synchronization and
// miscellaneous codes; anything else is Other and is only ever forwarded.
type Code interface {
	isCode()
}

type (
	Key  evdev.EvCode
	Rel  evdev.EvCode
	Sync evdev.EvCode
	Misc evdev.EvCode
	// Other carries classes with no remapping semantics (EV_LED, EV_ABS, ...).
	Other struct {
		T evdev.EvType
		C evdev.EvCode
	}
)

func (Key) isCode()   {}
func (Rel) isCode()   {}
func (Sync) isCode()  {}
func (Misc) isCode()  {}
func (Other) isCode() {}

func (self Key) IsMouseButton() bool {
	switch evdev.EvCode(self) {
	case evdev.BTN_LEFT, evdev.BTN_RIGHT, evdev.BTN_MIDDLE, evdev.BTN_SIDE, evdev.BTN_EXTRA:
		return true
	}
	return false
}

// Event is one decoded input record.
type Event struct {
	Time  syscall.Timeval
	Code  Code
	Value int32
}

func FromRaw(raw evdev.InputEvent) Event {
	e := Event{Time: raw.Time, Value: raw.Value}
	switch raw.Type {
	case evdev.EV_KEY:
		e.Code = Key(raw.Code)
	case evdev.EV_REL:
		e.Code = Rel(raw.Code)
	case evdev.EV_SYN:
		e.Code = Sync(raw.Code)
	case evdev.EV_MSC:
		e.Code = Misc(raw.Code)
	default:
		e.Code = Other{T: raw.Type, C: raw.Code}
	}
	return e
}

func (self Event) Raw() evdev.InputEvent {
	t, c := self.split()
	return evdev.InputEvent{Time: self.Time, Type: t, Code: c, Value: self.Value}
}

func (self Event) split() (evdev.EvType, evdev.EvCode) {
	switch c := self.Code.(type) {
	case Key:
		return evdev.EV_KEY, evdev.EvCode(c)
	case Rel:
		return evdev.EV_REL, evdev.EvCode(c)
	case Sync:
		return evdev.EV_SYN, evdev.EvCode(c)
	case Misc:
		return evdev.EV_MSC, evdev.EvCode(c)
	case Other:
		return c.T, c.C
	}
	panic(fmt.Sprintf("code error unknown event code %#v", self.Code))
}

func (self Event) String() string {
	t, c := self.split()
	return fmt.Sprintf("%s %s %d", evdev.TypeName(t), evdev.CodeName(t, c), self.Value)
}

// KeyEvent builds a synthetic key event. Time is left zero, the input core
// stamps events on write.
func KeyEvent(code evdev.EvCode, value int32) Event {
	return Event{Code: Key(code), Value: value}
}

func SyncEvent() Event {
	return Event{Code: Sync(evdev.SYN_REPORT)}
}

// ParseKeyName resolves symbolic names like KEY_6 or BTN_SIDE.
func ParseKeyName(name string) (evdev.EvCode, error) {
	if c, ok := evdev.KEYFromString[name]; ok {
		return c, nil
	}
	return 0, errors.Errorf("unknown key name '%s'", name)
}
