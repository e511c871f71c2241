// Package gesture translates mouse events into synthetic key actions.
package gesture

import (
	"github.com/holoplot/go-evdev"
	"github.com/juju/errors"

	"github.com/ttttcrngyblflpp/sc2remap/hardware/input"
	"github.com/ttttcrngyblflpp/sc2remap/hardware/uinput"
	"github.com/ttttcrngyblflpp/sc2remap/log2"
)

// Config is the injectable gesture table. Immutable for the process lifetime.
type Config struct {
	ScrollUp   evdev.EvCode // tapped on wheel notch up
	ScrollDown evdev.EvCode // tapped on wheel notch down

	// Chord: while the middle button is held, wheel taps are suppressed and
	// a left/right press taps ChordStart/ChordEnd instead of clicking.
	ChordEnable bool
	ChordStart  evdev.EvCode
	ChordEnd    evdev.EvCode

	// ForwardMotion forwards plain relative motion and miscellaneous traffic
	// to the virtual device. Buttons are never gated by this.
	ForwardMotion bool

	// Side maps a physical button to a key injected as held, press/release
	// symmetric with the button.
	Side map[evdev.EvCode]evdev.EvCode
}

func DefaultConfig() Config {
	return Config{
		ScrollUp:      evdev.KEY_UP,
		ScrollDown:    evdev.KEY_DOWN,
		ChordEnable:   true,
		ChordStart:    evdev.KEY_HOME,
		ChordEnd:      evdev.KEY_END,
		ForwardMotion: true,
		Side: map[evdev.EvCode]evdev.EvCode{
			evdev.BTN_SIDE:  evdev.KEY_F13,
			evdev.BTN_EXTRA: evdev.KEY_F14,
		},
	}
}

// Translator consumes the mouse half of the event stream. Not safe for
// concurrent use; the multiplexer consumer is its only caller.
type Translator struct {
	Log  *log2.Log
	conf Config
	sink uinput.Sink

	armed bool // middle button is down, chord active
	// taken marks buttons whose press was consumed by a chord tap; their
	// release must be swallowed too or the output stream sees a bare release.
	taken map[evdev.EvCode]bool
	// dirty is true when a write happened since the last emitted sync, i.e.
	// the next incoming SYN_REPORT must be forwarded to flush it.
	dirty bool
}

func NewTranslator(log *log2.Log, conf Config, sink uinput.Sink) *Translator {
	return &Translator{
		Log:   log,
		conf:  conf,
		sink:  sink,
		taken: make(map[evdev.EvCode]bool),
	}
}

// Apply translates one mouse event into zero or more sink calls.
// Any sink error is fatal to the event loop.
func (self *Translator) Apply(event input.Event) error {
	switch c := event.Code.(type) {
	case input.Rel:
		return self.rel(c, event)
	case input.Key:
		return self.button(c, event)
	case input.Sync:
		if !self.dirty {
			return nil
		}
		self.dirty = false
		return errors.Trace(self.sink.WriteOne(event))
	default: // Misc, Other
		return self.forward(event)
	}
}

func (self *Translator) rel(code input.Rel, event input.Event) error {
	if evdev.EvCode(code) == evdev.REL_WHEEL {
		switch {
		case self.armed:
			return nil
		case event.Value == 1:
			return self.tap(self.conf.ScrollUp)
		case event.Value == -1:
			return self.tap(self.conf.ScrollDown)
		}
	}
	return self.forward(event)
}

func (self *Translator) button(code input.Key, event input.Event) error {
	c := evdev.EvCode(code)
	if target, ok := self.conf.Side[c]; ok {
		return self.write(input.KeyEvent(target, event.Value))
	}
	if self.conf.ChordEnable {
		switch c {
		case evdev.BTN_MIDDLE:
			self.armed = event.Value != input.KeyUp
			self.Log.Debugf("gesture chord armed=%t", self.armed)
			return nil
		case evdev.BTN_LEFT, evdev.BTN_RIGHT:
			if self.armed && event.Value == input.KeyDown {
				self.taken[c] = true
				if c == evdev.BTN_LEFT {
					return self.tap(self.conf.ChordStart)
				}
				return self.tap(self.conf.ChordEnd)
			}
			if self.taken[c] {
				if event.Value == input.KeyUp {
					delete(self.taken, c)
				}
				return nil
			}
		}
	}
	// Untouched buttons keep their raw press/release symmetry.
	return self.write(event)
}

func (self *Translator) forward(event input.Event) error {
	if !self.conf.ForwardMotion {
		return nil
	}
	return self.write(event)
}

func (self *Translator) write(event input.Event) error {
	if err := self.sink.WriteOne(event); err != nil {
		return errors.Trace(err)
	}
	self.dirty = true
	return nil
}

// tap emits a self-synchronized keystroke, flushing anything pending.
func (self *Translator) tap(code evdev.EvCode) error {
	if err := self.sink.Tap(code); err != nil {
		return errors.Trace(err)
	}
	self.dirty = false
	return nil
}
