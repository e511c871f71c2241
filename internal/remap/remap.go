// Package remap implements the layer-key substitution state machine: while
// the layer key is held, it stands in for the remapping target of the most
// recently pressed key. All physical key traffic is forwarded raw; the layer
// key alone is consumed and replaced by synthetic events of its target.
package remap

import (
	"fmt"

	"github.com/holoplot/go-evdev"

	"github.com/ttttcrngyblflpp/sc2remap/hardware/input"
)

// KeyMap resolves a physical key to its substitution target. Total over key
// codes: modifiers resolve to nothing, unlisted keys resolve to themselves.
type KeyMap func(code evdev.EvCode) (evdev.EvCode, bool)

var modifiers = map[evdev.EvCode]struct{}{
	evdev.KEY_LEFTSHIFT:  {},
	evdev.KEY_RIGHTSHIFT: {},
	evdev.KEY_LEFTCTRL:   {},
	evdev.KEY_RIGHTCTRL:  {},
	evdev.KEY_LEFTALT:    {},
	evdev.KEY_RIGHTALT:   {},
	evdev.KEY_LEFTMETA:   {},
	evdev.KEY_RIGHTMETA:  {},
}

func IsModifier(code evdev.EvCode) bool {
	_, ok := modifiers[code]
	return ok
}

// NewKeyMap builds the resolver from an explicit substitution table.
func NewKeyMap(table map[evdev.EvCode]evdev.EvCode) KeyMap {
	copied := make(map[evdev.EvCode]evdev.EvCode, len(table))
	for from, to := range table {
		copied[from] = to
	}
	return func(code evdev.EvCode) (evdev.EvCode, bool) {
		if IsModifier(code) {
			return 0, false
		}
		if to, ok := copied[code]; ok {
			return to, true
		}
		return code, true
	}
}

type Config struct {
	LayerKey evdev.EvCode
	Map      KeyMap
}

// State is the layering state, owned by the single event-loop goroutine.
// current is the key the held layer key stands in for right now; next is the
// target the layer key will capture on its upcoming press; held tracks
// whether the key resolving to next is physically down.
type State struct {
	current    evdev.EvCode
	hasCurrent bool
	next       evdev.EvCode
	held       bool
}

func NewState(defaultTarget evdev.EvCode) *State {
	return &State{next: defaultTarget}
}

func (self *State) String() string {
	current := "-"
	if self.hasCurrent {
		current = evdev.CodeName(evdev.EV_KEY, self.current)
	}
	return fmt.Sprintf("current=%s next=%s held=%t",
		current, evdev.CodeName(evdev.EV_KEY, self.next), self.held)
}

// Apply runs one keyboard event through the layering transition, mutating st
// and returning the events to write, in order. Synthetic events carry no
// sync markers of their own: they replace layer-key events one for one and
// the device's own SYN_REPORT follows as usual.
func Apply(st *State, conf Config, event input.Event) []input.Event {
	key, ok := event.Code.(input.Key)
	if !ok {
		// sync, misc and stray relative traffic has no layering semantics
		return []input.Event{event}
	}
	code := evdev.EvCode(key)
	if code == conf.LayerKey {
		if event.Value == input.KeyUp {
			return layerUp(st, event)
		}
		return layerDown(st, event)
	}
	if event.Value == input.KeyUp {
		return otherKeyUp(st, conf, code, event)
	}
	return otherKeyDown(st, conf, code, event)
}

// Layer key released: the captured target receives its own release. A bare
// release with nothing captured forwards raw so up/down symmetry survives
// a daemon start mid-hold.
func layerUp(st *State, event input.Event) []input.Event {
	if st.hasCurrent {
		st.hasCurrent = false
		return []input.Event{input.KeyEvent(st.current, input.KeyUp)}
	}
	return []input.Event{event}
}

// Layer key pressed or repeating: capture next as the substituted target.
// When the target is already physically down from a direct press, release it
// first so the stream never carries two live presses of one key.
func layerDown(st *State, event input.Event) []input.Event {
	collide := event.Value == input.KeyDown && st.held
	st.current = st.next
	st.hasCurrent = true
	if collide {
		return []input.Event{
			input.KeyEvent(st.next, input.KeyUp),
			input.KeyEvent(st.next, event.Value),
		}
	}
	return []input.Event{input.KeyEvent(st.next, event.Value)}
}

// Release of a regular key: forwarded raw, always. The held flag clears only
// when the released key resolves to the current capture target.
func otherKeyUp(st *State, conf Config, code evdev.EvCode, event input.Event) []input.Event {
	if mapped, ok := conf.Map(code); ok && mapped == st.next {
		st.held = false
	}
	return []input.Event{event}
}

// Press or repeat of a regular key: forwarded raw; its mapping target becomes
// the layer key's next capture. When the layer key currently substitutes that
// same target, the synthetic press is released before the raw press lands.
func otherKeyDown(st *State, conf Config, code evdev.EvCode, event input.Event) []input.Event {
	mapped, ok := conf.Map(code)
	if !ok {
		return []input.Event{event}
	}
	st.next = mapped
	st.held = true
	if st.hasCurrent && st.current == mapped {
		return []input.Event{input.KeyEvent(mapped, input.KeyUp), event}
	}
	return []input.Event{event}
}
