package gesture

import (
	"testing"

	"github.com/holoplot/go-evdev"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttttcrngyblflpp/sc2remap/hardware/input"
	"github.com/ttttcrngyblflpp/sc2remap/hardware/uinput"
	"github.com/ttttcrngyblflpp/sc2remap/log2"
)

func newTest(t testing.TB, conf Config) (*Translator, *uinput.MockSink) {
	sink := uinput.NewMockSink()
	return NewTranslator(log2.NewTest(t, log2.LDebug), conf, sink), sink
}

func wheel(delta int32) input.Event {
	return input.Event{Code: input.Rel(evdev.REL_WHEEL), Value: delta}
}

func motion(dx int32) input.Event {
	return input.Event{Code: input.Rel(evdev.REL_X), Value: dx}
}

func btn(code evdev.EvCode, value int32) input.Event {
	return input.KeyEvent(code, value)
}

func feed(t testing.TB, tr *Translator, events ...input.Event) {
	t.Helper()
	for _, e := range events {
		require.NoError(t, tr.Apply(e))
	}
}

func taps(ops []uinput.MockOp) []evdev.EvCode {
	var out []evdev.EvCode
	for _, op := range ops {
		if op.Tap {
			out = append(out, op.Key)
		}
	}
	return out
}

func TestWheelTaps(t *testing.T) {
	t.Parallel()
	tr, sink := newTest(t, DefaultConfig())

	feed(t, tr, wheel(1), input.SyncEvent(), wheel(-1), input.SyncEvent())
	ops := sink.Ops()
	require.Len(t, ops, 2)
	assert.Equal(t, []evdev.EvCode{evdev.KEY_UP, evdev.KEY_DOWN}, taps(ops))
}

// Each wheel notch is one complete tap; repeats are never coalesced.
func TestWheelTapPerNotch(t *testing.T) {
	t.Parallel()
	tr, sink := newTest(t, DefaultConfig())

	const n = 5
	for i := 0; i < n; i++ {
		feed(t, tr, wheel(1), input.SyncEvent())
	}
	assert.Len(t, taps(sink.Ops()), n)
}

func TestWheelOddDelta(t *testing.T) {
	t.Parallel()
	conf := DefaultConfig()
	tr, sink := newTest(t, conf)

	// only exact single notches translate; anything else is motion traffic
	feed(t, tr, wheel(2), input.SyncEvent())
	ops := sink.Ops()
	require.Len(t, ops, 2)
	assert.Equal(t, wheel(2), ops[0].Event)
	assert.Equal(t, input.SyncEvent(), ops[1].Event)

	conf.ForwardMotion = false
	tr2, sink2 := newTest(t, conf)
	feed(t, tr2, wheel(2), input.SyncEvent())
	assert.Len(t, sink2.Ops(), 0)
}

func TestMotionForwarding(t *testing.T) {
	t.Parallel()
	t.Run("on", func(t *testing.T) {
		t.Parallel()
		tr, sink := newTest(t, DefaultConfig())
		scan := input.Event{Code: input.Misc(evdev.MSC_SCAN), Value: 0x90001}
		feed(t, tr, motion(7), scan, input.SyncEvent(), input.SyncEvent())
		ops := sink.Ops()
		require.Len(t, ops, 3) // second sync has nothing to flush
		assert.Equal(t, motion(7), ops[0].Event)
		assert.Equal(t, scan, ops[1].Event)
		assert.Equal(t, input.SyncEvent(), ops[2].Event)
	})
	t.Run("off", func(t *testing.T) {
		t.Parallel()
		conf := DefaultConfig()
		conf.ForwardMotion = false
		tr, sink := newTest(t, conf)
		feed(t, tr, motion(7), input.SyncEvent())
		assert.Len(t, sink.Ops(), 0)

		// held side-key injections still get their flushing sync
		feed(t, tr, btn(evdev.BTN_SIDE, input.KeyDown), input.SyncEvent())
		ops := sink.Ops()
		require.Len(t, ops, 2)
		assert.Equal(t, input.KeyEvent(evdev.KEY_F13, input.KeyDown), ops[0].Event)
		assert.Equal(t, input.SyncEvent(), ops[1].Event)
	})
}

func TestChord(t *testing.T) {
	t.Parallel()
	tr, sink := newTest(t, DefaultConfig())

	feed(t, tr, btn(evdev.BTN_MIDDLE, input.KeyDown), input.SyncEvent())
	assert.Len(t, sink.Ops(), 0, "arming is silent")

	feed(t, tr, wheel(1), input.SyncEvent())
	assert.Len(t, sink.Ops(), 0, "wheel is suppressed while armed")

	feed(t, tr, btn(evdev.BTN_LEFT, input.KeyDown), input.SyncEvent())
	feed(t, tr, btn(evdev.BTN_LEFT, input.KeyUp), input.SyncEvent())
	feed(t, tr, btn(evdev.BTN_RIGHT, input.KeyDown), input.SyncEvent())
	feed(t, tr, btn(evdev.BTN_RIGHT, input.KeyUp), input.SyncEvent())
	assert.Equal(t, []evdev.EvCode{evdev.KEY_HOME, evdev.KEY_END}, taps(sink.Ops()))
	assert.Len(t, sink.Ops(), 2, "chorded clicks are fully consumed")

	feed(t, tr, btn(evdev.BTN_MIDDLE, input.KeyUp), input.SyncEvent())
	feed(t, tr, wheel(1), input.SyncEvent())
	assert.Equal(t, []evdev.EvCode{evdev.KEY_HOME, evdev.KEY_END, evdev.KEY_UP},
		taps(sink.Ops()), "disarming restores wheel taps")
}

// A release whose press was consumed by the chord is swallowed even after
// disarm; a press from before arming keeps its raw release.
func TestChordReleaseSymmetry(t *testing.T) {
	t.Parallel()
	tr, sink := newTest(t, DefaultConfig())

	feed(t, tr,
		btn(evdev.BTN_MIDDLE, input.KeyDown),
		btn(evdev.BTN_LEFT, input.KeyDown),
		btn(evdev.BTN_MIDDLE, input.KeyUp),
		btn(evdev.BTN_LEFT, input.KeyUp),
	)
	ops := sink.Ops()
	require.Len(t, ops, 1)
	assert.True(t, ops[0].Tap)

	sink.Clear()
	feed(t, tr,
		btn(evdev.BTN_LEFT, input.KeyDown), // before arming: a real click
		btn(evdev.BTN_MIDDLE, input.KeyDown),
		btn(evdev.BTN_LEFT, input.KeyUp),
		btn(evdev.BTN_MIDDLE, input.KeyUp),
	)
	ops = sink.Ops()
	require.Len(t, ops, 2)
	assert.Equal(t, btn(evdev.BTN_LEFT, input.KeyDown), ops[0].Event)
	assert.Equal(t, btn(evdev.BTN_LEFT, input.KeyUp), ops[1].Event)
}

func TestChordDisabled(t *testing.T) {
	t.Parallel()
	conf := DefaultConfig()
	conf.ChordEnable = false
	tr, sink := newTest(t, conf)

	feed(t, tr,
		btn(evdev.BTN_MIDDLE, input.KeyDown),
		btn(evdev.BTN_MIDDLE, input.KeyUp),
		wheel(1),
	)
	ops := sink.Ops()
	require.Len(t, ops, 3)
	assert.Equal(t, btn(evdev.BTN_MIDDLE, input.KeyDown), ops[0].Event)
	assert.Equal(t, btn(evdev.BTN_MIDDLE, input.KeyUp), ops[1].Event)
	assert.Equal(t, []evdev.EvCode{evdev.KEY_UP}, taps(ops))
}

func TestSideButtons(t *testing.T) {
	t.Parallel()
	tr, sink := newTest(t, DefaultConfig())

	feed(t, tr,
		btn(evdev.BTN_SIDE, input.KeyDown),
		input.SyncEvent(),
		btn(evdev.BTN_SIDE, input.KeyUp),
		input.SyncEvent(),
		btn(evdev.BTN_EXTRA, input.KeyDown),
		btn(evdev.BTN_EXTRA, input.KeyUp),
	)
	ops := sink.Ops()
	require.Len(t, ops, 6)
	assert.Equal(t, input.KeyEvent(evdev.KEY_F13, input.KeyDown), ops[0].Event)
	assert.Equal(t, input.SyncEvent(), ops[1].Event)
	assert.Equal(t, input.KeyEvent(evdev.KEY_F13, input.KeyUp), ops[2].Event)
	assert.Equal(t, input.SyncEvent(), ops[3].Event)
	assert.Equal(t, input.KeyEvent(evdev.KEY_F14, input.KeyDown), ops[4].Event)
	assert.Equal(t, input.KeyEvent(evdev.KEY_F14, input.KeyUp), ops[5].Event)
}

// Buttons outside every gesture table always keep raw symmetry, even with
// motion forwarding off.
func TestPlainButtonPassthrough(t *testing.T) {
	t.Parallel()
	conf := DefaultConfig()
	conf.ForwardMotion = false
	tr, sink := newTest(t, conf)

	feed(t, tr,
		btn(evdev.BTN_TASK, input.KeyDown),
		btn(evdev.BTN_TASK, input.KeyUp),
	)
	ops := sink.Ops()
	require.Len(t, ops, 2)
	assert.Equal(t, btn(evdev.BTN_TASK, input.KeyDown), ops[0].Event)
	assert.Equal(t, btn(evdev.BTN_TASK, input.KeyUp), ops[1].Event)
}

func TestSinkErrorPropagates(t *testing.T) {
	t.Parallel()
	tr, sink := newTest(t, DefaultConfig())
	sink.SetFail(errors.New("inject"))
	assert.Error(t, tr.Apply(wheel(1)))
	assert.Error(t, tr.Apply(motion(1)))
}
