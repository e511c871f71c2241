package state

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/holoplot/go-evdev"
	"github.com/juju/errors"

	"github.com/ttttcrngyblflpp/sc2remap/hardware/input"
	"github.com/ttttcrngyblflpp/sc2remap/hardware/uinput"
	tele_api "github.com/ttttcrngyblflpp/sc2remap/internal/tele/api"
)

type hardware struct {
	Input struct {
		once
		Keyboard *input.DevInputEventSource
		Mouse    *input.DevInputEventSource
	}
	Mux struct {
		once
		m *input.Mux
	}
	Uinput struct {
		once
		Sink uinput.Sink
	}
}

// Identify runs the configured role strategy and opens both devices. The
// result is cached: the first caller pays the scan, everyone else shares the
// same handles.
func (g *Global) Identify(ctx context.Context) (keyboard, mouse *input.DevInputEventSource, err error) {
	x := &g.Hardware.Input // short alias
	_ = x.do(func() error {
		if x.Keyboard != nil { // state-new testing mode
			return nil
		}
		strategy, err := g.roleStrategy()
		if err != nil {
			x.err = err
			return x.err
		}
		x.Keyboard, x.Mouse, x.err = strategy.Choose(ctx)
		return x.err
	})
	return x.Keyboard, x.Mouse, x.err
}

func (g *Global) roleStrategy() (input.RoleStrategy, error) {
	cfg := &g.Config.Device
	switch cfg.Strategy {
	case "", "auto":
		return input.AutoStrategy{Log: g.Log, Grab: cfg.Grab}, nil

	case "fixed":
		if cfg.KeyboardEvent < 0 || cfg.MouseEvent < 0 {
			return nil, errors.Errorf("config: device.strategy=fixed needs keyboard_event and mouse_event")
		}
		return input.FixedStrategy{
			Log:           g.Log,
			KeyboardEvent: cfg.KeyboardEvent,
			MouseEvent:    cfg.MouseEvent,
			Grab:          cfg.Grab,
		}, nil

	default:
		return nil, errors.Errorf("config: unknown device.strategy=\"%s\" valid: auto, fixed", cfg.Strategy)
	}
}

func (g *Global) Mux() *input.Mux {
	x := &g.Hardware.Mux // short alias
	_ = x.do(func() error {
		if x.m == nil {
			x.m = input.NewMux(g.Log, g.Alive)
		}
		return nil
	})
	return x.m
}

func (g *Global) Uinput() (uinput.Sink, error) {
	x := &g.Hardware.Uinput // short alias
	_ = x.do(func() error {
		if x.Sink != nil { // state-new testing mode
			return nil
		}
		dev, err := uinput.NewDevice(g.Log)
		if err != nil {
			x.err = errors.Annotate(err, "uinput")
			return x.err
		}
		x.Sink = dev
		return nil
	})
	return x.Sink, x.err
}

// StatSink counts everything written through it to the wrapped sink.
type StatSink struct {
	uinput.Sink
	Tele tele_api.Teler
}

func (self StatSink) WriteOne(event input.Event) error {
	self.Tele.StatModify(func(s *tele_api.Stat) { s.Out++ })
	return self.Sink.WriteOne(event)
}

func (self StatSink) Tap(code evdev.EvCode) error {
	self.Tele.StatModify(func(s *tele_api.Stat) { s.Taps++ })
	return self.Sink.Tap(code)
}

type once struct {
	sync.Mutex
	called uint32 // atomic bool
	err    error
}

func (o *once) done() bool {
	return atomic.LoadUint32(&o.called) == 1
}

func (o *once) do(f func() error) error {
	if o.done() { // fast path
		return o.err
	}
	o.Lock()
	defer o.Unlock()
	if o.done() {
		return o.err
	}
	o.err = f()
	atomic.StoreUint32(&o.called, 1)
	return o.err
}
