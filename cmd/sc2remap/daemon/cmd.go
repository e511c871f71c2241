// The full remapping pipeline: identify devices, grab, transform, re-emit.
package daemon

import (
	"context"

	sd "github.com/coreos/go-systemd/daemon"
	"github.com/holoplot/go-evdev"
	"github.com/juju/errors"

	"github.com/ttttcrngyblflpp/sc2remap/cmd/sc2remap/subcmd"
	"github.com/ttttcrngyblflpp/sc2remap/hardware/input"
	"github.com/ttttcrngyblflpp/sc2remap/internal/gesture"
	"github.com/ttttcrngyblflpp/sc2remap/internal/remap"
	"github.com/ttttcrngyblflpp/sc2remap/internal/state"
	tele_api "github.com/ttttcrngyblflpp/sc2remap/internal/tele/api"
	"github.com/ttttcrngyblflpp/sc2remap/log2"
)

var Mod = subcmd.Mod{Name: "daemon", Main: Main}

func Main(ctx context.Context, config *state.Config) error {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)
	g.Log.Debugf("config: device=%+v remap=%+v gesture=%+v",
		g.Config.Device, g.Config.Remap, g.Config.Gesture)

	lock, err := g.PidLock()
	if err != nil {
		return errors.Trace(err)
	}
	defer lock.Close()

	remapConf, remapState, err := config.BuildRemap()
	if err != nil {
		return errors.Trace(err)
	}
	gestureConf, err := config.BuildGesture()
	if err != nil {
		return errors.Trace(err)
	}

	g.Tele.State(tele_api.State_Identify)
	keyboard, mouse, err := g.Identify(ctx)
	if err != nil {
		return errors.Annotate(err, "identify")
	}

	dev, err := g.Uinput()
	if err != nil {
		return errors.Trace(err)
	}
	defer dev.Close()
	sink := state.StatSink{Sink: dev, Tele: g.Tele}

	translator := gesture.NewTranslator(g.Log, gestureConf, sink)

	mux := g.Mux()
	mux.Attach(keyboard, input.RoleKeyboard)
	mux.Attach(mouse, input.RoleMouse)

	// closing the handles unblocks pump reads; the kernel drops the grabs
	g.Alive.Add(1)
	go func() {
		defer g.Alive.Done()
		<-g.Alive.StopChan()
		_ = keyboard.Close()
		_ = mouse.Close()
	}()

	onKeyboard := func(event input.Event) error {
		logEvent(g.Log, "keyboard", event)
		g.Tele.StatModify(func(s *tele_api.Stat) { s.KeyboardIn++ })
		out := remap.Apply(remapState, remapConf, event)
		if len(out) != 1 || out[0] != event {
			g.Tele.StatModify(func(s *tele_api.Stat) { s.Remapped++ })
		}
		for _, oe := range out {
			if err := sink.WriteOne(oe); err != nil {
				return errors.Trace(err)
			}
		}
		return nil
	}
	onMouse := func(event input.Event) error {
		logEvent(g.Log, "mouse", event)
		g.Tele.StatModify(func(s *tele_api.Stat) { s.MouseIn++ })
		return errors.Trace(translator.Apply(event))
	}

	g.Tele.State(tele_api.State_Run)
	subcmd.SdNotify(sd.SdNotifyReady)
	g.Log.Infof("daemon init complete, running")

	err = mux.Run(onKeyboard, onMouse)
	subcmd.SdNotify(sd.SdNotifyStopping)
	g.Tele.StatModify(func(s *tele_api.Stat) {
		g.Log.Infof("daemon stop stat %s", s.Locked_String())
	})
	return errors.Trace(err)
}

// Raw motion and its sync traffic floods debug output, keep it at trace.
func logEvent(log *log2.Log, source string, event input.Event) {
	level := log2.LDebug
	switch c := event.Code.(type) {
	case input.Sync, input.Misc:
		level = log2.LTrace
	case input.Rel:
		if evdev.EvCode(c) == evdev.REL_X || evdev.EvCode(c) == evdev.REL_Y {
			level = log2.LTrace
		}
	}
	log.Logf(level, "%s %s", source, event.String())
}
