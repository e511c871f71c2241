// Interactive pipeline probe: inject synthetic events, observe the virtual
// device output. No physical devices are opened or grabbed.
package probe

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/holoplot/go-evdev"
	"github.com/juju/errors"

	"github.com/ttttcrngyblflpp/sc2remap/cmd/sc2remap/subcmd"
	"github.com/ttttcrngyblflpp/sc2remap/hardware/input"
	"github.com/ttttcrngyblflpp/sc2remap/helpers/cli"
	"github.com/ttttcrngyblflpp/sc2remap/internal/gesture"
	"github.com/ttttcrngyblflpp/sc2remap/internal/remap"
	"github.com/ttttcrngyblflpp/sc2remap/internal/state"
	tele_api "github.com/ttttcrngyblflpp/sc2remap/internal/tele/api"
)

const modName = "probe"

var Mod = subcmd.Mod{Name: modName, Main: Main}

const usage = `commands:
  state              layering state
  stat               event counters
  press KEY_X        inject key press
  release KEY_X      inject key release
  tap KEY_X          inject press then release
  wheel 1|-1         inject wheel notch
`

func Main(ctx context.Context, config *state.Config) error {
	g := state.GetGlobal(ctx)
	config.Tele.Enabled = false // interactive tool, no broker traffic
	g.MustInit(ctx, config)

	remapConf, remapState, err := config.BuildRemap()
	if err != nil {
		return errors.Trace(err)
	}
	gestureConf, err := config.BuildGesture()
	if err != nil {
		return errors.Trace(err)
	}
	dev, err := g.Uinput()
	if err != nil {
		return errors.Trace(err)
	}
	defer dev.Close()
	sink := state.StatSink{Sink: dev, Tele: g.Tele}

	p := &prober{
		g:          g,
		remapConf:  remapConf,
		remapState: remapState,
		translator: gesture.NewTranslator(g.Log, gestureConf, sink),
		sink:       sink,
	}
	g.Log.Infof("probe init complete, try: help")
	cli.MainLoop(modName, p.execute, completer)
	return nil
}

type prober struct {
	g          *state.Global
	remapConf  remap.Config
	remapState *remap.State
	translator *gesture.Translator
	sink       state.StatSink
}

func (self *prober) execute(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	words := strings.Fields(line)
	cmd, args := words[0], words[1:]
	var err error
	switch cmd {
	case "help":
		fmt.Print(usage)
	case "state":
		fmt.Printf("%s\n", self.remapState.String())
	case "stat":
		self.g.Tele.StatModify(func(s *tele_api.Stat) { fmt.Printf("%s\n", s.Locked_String()) })
	case "press":
		err = self.key(args, input.KeyDown)
	case "release":
		err = self.key(args, input.KeyUp)
	case "tap":
		if err = self.key(args, input.KeyDown); err == nil {
			err = self.key(args, input.KeyUp)
		}
	case "wheel":
		err = self.wheel(args)
	default:
		err = errors.Errorf("unknown command, try: help")
	}
	if err != nil {
		self.g.Log.Errorf("probe %s: %v", line, err)
	}
}

// key runs one synthetic key edge through the keyboard half of the pipeline,
// with the sync a physical device would append.
func (self *prober) key(args []string, value int32) error {
	if len(args) != 1 {
		return errors.Errorf("usage: press|release|tap KEY_X")
	}
	code, err := input.ParseKeyName(args[0])
	if err != nil {
		return errors.Trace(err)
	}
	self.g.Tele.StatModify(func(s *tele_api.Stat) { s.KeyboardIn++ })
	event := input.KeyEvent(code, value)
	out := remap.Apply(self.remapState, self.remapConf, event)
	if len(out) != 1 || out[0] != event {
		self.g.Tele.StatModify(func(s *tele_api.Stat) { s.Remapped++ })
	}
	for _, oe := range out {
		if err := self.sink.WriteOne(oe); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(self.sink.WriteOne(input.SyncEvent()))
}

func (self *prober) wheel(args []string) error {
	if len(args) != 1 {
		return errors.Errorf("usage: wheel 1|-1")
	}
	value, err := strconv.ParseInt(strings.TrimPrefix(args[0], "+"), 10, 32)
	if err != nil {
		return errors.Annotatef(err, "wheel value=%s", args[0])
	}
	self.g.Tele.StatModify(func(s *tele_api.Stat) { s.MouseIn++ })
	event := input.Event{Code: input.Rel(evdev.REL_WHEEL), Value: int32(value)}
	if err := self.translator.Apply(event); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(self.translator.Apply(input.SyncEvent()))
}

var suggests = []prompt.Suggest{
	{Text: "help"},
	{Text: "state", Description: "layering state"},
	{Text: "stat", Description: "event counters"},
	{Text: "press", Description: "press KEY_X"},
	{Text: "release", Description: "release KEY_X"},
	{Text: "tap", Description: "tap KEY_X"},
	{Text: "wheel", Description: "wheel 1|-1"},
}

func completer(d prompt.Document) []prompt.Suggest {
	return prompt.FilterHasPrefix(suggests, d.GetWordBeforeCursor(), true)
}
