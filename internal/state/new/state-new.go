// Sorry, workaround to import cycles.
package state_new

import (
	"context"
	"os"
	"testing"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"

	"github.com/ttttcrngyblflpp/sc2remap/hardware/uinput"
	"github.com/ttttcrngyblflpp/sc2remap/internal/state"
	tele_api "github.com/ttttcrngyblflpp/sc2remap/internal/tele/api"
	"github.com/ttttcrngyblflpp/sc2remap/log2"
)

func NewContext(log *log2.Log, teler tele_api.Teler) (context.Context, *state.Global) {
	if log == nil {
		panic("code error NewContext() log=nil")
	}

	g := &state.Global{
		Alive: alive.NewAlive(),
		Log:   log,
		Tele:  teler,
	}
	ctx := context.Background()
	ctx = context.WithValue(ctx, log2.ContextKey, log)
	ctx = context.WithValue(ctx, state.ContextKey, g)

	return ctx, g
}

func NewTestContext(t testing.TB, buildVersion string, confString string) (context.Context, *state.Global) {
	fs := state.NewMockFullReader(map[string]string{
		"test-inline": confString,
	})

	var log *log2.Log
	if os.Getenv("sc2remap_test_log_stderr") == "1" {
		log = log2.NewStderr(log2.LDebug) // useful with panics
	} else {
		log = log2.NewTest(t, log2.LDebug)
	}
	log.SetFlags(log2.LTestFlags)
	ctx, g := NewContext(log, tele_api.Noop{})
	g.BuildVersion = buildVersion
	g.Config = state.MustReadConfig(log, fs, "test-inline")
	g.Config.Persist.Root = t.TempDir()
	g.MustInit(ctx, g.Config)

	g.Hardware.Uinput.Sink = uinput.NewMockSink()
	if _, err := g.Uinput(); err != nil {
		t.Fatal(errors.Trace(err))
	}

	return ctx, g
}
