package state

import (
	"context"
	"strings"
	"testing"

	"github.com/holoplot/go-evdev"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/alive/v2"

	tele_api "github.com/ttttcrngyblflpp/sc2remap/internal/tele/api"
	"github.com/ttttcrngyblflpp/sc2remap/log2"
)

func TestReadConfig(t *testing.T) {
	t.Parallel()

	type Case struct {
		name      string
		input     string
		check     func(testing.TB, context.Context)
		expectErr string
	}
	cases := []Case{
		{"empty", "", func(t testing.TB, ctx context.Context) {
			g := GetGlobal(ctx)
			assert.Equal(t, "auto", g.Config.Device.Strategy)
			assert.True(t, g.Config.Device.Grab)
			assert.Equal(t, -1, g.Config.Device.KeyboardEvent)
			rconf, rstate, err := g.Config.BuildRemap()
			require.NoError(t, err)
			assert.Equal(t, evdev.EvCode(evdev.KEY_GRAVE), rconf.LayerKey)
			assert.Contains(t, rstate.String(), "next=KEY_6")
			gconf, err := g.Config.BuildGesture()
			require.NoError(t, err)
			assert.Equal(t, evdev.EvCode(evdev.KEY_UP), gconf.ScrollUp)
			assert.Equal(t, evdev.EvCode(evdev.KEY_DOWN), gconf.ScrollDown)
			assert.True(t, gconf.ChordEnable)
			assert.True(t, gconf.ForwardMotion)
			assert.Equal(t, evdev.EvCode(evdev.KEY_F13), gconf.Side[evdev.BTN_SIDE])
		}, ""},

		{"device-fixed",
			`device { strategy = "fixed" keyboard_event = 3 mouse_event = 5 grab = false }`,
			func(t testing.TB, ctx context.Context) {
				g := GetGlobal(ctx)
				assert.Equal(t, "fixed", g.Config.Device.Strategy)
				assert.Equal(t, 3, g.Config.Device.KeyboardEvent)
				assert.Equal(t, 5, g.Config.Device.MouseEvent)
				assert.False(t, g.Config.Device.Grab)
			},
			"",
		},

		{"remap", `
remap {
	layer_key = "KEY_CAPSLOCK"
	default_target = "KEY_7"
	map "KEY_1" { to = "KEY_6" }
	map "KEY_2" { to = "KEY_7" }
}`,
			func(t testing.TB, ctx context.Context) {
				g := GetGlobal(ctx)
				rconf, rstate, err := g.Config.BuildRemap()
				require.NoError(t, err)
				assert.Equal(t, evdev.EvCode(evdev.KEY_CAPSLOCK), rconf.LayerKey)
				assert.Contains(t, rstate.String(), "next=KEY_7")
				to, ok := rconf.Map(evdev.KEY_1)
				assert.True(t, ok)
				assert.Equal(t, evdev.EvCode(evdev.KEY_6), to)
				_, ok = rconf.Map(evdev.KEY_LEFTSHIFT)
				assert.False(t, ok)
				to, ok = rconf.Map(evdev.KEY_Q)
				assert.True(t, ok)
				assert.Equal(t, evdev.EvCode(evdev.KEY_Q), to)
			},
			"",
		},

		{"gesture", `
gesture {
	scroll_up = "KEY_PAGEUP"
	chord_enable = false
	side "BTN_FORWARD" { key = "KEY_F15" }
}`,
			func(t testing.TB, ctx context.Context) {
				g := GetGlobal(ctx)
				gconf, err := g.Config.BuildGesture()
				require.NoError(t, err)
				assert.Equal(t, evdev.EvCode(evdev.KEY_PAGEUP), gconf.ScrollUp)
				assert.Equal(t, evdev.EvCode(evdev.KEY_DOWN), gconf.ScrollDown)
				assert.False(t, gconf.ChordEnable)
				require.Len(t, gconf.Side, 1)
				assert.Equal(t, evdev.EvCode(evdev.KEY_F15), gconf.Side[evdev.BTN_FORWARD])
			},
			"",
		},

		{"include-normalize", `
remap { layer_key = "KEY_GRAVE" }
include "./empty" {}`,
			nil, ""},

		{"include-optional", `
include "layer-caps" {}
include "non-exist" { optional = true }`,
			func(t testing.TB, ctx context.Context) {
				g := GetGlobal(ctx)
				rconf, _, err := g.Config.BuildRemap()
				require.NoError(t, err)
				assert.Equal(t, evdev.EvCode(evdev.KEY_CAPSLOCK), rconf.LayerKey)
			}, ""},

		{"include-overwrites", `
remap { layer_key = "KEY_GRAVE" }
include "layer-caps" {}`,
			func(t testing.TB, ctx context.Context) {
				g := GetGlobal(ctx)
				rconf, _, err := g.Config.BuildRemap()
				require.NoError(t, err)
				assert.Equal(t, evdev.EvCode(evdev.KEY_CAPSLOCK), rconf.LayerKey)
			}, ""},

		{"include-accumulates-map", `
remap { map "KEY_1" { to = "KEY_6" } }
include "map-extra" {}`,
			func(t testing.TB, ctx context.Context) {
				g := GetGlobal(ctx)
				rconf, _, err := g.Config.BuildRemap()
				require.NoError(t, err)
				to, ok := rconf.Map(evdev.KEY_1)
				assert.True(t, ok)
				assert.Equal(t, evdev.EvCode(evdev.KEY_6), to)
				to, ok = rconf.Map(evdev.KEY_2)
				assert.True(t, ok)
				assert.Equal(t, evdev.EvCode(evdev.KEY_7), to)
			}, ""},

		{"remap-bad-key",
			`remap { map "KEY_BOGUS_NAME" { to = "KEY_6" } }`,
			func(t testing.TB, ctx context.Context) {
				g := GetGlobal(ctx)
				_, _, err := g.Config.BuildRemap()
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unknown key name")
			}, ""},

		{"remap-duplicate",
			`remap {
	map "KEY_1" { to = "KEY_6" }
	map "KEY_1" { to = "KEY_7" }
}`,
			func(t testing.TB, ctx context.Context) {
				g := GetGlobal(ctx)
				_, _, err := g.Config.BuildRemap()
				require.Error(t, err)
				assert.Contains(t, err.Error(), "remap.map duplicate from=KEY_1")
			}, ""},

		{"error-syntax", `hello`, nil, "key 'hello' expected start of object"},
		{"error-include-loop", `include "include-loop" {}`, nil, "config include loop: from=include-loop include=include-loop"},
	}
	mkCheck := func(c Case) func(*testing.T) {
		return func(t *testing.T) {
			// log := log2.NewStderr(log2.LDebug) // helps with panics
			log := log2.NewTest(t, log2.LDebug)

			// XXX FIXME code duplicate from NewContext but stupid import cycle
			// ctx, g := NewContext(log)
			g := &Global{
				Alive: alive.NewAlive(),
				Log:   log,
				Tele:  tele_api.Noop{},
			}
			ctx := context.Background()
			ctx = context.WithValue(ctx, log2.ContextKey, log)
			ctx = context.WithValue(ctx, ContextKey, g)

			fs := NewMockFullReader(map[string]string{
				"test-inline":  c.input,
				"empty":        "",
				"layer-caps":   `remap{layer_key="KEY_CAPSLOCK"}`,
				"map-extra":    `remap{ map "KEY_2" { to = "KEY_7" } }`,
				"error-syntax": "hello",
				"include-loop": `include "include-loop" {}`,
			})
			cfg, err := ReadConfig(log, fs, "test-inline")
			if err == nil {
				cfg.Persist.Root = t.TempDir()
				err = g.Init(ctx, cfg)
			}
			if c.expectErr == "" {
				if err != nil {
					t.Fatalf("error expected=nil actual='%v'", errors.ErrorStack(err))
				}
				if c.check != nil {
					c.check(t, ctx)
				}
			} else {
				if !strings.Contains(err.Error(), c.expectErr) {
					t.Fatalf("error expected='%s' actual='%v'", c.expectErr, err)
				}
			}
		}
	}
	for _, c := range cases {
		t.Run(c.name, mkCheck(c))
	}
}

func TestPidLock(t *testing.T) {
	t.Parallel()

	log := log2.NewTest(t, log2.LDebug)
	root := t.TempDir()
	mkGlobal := func() *Global {
		g := &Global{Log: log, Config: &Config{}}
		g.Config.Persist.Root = root
		return g
	}

	g1 := mkGlobal()
	f1, err := g1.PidLock()
	require.NoError(t, err)

	g2 := mkGlobal()
	_, err = g2.PidLock()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "another instance holds the lock")

	require.NoError(t, f1.Close())
	f3, err := mkGlobal().PidLock()
	require.NoError(t, err)
	_ = f3.Close()
}
