// Inspect input device nodes and preview role classification.
package devices

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/holoplot/go-evdev"
	"github.com/juju/errors"

	"github.com/ttttcrngyblflpp/sc2remap/cmd/sc2remap/subcmd"
	"github.com/ttttcrngyblflpp/sc2remap/hardware/input"
	"github.com/ttttcrngyblflpp/sc2remap/internal/state"
)

var Mod = subcmd.Mod{Name: "devices", Main: Main}

// Long enough for a human to move the mouse and release a key.
const previewTimeout = 30 * time.Second

func Main(ctx context.Context, config *state.Config) error {
	g := state.GetGlobal(ctx)
	config.Tele.Enabled = false // diagnostic mode, no broker traffic
	g.MustInit(ctx, config)

	if err := list(os.Stdout, input.DefaultDeviceDir); err != nil {
		return errors.Trace(err)
	}

	fmt.Printf("classification preview: move the mouse and release a key, %s timeout\n", previewTimeout)
	tctx, cancel := context.WithTimeout(ctx, previewTimeout)
	defer cancel()
	strategy := input.AutoStrategy{Log: g.Log, Grab: false}
	keyboard, mouse, err := strategy.Choose(tctx)
	if err != nil {
		if errors.Cause(err) == context.DeadlineExceeded {
			fmt.Printf("no keyboard+mouse classification within %s\n", previewTimeout)
			return nil
		}
		return errors.Trace(err)
	}
	defer keyboard.Close()
	defer mouse.Close()
	fmt.Printf("keyboard=%s name=%s\n", keyboard.String(), keyboard.Name())
	fmt.Printf("mouse=%s name=%s\n", mouse.String(), mouse.Name())
	return nil
}

func list(w io.Writer, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Annotatef(err, "devices list dir=%s", dir)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "event") {
			names = append(names, entry.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool { return eventNumber(names[i]) < eventNumber(names[j]) })
	for _, name := range names {
		path := filepath.Join(dir, name)
		fmt.Fprintf(w, "%s\t%s\n", path, describe(path))
	}
	return nil
}

// event10 sorts after event9, not after event1
func eventNumber(name string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(name, "event"))
	if err != nil {
		return math.MaxInt32
	}
	return n
}

func describe(path string) string {
	d, err := evdev.OpenWithFlags(path, os.O_RDONLY)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	defer d.Close()
	name, _ := d.Name()
	types := d.CapableTypes()
	ts := make([]string, 0, len(types))
	for _, t := range types {
		ts = append(ts, evdev.TypeName(t))
	}
	return fmt.Sprintf("name=\"%s\" caps=%s", name, strings.Join(ts, ","))
}
