package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ttttcrngyblflpp/sc2remap/cmd/sc2remap/daemon"
	"github.com/ttttcrngyblflpp/sc2remap/cmd/sc2remap/devices"
	"github.com/ttttcrngyblflpp/sc2remap/cmd/sc2remap/probe"
	"github.com/ttttcrngyblflpp/sc2remap/cmd/sc2remap/subcmd"
	"github.com/ttttcrngyblflpp/sc2remap/internal/state"
	state_new "github.com/ttttcrngyblflpp/sc2remap/internal/state/new"
	"github.com/ttttcrngyblflpp/sc2remap/internal/tele"
	"github.com/ttttcrngyblflpp/sc2remap/log2"
)

// set at build: go build -ldflags "-X main.BuildVersion=$(git describe --always --dirty)"
var BuildVersion string = "unknown"

var modules = []subcmd.Mod{
	daemon.Mod,
	devices.Mod,
	probe.Mod,
}

func main() {
	flagConfig := flag.String("config", "sc2remap.hcl", "")
	flagLogLevel := flag.String("l", "", "log level: error|info|debug|trace")
	flagKeyboard := flag.Int("keyboard", -1, "/dev/input/eventN number of the keyboard, implies device.strategy=fixed")
	flagMouse := flag.Int("mouse", -1, "/dev/input/eventN number of the mouse, implies device.strategy=fixed")
	flag.Parse()

	command := flag.Arg(0)
	if command == "" {
		command = "daemon"
	}
	if command == "version" {
		fmt.Printf("sc2remap %s\n", BuildVersion)
		return
	}
	mod, err := subcmd.Parse(command, modules)
	if err != nil {
		fmt.Fprintf(os.Stderr, "command line error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	level, err := log2.ParseLevel(*flagLogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "command line error: -l: %v\n", err)
		os.Exit(1)
	}
	log := log2.NewStderr(level)
	logFlags := log2.LInteractiveFlags
	if subcmd.SdNotify("start") {
		// we're under systemd, assume systemd journal logging, remove timestamp
		logFlags = log2.LServiceFlags
	}
	log.SetFlags(logFlags)

	ctx, g := state_new.NewContext(log, tele.New())
	g.BuildVersion = BuildVersion
	log.Debugf("hello command=%s version=%s", mod.Name, BuildVersion)

	config := state.MustReadConfig(log, state.NewOsFullReader(), *flagConfig)
	if *flagKeyboard >= 0 || *flagMouse >= 0 {
		config.Device.Strategy = "fixed"
		if *flagKeyboard >= 0 {
			config.Device.KeyboardEvent = *flagKeyboard
		}
		if *flagMouse >= 0 {
			config.Device.MouseEvent = *flagMouse
		}
	}

	if err := mod.Main(ctx, config); err != nil {
		g.Fatal(err)
	}
	g.StopWait(5 * time.Second)
	g.Tele.Close()
}
