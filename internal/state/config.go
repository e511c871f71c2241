package state

import (
	"path/filepath"
	"sync"

	"github.com/hashicorp/hcl"
	"github.com/holoplot/go-evdev"
	"github.com/juju/errors"

	"github.com/ttttcrngyblflpp/sc2remap/hardware/input"
	"github.com/ttttcrngyblflpp/sc2remap/helpers"
	"github.com/ttttcrngyblflpp/sc2remap/internal/gesture"
	"github.com/ttttcrngyblflpp/sc2remap/internal/remap"
	tele_config "github.com/ttttcrngyblflpp/sc2remap/internal/tele/config"
	"github.com/ttttcrngyblflpp/sc2remap/log2"
)

const (
	defaultLayerKey    = "KEY_GRAVE"
	defaultRemapTarget = "KEY_6"
)

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []ConfigSource `hcl:"include"`

	Device struct { //nolint:maligned
		Strategy      string `hcl:"strategy"`
		KeyboardEvent int    `hcl:"keyboard_event"`
		MouseEvent    int    `hcl:"mouse_event"`
		Grab          bool   `hcl:"grab"`
	} `hcl:"device"`

	Remap struct {
		LayerKey      string      `hcl:"layer_key"`
		DefaultTarget string      `hcl:"default_target"`
		Map           []RemapRule `hcl:"map"`
	} `hcl:"remap"`

	Gesture struct { //nolint:maligned
		ScrollUp      string     `hcl:"scroll_up"`
		ScrollDown    string     `hcl:"scroll_down"`
		ChordEnable   bool       `hcl:"chord_enable"`
		ChordStart    string     `hcl:"chord_start"`
		ChordEnd      string     `hcl:"chord_end"`
		ForwardMotion bool       `hcl:"forward_motion"`
		Side          []SideRule `hcl:"side"`
	} `hcl:"gesture"`

	Persist struct {
		Root string `hcl:"root"`
	} `hcl:"persist"`

	Tele tele_config.Config `hcl:"tele"`

	_copy_guard sync.Mutex //nolint:unused
}

type ConfigSource struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

type RemapRule struct {
	From string `hcl:"from,key"`
	To   string `hcl:"to"`
}

type SideRule struct {
	Button string `hcl:"button,key"`
	Key    string `hcl:"key"`
}

// BuildRemap validates the remap block into the substitution table and the
// initial layering state.
func (c *Config) BuildRemap() (remap.Config, *remap.State, error) {
	errs := make([]error, 0)
	parse := func(name, deflt, tag string) evdev.EvCode {
		if name == "" {
			name = deflt
		}
		code, err := input.ParseKeyName(name)
		if err != nil {
			errs = append(errs, errors.Annotatef(err, "config: remap.%s", tag))
		}
		return code
	}

	conf := remap.Config{LayerKey: parse(c.Remap.LayerKey, defaultLayerKey, "layer_key")}
	defaultTarget := parse(c.Remap.DefaultTarget, defaultRemapTarget, "default_target")

	table := make(map[evdev.EvCode]evdev.EvCode, len(c.Remap.Map))
	for _, rule := range c.Remap.Map {
		from, err := input.ParseKeyName(rule.From)
		if err != nil {
			errs = append(errs, errors.Annotate(err, "config: remap.map.from"))
			continue
		}
		to, err := input.ParseKeyName(rule.To)
		if err != nil {
			errs = append(errs, errors.Annotatef(err, "config: remap.map from=%s", rule.From))
			continue
		}
		if prev, ok := table[from]; ok && prev != to {
			errs = append(errs, errors.Errorf("config: remap.map duplicate from=%s", rule.From))
			continue
		}
		table[from] = to
	}
	conf.Map = remap.NewKeyMap(table)

	if err := helpers.FoldErrors(errs); err != nil {
		return remap.Config{}, nil, err
	}
	return conf, remap.NewState(defaultTarget), nil
}

// BuildGesture validates the gesture block over the built-in defaults. Side
// blocks, when present, replace the default side-button table entirely.
func (c *Config) BuildGesture() (gesture.Config, error) {
	conf := gesture.DefaultConfig()
	errs := make([]error, 0)
	parse := func(dst *evdev.EvCode, name, tag string) {
		if name == "" {
			return
		}
		code, err := input.ParseKeyName(name)
		if err != nil {
			errs = append(errs, errors.Annotatef(err, "config: gesture.%s", tag))
			return
		}
		*dst = code
	}

	parse(&conf.ScrollUp, c.Gesture.ScrollUp, "scroll_up")
	parse(&conf.ScrollDown, c.Gesture.ScrollDown, "scroll_down")
	parse(&conf.ChordStart, c.Gesture.ChordStart, "chord_start")
	parse(&conf.ChordEnd, c.Gesture.ChordEnd, "chord_end")
	conf.ChordEnable = c.Gesture.ChordEnable
	conf.ForwardMotion = c.Gesture.ForwardMotion

	if len(c.Gesture.Side) > 0 {
		conf.Side = make(map[evdev.EvCode]evdev.EvCode, len(c.Gesture.Side))
		for _, rule := range c.Gesture.Side {
			button, err := input.ParseKeyName(rule.Button)
			if err != nil {
				errs = append(errs, errors.Annotate(err, "config: gesture.side.button"))
				continue
			}
			key, err := input.ParseKeyName(rule.Key)
			if err != nil {
				errs = append(errs, errors.Annotatef(err, "config: gesture.side button=%s", rule.Button))
				continue
			}
			conf.Side[button] = key
		}
	}

	if err := helpers.FoldErrors(errs); err != nil {
		return gesture.Config{}, err
	}
	return conf, nil
}

func (c *Config) read(log *log2.Log, fs FullReader, source ConfigSource, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		log.Fatalf("config duplicate source=%s", source.Name)
	} else {
		log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	}
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
			return
		}
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	err = hcl.Unmarshal(bs, c)
	if err != nil {
		err = errors.Annotatef(err, "config unmarshal source=%s content='%s'", source.Name, string(bs))
		*errs = append(*errs, err)
		return
	}

	var includes []ConfigSource
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) == 0 {
		log.Fatal("code error [Must]ReadConfig() without names")
	}

	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(names[0])
		osfs.SetBase(dir)
		names[0] = name
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	// absent keys in HCL leave pre-seeded values alone
	c.Device.Strategy = "auto"
	c.Device.KeyboardEvent = -1
	c.Device.MouseEvent = -1
	c.Device.Grab = true
	c.Gesture.ChordEnable = true
	c.Gesture.ForwardMotion = true

	errs := make([]error, 0, 8)
	for _, name := range names {
		c.read(log, fs, ConfigSource{Name: name}, &errs)
	}
	return c, helpers.FoldErrors(errs)
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}
