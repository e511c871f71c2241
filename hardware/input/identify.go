package input

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/holoplot/go-evdev"
	"github.com/juju/errors"
	inputevent "github.com/temoto/inputevent-go"

	"github.com/ttttcrngyblflpp/sc2remap/log2"
)

const DefaultDeviceDir = "/dev/input"

// RoleStrategy produces the two role-assigned sources the daemon runs on.
type RoleStrategy interface {
	Choose(ctx context.Context) (keyboard, mouse *DevInputEventSource, err error)
}

// Classify returns the role a single event proves, RoleInvalid when it proves
// nothing. Mouse buttons and relative motion prove a mouse; a plain key
// release proves a keyboard. Key presses prove nothing: a device may be
// observed mid-press during startup noise.
func Classify(event Event) Role {
	switch c := event.Code.(type) {
	case Key:
		if c.IsMouseButton() {
			return RoleMouse
		}
		if event.Value == KeyUp {
			return RoleKeyboard
		}
	case Rel:
		return RoleMouse
	}
	return RoleInvalid
}

// FixedStrategy opens explicitly numbered event nodes, no classification.
type FixedStrategy struct {
	Log           *log2.Log
	KeyboardEvent int
	MouseEvent    int
	Grab          bool
}

var _ RoleStrategy = FixedStrategy{}

func (self FixedStrategy) Choose(context.Context) (*DevInputEventSource, *DevInputEventSource, error) {
	keyboard, err := NewDevInputEventSource(eventPath(DefaultDeviceDir, self.KeyboardEvent), self.Grab)
	if err != nil {
		return nil, nil, errors.Annotate(err, "identify fixed keyboard")
	}
	mouse, err := NewDevInputEventSource(eventPath(DefaultDeviceDir, self.MouseEvent), self.Grab)
	if err != nil {
		_ = keyboard.Close()
		return nil, nil, errors.Annotate(err, "identify fixed mouse")
	}
	self.Log.Infof("identify fixed keyboard=event%d name=%s mouse=event%d name=%s",
		self.KeyboardEvent, keyboard.Name(), self.MouseEvent, mouse.Name())
	return keyboard, mouse, nil
}

func eventPath(dir string, n int) string { return fmt.Sprintf("%s/event%d", dir, n) }

// AutoStrategy reads all candidate nodes concurrently until event signatures
// have classified one keyboard and one mouse, first come first serve per
// role. Nodes appearing while the scan runs join it, so booting before the
// devices are connected works.
type AutoStrategy struct {
	Log  *log2.Log
	Dir  string // empty means DefaultDeviceDir
	Grab bool
}

var _ RoleStrategy = AutoStrategy{}

func (self AutoStrategy) Choose(ctx context.Context) (*DevInputEventSource, *DevInputEventSource, error) {
	keyboardPath, mousePath, err := self.scan(ctx)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	keyboard, err := NewDevInputEventSource(keyboardPath, self.Grab)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	mouse, err := NewDevInputEventSource(mousePath, self.Grab)
	if err != nil {
		_ = keyboard.Close()
		return nil, nil, errors.Trace(err)
	}
	return keyboard, mouse, nil
}

func (self AutoStrategy) dir() string {
	if self.Dir != "" {
		return self.Dir
	}
	return DefaultDeviceDir
}

type probe struct {
	f    *os.File
	path string
	name string
	role Role
}

type probeEvent struct {
	p     *probe
	event Event
	err   error
}

func (self AutoStrategy) scan(ctx context.Context) (keyboardPath, mousePath string, err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return "", "", errors.Annotate(err, "identify watch")
	}
	defer func() { _ = watcher.Close() }()
	if err = watcher.Add(self.dir()); err != nil {
		return "", "", errors.Annotatef(err, "identify watch dir=%s", self.dir())
	}

	done := make(chan struct{})
	events := make(chan probeEvent)
	var probes []*probe
	closeAll := func() {
		close(done)
		for _, p := range probes {
			_ = p.f.Close()
		}
	}

	paths, err := self.candidates()
	if err != nil {
		return "", "", errors.Trace(err)
	}
	for _, path := range paths {
		if p := self.tryProbe(path); p != nil {
			probes = append(probes, p)
			go probeRead(p, events, done)
		}
	}
	if len(probes) == 0 {
		self.Log.Infof("identify: no candidate devices in %s, waiting", self.dir())
	} else {
		self.Log.Infof("identify: reading %d devices, move the mouse and release a key", len(probes))
	}

	for {
		select {
		case pe := <-events:
			if pe.err != nil {
				closeAll()
				return "", "", errors.Annotatef(pe.err, "identify read device=%s", pe.p.path)
			}
			if pe.p.role != RoleInvalid {
				continue
			}
			switch role := Classify(pe.event); {
			case role == RoleMouse && mousePath == "":
				pe.p.role = RoleMouse
				mousePath = pe.p.path
				self.Log.Infof("identify mouse=%s name=%s event=%s", pe.p.path, pe.p.name, pe.event.String())
			case role == RoleKeyboard && keyboardPath == "":
				pe.p.role = RoleKeyboard
				keyboardPath = pe.p.path
				self.Log.Infof("identify keyboard=%s name=%s event=%s", pe.p.path, pe.p.name, pe.event.String())
			}
			if keyboardPath != "" && mousePath != "" {
				closeAll()
				return keyboardPath, mousePath, nil
			}

		case wev, ok := <-watcher.Events:
			if !ok {
				closeAll()
				return "", "", errors.Errorf("identify watch closed")
			}
			if wev.Op&fsnotify.Create != fsnotify.Create {
				continue
			}
			if !strings.HasPrefix(filepath.Base(wev.Name), "event") {
				continue
			}
			// udev may still be adjusting node permissions
			time.Sleep(100 * time.Millisecond)
			if p := self.tryProbe(wev.Name); p != nil {
				probes = append(probes, p)
				go probeRead(p, events, done)
			}

		case werr, ok := <-watcher.Errors:
			if !ok {
				closeAll()
				return "", "", errors.Errorf("identify watch closed")
			}
			closeAll()
			return "", "", errors.Annotate(werr, "identify watch")

		case <-ctx.Done():
			closeAll()
			return "", "", errors.Annotate(ctx.Err(), "identify")
		}
	}
}

func (self AutoStrategy) candidates() ([]string, error) {
	entries, err := os.ReadDir(self.dir())
	if err != nil {
		return nil, errors.Annotatef(err, "identify list dir=%s", self.dir())
	}
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "event") {
			paths = append(paths, filepath.Join(self.dir(), entry.Name()))
		}
	}
	return paths, nil
}

// tryProbe opens path for identification. Unusable candidates are logged and
// skipped, they must not abort the scan.
func (self AutoStrategy) tryProbe(path string) *probe {
	p, err := self.probeOpen(path)
	if err != nil {
		self.Log.Debugf("identify skip device=%s err=%v", path, err)
		return nil
	}
	self.Log.Debugf("identify probe device=%s name=%s", p.path, p.name)
	return p
}

func (self AutoStrategy) probeOpen(path string) (*probe, error) {
	d, err := evdev.OpenWithFlags(path, os.O_RDONLY)
	if err != nil {
		return nil, err
	}
	name, _ := d.Name()
	types := d.CapableTypes()
	_ = d.Close()
	interesting := false
	for _, t := range types {
		if t == evdev.EV_KEY || t == evdev.EV_REL {
			interesting = true
			break
		}
	}
	if !interesting {
		return nil, errors.NotFoundf("key/rel capability on device=%s name=%s", path, name)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &probe{f: f, path: path, name: name}, nil
}

func probeRead(p *probe, events chan<- probeEvent, done <-chan struct{}) {
	for {
		ie, err := inputevent.ReadOne(p.f)
		if err != nil {
			select {
			case <-done:
			case events <- probeEvent{p: p, err: err}:
			}
			return
		}
		raw := evdev.InputEvent{
			Time:  ie.Time,
			Type:  evdev.EvType(ie.Type),
			Code:  evdev.EvCode(ie.Code),
			Value: ie.Value,
		}
		select {
		case <-done:
			return
		case events <- probeEvent{p: p, event: FromRaw(raw)}:
		}
	}
}
