// Physical input devices: event model, role identification, merge loop.
package input

import (
	"github.com/juju/errors"
	"github.com/temoto/alive/v2"

	"github.com/ttttcrngyblflpp/sc2remap/helpers"
	"github.com/ttttcrngyblflpp/sc2remap/log2"
)

type Source interface {
	Read() (Event, error)
	Close() error
	String() string
}

// Handler consumes one event on the merge goroutine. A returned error is
// fatal: the loop stores the first one and stops.
type Handler func(Event) error

type busEvent struct {
	role  Role
	event Event
}

// Mux merges role-classified sources into a single consumption loop. Each
// source is drained by a dedicated pump goroutine doing blocking reads, so a
// source's own events are never reordered; the shared bus serializes delivery
// into the one consumer that owns all downstream state.
type Mux struct {
	Log   *log2.Log
	alive *alive.Alive
	bus   chan busEvent
	err   helpers.AtomicError
}

func NewMux(log *log2.Log, a *alive.Alive) *Mux {
	return &Mux{
		Log:   log,
		alive: a,
		bus:   make(chan busEvent),
	}
}

// Attach starts the pump for one source. The source handle must be closed on
// stop by the owner to unblock a pending Read.
func (self *Mux) Attach(source Source, role Role) {
	self.alive.Add(1)
	go self.pump(source, role)
}

// Run delivers events to the role handlers until stop or the first fatal
// error, which it returns.
func (self *Mux) Run(onKeyboard, onMouse Handler) error {
	stopch := self.alive.StopChan()
	for {
		select {
		case be := <-self.bus:
			var err error
			switch be.role {
			case RoleKeyboard:
				err = onKeyboard(be.event)
			case RoleMouse:
				err = onMouse(be.event)
			default:
				err = errors.Errorf("code error input bus role=%s event=%s", be.role.String(), be.event.String())
			}
			if err != nil {
				self.err.StoreOnce(errors.Trace(err))
				self.alive.Stop()
				self.drain()
				final, _ := self.err.Load()
				return final
			}

		case <-stopch:
			self.drain()
			final, _ := self.err.Load()
			return final
		}
	}
}

func (self *Mux) pump(source Source, role Role) {
	defer self.alive.Done()
	tag := source.String()
	stopch := self.alive.StopChan()
	for {
		event, err := source.Read()
		if err != nil {
			if self.alive.IsRunning() {
				err = errors.Annotatef(err, "input source=%s", tag)
				self.err.StoreOnce(err)
				self.alive.Stop()
			}
			return
		}
		select {
		case self.bus <- busEvent{role: role, event: event}:
		case <-stopch:
			return
		}
	}
}

func (self *Mux) drain() {
	for {
		select {
		case <-self.bus:
		default:
			return
		}
	}
}
