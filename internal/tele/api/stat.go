package tele_api

import (
	"fmt"
	"sync"
	"time"

	"github.com/temoto/atomic_clock"
)

// Stat is the low priority counter buffer, updated from the event loop under
// lock, reported on demand and at stop. Methods with Locked_ prefix expect
// the caller to hold the mutex.
type Stat struct { //nolint:maligned
	sync.Mutex
	KeyboardIn uint32 // keyboard events consumed
	MouseIn    uint32 // mouse events consumed
	Out        uint32 // single-record writes to the virtual device
	Remapped   uint32 // keyboard events whose output differs from input
	Taps       uint32 // complete synthetic keystrokes

	start atomic_clock.Clock
}

func (self *Stat) Locked_Reset() {
	self.KeyboardIn = 0
	self.MouseIn = 0
	self.Out = 0
	self.Remapped = 0
	self.Taps = 0
	self.start.SetNow()
}

func (self *Stat) Uptime() time.Duration { return atomic_clock.Since(&self.start) }

func (self *Stat) Locked_String() string {
	return fmt.Sprintf("uptime=%s kbd_in=%d mouse_in=%d out=%d remapped=%d taps=%d",
		self.Uptime().Round(time.Second), self.KeyboardIn, self.MouseIn, self.Out, self.Remapped, self.Taps)
}

func (self *Stat) String() string {
	self.Lock()
	defer self.Unlock()
	return self.Locked_String()
}
