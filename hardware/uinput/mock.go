package uinput

import (
	"sync"

	"github.com/holoplot/go-evdev"

	"github.com/ttttcrngyblflpp/sc2remap/hardware/input"
)

// MockOp is one recorded sink call.
type MockOp struct {
	Tap   bool
	Key   evdev.EvCode
	Event input.Event
}

// MockSink records calls instead of touching uinput. Safe for concurrent use.
type MockSink struct {
	mu   sync.Mutex
	ops  []MockOp
	fail error
}

var _ Sink = new(MockSink)

func NewMockSink() *MockSink { return &MockSink{} }

// SetFail makes every following call return err.
func (self *MockSink) SetFail(err error) {
	self.mu.Lock()
	self.fail = err
	self.mu.Unlock()
}

func (self *MockSink) WriteOne(event input.Event) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.fail != nil {
		return self.fail
	}
	self.ops = append(self.ops, MockOp{Event: event})
	return nil
}

func (self *MockSink) Tap(code evdev.EvCode) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.fail != nil {
		return self.fail
	}
	self.ops = append(self.ops, MockOp{Tap: true, Key: code})
	return nil
}

func (self *MockSink) Close() error { return nil }

// Ops returns a copy of everything recorded so far.
func (self *MockSink) Ops() []MockOp {
	self.mu.Lock()
	defer self.mu.Unlock()
	return append([]MockOp(nil), self.ops...)
}

func (self *MockSink) Clear() {
	self.mu.Lock()
	self.ops = nil
	self.mu.Unlock()
}
