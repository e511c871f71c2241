package tele

import (
	"context"
	"testing"
	"time"

	tele_config "github.com/ttttcrngyblflpp/sc2remap/internal/tele/config"
	"github.com/ttttcrngyblflpp/sc2remap/log2"
)

type transportMock struct {
	t              testing.TB
	ctx            context.Context
	onCommand      func([]byte) bool
	networkTimeout time.Duration
	outBuffer      int
	outState       chan []byte
	outError       chan []byte
	will           []byte
}

var _ Transporter = new(transportMock)

func (self *transportMock) Init(ctx context.Context, log *log2.Log, teleConfig tele_config.Config, onCommand CommandCallback, willPayload []byte) error {
	self.ctx = ctx
	self.onCommand = func(payload []byte) bool {
		self.t.Logf("mock command=%s", payload)
		return onCommand(ctx, payload)
	}
	if self.networkTimeout == 0 {
		self.networkTimeout = defaultNetworkTimeout
	}
	self.outState = make(chan []byte, self.outBuffer)
	self.outError = make(chan []byte, self.outBuffer)
	self.will = willPayload
	return nil
}

func (self *transportMock) Close() {}

func (self *transportMock) SendState(payload []byte) bool {
	select {
	case self.outState <- copyBytes(payload):
		self.t.Logf("mock delivered state=%x", payload)
	case <-time.After(self.networkTimeout):
		self.t.Logf("mock network timeout")
		return false
	}
	return true
}

func (self *transportMock) SendError(payload []byte) bool {
	select {
	case self.outError <- copyBytes(payload):
		self.t.Logf("mock delivered error=%s", payload)
	case <-time.After(self.networkTimeout):
		self.t.Logf("mock network timeout")
		return false
	}
	return true
}

// split send/receive buffer identity for safe concurrent access
func copyBytes(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
