package tele

import (
	"context"
	"time"

	"github.com/juju/errors"

	"github.com/ttttcrngyblflpp/sc2remap/helpers"
	tele_api "github.com/ttttcrngyblflpp/sc2remap/internal/tele/api"
	tele_config "github.com/ttttcrngyblflpp/sc2remap/internal/tele/config"
	"github.com/ttttcrngyblflpp/sc2remap/log2"
)

const (
	defaultStateInterval  = 5 * time.Minute
	defaultNetworkTimeout = 30 * time.Second

	stateBuffer = 8
	errorBuffer = 32

	closeTimeout = 3 * time.Second
)

// Tele contract:
// - Init fails only with invalid config, network issues ignored
// - State/Error never block the caller beyond a buffered channel append;
//   a slow or absent network drops messages instead of stalling the caller
// - status messages may be lost
type Tele struct { //nolint:maligned
	enabled       bool
	log           *log2.Log
	transport     Transporter
	stateCh       chan tele_api.State
	errorCh       chan string
	stopCh        chan struct{}
	workerDone    chan struct{}
	stateInterval time.Duration
	stat          tele_api.Stat
}

var _ tele_api.Teler = &Tele{} // compile-time interface test

func New() *Tele { return &Tele{} }

// NewWithTransporter is the test constructor.
func NewWithTransporter(trans Transporter) *Tele { return &Tele{transport: trans} }

func (self *Tele) Init(ctx context.Context, log *log2.Log, teleConfig tele_config.Config) error {
	self.enabled = teleConfig.Enabled
	self.log = log
	if teleConfig.LogDebug {
		self.log.SetLevel(log2.LDebug)
	}
	self.stat.Locked_Reset()
	if !self.enabled {
		return nil
	}

	self.stopCh = make(chan struct{})
	self.workerDone = make(chan struct{})
	self.stateCh = make(chan tele_api.State, stateBuffer)
	self.errorCh = make(chan string, errorBuffer)
	self.stateInterval = helpers.IntSecondDefault(teleConfig.StateIntervalSec, defaultStateInterval)

	willPayload := []byte{byte(tele_api.State_Disconnected)}
	// test code sets .transport
	if self.transport == nil { // production path
		self.transport = &transportMqtt{}
	}
	if err := self.transport.Init(ctx, log, teleConfig, self.onCommandMessage, willPayload); err != nil {
		return errors.Annotate(err, "tele transport")
	}

	go self.worker()
	self.State(tele_api.State_Boot)
	return nil
}

// Close lets the worker flush before the transport goes away, within reason.
func (self *Tele) Close() {
	if !self.enabled {
		return
	}
	close(self.stopCh)
	select {
	case <-self.workerDone:
	case <-time.After(closeTimeout):
	}
	self.transport.Close()
}

// worker owns all transport sends; the public API only enqueues.
func (self *Tele) worker() {
	const retryInterval = 17 * time.Second
	defer close(self.workerDone)
	var b [1]byte
	var sent bool
	tmrRegular := time.NewTicker(self.stateInterval)
	tmrRetry := time.NewTicker(retryInterval)
	defer tmrRegular.Stop()
	defer tmrRetry.Stop()
	for {
		select {
		case next := <-self.stateCh:
			if next != tele_api.State(b[0]) {
				b[0] = byte(next)
				sent = self.transport.SendState(b[:])
			}

		case s := <-self.errorCh:
			self.transport.SendError([]byte(s))

		case <-tmrRegular.C:
			sent = self.transport.SendState(b[:])

		case <-tmrRetry.C:
			if !sent {
				sent = self.transport.SendState(b[:])
			}

		case <-self.stopCh:
			self.flush(b[:])
			return
		}
	}
}

// flush drains queued messages on shutdown, best effort. The fatal path
// enqueues the error and the final state right before Close, they should
// reach the broker when the network allows.
func (self *Tele) flush(b []byte) {
	for {
		select {
		case next := <-self.stateCh:
			if next != tele_api.State(b[0]) {
				b[0] = byte(next)
				self.transport.SendState(b)
			}
		case s := <-self.errorCh:
			self.transport.SendError([]byte(s))
		default:
			return
		}
	}
}
