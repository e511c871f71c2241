package tele

import (
	tele_api "github.com/ttttcrngyblflpp/sc2remap/internal/tele/api"
)

func (self *Tele) State(s tele_api.State) {
	if !self.enabled {
		return
	}
	self.log.Infof("tele.State s=%v", s)
	select {
	case self.stateCh <- s:
	default:
		self.log.Infof("tele state overflow s=%v", s)
	}
}

// Error is also wired as the log2 error hook, so it must never call
// self.log.Error or block.
func (self *Tele) Error(e error) {
	if !self.enabled || e == nil {
		return
	}
	select {
	case self.errorCh <- e.Error():
	default:
		self.log.Debugf("tele error overflow e=%v", e)
	}
}

// StatModify works regardless of transport state: counters feed the probe
// REPL and the stop report even with telemetry off.
func (self *Tele) StatModify(fun func(s *tele_api.Stat)) {
	self.stat.Lock()
	fun(&self.stat)
	self.stat.Unlock()
}
