package tele

import (
	"context"
	"strings"

	"github.com/juju/errors"

	"github.com/ttttcrngyblflpp/sc2remap/internal/state"
	"github.com/ttttcrngyblflpp/sc2remap/log2"
)

// Commands are plain text: `stop`, `loglevel <error|info|debug|trace>`.
func (self *Tele) onCommandMessage(ctx context.Context, payload []byte) bool {
	cmd := strings.TrimSpace(string(payload))
	self.log.Debugf("tele command=%s", cmd)
	if err := self.dispatchCommand(ctx, cmd); err != nil {
		self.log.Errorf("tele command=%s err=%v", cmd, err)
		self.Error(errors.Annotatef(err, "command=%s", cmd))
	}
	return true
}

func (self *Tele) dispatchCommand(ctx context.Context, cmd string) error {
	word, arg := cmd, ""
	if i := strings.IndexByte(cmd, ' '); i >= 0 {
		word, arg = cmd[:i], strings.TrimSpace(cmd[i+1:])
	}

	switch word {
	case "stop":
		g := state.GetGlobal(ctx)
		// return first so the transport can ack before shutdown
		go g.Stop()
		return nil

	case "loglevel":
		lvl, err := log2.ParseLevel(arg)
		if err != nil {
			return errors.Trace(err)
		}
		state.GetGlobal(ctx).Log.SetLevel(lvl)
		return nil

	default:
		return errors.Errorf("unknown command=%s", cmd)
	}
}
