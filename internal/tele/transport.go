package tele

import (
	"context"

	tele_config "github.com/ttttcrngyblflpp/sc2remap/internal/tele/config"
	"github.com/ttttcrngyblflpp/sc2remap/log2"
)

// Transport contract:
// - Init fails only with invalid config, ignores network errors
// - Send* deliver within the network timeout or report false; the client's
//   own reconnect is the only retry
// - application may start without network available
type Transporter interface {
	Init(ctx context.Context, log *log2.Log, teleConfig tele_config.Config, onCommand CommandCallback, willPayload []byte) error
	Close()
	SendState(payload []byte) bool
	SendError(payload []byte) bool
}

type CommandCallback func(context.Context, []byte) bool
