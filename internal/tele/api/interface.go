// Separate package is workaround to import cycles.
package tele_api

import (
	"context"

	tele_config "github.com/ttttcrngyblflpp/sc2remap/internal/tele/config"
	"github.com/ttttcrngyblflpp/sc2remap/log2"
)

type Teler interface {
	Init(context.Context, *log2.Log, tele_config.Config) error
	Close()
	State(State)
	Error(error)
	StatModify(func(*Stat))
}
