package tele_api

import (
	"context"

	tele_config "github.com/ttttcrngyblflpp/sc2remap/internal/tele/config"
	"github.com/ttttcrngyblflpp/sc2remap/log2"
)

type Noop struct{}

var _ Teler = Noop{} // compile-time interface test

func (Noop) Init(context.Context, *log2.Log, tele_config.Config) error { return nil }

func (Noop) Close() {}

func (Noop) State(State) {}

func (Noop) Error(error) {}

func (Noop) StatModify(func(*Stat)) {}
