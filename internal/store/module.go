// Package store provides persistence infrastructure and Fx modules.
package store

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/kairosbot/kairos/internal/config"
)

// Module provides storage dependencies.
var Module = fx.Module("store",
	fx.Provide(NewStore),
)

// NewStore opens the configured database and ties its lifetime to the Fx
// lifecycle.
func NewStore(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (*Store, error) {
	s, err := Open(cfg.Database.Path, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return s.Close()
		},
	})
	return s, nil
}
