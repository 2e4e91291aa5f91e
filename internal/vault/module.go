package vault

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/kairosbot/kairos/internal/config"
	"github.com/kairosbot/kairos/internal/triage"
)

// Module provides vault reading, writing and the strategic context manager.
// Reader and Writer are nil when no vault path is configured; consumers
// treat that as "vault sync disabled".
var Module = fx.Module("vault",
	fx.Provide(
		newReader,
		newWriter,
		NewContextManager,
		func(m *ContextManager) triage.ContextSource { return m },
	),
)

func newReader(cfg *config.Config, logger *zap.Logger) (*Reader, error) {
	if cfg.Obsidian.VaultPath == "" {
		logger.Info("Obsidian vault path not set, vault analysis disabled")

		return nil, nil
	}

	return NewReader(cfg.Obsidian.VaultPath)
}

func newWriter(cfg *config.Config, logger *zap.Logger) (*Writer, error) {
	if cfg.Obsidian.VaultPath == "" {
		logger.Info("Obsidian vault path not set, vault sync disabled")

		return nil, nil
	}

	return NewWriter(cfg.Obsidian.VaultPath, logger)
}
