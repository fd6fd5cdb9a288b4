package session

import (
	"context"

	"trade_console/internal/config"
	"trade_console/internal/xts"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module(
		"session",
		fx.Provide(
			func(lc fx.Lifecycle, cfg config.Config) (Store, error) {
				store, err := OpenSQLiteStore(cfg.SessionDB, cfg.SessionKey)
				if err != nil {
					return nil, err
				}
				lc.Append(fx.Hook{
					OnStop: func(_ context.Context) error {
						return store.Close()
					},
				})
				return store, nil
			},
			func(client *xts.Client, store Store, logger *zap.Logger) *Manager {
				return NewManager(client, store, logger)
			},
			func(m *Manager) Provider { return m },
		),
		fx.Invoke(func(lc fx.Lifecycle, m *Manager) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					return m.Restore()
				},
			})
		}),
	)
}
