package xts

import "go.uber.org/fx"

func Module() fx.Option {
	return fx.Module(
		"xts",
		fx.Provide(NewClient),
	)
}
