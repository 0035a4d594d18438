package main

import (
	"github.com/blessingsjourney/payhook/internal/clock"
	"github.com/blessingsjourney/payhook/internal/observability"
	"github.com/blessingsjourney/payhook/internal/server"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		observability.Module,
		clock.Module,
		fx.Provide(RegisterSnowflake),
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
