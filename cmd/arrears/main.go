package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/arrears/internal/clock"
	"github.com/smallbiznis/arrears/internal/config"
	"github.com/smallbiznis/arrears/internal/ingest"
	"github.com/smallbiznis/arrears/internal/migration"
	"github.com/smallbiznis/arrears/internal/observability"
	"github.com/smallbiznis/arrears/internal/resolver"
	"github.com/smallbiznis/arrears/internal/rollup"
	"github.com/smallbiznis/arrears/internal/server"
	"github.com/smallbiznis/arrears/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional domains
		ingest.Module,
		resolver.Module,
		rollup.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
