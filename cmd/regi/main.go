package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/regi/internal/migration"
	"github.com/smallbiznis/regi/internal/observability"
	"github.com/smallbiznis/regi/internal/server"
	"github.com/smallbiznis/regi/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
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
