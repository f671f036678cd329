package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/solvehelper/internal/api"
	"github.com/felixgeelhaar/solvehelper/internal/config"
	"github.com/felixgeelhaar/solvehelper/internal/daemon"
	mcpserver "github.com/felixgeelhaar/solvehelper/internal/mcp"
	"github.com/felixgeelhaar/solvehelper/internal/storage/postgres"
)

// cmdMCP serves the MCP tools on stdio, acting as the configured user
func cmdMCP() error {
	local, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if local.MCP.UserEmail == "" {
		return errors.New("mcp.user_email is not set (run 'solvehelper login' or edit config.yaml)")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load server config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := daemon.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer res.Close()

	user, err := postgres.NewUserStore(res.DB).GetByEmail(ctx, local.MCP.UserEmail)
	if err != nil {
		return fmt.Errorf("find user %s: %w", local.MCP.UserEmail, err)
	}

	app := api.NewApp(res.Infra)
	srv := mcpserver.NewServer(mcpserver.Config{
		UserID:    user.ID,
		Problems:  app.Catalog,
		Hints:     app.Hints,
		Recommend: app.Recommend,
		Practice:  app.Practice,
	})
	return srv.ServeStdio(ctx)
}
