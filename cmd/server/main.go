package main

import (
	"github.com/otienoanyango/hansard-tales-sub004/internal/config"
	"github.com/otienoanyango/hansard-tales-sub004/internal/server"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/logger"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		consoleLogger := console.NewConsoleBackend(console.ConsoleBackendParams{})
		logger.Init(consoleLogger)
		logger.Fatal("Failed to load configuration", "err", err)
	}

	consoleLogger := console.NewConsoleBackend(console.ConsoleBackendParams{
		Debug: cfg.Debug,
	})
	logger.Init(consoleLogger)

	server.Init(cfg)
}
