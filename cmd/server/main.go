package main

import (
	"flag"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"profiletk/internal/config"
	"profiletk/internal/logging"
	"profiletk/internal/toolkit"
)

func main() {
	configPath := flag.String("config", "", "Path to the configuration file (default $PROFILETK_CONFIG or ~/.profiletk/config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.New(logging.DefaultConfig()).Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Stdout carries the MCP stdio transport, so logs go to stderr.
	logger := logging.NewWithComponent(logging.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
		Output: os.Stderr,
	}, "mcp_server")

	opts, err := toolkit.OptionsFromConfig(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid session options")
	}
	session := toolkit.New(opts)

	// Create MCP server
	s := server.NewMCPServer(
		"profiletk",
		"1.0.0",
		server.WithLogging(),
	)
	registerTools(s, &tools{
		session:  session,
		hotspots: cfg.Hotspots.Count,
		logger:   logger,
	})

	logger.Info().Str("session_id", session.ID()).Msg("Serving profiletk tools over stdio")

	// Start the server
	if err := server.ServeStdio(s); err != nil {
		logger.Fatal().Err(err).Msg("Server error")
	}
}
