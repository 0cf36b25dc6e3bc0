// Package server provides the public entry point for initializing the
// KPI report service.
//
// Usage:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(":8000", srv.Handler)
//
// The same Server also backs offline generation through srv.Generator.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/agentoven/kpi-report/internal/api"
	"github.com/agentoven/kpi-report/internal/api/handlers"
	"github.com/agentoven/kpi-report/internal/config"
	"github.com/agentoven/kpi-report/internal/executor"
	"github.com/agentoven/kpi-report/internal/report"
	modelrouter "github.com/agentoven/kpi-report/internal/router"
	"github.com/agentoven/kpi-report/internal/telemetry"

	"github.com/rs/zerolog/log"
)

// Server holds the initialized KPI report service.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Generator runs report conversations without going through HTTP.
	Generator *report.Generator

	// Config is the server configuration.
	Config *config.Config

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// New loads configuration from the environment and returns a ready Server.
func New(ctx context.Context) (*Server, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(ctx, cfg)
}

// NewWithConfig initializes the service with an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	shutdown, err := telemetry.Init(ctx, cfg.Telemetry, cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	mr := modelrouter.NewModelRouter(cfg.LLM)
	log.Info().
		Str("provider", cfg.LLM.Provider).
		Str("model", cfg.LLM.Model).
		Msg("Model router initialized")

	exec := executor.NewExecutor(mr,
		executor.WithMaxTurns(cfg.Report.MaxTurns),
		executor.WithTerminationToken(report.TerminationToken),
	)
	gen := report.NewGenerator(exec)
	log.Info().Int("max_turns", exec.MaxTurns()).Msg("Report executor initialized")

	h := handlers.New(gen, cfg.Version)
	h.MaxBodyBytes = cfg.MaxBodyBytes
	router := api.NewRouter(cfg, h)

	return &Server{
		Handler:      router,
		Generator:    gen,
		Config:       cfg,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}
