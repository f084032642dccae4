// Package app wires one agent's config, logger, telemetry, transport,
// persistence, and domain objects into a runnable instance, the way
// the teacher's internal/app/app.go wires its HTTP handler.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/league-agents/core/internal/config"
	"github.com/league-agents/core/internal/observability"
	"github.com/league-agents/core/internal/platform/logging"
	"github.com/league-agents/core/internal/platform/resilience"
	"github.com/league-agents/core/internal/platform/telemetry"
	"github.com/league-agents/core/internal/repository"
	"github.com/league-agents/core/internal/repository/memory"
	"github.com/league-agents/core/internal/repository/postgres"
	"github.com/league-agents/core/internal/transport"
)

// Shared is the ambient stack every agent kind builds identically:
// logger, telemetry shutdown hooks, event sink, and a peer transport
// client configured from the circuit-breaker env vars.
type Shared struct {
	Logger         *logging.Logger
	Sink           observability.Sink
	Client         *transport.Client
	Server         *transport.Server
	ShutdownTelemetry func(context.Context) error
}

// NewShared builds the ambient stack and a bare JSON-RPC server with no
// tools registered yet; each agent constructor registers its own tools
// against Server before ListenAndServe is called.
func NewShared(cfg config.Config) (*Shared, error) {
	logger := logging.NewJSON(cfg.LogLevel, cfg.ServiceName)
	sink := observability.NewLoggingSink(logger)

	shutdownUptrace, err := telemetry.InitUptrace(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init uptrace: %w", err)
	}
	shutdownPyroscope, err := telemetry.InitPyroscope(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init pyroscope: %w", err)
	}

	client := transport.NewClient(transport.ClientConfig{
		DialTimeout:     cfg.DialTimeout,
		IdleConnTimeout: cfg.IdlePoolTimeout,
		Logger:          logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.CircuitEnabled,
			FailureThreshold: cfg.CircuitFailureCount,
			OpenTimeout:      cfg.CircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.CircuitHalfOpenMax,
		},
	})

	server := transport.NewServer(logger, nil)

	return &Shared{
		Logger: logger,
		Sink:   sink,
		Client: client,
		Server: server,
		ShutdownTelemetry: func(ctx context.Context) error {
			if err := shutdownPyroscope(); err != nil {
				return err
			}
			return shutdownUptrace(ctx)
		},
	}, nil
}

// leagueManagerRepos is the persistence bundle only the League Manager
// needs (the other two roles have no durable state of their own).
type leagueManagerRepos struct {
	players   repository.Players
	referees  repository.Referees
	matches   repository.Matches
	results   repository.Results
	standings repository.Standings
	outbox    repository.ResultOutbox
	closeDB   func() error
}

// newLeagueManagerRepos opens a postgres connection when DATABASE_URL is
// set, following the teacher's db-first-then-cache-wrap pattern; absent
// a DSN it falls back to the in-memory implementation so a single
// process can demo the whole protocol with no external dependency.
func newLeagueManagerRepos(dbURL string) (leagueManagerRepos, error) {
	if strings.TrimSpace(dbURL) == "" {
		return leagueManagerRepos{
			players:   memory.NewPlayers(),
			referees:  memory.NewReferees(),
			matches:   memory.NewMatches(),
			results:   memory.NewResults(),
			standings: memory.NewStandings(),
			outbox:    memory.NewResultOutbox(),
			closeDB:   func() error { return nil },
		}, nil
	}

	db, err := sqlx.Open("postgres", dbURL)
	if err != nil {
		return leagueManagerRepos{}, fmt.Errorf("open postgres connection: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return leagueManagerRepos{}, fmt.Errorf("ping postgres: %w", err)
	}

	return leagueManagerRepos{
		players:   postgres.NewPlayers(db),
		referees:  postgres.NewReferees(db),
		matches:   postgres.NewMatches(db),
		results:   postgres.NewResults(db),
		standings: postgres.NewStandings(db),
		outbox:    postgres.NewResultOutbox(db),
		closeDB:   db.Close,
	}, nil
}
