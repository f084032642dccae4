package app

import (
	"context"
	"fmt"

	"github.com/league-agents/core/internal/agent/referee"
	"github.com/league-agents/core/internal/config"
	"github.com/league-agents/core/internal/domain/gamerules"
	"github.com/league-agents/core/internal/repository/memory"
	"github.com/league-agents/core/internal/transport"
)

// RefereeApp bundles the running Referee agent with its transport
// server.
type RefereeApp struct {
	Referee *referee.Referee
	Server  *transport.Server
	Shared  *Shared
}

// RefereeRoleConfig is the Referee-specific settings not already
// covered by config.Config.
type RefereeRoleConfig struct {
	LeagueID              string
	SelfEndpoint          string
	DisplayName           string
	Version               string
	SupportedGameTypes    []string
	LeagueManagerEndpoint string
	MaxConcurrentMatches  int
}

// NewRefereeApp wires one Referee process end to end. Match-result
// reporting that the League Manager cannot be reached for falls back to
// an in-memory outbox for later replay — a Referee carries no other
// durable state.
func NewRefereeApp(cfg config.Config, role RefereeRoleConfig) (*RefereeApp, error) {
	shared, err := NewShared(cfg)
	if err != nil {
		return nil, err
	}

	rules := map[string]gamerules.GameRules{
		"parity": gamerules.NewParityGame(),
	}

	ref, err := referee.New(referee.Config{
		LeagueID:              role.LeagueID,
		SelfEndpoint:          role.SelfEndpoint,
		DisplayName:           role.DisplayName,
		Version:               role.Version,
		SupportedGameTypes:    role.SupportedGameTypes,
		LeagueManagerEndpoint: role.LeagueManagerEndpoint,
		MaxConcurrentMatches:  role.MaxConcurrentMatches,
		RegisterTimeout:       cfg.AssignDeadline,
	}, shared.Client, shared.Server, rules, shared.Logger, shared.Sink, memory.NewResultOutbox())
	if err != nil {
		return nil, fmt.Errorf("build referee: %w", err)
	}
	shared.Server.SetAuthenticator(ref.Authenticate)

	return &RefereeApp{Referee: ref, Server: shared.Server, Shared: shared}, nil
}

// Shutdown stops the JSON-RPC server and telemetry exporters.
func (a *RefereeApp) Shutdown(ctx context.Context) error {
	if err := a.Server.Shutdown(); err != nil {
		return fmt.Errorf("shutdown referee server: %w", err)
	}
	return a.Shared.ShutdownTelemetry(ctx)
}
