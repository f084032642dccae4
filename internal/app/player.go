package app

import (
	"context"
	"fmt"

	"github.com/league-agents/core/internal/agent/player"
	"github.com/league-agents/core/internal/config"
	"github.com/league-agents/core/internal/domain/gamerules"
	"github.com/league-agents/core/internal/domain/strategy"
	"github.com/league-agents/core/internal/transport"
)

// PlayerApp bundles the running Player agent with its transport server.
type PlayerApp struct {
	Player *player.Player
	Server *transport.Server
	Shared *Shared
}

// PlayerRoleConfig is the Player-specific settings not already covered
// by config.Config.
type PlayerRoleConfig struct {
	LeagueID              string
	SelfEndpoint          string
	DisplayName           string
	Version               string
	SupportedGameTypes    []string
	LeagueManagerEndpoint string
}

// NewPlayerApp wires one Player process end to end, using the mandatory
// reference strategy and game rules (spec.md §6.4-§6.5's default
// collaborators) — a production deployment substitutes its own
// Strategy/GameRules implementations for the same interfaces.
func NewPlayerApp(cfg config.Config, role PlayerRoleConfig) (*PlayerApp, error) {
	shared, err := NewShared(cfg)
	if err != nil {
		return nil, err
	}

	rules := map[string]gamerules.GameRules{
		"parity": gamerules.NewParityGame(),
	}

	p := player.New(player.Config{
		LeagueID:              role.LeagueID,
		SelfEndpoint:          role.SelfEndpoint,
		DisplayName:           role.DisplayName,
		Version:               role.Version,
		SupportedGameTypes:    role.SupportedGameTypes,
		LeagueManagerEndpoint: role.LeagueManagerEndpoint,
		RegisterTimeout:       cfg.AssignDeadline,
	}, shared.Client, shared.Server, strategy.NewUniformRandom(), rules, shared.Logger, shared.Sink)
	shared.Server.SetAuthenticator(p.Authenticate)

	return &PlayerApp{Player: p, Server: shared.Server, Shared: shared}, nil
}

// Shutdown stops the JSON-RPC server and telemetry exporters.
func (a *PlayerApp) Shutdown(ctx context.Context) error {
	if err := a.Server.Shutdown(); err != nil {
		return fmt.Errorf("shutdown player server: %w", err)
	}
	return a.Shared.ShutdownTelemetry(ctx)
}
