package app

import (
	"context"
	"fmt"

	"github.com/league-agents/core/internal/agent/leaguemanager"
	"github.com/league-agents/core/internal/config"
	"github.com/league-agents/core/internal/domain/registry"
	"github.com/league-agents/core/internal/operator"
	"github.com/league-agents/core/internal/transport"
)

// LeagueManagerApp bundles the running agent with its transport server
// and any persistence handles that need a clean shutdown.
type LeagueManagerApp struct {
	Manager *leaguemanager.LeagueManager
	Channel operator.Channel
	Server  *transport.Server
	Shared  *Shared
	closeDB func() error
}

// RoleConfig is the League-Manager-specific settings not already
// covered by config.Config (tournament identity and self-address).
type RoleConfig struct {
	LeagueID                string
	SelfEndpoint            string
	Version                 string
	GameType                string
	DatabaseURL             string
	RoundWatchdogMultiplier int
}

// NewLeagueManagerApp wires one League Manager process end to end.
func NewLeagueManagerApp(cfg config.Config, role RoleConfig) (*LeagueManagerApp, error) {
	shared, err := NewShared(cfg)
	if err != nil {
		return nil, err
	}

	repos, err := newLeagueManagerRepos(role.DatabaseURL)
	if err != nil {
		return nil, err
	}

	directory := registry.NewDirectory()
	manager := leaguemanager.New(leaguemanager.Config{
		LeagueID:                role.LeagueID,
		SelfEndpoint:            role.SelfEndpoint,
		Version:                 role.Version,
		GameType:                role.GameType,
		MinPlayers:              cfg.MinPlayers,
		BestOfK:                 cfg.BestOfK,
		PointsWin:               cfg.PointsWin,
		PointsDraw:              cfg.PointsDraw,
		AuthTokenBytes:          cfg.AuthTokenBytes,
		AssignDeadline:          cfg.AssignDeadline,
		RoundWatchdogMultiplier: role.RoundWatchdogMultiplier,
	}, shared.Client, shared.Server, directory,
		repos.players, repos.referees, repos.matches, repos.results, repos.standings,
		shared.Logger, shared.Sink)
	shared.Server.SetAuthenticator(manager.Authenticate)

	return &LeagueManagerApp{
		Manager: manager,
		Channel: operator.NewInProcess(manager),
		Server:  shared.Server,
		Shared:  shared,
		closeDB: repos.closeDB,
	}, nil
}

// Shutdown stops the dispatch loop, the JSON-RPC server, telemetry
// exporters, and (if open) the database connection, in that order.
func (a *LeagueManagerApp) Shutdown(ctx context.Context) error {
	if err := a.Manager.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown league manager: %w", err)
	}
	if err := a.Shared.ShutdownTelemetry(ctx); err != nil {
		return fmt.Errorf("shutdown telemetry: %w", err)
	}
	if a.closeDB != nil {
		if err := a.closeDB(); err != nil {
			return fmt.Errorf("close database: %w", err)
		}
	}
	return nil
}
