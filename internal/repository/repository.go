// Package repository declares the durability-only persistence
// interfaces of spec.md §6.6: three append-only tables, two
// keyed-update tables, and a Referee's at-least-once reporting outbox.
// None of these are consulted for correctness by the core — an
// in-memory implementation (package memory) is sufficient for tests,
// and a postgres-backed implementation (package postgres) is provided
// for real deployments.
package repository

import (
	"context"

	"github.com/league-agents/core/internal/domain/match"
	"github.com/league-agents/core/internal/domain/registry"
)

// Players is append-only durability for registered PlayerRecords.
type Players interface {
	Put(ctx context.Context, rec registry.PlayerRecord) error
	Get(ctx context.Context, playerID string) (registry.PlayerRecord, bool, error)
	List(ctx context.Context) ([]registry.PlayerRecord, error)
}

// Referees is append-only durability for registered RefereeRecords.
type Referees interface {
	Put(ctx context.Context, rec registry.RefereeRecord) error
	Get(ctx context.Context, refereeID string) (registry.RefereeRecord, bool, error)
	List(ctx context.Context) ([]registry.RefereeRecord, error)
}

// Matches is keyed-update durability for Match status, tracking the
// assigned referee and current state as a Match progresses.
type Matches interface {
	Put(ctx context.Context, matchID, roundID, assignedReferee string, state match.State) error
	Get(ctx context.Context, matchID string) (roundID, assignedReferee string, state match.State, found bool, err error)
}

// Results is append-only durability for recorded match_result.report
// payloads, keyed by MatchID for the idempotence check.
type Results interface {
	Put(ctx context.Context, result match.Result) error
	Get(ctx context.Context, matchID string) (match.Result, bool, error)
}

// Standings is keyed-update durability for the most recently computed
// standings snapshot of one league.
type Standings interface {
	Put(ctx context.Context, leagueID string, computedAtRoundID string, rows []StandingSnapshotRow) error
	Get(ctx context.Context, leagueID string) ([]StandingSnapshotRow, string, bool, error)
}

// StandingSnapshotRow is one durable standings row.
type StandingSnapshotRow struct {
	PlayerID string
	Wins     int
	Losses   int
	Draws    int
	Points   int
	Rank     int
}

// ResultOutbox holds match_result.report payloads a Referee could not
// deliver to the League Manager after exhausting its retry budget
// (spec.md §4.5 "Reporting phase"). An external process may later
// replay these.
type ResultOutbox interface {
	Enqueue(ctx context.Context, result match.Result) error
	List(ctx context.Context) ([]match.Result, error)
}
