package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/league-agents/core/internal/domain/match"
)

type matchModel struct {
	MatchID         string `db:"match_id"`
	RoundID         string `db:"round_id"`
	AssignedReferee string `db:"assigned_referee"`
	State           string `db:"state"`
}

// Matches is the postgres-backed repository.Matches.
type Matches struct {
	db *sqlx.DB
}

func NewMatches(db *sqlx.DB) *Matches {
	return &Matches{db: db}
}

func (m *Matches) Put(ctx context.Context, matchID, roundID, assignedReferee string, state match.State) error {
	const query = `
		INSERT INTO matches (match_id, round_id, assigned_referee, state)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (match_id) DO UPDATE SET
			round_id = EXCLUDED.round_id,
			assigned_referee = EXCLUDED.assigned_referee,
			state = EXCLUDED.state`

	if _, err := m.db.ExecContext(ctx, query, matchID, roundID, assignedReferee, string(state)); err != nil {
		return fmt.Errorf("upsert match %s: %w", matchID, err)
	}
	return nil
}

func (m *Matches) Get(ctx context.Context, matchID string) (string, string, match.State, bool, error) {
	const query = `SELECT * FROM matches WHERE match_id = $1`

	var row matchModel
	if err := m.db.GetContext(ctx, &row, query, matchID); err != nil {
		if isNotFound(err) {
			return "", "", "", false, nil
		}
		return "", "", "", false, fmt.Errorf("get match %s: %w", matchID, err)
	}
	return row.RoundID, row.AssignedReferee, match.State(row.State), true, nil
}
