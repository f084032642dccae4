package postgres

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"

	"github.com/league-agents/core/internal/repository"
)

type standingsModel struct {
	LeagueID string `db:"league_id"`
	RoundID  string `db:"round_id"`
	Rows     []byte `db:"rows"`
}

// Standings is the postgres-backed repository.Standings.
type Standings struct {
	db *sqlx.DB
}

func NewStandings(db *sqlx.DB) *Standings {
	return &Standings{db: db}
}

func (s *Standings) Put(ctx context.Context, leagueID string, computedAtRoundID string, rows []repository.StandingSnapshotRow) error {
	encoded, err := sonic.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshal standings snapshot for %s: %w", leagueID, err)
	}

	const query = `
		INSERT INTO standings_snapshots (league_id, round_id, rows)
		VALUES ($1, $2, $3)
		ON CONFLICT (league_id) DO UPDATE SET
			round_id = EXCLUDED.round_id,
			rows = EXCLUDED.rows`

	if _, err := s.db.ExecContext(ctx, query, leagueID, computedAtRoundID, encoded); err != nil {
		return fmt.Errorf("upsert standings snapshot for %s: %w", leagueID, err)
	}
	return nil
}

func (s *Standings) Get(ctx context.Context, leagueID string) ([]repository.StandingSnapshotRow, string, bool, error) {
	const query = `SELECT * FROM standings_snapshots WHERE league_id = $1`

	var row standingsModel
	if err := s.db.GetContext(ctx, &row, query, leagueID); err != nil {
		if isNotFound(err) {
			return nil, "", false, nil
		}
		return nil, "", false, fmt.Errorf("get standings snapshot for %s: %w", leagueID, err)
	}

	var rows []repository.StandingSnapshotRow
	if err := sonic.Unmarshal(row.Rows, &rows); err != nil {
		return nil, "", false, fmt.Errorf("unmarshal standings snapshot for %s: %w", leagueID, err)
	}
	return rows, row.RoundID, true, nil
}
