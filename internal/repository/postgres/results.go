package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"

	"github.com/league-agents/core/internal/domain/match"
)

type resultModel struct {
	MatchID       string         `db:"match_id"`
	RoundID       string         `db:"round_id"`
	WinnerID      sql.NullString `db:"winner_id"`
	ScoreA        int            `db:"score_a"`
	ScoreB        int            `db:"score_b"`
	History       []byte         `db:"history"`
	ForfeitReason string         `db:"forfeit_reason"`
}

// Results is the postgres-backed repository.Results.
type Results struct {
	db *sqlx.DB
}

func NewResults(db *sqlx.DB) *Results {
	return &Results{db: db}
}

func (r *Results) Put(ctx context.Context, result match.Result) error {
	history, err := sonic.Marshal(result.History)
	if err != nil {
		return fmt.Errorf("marshal result history for %s: %w", result.MatchID, err)
	}

	const query = `
		INSERT INTO results (match_id, round_id, winner_id, score_a, score_b, history, forfeit_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (match_id) DO NOTHING`

	_, err = r.db.ExecContext(ctx, query,
		result.MatchID, result.RoundID, nullableString(result.WinnerID), result.ScoreA, result.ScoreB,
		history, result.ForfeitReason)
	if err != nil {
		return fmt.Errorf("insert result %s: %w", result.MatchID, err)
	}
	return nil
}

func (r *Results) Get(ctx context.Context, matchID string) (match.Result, bool, error) {
	const query = `SELECT * FROM results WHERE match_id = $1`

	var row resultModel
	if err := r.db.GetContext(ctx, &row, query, matchID); err != nil {
		if isNotFound(err) {
			return match.Result{}, false, nil
		}
		return match.Result{}, false, fmt.Errorf("get result %s: %w", matchID, err)
	}

	var history []match.GameRoundRecord
	if err := sonic.Unmarshal(row.History, &history); err != nil {
		return match.Result{}, false, fmt.Errorf("unmarshal result history for %s: %w", matchID, err)
	}

	var winnerID *string
	if row.WinnerID.Valid {
		winnerID = &row.WinnerID.String
	}

	return match.Result{
		MatchID:       row.MatchID,
		RoundID:       row.RoundID,
		WinnerID:      winnerID,
		ScoreA:        row.ScoreA,
		ScoreB:        row.ScoreB,
		History:       history,
		ForfeitReason: row.ForfeitReason,
	}, true, nil
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
