package postgres

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"

	"github.com/league-agents/core/internal/domain/match"
)

type outboxModel struct {
	MatchID string `db:"match_id"`
	Payload []byte `db:"payload"`
}

// ResultOutbox is the postgres-backed repository.ResultOutbox, used by
// a Referee that exhausted its report-retry budget to persist a result
// for later replay (spec.md §4.5 "Reporting phase").
type ResultOutbox struct {
	db *sqlx.DB
}

func NewResultOutbox(db *sqlx.DB) *ResultOutbox {
	return &ResultOutbox{db: db}
}

func (o *ResultOutbox) Enqueue(ctx context.Context, result match.Result) error {
	payload, err := sonic.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal outbox entry for %s: %w", result.MatchID, err)
	}

	const query = `INSERT INTO result_outbox (match_id, payload) VALUES ($1, $2)`
	if _, err := o.db.ExecContext(ctx, query, result.MatchID, payload); err != nil {
		return fmt.Errorf("enqueue outbox entry for %s: %w", result.MatchID, err)
	}
	return nil
}

func (o *ResultOutbox) List(ctx context.Context) ([]match.Result, error) {
	const query = `SELECT match_id, payload FROM result_outbox ORDER BY id`

	var rows []outboxModel
	if err := o.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list outbox: %w", err)
	}

	out := make([]match.Result, 0, len(rows))
	for _, row := range rows {
		var result match.Result
		if err := sonic.Unmarshal(row.Payload, &result); err != nil {
			return nil, fmt.Errorf("unmarshal outbox entry for %s: %w", row.MatchID, err)
		}
		out = append(out, result)
	}
	return out, nil
}
