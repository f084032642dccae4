package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/league-agents/core/internal/domain/registry"
)

type refereeModel struct {
	RefereeID     string         `db:"referee_id"`
	Endpoint      string         `db:"endpoint"`
	GameTypes     pq.StringArray `db:"game_types"`
	MaxConcurrent int            `db:"max_concurrent"`
	AuthToken     string         `db:"auth_token"`
	CurrentLoad   int            `db:"current_load"`
}

// Referees is the postgres-backed repository.Referees.
type Referees struct {
	db *sqlx.DB
}

func NewReferees(db *sqlx.DB) *Referees {
	return &Referees{db: db}
}

func (r *Referees) Put(ctx context.Context, rec registry.RefereeRecord) error {
	const query = `
		INSERT INTO referees (referee_id, endpoint, game_types, max_concurrent, auth_token, current_load)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (referee_id) DO UPDATE SET
			endpoint = EXCLUDED.endpoint,
			game_types = EXCLUDED.game_types,
			max_concurrent = EXCLUDED.max_concurrent,
			auth_token = EXCLUDED.auth_token,
			current_load = EXCLUDED.current_load`

	_, err := r.db.ExecContext(ctx, query,
		rec.RefereeID, rec.Endpoint, pq.StringArray(rec.SupportedGameTypes),
		rec.MaxConcurrentMatches, rec.AuthToken, rec.CurrentLoad)
	if err != nil {
		return fmt.Errorf("upsert referee %s: %w", rec.RefereeID, err)
	}
	return nil
}

func (r *Referees) Get(ctx context.Context, refereeID string) (registry.RefereeRecord, bool, error) {
	const query = `SELECT * FROM referees WHERE referee_id = $1`

	var row refereeModel
	if err := r.db.GetContext(ctx, &row, query, refereeID); err != nil {
		if isNotFound(err) {
			return registry.RefereeRecord{}, false, nil
		}
		return registry.RefereeRecord{}, false, fmt.Errorf("get referee %s: %w", refereeID, err)
	}
	return refereeFromModel(row), true, nil
}

func (r *Referees) List(ctx context.Context) ([]registry.RefereeRecord, error) {
	const query = `SELECT * FROM referees ORDER BY referee_id`

	var rows []refereeModel
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list referees: %w", err)
	}

	out := make([]registry.RefereeRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, refereeFromModel(row))
	}
	return out, nil
}

func refereeFromModel(row refereeModel) registry.RefereeRecord {
	return registry.RefereeRecord{
		RefereeID:            row.RefereeID,
		Endpoint:             row.Endpoint,
		SupportedGameTypes:   []string(row.GameTypes),
		MaxConcurrentMatches: row.MaxConcurrent,
		AuthToken:            row.AuthToken,
		CurrentLoad:          row.CurrentLoad,
	}
}
