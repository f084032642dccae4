package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/league-agents/core/internal/domain/registry"
)

type playerModel struct {
	PlayerID      string         `db:"player_id"`
	DisplayName   string         `db:"display_name"`
	Endpoint      string         `db:"endpoint"`
	GameTypes     pq.StringArray `db:"game_types"`
	AuthToken     string         `db:"auth_token"`
	Status        string         `db:"status"`
	Wins          int            `db:"wins"`
	Losses        int            `db:"losses"`
	Draws         int            `db:"draws"`
	Points        int            `db:"points"`
	MatchesPlayed int            `db:"matches_played"`
}

// Players is the postgres-backed repository.Players.
type Players struct {
	db *sqlx.DB
}

func NewPlayers(db *sqlx.DB) *Players {
	return &Players{db: db}
}

func (p *Players) Put(ctx context.Context, rec registry.PlayerRecord) error {
	const query = `
		INSERT INTO players (player_id, display_name, endpoint, game_types, auth_token, status, wins, losses, draws, points, matches_played)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (player_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			endpoint = EXCLUDED.endpoint,
			game_types = EXCLUDED.game_types,
			auth_token = EXCLUDED.auth_token,
			status = EXCLUDED.status,
			wins = EXCLUDED.wins,
			losses = EXCLUDED.losses,
			draws = EXCLUDED.draws,
			points = EXCLUDED.points,
			matches_played = EXCLUDED.matches_played`

	_, err := p.db.ExecContext(ctx, query,
		rec.PlayerID, rec.DisplayName, rec.Endpoint, pq.StringArray(rec.SupportedGameTypes),
		rec.AuthToken, string(rec.Status), rec.Wins, rec.Losses, rec.Draws, rec.Points, rec.MatchesPlayed)
	if err != nil {
		return fmt.Errorf("upsert player %s: %w", rec.PlayerID, err)
	}
	return nil
}

func (p *Players) Get(ctx context.Context, playerID string) (registry.PlayerRecord, bool, error) {
	const query = `SELECT * FROM players WHERE player_id = $1`

	var row playerModel
	if err := p.db.GetContext(ctx, &row, query, playerID); err != nil {
		if isNotFound(err) {
			return registry.PlayerRecord{}, false, nil
		}
		return registry.PlayerRecord{}, false, fmt.Errorf("get player %s: %w", playerID, err)
	}
	return playerFromModel(row), true, nil
}

func (p *Players) List(ctx context.Context) ([]registry.PlayerRecord, error) {
	const query = `SELECT * FROM players ORDER BY player_id`

	var rows []playerModel
	if err := p.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}

	out := make([]registry.PlayerRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, playerFromModel(row))
	}
	return out, nil
}

func playerFromModel(row playerModel) registry.PlayerRecord {
	return registry.PlayerRecord{
		PlayerID:           row.PlayerID,
		DisplayName:        row.DisplayName,
		Endpoint:           row.Endpoint,
		SupportedGameTypes: []string(row.GameTypes),
		AuthToken:          row.AuthToken,
		Status:             registry.PlayerStatus(row.Status),
		Wins:               row.Wins,
		Losses:             row.Losses,
		Draws:              row.Draws,
		Points:             row.Points,
		MatchesPlayed:      row.MatchesPlayed,
	}
}
