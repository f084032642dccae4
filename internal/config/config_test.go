package config

import (
	"os"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	clearLeagueEnv(t)

	cfg, err := Load("leaguemanager")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AppEnv != EnvDev {
		t.Fatalf("expected default app env %q, got %q", EnvDev, cfg.AppEnv)
	}
	if cfg.MinPlayers != 2 {
		t.Fatalf("expected default min players 2, got %d", cfg.MinPlayers)
	}
	if cfg.BestOfK != 5 {
		t.Fatalf("expected default best-of-k 5, got %d", cfg.BestOfK)
	}
	if cfg.ServiceName != "leaguemanager" {
		t.Fatalf("expected fallback service name, got %q", cfg.ServiceName)
	}
}

func TestLoad_RejectsEvenBestOfK(t *testing.T) {
	clearLeagueEnv(t)
	t.Setenv("LEAGUE_BEST_OF_K", "4")

	if _, err := Load("referee"); err == nil {
		t.Fatalf("expected error for even LEAGUE_BEST_OF_K")
	}
}

func TestLoad_RejectsUnknownAppEnv(t *testing.T) {
	clearLeagueEnv(t)
	t.Setenv("APP_ENV", "production-ish")

	if _, err := Load("player"); err == nil {
		t.Fatalf("expected error for unrecognized APP_ENV")
	}
}

func clearLeagueEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "APP_SERVICE_NAME", "APP_SERVICE_VERSION", "APP_LISTEN_ADDR", "APP_LOG_LEVEL",
		"LEAGUE_MIN_PLAYERS", "LEAGUE_POINTS_WIN", "LEAGUE_POINTS_DRAW", "LEAGUE_BEST_OF_K",
		"LEAGUE_MOVE_DEADLINE_MS", "LEAGUE_AUTH_TOKEN_BYTES",
		"PEER_CIRCUIT_ENABLED", "PEER_CIRCUIT_FAILURE_COUNT", "PEER_CIRCUIT_OPEN_TIMEOUT", "PEER_CIRCUIT_HALF_OPEN_MAX_REQ",
		"PEER_DIAL_TIMEOUT", "PEER_IDLE_POOL_TIMEOUT",
		"UPTRACE_ENABLED", "UPTRACE_DSN",
		"PYROSCOPE_ENABLED", "PYROSCOPE_SERVER_ADDRESS", "PYROSCOPE_APP_NAME", "PYROSCOPE_AUTH_TOKEN", "PYROSCOPE_UPLOAD_RATE",
	} {
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unsetenv %s: %v", key, err)
		}
	}
}
