// Package config loads runtime configuration for all three agent kinds
// from environment variables, following the teacher's
// getEnv/getEnvAsInt/parse-validate-return style.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

// Config covers every knob spec.md §6.3 names plus the ambient
// service/log/circuit-breaker/telemetry settings every agent carries
// regardless of role.
type Config struct {
	AppEnv         string
	ServiceName    string
	ServiceVersion string
	ListenAddr     string
	LogLevel       zapcore.Level

	// spec.md §6.3
	MinPlayers      int
	PointsWin       int
	PointsDraw      int
	BestOfK         int
	MoveDeadline    time.Duration
	AuthTokenBytes  int
	InviteDeadline  time.Duration
	AssignDeadline  time.Duration
	GameOverTimeout time.Duration
	ReportDeadline  time.Duration

	// transport / peer connection pool
	DialTimeout        time.Duration
	IdlePoolTimeout     time.Duration
	CircuitEnabled      bool
	CircuitFailureCount int
	CircuitOpenTimeout  time.Duration
	CircuitHalfOpenMax  int

	// ambient observability toggles
	UptraceEnabled  bool
	UptraceDSN      string
	PyroscopeEnabled       bool
	PyroscopeServerAddress string
	PyroscopeAppName       string
	PyroscopeAuthToken     string
	PyroscopeUploadRate    time.Duration
}

// Load reads the ambient + tournament-rule settings shared by every
// agent. Agent-specific fields (role, registration endpoints, capacity)
// are layered on top by each cmd/ main.
func Load(defaultServiceName string) (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	minPlayers, err := getEnvAsInt("LEAGUE_MIN_PLAYERS", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse LEAGUE_MIN_PLAYERS: %w", err)
	}
	if minPlayers < 2 {
		return Config{}, fmt.Errorf("LEAGUE_MIN_PLAYERS must be >= 2")
	}

	pointsWin, err := getEnvAsInt("LEAGUE_POINTS_WIN", 3)
	if err != nil {
		return Config{}, fmt.Errorf("parse LEAGUE_POINTS_WIN: %w", err)
	}
	pointsDraw, err := getEnvAsInt("LEAGUE_POINTS_DRAW", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse LEAGUE_POINTS_DRAW: %w", err)
	}

	bestOfK, err := getEnvAsInt("LEAGUE_BEST_OF_K", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse LEAGUE_BEST_OF_K: %w", err)
	}
	if bestOfK%2 == 0 || bestOfK < 1 {
		return Config{}, fmt.Errorf("LEAGUE_BEST_OF_K must be a positive odd integer, got %d", bestOfK)
	}

	moveDeadlineMs, err := getEnvAsInt("LEAGUE_MOVE_DEADLINE_MS", 30000)
	if err != nil {
		return Config{}, fmt.Errorf("parse LEAGUE_MOVE_DEADLINE_MS: %w", err)
	}

	authTokenBytes, err := getEnvAsInt("LEAGUE_AUTH_TOKEN_BYTES", 32)
	if err != nil {
		return Config{}, fmt.Errorf("parse LEAGUE_AUTH_TOKEN_BYTES: %w", err)
	}

	circuitEnabled, err := strconv.ParseBool(getEnv("PEER_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PEER_CIRCUIT_ENABLED: %w", err)
	}
	circuitFailureCount, err := getEnvAsInt("PEER_CIRCUIT_FAILURE_COUNT", 3)
	if err != nil {
		return Config{}, fmt.Errorf("parse PEER_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	circuitOpenTimeout, err := time.ParseDuration(getEnv("PEER_CIRCUIT_OPEN_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PEER_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	circuitHalfOpenMax, err := getEnvAsInt("PEER_CIRCUIT_HALF_OPEN_MAX_REQ", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse PEER_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}

	dialTimeout, err := time.ParseDuration(getEnv("PEER_DIAL_TIMEOUT", "5s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PEER_DIAL_TIMEOUT: %w", err)
	}
	idlePoolTimeout, err := time.ParseDuration(getEnv("PEER_IDLE_POOL_TIMEOUT", "90s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PEER_IDLE_POOL_TIMEOUT: %w", err)
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}

	serviceName := getEnv("APP_SERVICE_NAME", defaultServiceName)

	cfg := Config{
		AppEnv:              appEnv,
		ServiceName:         serviceName,
		ServiceVersion:      getEnv("APP_SERVICE_VERSION", "dev"),
		ListenAddr:          getEnv("APP_LISTEN_ADDR", ":8000"),
		LogLevel:            parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
		MinPlayers:          minPlayers,
		PointsWin:           pointsWin,
		PointsDraw:          pointsDraw,
		BestOfK:             bestOfK,
		MoveDeadline:        time.Duration(moveDeadlineMs) * time.Millisecond,
		AuthTokenBytes:      authTokenBytes,
		InviteDeadline:      5 * time.Second,
		AssignDeadline:      10 * time.Second,
		GameOverTimeout:     5 * time.Second,
		ReportDeadline:      10 * time.Second,
		DialTimeout:         dialTimeout,
		IdlePoolTimeout:     idlePoolTimeout,
		CircuitEnabled:      circuitEnabled,
		CircuitFailureCount: circuitFailureCount,
		CircuitOpenTimeout:  circuitOpenTimeout,
		CircuitHalfOpenMax:  circuitHalfOpenMax,
		UptraceEnabled:         uptraceEnabled,
		UptraceDSN:             uptraceDSN,
		PyroscopeEnabled:       pyroscopeEnabled,
		PyroscopeServerAddress: strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", "")),
		PyroscopeAppName:       strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", serviceName)),
		PyroscopeAuthToken:     strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeUploadRate:    pyroscopeUploadRate,
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return out, nil
}

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}

func parseLogLevel(v string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
