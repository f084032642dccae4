package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/league-agents/core/internal/app"
	"github.com/league-agents/core/internal/config"
	"github.com/league-agents/core/internal/platform/logging"
)

func main() {
	cfg, err := config.Load("referee")
	if err != nil {
		panic(err)
	}
	bootLogger := logging.NewJSON(cfg.LogLevel, cfg.ServiceName)
	ctx := context.Background()

	role := app.RefereeRoleConfig{
		LeagueID:              getEnv("LEAGUE_ID", "league-1"),
		SelfEndpoint:          getEnv("REFEREE_ENDPOINT", "http://localhost:8100"),
		DisplayName:           getEnv("REFEREE_DISPLAY_NAME", "referee"),
		Version:               cfg.ServiceVersion,
		SupportedGameTypes:    splitCSV(getEnv("REFEREE_SUPPORTED_GAME_TYPES", "parity")),
		LeagueManagerEndpoint: getEnv("LEAGUE_MANAGER_ENDPOINT", "http://localhost:8000"),
		MaxConcurrentMatches:  getEnvAsInt("REFEREE_MAX_CONCURRENT_MATCHES", 4),
	}

	refereeApp, err := app.NewRefereeApp(cfg, role)
	if err != nil {
		bootLogger.ErrorContext(ctx, "build referee", zap.Error(err))
		os.Exit(1)
	}
	logger := refereeApp.Shared.Logger

	go func() {
		logger.InfoContext(ctx, "referee listening", zap.String("addr", cfg.ListenAddr))
		if err := refereeApp.Server.ListenAndServe(cfg.ListenAddr); err != nil {
			logger.ErrorContext(ctx, "referee server failed", zap.Error(err))
			os.Exit(1)
		}
	}()

	if err := refereeApp.Referee.Register(ctx); err != nil {
		logger.ErrorContext(ctx, "referee registration failed", zap.Error(err))
		os.Exit(1)
	}

	stopCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-stopCtx.Done()

	refereeApp.Referee.Close()
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := refereeApp.Shutdown(shutdownCtx); err != nil {
		logger.ErrorContext(ctx, "graceful shutdown failed", zap.Error(err))
		os.Exit(1)
	}
	logger.InfoContext(ctx, "referee stopped")
}

func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getEnvAsInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
