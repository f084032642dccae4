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
	cfg, err := config.Load("league-manager")
	if err != nil {
		panic(err)
	}
	bootLogger := logging.NewJSON(cfg.LogLevel, cfg.ServiceName)
	ctx := context.Background()

	role := app.RoleConfig{
		LeagueID:                getEnv("LEAGUE_ID", "league-1"),
		SelfEndpoint:            getEnv("LEAGUE_MANAGER_ENDPOINT", "http://localhost:8000"),
		Version:                 cfg.ServiceVersion,
		GameType:                getEnv("LEAGUE_GAME_TYPE", "parity"),
		DatabaseURL:             strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RoundWatchdogMultiplier: getEnvAsInt("LEAGUE_ROUND_WATCHDOG_MULTIPLIER", 5),
	}

	leagueManagerApp, err := app.NewLeagueManagerApp(cfg, role)
	if err != nil {
		bootLogger.ErrorContext(ctx, "build league manager", zap.Error(err))
		os.Exit(1)
	}
	logger := leagueManagerApp.Shared.Logger

	go func() {
		logger.InfoContext(ctx, "league manager listening", zap.String("addr", cfg.ListenAddr))
		if err := leagueManagerApp.Server.ListenAndServe(cfg.ListenAddr); err != nil {
			logger.ErrorContext(ctx, "league manager server failed", zap.Error(err))
			os.Exit(1)
		}
	}()

	stopCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-stopCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := leagueManagerApp.Shutdown(shutdownCtx); err != nil {
		logger.ErrorContext(ctx, "graceful shutdown failed", zap.Error(err))
		os.Exit(1)
	}
	logger.InfoContext(ctx, "league manager stopped")
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
