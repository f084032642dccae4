package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/league-agents/core/internal/app"
	"github.com/league-agents/core/internal/config"
	"github.com/league-agents/core/internal/platform/logging"
)

func main() {
	cfg, err := config.Load("player")
	if err != nil {
		panic(err)
	}
	bootLogger := logging.NewJSON(cfg.LogLevel, cfg.ServiceName)
	ctx := context.Background()

	role := app.PlayerRoleConfig{
		LeagueID:              getEnv("LEAGUE_ID", "league-1"),
		SelfEndpoint:          getEnv("PLAYER_ENDPOINT", "http://localhost:8200"),
		DisplayName:           getEnv("PLAYER_DISPLAY_NAME", "player"),
		Version:               cfg.ServiceVersion,
		SupportedGameTypes:    splitCSV(getEnv("PLAYER_SUPPORTED_GAME_TYPES", "parity")),
		LeagueManagerEndpoint: getEnv("LEAGUE_MANAGER_ENDPOINT", "http://localhost:8000"),
	}

	playerApp, err := app.NewPlayerApp(cfg, role)
	if err != nil {
		bootLogger.ErrorContext(ctx, "build player", zap.Error(err))
		os.Exit(1)
	}
	logger := playerApp.Shared.Logger

	go func() {
		logger.InfoContext(ctx, "player listening", zap.String("addr", cfg.ListenAddr))
		if err := playerApp.Server.ListenAndServe(cfg.ListenAddr); err != nil {
			logger.ErrorContext(ctx, "player server failed", zap.Error(err))
			os.Exit(1)
		}
	}()

	if err := playerApp.Player.Register(ctx); err != nil {
		logger.ErrorContext(ctx, "player registration failed", zap.Error(err))
		os.Exit(1)
	}

	stopCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-stopCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := playerApp.Shutdown(shutdownCtx); err != nil {
		logger.ErrorContext(ctx, "graceful shutdown failed", zap.Error(err))
		os.Exit(1)
	}
	logger.InfoContext(ctx, "player stopped")
}

func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
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
