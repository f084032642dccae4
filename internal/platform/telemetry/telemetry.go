// Package telemetry bootstraps the optional Uptrace trace exporter and
// Pyroscope continuous profiler. Both are no-ops unless explicitly
// enabled, so every agent can call these unconditionally at startup.
package telemetry

import (
	"context"

	"github.com/grafana/pyroscope-go"
	"github.com/uptrace/uptrace-go/uptrace"
	"go.uber.org/zap"

	"github.com/league-agents/core/internal/config"
	"github.com/league-agents/core/internal/platform/logging"
)

// InitUptrace configures the global OpenTelemetry tracer provider to
// export spans to Uptrace. When disabled or DSN-less it returns a no-op
// shutdown func so callers never need to branch on whether it ran.
func InitUptrace(cfg config.Config, logger *logging.Logger) (func(context.Context) error, error) {
	if logger == nil {
		logger = logging.Default()
	}
	noop := func(context.Context) error { return nil }

	if !cfg.UptraceEnabled {
		logger.Zap().Info("uptrace disabled", zap.String("reason", "UPTRACE_ENABLED=false"))
		return noop, nil
	}
	if cfg.UptraceDSN == "" {
		logger.Zap().Info("uptrace disabled", zap.String("reason", "UPTRACE_DSN empty"))
		return noop, nil
	}

	uptrace.ConfigureOpentelemetry(
		uptrace.WithDSN(cfg.UptraceDSN),
		uptrace.WithServiceName(cfg.ServiceName),
		uptrace.WithServiceVersion(cfg.ServiceVersion),
		uptrace.WithDeploymentEnvironment(cfg.AppEnv),
	)

	logger.Zap().Info("uptrace enabled",
		zap.String("service_name", cfg.ServiceName),
		zap.String("service_version", cfg.ServiceVersion),
		zap.String("environment", cfg.AppEnv),
	)

	return func(ctx context.Context) error {
		return uptrace.Shutdown(ctx)
	}, nil
}

// InitPyroscope starts continuous profiling when enabled and returns a
// stop func; a no-op stop func otherwise.
func InitPyroscope(cfg config.Config, logger *logging.Logger) (func() error, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if !cfg.PyroscopeEnabled {
		logger.Zap().Info("pyroscope disabled", zap.String("reason", "PYROSCOPE_ENABLED=false"))
		return func() error { return nil }, nil
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.PyroscopeAppName,
		ServerAddress:   cfg.PyroscopeServerAddress,
		AuthToken:       cfg.PyroscopeAuthToken,
		UploadRate:      cfg.PyroscopeUploadRate,
		Tags: map[string]string{
			"env":     cfg.AppEnv,
			"service": cfg.ServiceName,
		},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
			pyroscope.ProfileMutexCount,
			pyroscope.ProfileMutexDuration,
			pyroscope.ProfileBlockCount,
			pyroscope.ProfileBlockDuration,
		},
	})
	if err != nil {
		return nil, err
	}

	logger.Zap().Info("pyroscope enabled",
		zap.String("server_address", cfg.PyroscopeServerAddress),
		zap.String("application", cfg.PyroscopeAppName),
	)

	return profiler.Stop, nil
}
