package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/LionCityGaming/vaultwarden-proxy/internal/adapters/cache"
	"github.com/LionCityGaming/vaultwarden-proxy/internal/adapters/statscache"
	"github.com/LionCityGaming/vaultwarden-proxy/internal/adapters/userprovider"
	"github.com/LionCityGaming/vaultwarden-proxy/internal/config"
	"github.com/LionCityGaming/vaultwarden-proxy/internal/ports"
	"github.com/LionCityGaming/vaultwarden-proxy/internal/reporting"
	"github.com/LionCityGaming/vaultwarden-proxy/internal/telemetry"
)

func main() {
	instanceID := uuid.New().String()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("instanceID", instanceID)

	fail := func(msg string, args ...any) {
		logger.Error(msg, args...)
		os.Exit(1)
	}

	config, err := config.ConfigFromEnv()
	if err != nil {
		fail("Failed to load config", "error", err.Error())
	}
	logger.Info("Loaded config", "config", config.NonSensitiveString())

	ctx := context.Background()

	shutdownTelemetry, err := telemetry.SetupOTelSDK(ctx, "vaultwarden-proxy")
	if err != nil {
		fail("Failed to initialize telemetry", "error", err.Error())
	}
	defer func() {
		if err := shutdownTelemetry(ctx); err != nil {
			logger.Error("Failed to shut down telemetry", "error", err.Error())
		}
	}()

	httpClient := &http.Client{
		Timeout: 10 * time.Second,
	}
	vaultwardenAPI, err := userprovider.NewVaultwardenAPIOrMock(config, httpClient)
	if err != nil {
		fail("Failed to initialize Vaultwarden API", "error", err.Error())
	}
	logger.Info("Initialized Vaultwarden API")

	userProvider, err := userprovider.NewVaultwardenUserProvider(vaultwardenAPI)
	if err != nil {
		fail("Failed to initialize user provider", "error", err.Error())
	}

	statsCache, err := statscache.New(userProvider, config.CacheTimeout(), time.Now)
	if err != nil {
		fail("Failed to initialize stats cache", "error", err.Error())
	}

	diagnosticsCache := cache.NewTTLUpstreamResponseCache(config.CacheTimeout())

	sentryMiddleware, flush, err := reporting.NewSentryMiddlewareOrMock(config)
	if err != nil {
		fail("Failed to initialize Sentry", "error", err.Error())
	}
	defer flush()
	logger.Info("Initialized Sentry middleware")

	http.HandleFunc(
		"GET /health",
		ports.MakeHealthHandler(
			logger.With("port", "health"),
		),
	)

	http.HandleFunc(
		"GET /stats",
		ports.MakeGetStatsHandler(
			statsCache.GetStats,
			logger.With("port", "getstats"),
			sentryMiddleware,
		),
	)

	http.HandleFunc(
		"GET /diagnostics",
		ports.MakeGetDiagnosticsHandler(
			vaultwardenAPI.GetDiagnostics,
			diagnosticsCache,
			logger.With("port", "getdiagnostics"),
			sentryMiddleware,
		),
	)

	logger.Info("Init complete")
	err = http.ListenAndServe(fmt.Sprintf(":%s", config.Port()), nil)
	if errors.Is(err, http.ErrServerClosed) {
		logger.Info("Server shutdown")
	} else {
		fail("Server error", "error", err.Error())
	}
}
