package ports

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/LionCityGaming/vaultwarden-proxy/internal/adapters/cache"
	"github.com/LionCityGaming/vaultwarden-proxy/internal/logging"
	"github.com/LionCityGaming/vaultwarden-proxy/internal/ratelimiting"
	"github.com/LionCityGaming/vaultwarden-proxy/internal/reporting"
)

type GetDiagnostics = func(ctx context.Context) ([]byte, int, error)

const diagnosticsCacheKey = "diagnostics"

// MakeGetDiagnosticsHandler makes a cached passthrough for the upstream
// diagnostics page. Responses are cached as-is, status code included, so
// a misbehaving upstream doesn't get hammered by repeated probes.
func MakeGetDiagnosticsHandler(
	getDiagnostics GetDiagnostics,
	upstreamCache cache.UpstreamResponseCache,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	ipLimiter, _ := ratelimiting.NewTokenBucketRateLimiter(
		ratelimiting.RefillPerSecond(2),
		ratelimiting.BurstSize(30),
	)
	ipRateLimiter := ratelimiting.NewRequestBasedRateLimiter(ipLimiter, ratelimiting.IPKeyFunc)

	onLimitExceeded := func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, "rate limit exceeded", http.StatusTooManyRequests)
	}

	middleware := ComposeMiddlewares(
		buildMetricsMiddleware(),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware("getdiagnostics"),
		NewRateLimitMiddleware(ipRateLimiter, onLimitExceeded),
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		response, err := cache.GetOrCreate(ctx, upstreamCache, diagnosticsCacheKey, func() (cache.UpstreamResponse, error) {
			data, statusCode, err := getDiagnostics(ctx)
			if err != nil {
				return cache.UpstreamResponse{}, err
			}
			return cache.UpstreamResponse{Data: data, StatusCode: statusCode}, nil
		})
		if err != nil {
			logger.Error("Error getting diagnostics", "error", err)
			statusCode := writeStatsErrorResponse(ctx, w, err)
			logger.Info("Returning response", "statusCode", statusCode, "reason", "error")
			return
		}

		logger.Info("Returning response", "statusCode", response.StatusCode, "reason", "success")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(response.StatusCode)
		w.Write(response.Data)
	}

	return middleware(handler)
}
