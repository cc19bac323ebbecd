package ports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/LionCityGaming/vaultwarden-proxy/internal/domain"
	"github.com/LionCityGaming/vaultwarden-proxy/internal/logging"
	"github.com/LionCityGaming/vaultwarden-proxy/internal/ratelimiting"
	"github.com/LionCityGaming/vaultwarden-proxy/internal/reporting"
)

type GetStats = func(ctx context.Context) (domain.Stats, error)

type statsResponse struct {
	TotalUsers  int `json:"total_users"`
	ActiveUsers int `json:"active_users"`
	TotalItems  int `json:"total_items"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func MakeGetStatsHandler(
	getStats GetStats,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	ipLimiter, _ := ratelimiting.NewTokenBucketRateLimiter(
		ratelimiting.RefillPerSecond(8),
		ratelimiting.BurstSize(120),
	)
	ipRateLimiter := ratelimiting.NewRequestBasedRateLimiter(ipLimiter, ratelimiting.IPKeyFunc)

	onLimitExceeded := func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, "rate limit exceeded", http.StatusTooManyRequests)
	}

	middleware := ComposeMiddlewares(
		buildMetricsMiddleware(),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware("getstats"),
		NewRateLimitMiddleware(ipRateLimiter, onLimitExceeded),
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		stats, err := getStats(ctx)
		if err != nil {
			logger.Error("Error getting stats", "error", err)
			statusCode := writeStatsErrorResponse(ctx, w, err)
			logger.Info("Returning response", "statusCode", statusCode, "reason", "error")
			return
		}

		response, err := json.Marshal(statsResponse{
			TotalUsers:  stats.TotalUsers,
			ActiveUsers: stats.ActiveUsers,
			TotalItems:  stats.TotalItems,
		})
		if err != nil {
			reporting.Report(ctx, fmt.Errorf("failed to marshal stats response: %w", err))
			writeJSONError(w, "internal server error", http.StatusInternalServerError)
			logger.Info("Returning response", "statusCode", http.StatusInternalServerError, "reason", "error")
			return
		}

		logger.Info("Returning response", "statusCode", http.StatusOK, "reason", "success")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(response)
	}

	return middleware(handler)
}

func writeStatsErrorResponse(ctx context.Context, w http.ResponseWriter, err error) int {
	var cause string
	var statusCode int

	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		cause = "upstream rejected admin token"
		statusCode = http.StatusBadGateway
	case errors.Is(err, domain.ErrMalformedResponse):
		cause = "upstream returned malformed response"
		statusCode = http.StatusBadGateway
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		cause = "upstream unavailable"
		statusCode = http.StatusServiceUnavailable
	default:
		reporting.Report(ctx, fmt.Errorf("unexpected error getting stats: %w", err))
		cause = "internal server error"
		statusCode = http.StatusInternalServerError
	}

	writeJSONError(w, cause, statusCode)
	return statusCode
}

func writeJSONError(w http.ResponseWriter, cause string, statusCode int) {
	data, err := json.Marshal(errorResponse{Error: cause})
	if err != nil {
		data = []byte(`{"error":"internal server error"}`)
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(data)
}
