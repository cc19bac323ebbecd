package ports

import (
	"log/slog"
	"net/http"

	"github.com/LionCityGaming/vaultwarden-proxy/internal/logging"
)

// MakeHealthHandler makes a liveness handler. It reports on the proxy
// process only and never touches the upstream.
func MakeHealthHandler(rootLogger *slog.Logger) http.HandlerFunc {
	middleware := ComposeMiddlewares(
		buildMetricsMiddleware(),
		logging.NewRequestLoggerMiddleware(rootLogger),
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}

	return middleware(handler)
}
