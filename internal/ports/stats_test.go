package ports

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LionCityGaming/vaultwarden-proxy/internal/domain"
)

func TestMakeGetStatsHandler(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	sentryMiddleware := func(next http.HandlerFunc) http.HandlerFunc {
		return next
	}

	t.Run("success", func(t *testing.T) {
		getStatsHandler := MakeGetStatsHandler(func(ctx context.Context) (domain.Stats, error) {
			return domain.Stats{TotalUsers: 10, ActiveUsers: 3, TotalItems: 125}, nil
		}, logger, sentryMiddleware)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/stats", nil)
		getStatsHandler(w, req)

		resp := w.Result()

		assert.Equal(t, 200, resp.StatusCode)
		assert.JSONEq(t, `{"total_users":10,"active_users":3,"total_items":125}`, w.Body.String())

		contentType := resp.Header.Get("Content-Type")
		assert.Equal(t, "application/json", contentType)
	})

	t.Run("zero stats marshal explicitly", func(t *testing.T) {
		getStatsHandler := MakeGetStatsHandler(func(ctx context.Context) (domain.Stats, error) {
			return domain.Stats{}, nil
		}, logger, sentryMiddleware)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/stats", nil)
		getStatsHandler(w, req)

		assert.Equal(t, 200, w.Result().StatusCode)
		assert.JSONEq(t, `{"total_users":0,"active_users":0,"total_items":0}`, w.Body.String())
	})

	t.Run("upstream unavailable", func(t *testing.T) {
		getStatsHandler := MakeGetStatsHandler(func(ctx context.Context) (domain.Stats, error) {
			return domain.Stats{}, fmt.Errorf("%w: connection refused", domain.ErrUpstreamUnavailable)
		}, logger, sentryMiddleware)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/stats", nil)
		getStatsHandler(w, req)

		resp := w.Result()
		assert.Equal(t, 503, resp.StatusCode)
		assert.JSONEq(t, `{"error":"upstream unavailable"}`, w.Body.String())
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	})

	t.Run("unauthorized", func(t *testing.T) {
		getStatsHandler := MakeGetStatsHandler(func(ctx context.Context) (domain.Stats, error) {
			return domain.Stats{}, fmt.Errorf("%w: status 401", domain.ErrUnauthorized)
		}, logger, sentryMiddleware)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/stats", nil)
		getStatsHandler(w, req)

		assert.Equal(t, 502, w.Result().StatusCode)
		assert.JSONEq(t, `{"error":"upstream rejected admin token"}`, w.Body.String())
	})

	t.Run("malformed response", func(t *testing.T) {
		getStatsHandler := MakeGetStatsHandler(func(ctx context.Context) (domain.Stats, error) {
			return domain.Stats{}, fmt.Errorf("%w: invalid json", domain.ErrMalformedResponse)
		}, logger, sentryMiddleware)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/stats", nil)
		getStatsHandler(w, req)

		assert.Equal(t, 502, w.Result().StatusCode)
		assert.JSONEq(t, `{"error":"upstream returned malformed response"}`, w.Body.String())
	})

	t.Run("unknown error", func(t *testing.T) {
		getStatsHandler := MakeGetStatsHandler(func(ctx context.Context) (domain.Stats, error) {
			return domain.Stats{}, fmt.Errorf("something else entirely")
		}, logger, sentryMiddleware)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/stats", nil)
		getStatsHandler(w, req)

		assert.Equal(t, 500, w.Result().StatusCode)
		assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
	})
}

func TestWriteStatsErrorResponse(t *testing.T) {
	testCases := []struct {
		err            error
		expectedStatus int
		expectedBody   string
	}{
		{
			err:            domain.ErrUnauthorized,
			expectedStatus: 502,
			expectedBody:   `{"error":"upstream rejected admin token"}`,
		},
		{
			err:            domain.ErrMalformedResponse,
			expectedStatus: 502,
			expectedBody:   `{"error":"upstream returned malformed response"}`,
		},
		{
			err:            domain.ErrUpstreamUnavailable,
			expectedStatus: 503,
			expectedBody:   `{"error":"upstream unavailable"}`,
		},
		{
			err:            fmt.Errorf("wrapped: %w", domain.ErrUpstreamUnavailable),
			expectedStatus: 503,
			expectedBody:   `{"error":"upstream unavailable"}`,
		},
		{
			err:            fmt.Errorf("some other error"),
			expectedStatus: 500,
			expectedBody:   `{"error":"internal server error"}`,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			statusCode := writeStatsErrorResponse(context.Background(), w, testCase.err)

			assert.Equal(t, testCase.expectedStatus, statusCode)
			assert.Equal(t, testCase.expectedStatus, w.Result().StatusCode)
			assert.JSONEq(t, testCase.expectedBody, w.Body.String())
		})
	}
}
