package userprovider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/LionCityGaming/vaultwarden-proxy/internal/config"
	"github.com/LionCityGaming/vaultwarden-proxy/internal/domain"
	"github.com/LionCityGaming/vaultwarden-proxy/internal/logging"
	"github.com/LionCityGaming/vaultwarden-proxy/internal/reporting"
)

const userAgent = "vaultwarden-proxy/0.1.0 (+https://github.com/LionCityGaming/vaultwarden-proxy)"

type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// VaultwardenAPI issues authenticated requests to the Vaultwarden admin API.
// One outbound call per invocation, no internal retries.
type VaultwardenAPI interface {
	ListUsers(ctx context.Context) ([]byte, int, time.Time, error)
	GetDiagnostics(ctx context.Context) ([]byte, int, error)
}

type mockedVaultwardenAPI struct{}

func (api *mockedVaultwardenAPI) ListUsers(ctx context.Context) ([]byte, int, time.Time, error) {
	return []byte(`[{"Id":"00000000-0000-0000-0000-000000000000","_LastActive":null,"CipherCount":0}]`), 200, time.Now(), nil
}

func (api *mockedVaultwardenAPI) GetDiagnostics(ctx context.Context) ([]byte, int, error) {
	return []byte(`{}`), 200, nil
}

type vaultwardenAPIImpl struct {
	httpClient HttpClient
	baseURL    string
	adminToken string
}

func (api vaultwardenAPIImpl) get(ctx context.Context, url string) ([]byte, int, error) {
	logger := logging.FromContext(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		err := fmt.Errorf("failed to create request: %w", err)
		logger.Error(err.Error())
		reporting.Report(ctx, err)
		return nil, -1, err
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", api.adminToken))
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := api.httpClient.Do(req)
	if err != nil {
		err := fmt.Errorf("%w: failed to send request: %w", domain.ErrUpstreamUnavailable, err)
		logger.Error(err.Error())
		reporting.Report(ctx, err)
		return nil, -1, err
	}

	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		err := fmt.Errorf("%w: failed to read response body: %w", domain.ErrUpstreamUnavailable, err)
		logger.Error(err.Error())
		reporting.Report(ctx, err)
		return nil, -1, err
	}
	logger.Info("vaultwarden request completed", "url", url, "status", resp.StatusCode, "duration", time.Since(start).String())

	return data, resp.StatusCode, nil
}

func (api vaultwardenAPIImpl) ListUsers(ctx context.Context) ([]byte, int, time.Time, error) {
	data, statusCode, err := api.get(ctx, fmt.Sprintf("%s/admin/users", api.baseURL))
	if err != nil {
		return nil, statusCode, time.Time{}, err
	}
	return data, statusCode, time.Now(), nil
}

func (api vaultwardenAPIImpl) GetDiagnostics(ctx context.Context) ([]byte, int, error) {
	return api.get(ctx, fmt.Sprintf("%s/admin/diagnostics", api.baseURL))
}

func NewVaultwardenAPI(httpClient HttpClient, baseURL, adminToken string) VaultwardenAPI {
	return vaultwardenAPIImpl{
		httpClient: httpClient,
		baseURL:    baseURL,
		adminToken: adminToken,
	}
}

func NewVaultwardenAPIOrMock(config config.Config, httpClient HttpClient) (VaultwardenAPI, error) {
	if config.AdminToken() != "" {
		return NewVaultwardenAPI(httpClient, config.VaultwardenURL(), config.AdminToken()), nil
	}
	if config.IsDevelopment() {
		return &mockedVaultwardenAPI{}, nil
	}
	return nil, fmt.Errorf("Missing admin token in non-development environment")
}
