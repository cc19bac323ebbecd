package userprovider

import (
	"bytes"
	"io"
	"net/http"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LionCityGaming/vaultwarden-proxy/internal/domain"
)

const adminToken = "token"
const baseURL = "http://vaultwarden:80"

var expectedHeaders = http.Header{
	// NOTE: go's http.Header automatically camelcases the keys
	"User-Agent":    {"vaultwarden-proxy/0.1.0 (+https://github.com/LionCityGaming/vaultwarden-proxy)"},
	"Authorization": {"Bearer token"},
	"Content-Type":  {"application/json"},
}

type mockedHttpClient struct {
	t           *testing.T
	expectedURL string
	statusCode  int
	body        io.ReadCloser
	requestErr  error
}

func (m *mockedHttpClient) Do(req *http.Request) (*http.Response, error) {
	require.Equal(m.t, m.expectedURL, req.URL.String())
	require.True(m.t, reflect.DeepEqual(expectedHeaders, req.Header), "Expected %v, got %v", expectedHeaders, req.Header)

	if m.requestErr != nil {
		return nil, m.requestErr
	}

	return &http.Response{
		StatusCode: m.statusCode,
		Body:       m.body,
	}, nil
}

type cantRead struct{}

func (c cantRead) Read(p []byte) (n int, err error) {
	return 0, assert.AnError
}

func (c cantRead) Close() error {
	return nil
}

func newMockedHttpClient(t *testing.T, expectedURL string, statusCode int, body string, err error) *mockedHttpClient {
	return &mockedHttpClient{
		t:           t,
		expectedURL: expectedURL,
		statusCode:  statusCode,
		body:        io.NopCloser(bytes.NewBufferString(body)),
		requestErr:  err,
	}
}

func TestListUsers(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		httpClient := newMockedHttpClient(
			t,
			"http://vaultwarden:80/admin/users",
			200,
			`[]`,
			nil,
		)
		vaultwardenAPI := NewVaultwardenAPI(httpClient, baseURL, adminToken)

		data, statusCode, queriedAt, err := vaultwardenAPI.ListUsers(t.Context())

		require.NoError(t, err)
		require.Equal(t, 200, statusCode)
		require.Equal(t, `[]`, string(data))
		require.False(t, queriedAt.IsZero())
	})

	t.Run("request error", func(t *testing.T) {
		t.Parallel()

		httpClient := newMockedHttpClient(
			t,
			"http://vaultwarden:80/admin/users",
			200,
			`[]`,
			assert.AnError,
		)
		vaultwardenAPI := NewVaultwardenAPI(httpClient, baseURL, adminToken)

		_, _, _, err := vaultwardenAPI.ListUsers(t.Context())
		require.ErrorIs(t, err, assert.AnError)
		require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	})

	t.Run("body read error", func(t *testing.T) {
		t.Parallel()

		httpClient := &mockedHttpClient{
			t:           t,
			expectedURL: "http://vaultwarden:80/admin/users",
			statusCode:  200,
			body:        cantRead{},
		}
		vaultwardenAPI := NewVaultwardenAPI(httpClient, baseURL, adminToken)

		_, _, _, err := vaultwardenAPI.ListUsers(t.Context())
		require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	})

	t.Run("error status codes are passed through", func(t *testing.T) {
		t.Parallel()

		// The API layer does not interpret status codes
		httpClient := newMockedHttpClient(
			t,
			"http://vaultwarden:80/admin/users",
			401,
			``,
			nil,
		)
		vaultwardenAPI := NewVaultwardenAPI(httpClient, baseURL, adminToken)

		_, statusCode, _, err := vaultwardenAPI.ListUsers(t.Context())
		require.NoError(t, err)
		require.Equal(t, 401, statusCode)
	})
}

func TestGetDiagnostics(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		httpClient := newMockedHttpClient(
			t,
			"http://vaultwarden:80/admin/diagnostics",
			200,
			`{"dns_resolved":true}`,
			nil,
		)
		vaultwardenAPI := NewVaultwardenAPI(httpClient, baseURL, adminToken)

		data, statusCode, err := vaultwardenAPI.GetDiagnostics(t.Context())

		require.NoError(t, err)
		require.Equal(t, 200, statusCode)
		require.Equal(t, `{"dns_resolved":true}`, string(data))
	})

	t.Run("request error", func(t *testing.T) {
		t.Parallel()

		httpClient := newMockedHttpClient(
			t,
			"http://vaultwarden:80/admin/diagnostics",
			200,
			``,
			assert.AnError,
		)
		vaultwardenAPI := NewVaultwardenAPI(httpClient, baseURL, adminToken)

		_, _, err := vaultwardenAPI.GetDiagnostics(t.Context())
		require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	})
}
