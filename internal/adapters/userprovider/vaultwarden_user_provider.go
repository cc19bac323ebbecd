package userprovider

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/LionCityGaming/vaultwarden-proxy/internal/domain"
)

type vaultwardenUserProvider struct {
	vaultwardenAPI VaultwardenAPI

	metrics vaultwardenUserProviderMetricsCollection
}

func NewVaultwardenUserProvider(vaultwardenAPI VaultwardenAPI) (UserProvider, error) {
	meter := otel.Meter("userprovider/vaultwarden_provider")
	metrics, err := setupVaultwardenUserProviderMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to set up metrics: %w", err)
	}

	return &vaultwardenUserProvider{
		vaultwardenAPI: vaultwardenAPI,

		metrics: metrics,
	}, nil
}

func (p *vaultwardenUserProvider) ListUsers(ctx context.Context) ([]domain.User, error) {
	data, statusCode, _, err := p.vaultwardenAPI.ListUsers(ctx)
	if err != nil {
		// NOTE: VaultwardenAPI implementations handle their own error reporting
		p.metrics.requestCount.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", false)))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users, err := VaultwardenUsersResponseToUsers(ctx, data, statusCode)
	if err != nil {
		// NOTE: VaultwardenUsersResponseToUsers handles its own error reporting
		p.metrics.requestCount.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", false)))
		return nil, fmt.Errorf("failed to convert vaultwarden response to users: %w", err)
	}

	p.metrics.requestCount.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", true)))
	p.metrics.userCount.Record(ctx, int64(len(users)))

	return users, nil
}

type vaultwardenUserProviderMetricsCollection struct {
	requestCount metric.Int64Counter
	userCount    metric.Int64Gauge
}

func setupVaultwardenUserProviderMetrics(meter metric.Meter) (vaultwardenUserProviderMetricsCollection, error) {
	requestCount, err := meter.Int64Counter("userprovider/vaultwarden_provider/requests")
	if err != nil {
		return vaultwardenUserProviderMetricsCollection{}, fmt.Errorf("failed to create metric: %w", err)
	}

	userCount, err := meter.Int64Gauge("userprovider/vaultwarden_provider/listed_users")
	if err != nil {
		return vaultwardenUserProviderMetricsCollection{}, fmt.Errorf("failed to create metric: %w", err)
	}

	return vaultwardenUserProviderMetricsCollection{
		requestCount: requestCount,
		userCount:    userCount,
	}, nil
}
