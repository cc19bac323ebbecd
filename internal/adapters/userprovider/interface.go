package userprovider

import (
	"context"

	"github.com/LionCityGaming/vaultwarden-proxy/internal/domain"
)

type UserProvider interface {
	// ListUsers returns the upstream's current user records.
	//
	// Raises domain.ErrUnauthorized if the admin token is rejected.
	//
	// Raises domain.ErrUpstreamUnavailable on network failure or upstream
	// server errors. The call may be retried later.
	//
	// Raises domain.ErrMalformedResponse if the payload cannot be parsed
	// into the expected record shape.
	ListUsers(ctx context.Context) ([]domain.User, error)
}
