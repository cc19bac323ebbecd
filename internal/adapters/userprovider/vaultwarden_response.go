package userprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/LionCityGaming/vaultwarden-proxy/internal/domain"
	"github.com/LionCityGaming/vaultwarden-proxy/internal/logging"
	"github.com/LionCityGaming/vaultwarden-proxy/internal/reporting"
)

// Shape of one entry in the /admin/users payload. Pointers distinguish
// absent fields from zero values.
type vaultwardenUser struct {
	ID          *string `json:"Id,omitempty"`
	Email       *string `json:"Email,omitempty"`
	LastActive  *string `json:"_LastActive,omitempty"`
	CipherCount *int    `json:"CipherCount,omitempty"`
}

// Vaultwarden emits ISO-8601 timestamps, with or without timezone.
var lastActiveLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseLastActive(raw string) (time.Time, error) {
	for _, layout := range lastActiveLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp: %q", raw)
}

func checkForVaultwardenError(statusCode int, data []byte) error {
	if statusCode == http.StatusOK {
		// The admin interface serves HTML; getting it here means we were not
		// handed the JSON we asked for
		if len(data) > 0 && data[0] == '<' {
			return fmt.Errorf("%w: got HTML from vaultwarden", domain.ErrMalformedResponse)
		}

		return nil
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: vaultwarden returned status code %d (%s)", domain.ErrUnauthorized, statusCode, http.StatusText(statusCode))
	default:
		return fmt.Errorf("%w: vaultwarden returned status code %d (%s)", domain.ErrUpstreamUnavailable, statusCode, http.StatusText(statusCode))
	}
}

// VaultwardenUsersResponseToUsers converts a raw /admin/users reply into
// domain users, mapping upstream failures onto the domain error taxonomy.
func VaultwardenUsersResponseToUsers(ctx context.Context, data []byte, statusCode int) ([]domain.User, error) {
	logger := logging.FromContext(ctx)

	if err := checkForVaultwardenError(statusCode, data); err != nil {
		reporting.Report(
			ctx,
			err,
			map[string]string{
				"statusCode":    fmt.Sprint(statusCode),
				"contentLength": fmt.Sprint(len(data)),
			},
		)
		logger.Error(
			"Got response from vaultwarden",
			"status", "error",
			"error", err.Error(),
			"statusCode", statusCode,
			"contentLength", len(data),
		)
		return nil, err
	}

	logger.Info(
		"Got response from vaultwarden",
		"status", "success",
		"statusCode", statusCode,
		"contentLength", len(data),
	)

	var rawUsers []vaultwardenUser
	if err := json.Unmarshal(data, &rawUsers); err != nil {
		err = fmt.Errorf("%w: failed to parse user list: %w", domain.ErrMalformedResponse, err)
		reporting.Report(
			ctx,
			err,
			map[string]string{
				"statusCode":    fmt.Sprint(statusCode),
				"contentLength": fmt.Sprint(len(data)),
			},
		)
		return nil, err
	}

	users := make([]domain.User, 0, len(rawUsers))
	for i, rawUser := range rawUsers {
		if rawUser.ID == nil || *rawUser.ID == "" {
			err := fmt.Errorf("%w: user at index %d is missing an id", domain.ErrMalformedResponse, i)
			reporting.Report(ctx, err, map[string]string{
				"index": fmt.Sprint(i),
			})
			return nil, err
		}

		user := domain.User{
			ID: *rawUser.ID,
		}

		if rawUser.LastActive != nil {
			lastActive, err := parseLastActive(*rawUser.LastActive)
			if err != nil {
				err = fmt.Errorf("%w: bad last active time for user at index %d: %w", domain.ErrMalformedResponse, i, err)
				reporting.Report(ctx, err, map[string]string{
					"index": fmt.Sprint(i),
				})
				return nil, err
			}
			user.LastActive = &lastActive
		}

		if rawUser.CipherCount != nil {
			user.CipherCount = *rawUser.CipherCount
		}

		users = append(users, user)
	}

	return users, nil
}
