package domain

import (
	"time"
)

// An account is considered active if it has logged in within this window.
const ActiveWindow = 30 * 24 * time.Hour

type Stats struct {
	TotalUsers  int
	ActiveUsers int
	TotalItems  int
}

// ComputeStats aggregates the given users into a Stats snapshot.
//
// A user counts as active when their LastActive is set and at most 30 days
// before now. The boundary is inclusive: a login exactly 30 days old still
// counts.
func ComputeStats(users []User, now time.Time) Stats {
	stats := Stats{
		TotalUsers: len(users),
	}

	for _, user := range users {
		stats.TotalItems += user.CipherCount

		if user.LastActive == nil {
			continue
		}
		if now.Sub(*user.LastActive) <= ActiveWindow {
			stats.ActiveUsers++
		}
	}

	return stats
}
