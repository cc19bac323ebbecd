package domain

import (
	"time"
)

// User is a single account entry from the Vaultwarden admin API.
//
// LastActive is nil for accounts that have never logged in.
type User struct {
	ID          string
	LastActive  *time.Time
	CipherCount int
}
