package services

import (
	"context"
	"encoding/json"

	"github.com/checkme-health/checkme-backend/internal/database"
)

const (
	// SessionKeyPrefix is the Redis key prefix for sessions. Sessions are
	// written by the auth service; this backend only reads them.
	SessionKeyPrefix = "session:"

	RolePatient    = "patient"
	RoleSpecialist = "specialist"
	RoleAdmin      = "admin"
)

// Identity is the authenticated caller as supplied by the auth collaborator.
// It is trusted as-is; credentials are never re-verified here.
type Identity struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// ValidateSession resolves a bearer token to the caller identity stored in
// Redis. A missing or expired token is not an error, just not a session.
func ValidateSession(ctx context.Context, token string) (Identity, bool, error) {
	if token == "" {
		return Identity{}, false, nil
	}

	raw, err := database.RedisClient.Get(ctx, SessionKeyPrefix+token).Result()
	if err != nil {
		return Identity{}, false, nil
	}

	var ident Identity
	if err := json.Unmarshal([]byte(raw), &ident); err != nil {
		return Identity{}, false, err
	}
	if ident.ID == "" {
		return Identity{}, false, nil
	}
	return ident, true, nil
}
