package auth

import (
	"github.com/google/uuid"

	"payledger/internal/model"
)

// Principal is the authenticated identity behind a request. It is passed
// explicitly into every registry and ledger operation; there is no ambient
// current-user state.
type Principal struct {
	ID   uuid.UUID
	Role model.Role
}

// IsAdmin reports whether the principal is an administrator.
func (p Principal) IsAdmin() bool {
	return p.Role == model.RoleAdmin
}

// IsClient reports whether the principal is a client.
func (p Principal) IsClient() bool {
	return p.Role == model.RoleClient
}
