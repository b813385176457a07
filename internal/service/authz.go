package service

import (
	"github.com/google/uuid"

	"payledger/internal/auth"
	"payledger/internal/model"
)

// Authorization rules are pure functions of the principal and the requested
// target. Services call them with the explicitly passed principal; there is
// no ambient current-user state anywhere.

// CanManageUsers reports whether the principal may create, update, or delete
// user records.
func CanManageUsers(p auth.Principal) bool {
	return p.Role == model.RoleAdmin
}

// CanViewUsers reports whether the principal may list user records.
func CanViewUsers(p auth.Principal) bool {
	return p.Role == model.RoleAdmin || p.Role == model.RoleCollaborator
}

// CanViewUser reports whether the principal may fetch a single user record.
// Clients may only fetch themselves.
func CanViewUser(p auth.Principal, targetID uuid.UUID) bool {
	if CanViewUsers(p) {
		return true
	}
	return p.Role == model.RoleClient && p.ID == targetID
}

// CanMutatePayments reports whether the principal may create, update, or
// delete ledger entries.
func CanMutatePayments(p auth.Principal) bool {
	return p.Role == model.RoleAdmin || p.Role == model.RoleCollaborator
}

// CanViewPayments reports whether the principal may list payments for the
// given filter. A nil clientID means "all clients", which clients themselves
// may not request.
func CanViewPayments(p auth.Principal, clientID *uuid.UUID) bool {
	if CanMutatePayments(p) {
		return true
	}
	return p.Role == model.RoleClient && clientID != nil && *clientID == p.ID
}
