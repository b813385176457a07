package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Role classifies a system principal.
type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleCollaborator Role = "COLLABORATOR"
	RoleClient       Role = "CLIENT"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCollaborator, RoleClient:
		return true
	}
	return false
}

// User represents any principal: administrator, collaborator, or client.
// Username is unique across all roles; Code is unique within a role.
// TotalInvestment and TotalPaid are only meaningful for CLIENT rows, and
// TotalPaid is owned by the ledger's reconciliation - it is never written
// through the registry's update path.
type User struct {
	ID              uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	Code            string          `json:"code" gorm:"size:32;not null;uniqueIndex:idx_users_code_role"`
	Role            Role            `json:"role" gorm:"type:varchar(20);not null;uniqueIndex:idx_users_code_role;index"`
	Name            string          `json:"name" gorm:"size:255;not null"`
	Username        string          `json:"username" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash    string          `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	TotalInvestment decimal.Decimal `json:"total_investment" gorm:"type:decimal(20,2);not null;default:0"`
	TotalPaid       decimal.Decimal `json:"total_paid" gorm:"type:decimal(20,2);not null;default:0"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	// Relations
	Payments []Payment `json:"payments,omitempty" gorm:"foreignKey:ClientID"`
}

// IsClient reports whether the user carries the monetary aggregate fields.
func (u *User) IsClient() bool {
	return u.Role == RoleClient
}

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
