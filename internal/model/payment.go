package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment represents one recorded contribution by a client.
// The (client_id, category, concept) triple is unique: a client cannot hold
// two line items with the same category+concept combination at once.
type Payment struct {
	ID        uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	ClientID  uuid.UUID       `json:"client_id" gorm:"type:char(36);not null;uniqueIndex:idx_payments_line_item;index"`
	Category  string          `json:"category" gorm:"size:255;not null;uniqueIndex:idx_payments_line_item"`
	Concept   string          `json:"concept" gorm:"size:255;not null;uniqueIndex:idx_payments_line_item"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:decimal(20,2);not null"`
	Image     []byte          `json:"-" gorm:"type:mediumblob"` // raw proof-of-payment bytes, base64 on the wire
	ImageType string          `json:"image_type,omitempty" gorm:"size:100"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	// Relations
	Client User `json:"-" gorm:"foreignKey:ClientID"`
}

// HasImage reports whether the payment carries a proof-of-payment attachment.
// Image bytes and MIME type are always present or absent together.
func (p *Payment) HasImage() bool {
	return len(p.Image) > 0
}

// BeforeCreate sets UUID before creating the record.
func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
