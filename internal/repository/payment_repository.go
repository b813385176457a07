package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"payledger/internal/model"
)

// PaymentRepository defines payment persistence operations.
type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	Update(ctx context.Context, payment *model.Payment) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByClientID(ctx context.Context, clientID uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	FindByClientID(ctx context.Context, clientID uuid.UUID) ([]model.Payment, error)
	List(ctx context.Context, clientID *uuid.UUID) ([]model.Payment, error)
	ExistsForItem(ctx context.Context, clientID uuid.UUID, category, concept string, excludeID uuid.UUID) (bool, error)
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository.
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// Create creates a new payment record.
func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// Update updates an existing payment record.
func (r *paymentRepository) Update(ctx context.Context, payment *model.Payment) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

// Delete removes a payment row.
func (r *paymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Payment{}).Error
}

// DeleteByClientID removes all payments owned by a client. Runs before the
// user row itself is deleted so the foreign key is never dangling.
func (r *paymentRepository) DeleteByClientID(ctx context.Context, clientID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("client_id = ?", clientID).Delete(&model.Payment{}).Error
}

// FindByID finds a payment by ID.
func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var payment model.Payment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindByClientID returns every payment owned by a client. The reconciliation
// routine sums over this set.
func (r *paymentRepository) FindByClientID(ctx context.Context, clientID uuid.UUID) ([]model.Payment, error) {
	var payments []model.Payment
	if err := r.db.WithContext(ctx).Where("client_id = ?", clientID).Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// List lists payments ordered most recent first, optionally filtered to one
// client. The descending order is a user-facing contract.
func (r *paymentRepository) List(ctx context.Context, clientID *uuid.UUID) ([]model.Payment, error) {
	var payments []model.Payment
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if clientID != nil {
		q = q.Where("client_id = ?", *clientID)
	}
	if err := q.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// ExistsForItem reports whether the client already has a payment with the
// given category+concept, excluding excludeID (pass uuid.Nil on create).
func (r *paymentRepository) ExistsForItem(ctx context.Context, clientID uuid.UUID, category, concept string, excludeID uuid.UUID) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("client_id = ? AND category = ? AND concept = ?", clientID, category, concept)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
