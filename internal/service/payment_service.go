package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"payledger/internal/auth"
	"payledger/internal/cache"
	"payledger/internal/errors"
	"payledger/internal/logger"
	"payledger/internal/metrics"
	"payledger/internal/model"
	"payledger/internal/repository"
)

// CreatePaymentRequest carries the fields for recording a new line item.
// Image and ImageType form one attachment: both present or both absent.
type CreatePaymentRequest struct {
	ClientID  uuid.UUID
	Category  string
	Concept   string
	Amount    decimal.Decimal
	Image     []byte
	ImageType string
}

// UpdatePaymentRequest carries a partial payment update. Nil fields keep
// their previous values. A non-nil Image or ImageType with an empty value
// clears the attachment; clearing must cover both sides at once.
type UpdatePaymentRequest struct {
	Category  *string
	Concept   *string
	Amount    *decimal.Decimal
	Image     *[]byte
	ImageType *string
}

// PaymentService is the ledger: it owns the payment lifecycle and guarantees
// that every client's totalPaid equals the sum of its payment rows after
// every mutation. All mutations run inside one transaction that locks the
// owning client row, so concurrent mutations against the same client
// serialize while different clients proceed independently.
type PaymentService interface {
	Create(ctx context.Context, principal auth.Principal, req CreatePaymentRequest) (*model.Payment, error)
	Update(ctx context.Context, principal auth.Principal, id uuid.UUID, req UpdatePaymentRequest) (*model.Payment, error)
	Delete(ctx context.Context, principal auth.Principal, id uuid.UUID) error
	List(ctx context.Context, principal auth.Principal, clientID *uuid.UUID) ([]model.Payment, error)
}

type paymentService struct {
	userRepo    repository.UserRepository
	paymentRepo repository.PaymentRepository
	cache       *cache.Client
}

// NewPaymentService creates a new payment ledger service.
func NewPaymentService(userRepo repository.UserRepository, paymentRepo repository.PaymentRepository, cache *cache.Client) PaymentService {
	return &paymentService{
		userRepo:    userRepo,
		paymentRepo: paymentRepo,
		cache:       cache,
	}
}

// Create records a new payment and reconciles the owner's totalPaid in the
// same transaction; the returned aggregate state already reflects it.
func (s *paymentService) Create(ctx context.Context, principal auth.Principal, req CreatePaymentRequest) (*model.Payment, error) {
	if !CanMutatePayments(principal) {
		return nil, errors.ErrForbidden
	}
	if req.Amount.IsNegative() {
		return nil, s.fail("invalid_amount", errors.ErrInvalidAmount)
	}
	if (len(req.Image) > 0) != (req.ImageType != "") {
		return nil, s.fail("invalid_attachment", errors.ErrInvalidAttachment)
	}

	start := time.Now()
	var payment *model.Payment

	err := s.userRepo.WithTransaction(ctx, func(ctx context.Context, users repository.UserRepository, payments repository.PaymentRepository) error {
		client, err := users.FindByIDForUpdate(ctx, req.ClientID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.ErrClientNotFound
			}
			return fmt.Errorf("lock client: %w", err)
		}
		if !client.IsClient() {
			return errors.ErrClientNotFound
		}

		exists, err := payments.ExistsForItem(ctx, req.ClientID, req.Category, req.Concept, uuid.Nil)
		if err != nil {
			return fmt.Errorf("check line item: %w", err)
		}
		if exists {
			return errors.ErrDuplicatePaymentItem
		}

		payment = &model.Payment{
			ClientID:  req.ClientID,
			Category:  req.Category,
			Concept:   req.Concept,
			Amount:    req.Amount,
			Image:     req.Image,
			ImageType: req.ImageType,
		}
		if err := payments.Create(ctx, payment); err != nil {
			if err == gorm.ErrDuplicatedKey {
				return errors.ErrDuplicatePaymentItem
			}
			return fmt.Errorf("create payment: %w", err)
		}

		_, err = reconcileTotalPaid(ctx, users, payments, req.ClientID)
		return err
	})
	if err != nil {
		return nil, s.fail(errorReason(err), err)
	}

	s.finishMutation(ctx, "create", req.ClientID, start)

	log := logger.Get()
	log.Info().
		Str("payment_id", payment.ID.String()).
		Str("client_id", req.ClientID.String()).
		Str("amount", req.Amount.String()).
		Msg("payment recorded")

	return payment, nil
}

// Update applies a partial update and reconciles. The duplicate line-item
// guard is re-run against the effective category+concept, excluding the row
// itself, so an update cannot silently collide with another line item.
func (s *paymentService) Update(ctx context.Context, principal auth.Principal, id uuid.UUID, req UpdatePaymentRequest) (*model.Payment, error) {
	if !CanMutatePayments(principal) {
		return nil, errors.ErrForbidden
	}
	if req.Amount != nil && req.Amount.IsNegative() {
		return nil, s.fail("invalid_amount", errors.ErrInvalidAmount)
	}

	start := time.Now()
	var payment *model.Payment

	err := s.userRepo.WithTransaction(ctx, func(ctx context.Context, users repository.UserRepository, payments repository.PaymentRepository) error {
		// First read only resolves the owner; the authoritative read happens
		// after the client row lock is held.
		existing, err := payments.FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.ErrPaymentNotFound
			}
			return fmt.Errorf("find payment: %w", err)
		}

		if _, err := users.FindByIDForUpdate(ctx, existing.ClientID); err != nil {
			return fmt.Errorf("lock client: %w", err)
		}

		payment, err = payments.FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.ErrPaymentNotFound
			}
			return fmt.Errorf("reread payment: %w", err)
		}

		category := payment.Category
		concept := payment.Concept
		if req.Category != nil {
			category = *req.Category
		}
		if req.Concept != nil {
			concept = *req.Concept
		}
		if category != payment.Category || concept != payment.Concept {
			exists, err := payments.ExistsForItem(ctx, payment.ClientID, category, concept, id)
			if err != nil {
				return fmt.Errorf("check line item: %w", err)
			}
			if exists {
				return errors.ErrDuplicatePaymentItem
			}
		}
		payment.Category = category
		payment.Concept = concept

		if req.Amount != nil {
			payment.Amount = *req.Amount
		}

		if err := applyAttachment(payment, req.Image, req.ImageType); err != nil {
			return err
		}

		if err := payments.Update(ctx, payment); err != nil {
			if err == gorm.ErrDuplicatedKey {
				return errors.ErrDuplicatePaymentItem
			}
			return fmt.Errorf("update payment: %w", err)
		}

		_, err = reconcileTotalPaid(ctx, users, payments, payment.ClientID)
		return err
	})
	if err != nil {
		return nil, s.fail(errorReason(err), err)
	}

	s.finishMutation(ctx, "update", payment.ClientID, start)
	return payment, nil
}

// Delete removes a payment and reconciles the owner captured before deletion.
func (s *paymentService) Delete(ctx context.Context, principal auth.Principal, id uuid.UUID) error {
	if !CanMutatePayments(principal) {
		return errors.ErrForbidden
	}

	start := time.Now()
	var clientID uuid.UUID

	err := s.userRepo.WithTransaction(ctx, func(ctx context.Context, users repository.UserRepository, payments repository.PaymentRepository) error {
		payment, err := payments.FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.ErrPaymentNotFound
			}
			return fmt.Errorf("find payment: %w", err)
		}
		clientID = payment.ClientID

		if _, err := users.FindByIDForUpdate(ctx, clientID); err != nil {
			return fmt.Errorf("lock client: %w", err)
		}

		if err := payments.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete payment: %w", err)
		}

		_, err = reconcileTotalPaid(ctx, users, payments, clientID)
		return err
	})
	if err != nil {
		return s.fail(errorReason(err), err)
	}

	s.finishMutation(ctx, "delete", clientID, start)

	log := logger.Get()
	log.Info().
		Str("payment_id", id.String()).
		Str("client_id", clientID.String()).
		Msg("payment deleted")

	return nil
}

// List returns payments ordered most recent first, optionally filtered to one
// client. A client principal may only request its own payments.
func (s *paymentService) List(ctx context.Context, principal auth.Principal, clientID *uuid.UUID) ([]model.Payment, error) {
	if !CanViewPayments(principal, clientID) {
		return nil, errors.ErrForbidden
	}
	return s.paymentRepo.List(ctx, clientID)
}

// applyAttachment applies partial attachment changes, enforcing that image
// bytes and MIME type are set or cleared together.
func applyAttachment(payment *model.Payment, image *[]byte, imageType *string) error {
	if image == nil && imageType == nil {
		return nil
	}

	newImage := payment.Image
	newType := payment.ImageType
	if image != nil {
		newImage = *image
	}
	if imageType != nil {
		newType = *imageType
	}

	if (len(newImage) > 0) != (newType != "") {
		return errors.ErrInvalidAttachment
	}

	payment.Image = newImage
	payment.ImageType = newType
	return nil
}

// finishMutation records success metrics and drops the owner's cached summary.
func (s *paymentService) finishMutation(ctx context.Context, operation string, clientID uuid.UUID, start time.Time) {
	_ = s.cache.Delete(ctx, userCacheKey(clientID))
	metrics.LedgerMutationsTotal.WithLabelValues(operation).Inc()
	metrics.MutationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (s *paymentService) fail(reason string, err error) error {
	metrics.LedgerErrorsTotal.WithLabelValues(reason).Inc()
	return err
}

func errorReason(err error) string {
	switch err {
	case errors.ErrClientNotFound:
		return "client_not_found"
	case errors.ErrPaymentNotFound:
		return "payment_not_found"
	case errors.ErrDuplicatePaymentItem:
		return "duplicate_item"
	case errors.ErrInvalidAmount:
		return "invalid_amount"
	case errors.ErrInvalidAttachment:
		return "invalid_attachment"
	default:
		return "internal"
	}
}
