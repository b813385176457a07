package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"payledger/internal/auth"
	"payledger/internal/cache"
	"payledger/internal/errors"
	"payledger/internal/logger"
	"payledger/internal/model"
	"payledger/internal/repository"
)

const (
	bcryptCost   = 10
	userCacheTTL = 5 * time.Minute
)

func userCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("user:%s", id.String())
}

// CreateUserRequest carries the fields for registering a new user.
// TotalInvestment only applies to CLIENT users and defaults to 0.
type CreateUserRequest struct {
	Code            string
	Name            string
	Username        string
	Password        string
	Role            model.Role
	TotalInvestment *decimal.Decimal
}

// UpdateUserRequest carries a partial user update. Nil fields keep their
// previous values. TotalPaid is deliberately not representable here: it is
// owned by the ledger's reconciliation.
type UpdateUserRequest struct {
	Code            *string
	Name            *string
	Username        *string
	Password        *string
	TotalInvestment *decimal.Decimal
}

// UserService manages the user registry and its uniqueness constraints.
type UserService interface {
	Create(ctx context.Context, principal auth.Principal, req CreateUserRequest) (*model.User, error)
	Update(ctx context.Context, principal auth.Principal, id uuid.UUID, req UpdateUserRequest) (*model.User, error)
	Delete(ctx context.Context, principal auth.Principal, id uuid.UUID) error
	List(ctx context.Context, principal auth.Principal, role *model.Role) ([]model.User, error)
	Get(ctx context.Context, principal auth.Principal, id uuid.UUID) (*model.User, error)
}

type userService struct {
	userRepo repository.UserRepository
	cache    *cache.Client
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(userRepo repository.UserRepository, cache *cache.Client) UserService {
	return &userService{userRepo: userRepo, cache: cache}
}

// Create registers a new user after checking username and per-role code
// uniqueness. The plaintext password is hashed and never stored or logged.
func (s *userService) Create(ctx context.Context, principal auth.Principal, req CreateUserRequest) (*model.User, error) {
	if !CanManageUsers(principal) {
		return nil, errors.ErrForbidden
	}
	if !req.Role.Valid() {
		return nil, errors.ErrInvalidRole
	}

	taken, err := s.userRepo.ExistsByUsername(ctx, req.Username, uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return nil, errors.ErrDuplicateUsername
	}

	taken, err = s.userRepo.ExistsByCodeAndRole(ctx, req.Code, req.Role, uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("check code: %w", err)
	}
	if taken {
		return nil, errors.ErrDuplicateCode
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Code:         req.Code,
		Name:         req.Name,
		Username:     req.Username,
		PasswordHash: string(hashed),
		Role:         req.Role,
	}
	if user.IsClient() {
		if req.TotalInvestment != nil {
			user.TotalInvestment = *req.TotalInvestment
		}
		// TotalPaid starts at zero: there are no payments yet.
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if err == gorm.ErrDuplicatedKey {
			return nil, s.classifyDuplicate(ctx, user.Username, uuid.Nil)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	log := logger.Get()
	log.Info().
		Str("user_id", user.ID.String()).
		Str("role", string(user.Role)).
		Msg("user created")

	return user, nil
}

// Update applies a partial update, re-validating uniqueness only for fields
// that actually change. A non-empty password is re-hashed; an empty or absent
// one leaves the stored credential untouched.
func (s *userService) Update(ctx context.Context, principal auth.Principal, id uuid.UUID, req UpdateUserRequest) (*model.User, error) {
	if !CanManageUsers(principal) {
		return nil, errors.ErrForbidden
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if req.Username != nil && *req.Username != user.Username {
		taken, err := s.userRepo.ExistsByUsername(ctx, *req.Username, id)
		if err != nil {
			return nil, fmt.Errorf("check username: %w", err)
		}
		if taken {
			return nil, errors.ErrDuplicateUsername
		}
		user.Username = *req.Username
	}

	if req.Code != nil && *req.Code != user.Code {
		taken, err := s.userRepo.ExistsByCodeAndRole(ctx, *req.Code, user.Role, id)
		if err != nil {
			return nil, fmt.Errorf("check code: %w", err)
		}
		if taken {
			return nil, errors.ErrDuplicateCode
		}
		user.Code = *req.Code
	}

	if req.Name != nil {
		user.Name = *req.Name
	}

	if req.Password != nil && *req.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hashed)
	}

	// TotalInvestment is an administrator-set target, not a derived value, so
	// it is the one monetary field updatable here. Ignored for non-clients.
	if req.TotalInvestment != nil && user.IsClient() {
		user.TotalInvestment = *req.TotalInvestment
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if err == gorm.ErrDuplicatedKey {
			return nil, s.classifyDuplicate(ctx, user.Username, id)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	_ = s.cache.Delete(ctx, userCacheKey(id))
	return user, nil
}

// classifyDuplicate resolves which unique index rejected a write that slipped
// past the pre-checks, i.e. a concurrent insert landed between the existence
// check and the write. The conflicting row is committed by the time the index
// fires, so re-checking gives a definite answer.
func (s *userService) classifyDuplicate(ctx context.Context, username string, excludeID uuid.UUID) error {
	if taken, err := s.userRepo.ExistsByUsername(ctx, username, excludeID); err == nil && taken {
		return errors.ErrDuplicateUsername
	}
	return errors.ErrDuplicateCode
}

// Delete removes a user. Client payments are removed first, inside the same
// transaction, so the foreign key is never left dangling.
func (s *userService) Delete(ctx context.Context, principal auth.Principal, id uuid.UUID) error {
	if !CanManageUsers(principal) {
		return errors.ErrForbidden
	}

	err := s.userRepo.WithTransaction(ctx, func(ctx context.Context, users repository.UserRepository, payments repository.PaymentRepository) error {
		user, err := users.FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.ErrUserNotFound
			}
			return fmt.Errorf("find user: %w", err)
		}

		if user.IsClient() {
			if err := payments.DeleteByClientID(ctx, id); err != nil {
				return fmt.Errorf("cascade payments: %w", err)
			}
		}

		return users.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	_ = s.cache.Delete(ctx, userCacheKey(id))

	log := logger.Get()
	log.Info().Str("user_id", id.String()).Msg("user deleted")
	return nil
}

// List returns users matching the optional role filter. Client rows carry
// their aggregates and payment collections for the summary view.
func (s *userService) List(ctx context.Context, principal auth.Principal, role *model.Role) ([]model.User, error) {
	if !CanViewUsers(principal) {
		return nil, errors.ErrForbidden
	}
	if role != nil && !role.Valid() {
		return nil, errors.ErrInvalidRole
	}
	return s.userRepo.List(ctx, role)
}

// Get returns a single user, including the payment collection for clients.
// Reads go through the cache; ledger mutations invalidate the entry.
func (s *userService) Get(ctx context.Context, principal auth.Principal, id uuid.UUID) (*model.User, error) {
	if !CanViewUser(principal, id) {
		return nil, errors.ErrForbidden
	}

	if data, _ := s.cache.Get(ctx, userCacheKey(id)); data != nil {
		var cached model.User
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	user, err := s.userRepo.FindByIDWithPayments(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if payload, err := json.Marshal(user); err == nil {
		_ = s.cache.Set(ctx, userCacheKey(id), payload, userCacheTTL)
	}
	return user, nil
}
