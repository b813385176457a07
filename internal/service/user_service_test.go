package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"payledger/internal/auth"
	"payledger/internal/errors"
	"payledger/internal/model"
	"payledger/internal/repository"
)

func newRegistryFixture(t *testing.T) (*memDB, UserService) {
	t.Helper()
	db := newMemDB()
	return db, NewUserService(db.userRepo(), nil)
}

func TestCreateUserHashesPasswordAndDefaults(t *testing.T) {
	_, svc := newRegistryFixture(t)

	user, err := svc.Create(context.Background(), adminPrincipal(), CreateUserRequest{
		Code:     "CLI001",
		Name:     "Cliente Uno",
		Username: "cliente1",
		Password: "secreto123",
		Role:     model.RoleClient,
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secreto123")))
	assert.True(t, user.TotalInvestment.Equal(decimal.Zero), "investment defaults to zero")
	assert.True(t, user.TotalPaid.Equal(decimal.Zero), "no payments yet")
}

func TestCreateUserUniqueness(t *testing.T) {
	_, svc := newRegistryFixture(t)
	ctx := context.Background()
	admin := adminPrincipal()

	_, err := svc.Create(ctx, admin, CreateUserRequest{
		Code: "A001", Name: "Uno", Username: "uno", Password: "pw123456", Role: model.RoleClient,
	})
	require.NoError(t, err)

	// Username is unique across all roles.
	_, err = svc.Create(ctx, admin, CreateUserRequest{
		Code: "B001", Name: "Dos", Username: "uno", Password: "pw123456", Role: model.RoleAdmin,
	})
	assert.ErrorIs(t, err, errors.ErrDuplicateUsername)

	// Code is unique within a role only.
	_, err = svc.Create(ctx, admin, CreateUserRequest{
		Code: "A001", Name: "Tres", Username: "tres", Password: "pw123456", Role: model.RoleCollaborator,
	})
	assert.NoError(t, err, "same code under another role")

	_, err = svc.Create(ctx, admin, CreateUserRequest{
		Code: "A001", Name: "Cuatro", Username: "cuatro", Password: "pw123456", Role: model.RoleClient,
	})
	assert.ErrorIs(t, err, errors.ErrDuplicateCode)
}

func TestCreateUserInvalidRole(t *testing.T) {
	_, svc := newRegistryFixture(t)

	_, err := svc.Create(context.Background(), adminPrincipal(), CreateUserRequest{
		Code: "X001", Name: "X", Username: "x", Password: "pw123456", Role: model.Role("SUPERUSER"),
	})
	assert.ErrorIs(t, err, errors.ErrInvalidRole)
}

func TestUpdateUserPartialSemantics(t *testing.T) {
	db, svc := newRegistryFixture(t)
	ctx := context.Background()
	admin := adminPrincipal()

	created, err := svc.Create(ctx, admin, CreateUserRequest{
		Code: "CLI001", Name: "Cliente", Username: "cliente1", Password: "original1", Role: model.RoleClient,
	})
	require.NoError(t, err)
	originalHash := created.PasswordHash

	// Empty password keeps the stored credential.
	empty := ""
	name := "Cliente Renombrado"
	updated, err := svc.Update(ctx, admin, created.ID, UpdateUserRequest{Name: &name, Password: &empty})
	require.NoError(t, err)
	assert.Equal(t, originalHash, updated.PasswordHash)
	assert.Equal(t, "Cliente Renombrado", updated.Name)

	// A non-empty password is re-hashed.
	newPass := "renovada1"
	updated, err = svc.Update(ctx, admin, created.ID, UpdateUserRequest{Password: &newPass})
	require.NoError(t, err)
	assert.NotEqual(t, originalHash, updated.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte(newPass)))

	// Investment target is settable for clients.
	investment := decimal.NewFromInt(10000)
	updated, err = svc.Update(ctx, admin, created.ID, UpdateUserRequest{TotalInvestment: &investment})
	require.NoError(t, err)
	assert.True(t, updated.TotalInvestment.Equal(investment))

	stored, err := db.userRepo().FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "cliente1", stored.Username, "untouched fields survive")
}

func TestUpdateUserUniquenessRechecked(t *testing.T) {
	_, svc := newRegistryFixture(t)
	ctx := context.Background()
	admin := adminPrincipal()

	first, err := svc.Create(ctx, admin, CreateUserRequest{
		Code: "A001", Name: "Uno", Username: "uno", Password: "pw123456", Role: model.RoleClient,
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, admin, CreateUserRequest{
		Code: "A002", Name: "Dos", Username: "dos", Password: "pw123456", Role: model.RoleClient,
	})
	require.NoError(t, err)

	taken := "dos"
	_, err = svc.Update(ctx, admin, first.ID, UpdateUserRequest{Username: &taken})
	assert.ErrorIs(t, err, errors.ErrDuplicateUsername)

	code := "A002"
	_, err = svc.Update(ctx, admin, first.ID, UpdateUserRequest{Code: &code})
	assert.ErrorIs(t, err, errors.ErrDuplicateCode)

	// Re-submitting the current values is not a collision.
	same := "uno"
	sameCode := "A001"
	_, err = svc.Update(ctx, admin, first.ID, UpdateUserRequest{Username: &same, Code: &sameCode})
	assert.NoError(t, err)
}

func TestDeleteUserCascadesClientPayments(t *testing.T) {
	db, svc := newRegistryFixture(t)
	ctx := context.Background()
	admin := adminPrincipal()

	clientID := db.addUser(model.User{
		Code: "CLI001", Name: "Cliente", Username: "cliente1", PasswordHash: "x", Role: model.RoleClient,
	})
	db.addPayment(model.Payment{ClientID: clientID, Category: "A", Concept: "1", Amount: decimal.NewFromInt(100)})
	db.addPayment(model.Payment{ClientID: clientID, Category: "A", Concept: "2", Amount: decimal.NewFromInt(200)})

	require.NoError(t, svc.Delete(ctx, admin, clientID))

	_, err := db.userRepo().FindByID(ctx, clientID)
	assert.Error(t, err)
	rows, err := db.paymentRepo().FindByClientID(ctx, clientID)
	require.NoError(t, err)
	assert.Empty(t, rows, "client payments removed with the account")
}

func TestDeleteUserNotFound(t *testing.T) {
	_, svc := newRegistryFixture(t)
	assert.ErrorIs(t, svc.Delete(context.Background(), adminPrincipal(), uuid.New()), errors.ErrUserNotFound)
}

func TestListUsersRoleFilter(t *testing.T) {
	db, svc := newRegistryFixture(t)
	ctx := context.Background()

	db.addUser(model.User{Code: "ADM001", Name: "Admin", Username: "admin", PasswordHash: "x", Role: model.RoleAdmin})
	db.addUser(model.User{Code: "CLI001", Name: "Cliente A", Username: "ca", PasswordHash: "x", Role: model.RoleClient})
	db.addUser(model.User{Code: "CLI002", Name: "Cliente B", Username: "cb", PasswordHash: "x", Role: model.RoleClient})

	all, err := svc.List(ctx, adminPrincipal(), nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	role := model.RoleClient
	clients, err := svc.List(ctx, collaboratorPrincipal(), &role)
	require.NoError(t, err)
	assert.Len(t, clients, 2)

	bad := model.Role("GHOST")
	_, err = svc.List(ctx, adminPrincipal(), &bad)
	assert.ErrorIs(t, err, errors.ErrInvalidRole)
}

func TestGetUserIncludesClientPayments(t *testing.T) {
	db, svc := newRegistryFixture(t)
	ctx := context.Background()

	clientID := db.addUser(model.User{
		Code: "CLI001", Name: "Cliente", Username: "cliente1", PasswordHash: "x", Role: model.RoleClient,
	})
	db.addPayment(model.Payment{ClientID: clientID, Category: "A", Concept: "1", Amount: decimal.NewFromInt(100)})

	user, err := svc.Get(ctx, adminPrincipal(), clientID)
	require.NoError(t, err)
	assert.Len(t, user.Payments, 1)

	_, err = svc.Get(ctx, adminPrincipal(), uuid.New())
	assert.ErrorIs(t, err, errors.ErrUserNotFound)
}

// raceWindowRepo reports one false negative per uniqueness check, standing in
// for a concurrent insert landing between the existence check and the write.
type raceWindowRepo struct {
	repository.UserRepository
	usernameChecked bool
	codeChecked     bool
}

func (r *raceWindowRepo) ExistsByUsername(ctx context.Context, username string, excludeID uuid.UUID) (bool, error) {
	if !r.usernameChecked {
		r.usernameChecked = true
		return false, nil
	}
	return r.UserRepository.ExistsByUsername(ctx, username, excludeID)
}

func (r *raceWindowRepo) ExistsByCodeAndRole(ctx context.Context, code string, role model.Role, excludeID uuid.UUID) (bool, error) {
	if !r.codeChecked {
		r.codeChecked = true
		return false, nil
	}
	return r.UserRepository.ExistsByCodeAndRole(ctx, code, role, excludeID)
}

// A duplicate that slips past the pre-checks hits the unique index; the
// resulting error must still map to the precise conflict, not an internal one.
func TestCreateUserConcurrentDuplicateMapsToConflict(t *testing.T) {
	ctx := context.Background()
	admin := adminPrincipal()

	t.Run("username index", func(t *testing.T) {
		db := newMemDB()
		db.addUser(model.User{Code: "A001", Name: "Uno", Username: "uno", PasswordHash: "x", Role: model.RoleClient})
		svc := NewUserService(&raceWindowRepo{UserRepository: db.userRepo()}, nil)

		_, err := svc.Create(ctx, admin, CreateUserRequest{
			Code: "B001", Name: "Dos", Username: "uno", Password: "pw123456", Role: model.RoleAdmin,
		})
		assert.ErrorIs(t, err, errors.ErrDuplicateUsername)
	})

	t.Run("code index", func(t *testing.T) {
		db := newMemDB()
		db.addUser(model.User{Code: "A001", Name: "Uno", Username: "uno", PasswordHash: "x", Role: model.RoleClient})
		svc := NewUserService(&raceWindowRepo{UserRepository: db.userRepo()}, nil)

		_, err := svc.Create(ctx, admin, CreateUserRequest{
			Code: "A001", Name: "Dos", Username: "dos", Password: "pw123456", Role: model.RoleClient,
		})
		assert.ErrorIs(t, err, errors.ErrDuplicateCode)
	})
}

func TestUserRegistryAuthorization(t *testing.T) {
	db, svc := newRegistryFixture(t)
	ctx := context.Background()

	selfID := db.addUser(model.User{
		Code: "CLI001", Name: "Cliente", Username: "cliente1", PasswordHash: "x", Role: model.RoleClient,
	})
	otherID := db.addUser(model.User{
		Code: "CLI002", Name: "Otro", Username: "cliente2", PasswordHash: "x", Role: model.RoleClient,
	})
	client := auth.Principal{ID: selfID, Role: model.RoleClient}
	collab := collaboratorPrincipal()

	// Only administrators manage the registry.
	_, err := svc.Create(ctx, collab, CreateUserRequest{
		Code: "X001", Name: "X", Username: "x", Password: "pw123456", Role: model.RoleClient,
	})
	assert.ErrorIs(t, err, errors.ErrForbidden)
	name := "n"
	_, err = svc.Update(ctx, collab, selfID, UpdateUserRequest{Name: &name})
	assert.ErrorIs(t, err, errors.ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, collab, selfID), errors.ErrForbidden)

	// Clients may fetch themselves only; listing is staff-only.
	_, err = svc.Get(ctx, client, selfID)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, client, otherID)
	assert.ErrorIs(t, err, errors.ErrForbidden)
	_, err = svc.List(ctx, client, nil)
	assert.ErrorIs(t, err, errors.ErrForbidden)
}
