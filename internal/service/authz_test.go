package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"payledger/internal/auth"
	"payledger/internal/model"
)

func TestRolePermissionMatrix(t *testing.T) {
	admin := auth.Principal{ID: uuid.New(), Role: model.RoleAdmin}
	collab := auth.Principal{ID: uuid.New(), Role: model.RoleCollaborator}
	client := auth.Principal{ID: uuid.New(), Role: model.RoleClient}

	tests := []struct {
		name      string
		principal auth.Principal
		manage    bool
		viewUsers bool
		mutate    bool
	}{
		{name: "admin", principal: admin, manage: true, viewUsers: true, mutate: true},
		{name: "collaborator", principal: collab, manage: false, viewUsers: true, mutate: true},
		{name: "client", principal: client, manage: false, viewUsers: false, mutate: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.manage, CanManageUsers(tt.principal))
			assert.Equal(t, tt.viewUsers, CanViewUsers(tt.principal))
			assert.Equal(t, tt.mutate, CanMutatePayments(tt.principal))
		})
	}
}

func TestCanViewUserSelfAccess(t *testing.T) {
	client := auth.Principal{ID: uuid.New(), Role: model.RoleClient}
	other := uuid.New()

	assert.True(t, CanViewUser(client, client.ID))
	assert.False(t, CanViewUser(client, other))

	collab := auth.Principal{ID: uuid.New(), Role: model.RoleCollaborator}
	assert.True(t, CanViewUser(collab, other))
}

func TestCanViewPaymentsFilter(t *testing.T) {
	client := auth.Principal{ID: uuid.New(), Role: model.RoleClient}
	own := client.ID
	other := uuid.New()

	assert.True(t, CanViewPayments(client, &own))
	assert.False(t, CanViewPayments(client, &other))
	assert.False(t, CanViewPayments(client, nil), "clients may not list all payments")

	admin := auth.Principal{ID: uuid.New(), Role: model.RoleAdmin}
	assert.True(t, CanViewPayments(admin, nil))
	assert.True(t, CanViewPayments(admin, &other))
}
