package service

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-tracker/internal/model"
)

type staticStaff struct {
	byDept map[string][]uint
	err    error
	calls  int
}

func (s *staticStaff) FindByAuthID(context.Context, string) (*model.Staff, error) {
	return nil, ErrNotFound
}

func (s *staticStaff) FindByIDs(context.Context, []uint) ([]model.Staff, error) {
	return nil, nil
}

func (s *staticStaff) IDsByDepartments(_ context.Context, departments []string) ([]uint, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var ids []uint
	for _, dept := range departments {
		ids = append(ids, s.byDept[dept]...)
	}
	return ids, nil
}

func newTestAuthorizer(staff *staticStaff) *Authorizer {
	return NewAuthorizer(NewVisibilityResolver(staff), nil)
}

func TestVisibleStaffIDs_SalesManager(t *testing.T) {
	staff := &staticStaff{byDept: map[string][]uint{
		"Sales Manager":    {1, 2},
		"Account Managers": {3},
		"IT Team":          {4},
	}}
	ids, err := NewVisibilityResolver(staff).VisibleStaffIDs(context.Background(), ptr("Sales Manager"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{1, 2, 3}, ids)
	assert.Equal(t, 1, staff.calls, "resolution must be one query")
}

func TestVisibleStaffIDs_NilDepartment(t *testing.T) {
	staff := &staticStaff{}
	ids, err := NewVisibilityResolver(staff).VisibleStaffIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Zero(t, staff.calls)
}

func TestVisibleStaffIDs_StoreFailure(t *testing.T) {
	staff := &staticStaff{err: errors.New("connection reset")}
	_, err := NewVisibilityResolver(staff).VisibleStaffIDs(context.Background(), ptr("IT Team"))
	assert.ErrorIs(t, err, ErrVisibilityLookup)
}

func TestCanMutate_AssignedTask(t *testing.T) {
	authz := newTestAuthorizer(&staticStaff{})
	access := TaskAccess{CreatorID: 5, ActiveAssignees: []uint{7, 9}}

	for _, action := range []Action{ActionEdit, ActionDelete} {
		for staffID := uint(1); staffID <= 12; staffID++ {
			err := authz.CanMutate(Actor{StaffID: staffID}, access, action)
			if staffID == 7 || staffID == 9 {
				assert.NoError(t, err, "assignee %d %s", staffID, action)
			} else {
				assert.ErrorIs(t, err, ErrForbidden, "staff %d %s", staffID, action)
			}
		}
	}
}

func TestCanMutate_CreatorNotAssignedCannotDelete(t *testing.T) {
	authz := newTestAuthorizer(&staticStaff{})
	err := authz.CanMutate(Actor{StaffID: 5}, TaskAccess{CreatorID: 5, ActiveAssignees: []uint{7, 9}}, ActionDelete)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCanMutate_UnassignedTask(t *testing.T) {
	authz := newTestAuthorizer(&staticStaff{})
	access := TaskAccess{CreatorID: 5}

	assert.NoError(t, authz.CanMutate(Actor{StaffID: 5}, access, ActionDelete))
	assert.NoError(t, authz.CanMutate(Actor{StaffID: 5}, access, ActionEdit))
	for _, staffID := range []uint{1, 4, 6, 7} {
		assert.ErrorIs(t, authz.CanMutate(Actor{StaffID: staffID}, access, ActionDelete), ErrForbidden)
	}
}

func TestPermissions(t *testing.T) {
	authz := newTestAuthorizer(&staticStaff{})

	assert.Equal(t, Permissions{CanEdit: true, CanDelete: true},
		authz.Permissions(Actor{StaffID: 7}, TaskAccess{CreatorID: 5, ActiveAssignees: []uint{7}}))
	assert.Equal(t, Permissions{},
		authz.Permissions(Actor{StaffID: 5}, TaskAccess{CreatorID: 5, ActiveAssignees: []uint{7}}))
	assert.Equal(t, Permissions{CanEdit: true, CanDelete: true},
		authz.Permissions(Actor{StaffID: 5}, TaskAccess{CreatorID: 5}))
}

func TestCanView(t *testing.T) {
	staff := &staticStaff{byDept: map[string][]uint{
		"Sales Manager":    {1},
		"Account Managers": {2},
		"IT Team":          {3},
	}}
	authz := newTestAuthorizer(staff)
	ctx := context.Background()

	tests := []struct {
		name    string
		actor   Actor
		access  TaskAccess
		allowed bool
	}{
		{"assignee in subordinate department", Actor{StaffID: 1, Department: ptr("Sales Manager")}, TaskAccess{CreatorID: 3, ActiveAssignees: []uint{2}}, true},
		{"assignee outside hierarchy", Actor{StaffID: 2, Department: ptr("Account Managers")}, TaskAccess{CreatorID: 2, ActiveAssignees: []uint{3}}, false},
		{"unassigned, creator visible", Actor{StaffID: 1, Department: ptr("Sales Manager")}, TaskAccess{CreatorID: 2}, true},
		{"unassigned, creator hidden", Actor{StaffID: 2, Department: ptr("Account Managers")}, TaskAccess{CreatorID: 1}, false},
		{"no department", Actor{StaffID: 1}, TaskAccess{CreatorID: 1}, false},
		{"department without staff", Actor{StaffID: 9, Department: ptr("Warehouse")}, TaskAccess{CreatorID: 9}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authz.CanView(ctx, tt.actor, tt.access)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrForbidden)
			}
		})
	}
}

func TestCanView_LookupFailureIsNotForbidden(t *testing.T) {
	authz := newTestAuthorizer(&staticStaff{err: errors.New("db down")})
	err := authz.CanView(context.Background(), Actor{StaffID: 1, Department: ptr("IT Team")}, TaskAccess{CreatorID: 1})
	assert.ErrorIs(t, err, ErrVisibilityLookup)
	assert.NotErrorIs(t, err, ErrForbidden)
}
