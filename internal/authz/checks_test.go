package authz

import (
	"context"
	"testing"

	"warehouse-system/internal/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeUser(role string, superuser bool) *entities.User {
	return &entities.User{ID: 7, Username: "ivanov", RoleCode: role, IsSuperuser: superuser, IsActive: true}
}

func TestChecks(t *testing.T) {
	viewer := NewNormalContext(activeUser(RoleViewer, false), []string{OpenOrdersView})
	admin := NewNormalContext(activeUser(RoleAdmin, true), nil)
	emergency := NewEmergencyContext()

	disabledUser := activeUser(RoleManager, false)
	disabledUser.IsActive = false
	disabled := NewNormalContext(disabledUser, []string{OpenOrdersImport})

	testCases := []struct {
		name  string
		ctx   *Context
		check Check
		want  bool
	}{
		{"viewer can view", viewer, HasPermission{Name: OpenOrdersView}, true},
		{"viewer cannot import", viewer, HasPermission{Name: OpenOrdersImport}, false},
		{"viewer role", viewer, HasRole{Code: "VIEWER"}, true},
		{"viewer not superuser", viewer, IsSuperuser{}, false},
		{"admin flag is superuser", admin, IsSuperuser{}, true},
		{"admin passes AdminOr", admin, AdminOr(OpenOrdersImport), true},
		{"emergency is emergency admin", emergency, IsEmergencyAdmin{}, true},
		{"emergency passes AdminOr", emergency, AdminOr(OpenOrdersExport), true},
		{"emergency has no role", emergency, HasRole{Code: RoleAdmin}, false},
		{"emergency has no raw permission", emergency, HasPermission{Name: OpenOrdersView}, false},
		{"disabled user denied", disabled, HasPermission{Name: OpenOrdersImport}, false},
		{"empty AnyOf denies", viewer, AnyOf{}, false},
		{"nil check denies", viewer, nil, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.ctx.Can(tc.check))
		})
	}
}

func TestSuperuserPermissionGrantsSuperuser(t *testing.T) {
	ac := NewNormalContext(activeUser(RoleManager, false), []string{Superuser})
	assert.True(t, ac.Can(IsSuperuser{}))
}

func TestContextRoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ac := NewNormalContext(activeUser(RoleViewer, false), []string{OpenOrdersView})
	got, ok := FromContext(WithContext(context.Background(), ac))
	require.True(t, ok)
	assert.Equal(t, "ivanov", got.Username())
	assert.Equal(t, uint64(7), got.Actor().ID)

	assert.Equal(t, EmergencyUID, NewEmergencyContext().Username())
	assert.Nil(t, NewEmergencyContext().Actor())
}

func TestAnyOfString(t *testing.T) {
	assert.Equal(t, "any(superuser, emergency-admin, perm(open_orders:view))", AdminOr(OpenOrdersView).String())
}
