package authorization

import (
	"context"
	"testing"

	"github.com/smallbiznis/tourdesk/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) *ServiceImpl {
	t.Helper()
	db := dbtest.Open(t)
	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer}).(*ServiceImpl)
}

func TestAuthorizeUserPermissions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.NoError(t, svc.Authorize(ctx, "1001", "USER", ObjectBooking, ActionBookingCreate))
	assert.NoError(t, svc.Authorize(ctx, "1001", "user", ObjectPayment, ActionPaymentCheckout))
	assert.ErrorIs(t, svc.Authorize(ctx, "1001", "USER", ObjectCatalog, ActionCatalogManage), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, "1001", "USER", ObjectPayment, ActionPaymentConfirm), ErrForbidden)
}

func TestAuthorizeAdminPermissions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, tc := range []struct{ object, action string }{
		{ObjectCatalog, ActionCatalogManage},
		{ObjectSettings, ActionSettingsManage},
		{ObjectPayment, ActionPaymentConfirm},
		{ObjectScheduler, ActionSchedulerRun},
	} {
		assert.NoError(t, svc.Authorize(ctx, "2002", "ADMIN", tc.object, tc.action), tc.action)
	}
}

func TestAuthorizeFollowsRoleChanges(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Authorize(ctx, "3003", "ADMIN", ObjectCatalog, ActionCatalogManage))
	assert.ErrorIs(t, svc.Authorize(ctx, "3003", "USER", ObjectCatalog, ActionCatalogManage), ErrForbidden)

	links, err := svc.enforcer.GetFilteredGroupingPolicy(0, "member:3003")
	require.NoError(t, err)
	assert.Len(t, links, 1)
	assert.Equal(t, roleUser, links[0][1])
}

func TestAuthorizeRejectsBadInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, "", "USER", ObjectBooking, ActionBookingCreate), ErrUnauthorized)
	assert.ErrorIs(t, svc.Authorize(ctx, "abc", "USER", ObjectBooking, ActionBookingCreate), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "1001", "GUEST", ObjectBooking, ActionBookingCreate), ErrInvalidRole)
	assert.ErrorIs(t, svc.Authorize(ctx, "1001", "USER", " ", ActionBookingCreate), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, "1001", "USER", ObjectBooking, ""), ErrInvalidAction)
}

func TestNewEnforcerSeedIsIdempotent(t *testing.T) {
	db := dbtest.Open(t)
	_, err := NewEnforcer(db)
	require.NoError(t, err)
	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)

	policies, err := enforcer.GetPolicy()
	require.NoError(t, err)
	assert.Len(t, policies, 16)
}
