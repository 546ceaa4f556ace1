package authorization

import (
	"context"
	"errors"
)

const (
	ObjectCatalog      = "catalog"
	ObjectSettings     = "settings"
	ObjectPayment      = "payment"
	ObjectMember       = "member"
	ObjectBooking      = "booking"
	ObjectNotification = "notification"
	ObjectScheduler    = "scheduler"
)

const (
	ActionCatalogManage = "catalog.manage"

	ActionSettingsView   = "settings.view"
	ActionSettingsManage = "settings.manage"

	ActionPaymentCheckout = "payment.checkout"
	ActionPaymentConfirm  = "payment.confirm"

	ActionMemberViewAny  = "member.view_any"
	ActionMemberActivate = "member.activate"

	ActionBookingCreate  = "booking.create"
	ActionBookingCancel  = "booking.cancel"
	ActionBookingViewAny = "booking.view_any"

	ActionNotificationRead = "notification.read"

	ActionSchedulerRun = "scheduler.run"
)

type Service interface {
	// Authorize checks whether the member, acting with role, may perform
	// action on object. The member is linked to the role on first use.
	Authorize(ctx context.Context, memberID string, role string, object string, action string) error
}

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidRole   = errors.New("invalid_role")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)
