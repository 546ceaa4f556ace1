package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tourdesk/internal/authorization"
	bookingdomain "github.com/smallbiznis/tourdesk/internal/booking/domain"
	catalogdomain "github.com/smallbiznis/tourdesk/internal/catalog/domain"
	checkoutdomain "github.com/smallbiznis/tourdesk/internal/checkout/domain"
	"github.com/smallbiznis/tourdesk/internal/localdate"
	"github.com/smallbiznis/tourdesk/internal/lock"
	membershipdomain "github.com/smallbiznis/tourdesk/internal/membership/domain"
	notificationdomain "github.com/smallbiznis/tourdesk/internal/notification/domain"
	pricingdomain "github.com/smallbiznis/tourdesk/internal/pricing/domain"
	"github.com/smallbiznis/tourdesk/internal/providers/gateway"
	refunddomain "github.com/smallbiznis/tourdesk/internal/refund/domain"
	settingsdomain "github.com/smallbiznis/tourdesk/internal/settings/domain"
	"github.com/smallbiznis/tourdesk/pkg/db/pagination"
	"gorm.io/gorm"
)

// internalErrorMessage is what clients see for anything unexpected.
const internalErrorMessage = "cannot compute price/refund, please contact support"

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: internalErrorMessage,
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isForbiddenError(err):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, checkoutdomain.ErrPaymentDeclined):
		return http.StatusPaymentRequired, errorPayload{
			Type:    "payment_declined",
			Code:    err.Error(),
			Message: "payment declined",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Code:    conflictCode(err),
			Message: "conflict",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: internalErrorMessage,
		}
	}
}

// classifyErrorForLog feeds the request logger the same type/code the
// client receives.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Code
	if code == "" && len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, localdate.ErrInvalidDate),
		errors.Is(err, pagination.ErrInvalidPageToken),
		errors.Is(err, gateway.ErrInvalidPayload):
		return true
	case isMembershipValidationError(err),
		isCatalogValidationError(err),
		isPricingValidationError(err),
		isRefundValidationError(err),
		isSettingsValidationError(err),
		isNotificationValidationError(err),
		isBookingValidationError(err),
		isCheckoutValidationError(err):
		return true
	default:
		return false
	}
}

func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authorization.ErrUnauthorized),
		errors.Is(err, authorization.ErrInvalidActor),
		errors.Is(err, gateway.ErrInvalidSignature):
		return true
	default:
		return false
	}
}

func isForbiddenError(err error) bool {
	switch {
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, bookingdomain.ErrForbidden),
		errors.Is(err, checkoutdomain.ErrForbidden):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, membershipdomain.ErrNotFound),
		errors.Is(err, catalogdomain.ErrNotFound),
		errors.Is(err, pricingdomain.ErrNotFound),
		errors.Is(err, notificationdomain.ErrNotFound),
		errors.Is(err, bookingdomain.ErrNotFound),
		errors.Is(err, checkoutdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, membershipdomain.ErrEmailTaken),
		errors.Is(err, membershipdomain.ErrConcurrentUpdate),
		errors.Is(err, membershipdomain.ErrNoActivePlan),
		errors.Is(err, settingsdomain.ErrConcurrentUpdate),
		errors.Is(err, bookingdomain.ErrNotCancellable),
		errors.Is(err, bookingdomain.ErrTourNotBookable),
		errors.Is(err, bookingdomain.ErrTourNotOpenYet),
		errors.Is(err, bookingdomain.ErrTourFull),
		errors.Is(err, bookingdomain.ErrAlreadyBooked),
		errors.Is(err, bookingdomain.ErrDateUnavailable),
		errors.Is(err, bookingdomain.ErrConcurrentUpdate),
		errors.Is(err, checkoutdomain.ErrNotPayable),
		errors.Is(err, checkoutdomain.ErrAlreadyPaid),
		errors.Is(err, checkoutdomain.ErrNothingToPay),
		errors.Is(err, lock.ErrNotAcquired):
		return true
	default:
		return false
	}
}

func conflictCode(err error) string {
	if errors.Is(err, lock.ErrNotAcquired) {
		return "concurrent_update"
	}
	return err.Error()
}

func isMembershipValidationError(err error) bool {
	switch {
	case errors.Is(err, membershipdomain.ErrInvalidID),
		errors.Is(err, membershipdomain.ErrInvalidEmail),
		errors.Is(err, membershipdomain.ErrInvalidName),
		errors.Is(err, membershipdomain.ErrInvalidTier):
		return true
	default:
		return false
	}
}

func isCatalogValidationError(err error) bool {
	switch {
	case errors.Is(err, catalogdomain.ErrInvalidID),
		errors.Is(err, catalogdomain.ErrInvalidDestination),
		errors.Is(err, catalogdomain.ErrInvalidName),
		errors.Is(err, catalogdomain.ErrInvalidPrice),
		errors.Is(err, catalogdomain.ErrInvalidDistance),
		errors.Is(err, catalogdomain.ErrInvalidCapacity),
		errors.Is(err, catalogdomain.ErrInvalidStatus),
		errors.Is(err, catalogdomain.ErrInvalidSpaceType),
		errors.Is(err, catalogdomain.ErrInvalidDateRange):
		return true
	default:
		return false
	}
}

func isPricingValidationError(err error) bool {
	switch {
	case errors.Is(err, pricingdomain.ErrInvalidTour),
		errors.Is(err, pricingdomain.ErrInvalidSpace):
		return true
	default:
		return false
	}
}

func isRefundValidationError(err error) bool {
	return errors.Is(err, refunddomain.ErrInvalidAmount)
}

func isSettingsValidationError(err error) bool {
	switch {
	case errors.Is(err, settingsdomain.ErrInvalidCancellationHours),
		errors.Is(err, settingsdomain.ErrInvalidCBU):
		return true
	default:
		return false
	}
}

func isNotificationValidationError(err error) bool {
	switch {
	case errors.Is(err, notificationdomain.ErrInvalidMember),
		errors.Is(err, notificationdomain.ErrInvalidID):
		return true
	default:
		return false
	}
}

func isBookingValidationError(err error) bool {
	switch {
	case errors.Is(err, bookingdomain.ErrInvalidID),
		errors.Is(err, bookingdomain.ErrInvalidMember),
		errors.Is(err, bookingdomain.ErrInvalidItem),
		errors.Is(err, bookingdomain.ErrWrongKind),
		errors.Is(err, bookingdomain.ErrDateInPast):
		return true
	default:
		return false
	}
}

func isCheckoutValidationError(err error) bool {
	switch {
	case errors.Is(err, checkoutdomain.ErrInvalidID),
		errors.Is(err, checkoutdomain.ErrInvalidMethod),
		errors.Is(err, checkoutdomain.ErrInvalidTier):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	for _, target := range []error{localdate.ErrInvalidDate, pagination.ErrInvalidPageToken} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return rootMessage(err)
}

// rootMessage strips "context: " prefixes added by %w wrapping.
func rootMessage(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}
