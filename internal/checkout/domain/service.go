package domain

import (
	"context"
	"errors"
	"io"
	"net/http"
)

type Service interface {
	CheckoutBooking(ctx context.Context, req BookingCheckoutRequest) (*Response, error)
	CheckoutSubscription(ctx context.Context, req SubscriptionCheckoutRequest) (*Response, error)
	// Confirm settles a pending payment by hand, e.g. once a transfer shows up.
	Confirm(ctx context.Context, req ConfirmRequest) (*Response, error)
	HandleGatewayCallback(ctx context.Context, payload []byte, headers http.Header) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	Voucher(ctx context.Context, bookingID string) (io.Reader, error)
}

type BookingCheckoutRequest struct {
	BookingID string `json:"booking_id"`
	Method    string `json:"method"`
}

type SubscriptionCheckoutRequest struct {
	MemberID string `json:"member_id"`
	Tier     string `json:"tier"`
	Method   string `json:"method"`
}

type ConfirmRequest struct {
	PaymentID  string `json:"payment_id"`
	ExternalID string `json:"external_id"`
}

type Response struct {
	Payment
}

var (
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidMethod   = errors.New("invalid_payment_method")
	ErrInvalidTier     = errors.New("invalid_tier")
	ErrNotFound        = errors.New("not_found")
	ErrForbidden       = errors.New("forbidden")
	ErrNotPayable      = errors.New("not_payable")
	ErrAlreadyPaid     = errors.New("already_paid")
	ErrNothingToPay    = errors.New("nothing_to_pay")
	ErrPaymentDeclined = errors.New("payment_declined")
)
