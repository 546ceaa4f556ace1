package domain

import (
	"context"
	"errors"

	refunddomain "github.com/smallbiznis/tourdesk/internal/refund/domain"
	"github.com/smallbiznis/tourdesk/pkg/db/pagination"
)

type Service interface {
	BookTour(ctx context.Context, req BookTourRequest) (*Response, error)
	BookSpace(ctx context.Context, req BookSpaceRequest) (*Response, error)
	CancelTourBooking(ctx context.Context, req CancelRequest) (*CancelResponse, error)
	CancelSpaceBooking(ctx context.Context, req CancelRequest) (*CancelResponse, error)
	Get(ctx context.Context, id string) (*Response, error)
	ListByMember(ctx context.Context, memberID string, page pagination.Pagination) (*ListResponse, error)
	// CompletePast moves confirmed bookings whose local date is over to COMPLETED.
	CompletePast(ctx context.Context) (int64, error)
}

type BookTourRequest struct {
	MemberID string `json:"member_id"`
	TourID   string `json:"tour_id"`
}

type BookSpaceRequest struct {
	MemberID string `json:"member_id"`
	SpaceID  string `json:"space_id"`
	Date     string `json:"date"`
}

type CancelRequest struct {
	BookingID string `json:"booking_id"`
	Reason    string `json:"reason"`
}

type Response struct {
	Booking
	RemainingKm   int64 `json:"remaining_km"`
	RemainingUses int   `json:"remaining_uses"`
}

type CancelResponse struct {
	Booking           Booking               `json:"booking"`
	Refund            refunddomain.Decision `json:"refund"`
	RefundInstruction string                `json:"refund_instruction"`
	ReturnedKm        int64                 `json:"returned_km"`
	ReturnedUses      int                   `json:"returned_uses"`
}

type ListResponse struct {
	Items    []Booking           `json:"items"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidMember    = errors.New("invalid_member")
	ErrInvalidItem      = errors.New("invalid_item")
	ErrNotFound         = errors.New("not_found")
	ErrForbidden        = errors.New("forbidden")
	ErrWrongKind        = errors.New("wrong_booking_kind")
	ErrNotCancellable   = errors.New("booking_not_cancellable")
	ErrTourNotBookable  = errors.New("tour_not_bookable")
	ErrTourNotOpenYet   = errors.New("tour_not_open_yet")
	ErrTourFull         = errors.New("tour_full")
	ErrAlreadyBooked    = errors.New("already_booked")
	ErrDateInPast       = errors.New("date_in_past")
	ErrDateUnavailable  = errors.New("date_unavailable")
	ErrConcurrentUpdate = errors.New("concurrent_update")
)
