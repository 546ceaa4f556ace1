package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tourdesk/internal/authorization"
	bookingdomain "github.com/smallbiznis/tourdesk/internal/booking/domain"
	"github.com/smallbiznis/tourdesk/pkg/db/pagination"
)

type bookTourRequest struct {
	TourID   string `json:"tour_id"`
	MemberID string `json:"member_id"`
}

type bookSpaceRequest struct {
	SpaceID  string `json:"space_id"`
	Date     string `json:"date"`
	MemberID string `json:"member_id"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) BookTour(c *gin.Context) {
	var req bookTourRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	memberID, err := s.bookingMember(c, req.MemberID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.bookingSvc.BookTour(c.Request.Context(), bookingdomain.BookTourRequest{
		MemberID: memberID,
		TourID:   strings.TrimSpace(req.TourID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) BookSpace(c *gin.Context) {
	var req bookSpaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	memberID, err := s.bookingMember(c, req.MemberID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.bookingSvc.BookSpace(c.Request.Context(), bookingdomain.BookSpaceRequest{
		MemberID: memberID,
		SpaceID:  strings.TrimSpace(req.SpaceID),
		Date:     strings.TrimSpace(req.Date),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetBooking(c *gin.Context) {
	resp, err := s.bookingSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelTourBooking(c *gin.Context) {
	s.cancelBooking(c, s.bookingSvc.CancelTourBooking)
}

func (s *Server) CancelSpaceBooking(c *gin.Context) {
	s.cancelBooking(c, s.bookingSvc.CancelSpaceBooking)
}

// cancelBooking accepts an empty body; the reason is optional.
func (s *Server) cancelBooking(c *gin.Context, cancel func(context.Context, bookingdomain.CancelRequest) (*bookingdomain.CancelResponse, error)) {
	var req cancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := cancel(c.Request.Context(), bookingdomain.CancelRequest{
		BookingID: strings.TrimSpace(c.Param("id")),
		Reason:    strings.TrimSpace(req.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListMemberBookings(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.bookingSvc.ListByMember(c.Request.Context(), strings.TrimSpace(c.Param("id")), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// bookingMember books for the caller unless staff names another member.
func (s *Server) bookingMember(c *gin.Context, requested string) (string, error) {
	actorID, _, ok := actorFromContext(c)
	if !ok {
		return "", ErrUnauthorized
	}
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return actorID, nil
	}
	if err := s.authorizeSelfOr(c, requested, authorization.ObjectBooking, authorization.ActionBookingViewAny); err != nil {
		return "", err
	}
	return requested, nil
}
