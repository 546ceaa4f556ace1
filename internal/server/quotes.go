package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tourdesk/internal/authorization"
	pricingdomain "github.com/smallbiznis/tourdesk/internal/pricing/domain"
	refunddomain "github.com/smallbiznis/tourdesk/internal/refund/domain"
)

type quoteTourRequest struct {
	TourID   string `json:"tour_id"`
	MemberID string `json:"member_id"`
}

type quoteSpaceRequest struct {
	SpaceID  string `json:"space_id"`
	MemberID string `json:"member_id"`
}

type quoteRefundRequest struct {
	ScheduledDate string `json:"scheduled_date"`
	AmountPaid    string `json:"amount_paid"`
}

func (s *Server) QuoteTour(c *gin.Context) {
	var req quoteTourRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	memberID, err := s.quoteMember(c, req.MemberID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.pricingSvc.QuoteTour(c.Request.Context(), pricingdomain.QuoteTourRequest{
		TourID:   strings.TrimSpace(req.TourID),
		MemberID: memberID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) QuoteSpace(c *gin.Context) {
	var req quoteSpaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	memberID, err := s.quoteMember(c, req.MemberID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.pricingSvc.QuoteSpace(c.Request.Context(), pricingdomain.QuoteSpaceRequest{
		SpaceID:  strings.TrimSpace(req.SpaceID),
		MemberID: memberID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) QuoteRefund(c *gin.Context) {
	var req quoteRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.refundSvc.Quote(c.Request.Context(), refunddomain.QuoteRequest{
		ScheduledDate: strings.TrimSpace(req.ScheduledDate),
		AmountPaid:    strings.TrimSpace(req.AmountPaid),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// quoteMember picks whose prices a quote shows: the caller by default, a
// named member only for staff. Anonymous callers get public prices.
func (s *Server) quoteMember(c *gin.Context, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	actorID, _, ok := actorFromContext(c)
	if requested == "" {
		return actorID, nil
	}
	if !ok {
		return "", ErrUnauthorized
	}
	if err := s.authorizeSelfOr(c, requested, authorization.ObjectMember, authorization.ActionMemberViewAny); err != nil {
		return "", err
	}
	return requested, nil
}
