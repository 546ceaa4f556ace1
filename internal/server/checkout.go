package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	checkoutdomain "github.com/smallbiznis/tourdesk/internal/checkout/domain"
)

type checkoutBookingRequest struct {
	BookingID string `json:"booking_id"`
	Method    string `json:"method"`
}

type checkoutSubscriptionRequest struct {
	MemberID string `json:"member_id"`
	Tier     string `json:"tier"`
	Method   string `json:"method"`
}

type confirmPaymentRequest struct {
	ExternalID string `json:"external_id"`
}

func (s *Server) CheckoutBooking(c *gin.Context) {
	var req checkoutBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.checkoutSvc.CheckoutBooking(c.Request.Context(), checkoutdomain.BookingCheckoutRequest{
		BookingID: strings.TrimSpace(req.BookingID),
		Method:    strings.TrimSpace(req.Method),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CheckoutSubscription(c *gin.Context) {
	var req checkoutSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	memberID := strings.TrimSpace(req.MemberID)
	if memberID == "" {
		memberID, _, _ = actorFromContext(c)
	}

	resp, err := s.checkoutSvc.CheckoutSubscription(c.Request.Context(), checkoutdomain.SubscriptionCheckoutRequest{
		MemberID: memberID,
		Tier:     strings.TrimSpace(req.Tier),
		Method:   strings.TrimSpace(req.Method),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPayment(c *gin.Context) {
	resp, err := s.checkoutSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ConfirmPayment(c *gin.Context) {
	var req confirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.checkoutSvc.Confirm(c.Request.Context(), checkoutdomain.ConfirmRequest{
		PaymentID:  strings.TrimSpace(c.Param("id")),
		ExternalID: strings.TrimSpace(req.ExternalID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// HandleGatewayWebhook acknowledges declined payments with 200 so the
// gateway stops retrying them.
func (s *Server) HandleGatewayWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.checkoutSvc.HandleGatewayCallback(c.Request.Context(), payload, c.Request.Header)
	if err != nil {
		if errors.Is(err, checkoutdomain.ErrPaymentDeclined) {
			c.JSON(http.StatusOK, gin.H{"status": "declined"})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "data": resp})
}

func (s *Server) DownloadVoucher(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	reader, err := s.checkoutSvc.Voucher(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.DataFromReader(http.StatusOK, -1, "application/pdf", reader, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="voucher-%s.pdf"`, id),
	})
}
