package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tourdesk/internal/authorization"
	membershipdomain "github.com/smallbiznis/tourdesk/internal/membership/domain"
)

type registerMemberRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type activateMemberRequest struct {
	Tier string `json:"tier"`
}

func (s *Server) ListPlans(c *gin.Context) {
	resp, err := s.membershipSvc.ListPlans(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RegisterMember(c *gin.Context) {
	var req registerMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.membershipSvc.Register(c.Request.Context(), membershipdomain.RegisterRequest{
		Email: strings.TrimSpace(req.Email),
		Name:  strings.TrimSpace(req.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetMember(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.authorizeSelfOr(c, id, authorization.ObjectMember, authorization.ActionMemberViewAny); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.membershipSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ActivateMember(c *gin.Context) {
	var req activateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.membershipSvc.Activate(c.Request.Context(), membershipdomain.ActivateRequest{
		AccountID: strings.TrimSpace(c.Param("id")),
		Tier:      strings.TrimSpace(req.Tier),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelSubscription(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.authorizeSelfOr(c, id, authorization.ObjectMember, authorization.ActionMemberActivate); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.membershipSvc.CancelSubscription(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
