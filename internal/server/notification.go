package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tourdesk/internal/authorization"
)

func (s *Server) ListNotifications(c *gin.Context) {
	memberID := strings.TrimSpace(c.Param("id"))
	if err := s.authorizeSelfOr(c, memberID, authorization.ObjectMember, authorization.ActionMemberViewAny); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.notificationSvc.List(c.Request.Context(), memberID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// MarkNotificationRead only lets members clear their own inbox.
func (s *Server) MarkNotificationRead(c *gin.Context) {
	memberID := strings.TrimSpace(c.Param("id"))
	if actorID, _, _ := actorFromContext(c); actorID != memberID {
		AbortWithError(c, ErrForbidden)
		return
	}

	if err := s.notificationSvc.MarkRead(c.Request.Context(), memberID, strings.TrimSpace(c.Param("notification_id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
