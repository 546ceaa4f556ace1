package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RunScheduler runs every enabled job once, outside the regular interval.
func (s *Server) RunScheduler(c *gin.Context) {
	if s.scheduler == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	if err := s.scheduler.RunOnce(c.Request.Context()); err != nil {
		s.log.Warn("manual scheduler run failed", zap.Error(err))
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
