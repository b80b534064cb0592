package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/partnerbot/internal/audit/domain"
	settingsdomain "github.com/smallbiznis/partnerbot/internal/settings/domain"
	"go.uber.org/zap"
)

func (s *Server) GetDashboard(c *gin.Context) {
	stats, err := s.partners.Stats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}

// SetApplications sets the switch when ?open= is given and toggles it otherwise.
func (s *Server) SetApplications(c *gin.Context) {
	open, err := parseOptionalBool(c.Query("open"))
	if err != nil {
		AbortWithError(c, newValidationError("open", "invalid_open", "open must be a boolean"))
		return
	}

	ctx := c.Request.Context()
	var settings settingsdomain.Settings
	if open != nil {
		settings, err = s.settings.SetApplicationsOpen(ctx, *open)
	} else {
		settings, err = s.settings.ToggleApplications(ctx)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": settings})
}

func (s *Server) RunAudit(c *gin.Context) {
	summary, err := s.audit.Run(c.Request.Context())
	if err != nil {
		if !errors.Is(err, auditdomain.ErrAuditInProgress) {
			s.log.Error("dashboard.audit_failed", zap.String("actor", userIDFromContext(c)), zap.Error(err))
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (s *Server) PostAdverts(c *gin.Context) {
	report, err := s.adverts.Post(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}
