package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	partnerdomain "github.com/smallbiznis/partnerbot/internal/partner/domain"
	"go.uber.org/zap"
)

type partnerRequest struct {
	Name            string `json:"name"`
	InviteReference string `json:"invite_reference"`
	Description     string `json:"description"`
}

func (s *Server) ListPartners(c *gin.Context) {
	status, err := parseOptionalStatus(c.Query("status"))
	if err != nil {
		AbortWithError(c, newValidationError("status", "invalid_status", "invalid status"))
		return
	}

	partners, err := s.partners.List(c.Request.Context(), partnerdomain.ListRequest{Status: status})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": partners})
}

func (s *Server) GetPartner(c *gin.Context) {
	partner, err := s.partners.Get(c.Request.Context(), c.Param("ref"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": partner})
}

func (s *Server) AddPartner(c *gin.Context) {
	var req partnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	partner, err := s.partners.AddManual(c.Request.Context(), partnerdomain.AddRequest{
		Name:            req.Name,
		InviteReference: req.InviteReference,
		Description:     req.Description,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.log.Info("dashboard.partner_added",
		zap.String("actor", userIDFromContext(c)),
		zap.String("partner_id", partner.ID.String()),
	)
	c.JSON(http.StatusCreated, gin.H{"data": partner})
}

func (s *Server) AcceptPartner(c *gin.Context) {
	partner, err := s.partners.AcceptPending(c.Request.Context(), c.Param("ref"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.log.Info("dashboard.partner_accepted",
		zap.String("actor", userIDFromContext(c)),
		zap.String("partner_id", partner.ID.String()),
	)
	c.JSON(http.StatusOK, gin.H{"data": partner})
}

func (s *Server) DenyPartner(c *gin.Context) {
	ref := c.Param("ref")
	if err := s.partners.DenyPending(c.Request.Context(), ref); err != nil {
		AbortWithError(c, err)
		return
	}

	s.log.Info("dashboard.partner_denied",
		zap.String("actor", userIDFromContext(c)),
		zap.String("ref", ref),
	)
	c.Status(http.StatusNoContent)
}

func (s *Server) RemovePartner(c *gin.Context) {
	ref := c.Param("ref")
	if err := s.partners.Remove(c.Request.Context(), ref); err != nil {
		AbortWithError(c, err)
		return
	}

	s.log.Info("dashboard.partner_removed",
		zap.String("actor", userIDFromContext(c)),
		zap.String("ref", ref),
	)
	c.Status(http.StatusNoContent)
}

func (s *Server) ToggleExempt(c *gin.Context) {
	partner, err := s.partners.ToggleExempt(c.Request.Context(), c.Param("ref"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": partner})
}

// SubmitApplication files a pending application for the token's subject.
func (s *Server) SubmitApplication(c *gin.Context) {
	var req partnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	partner, err := s.partners.Apply(c.Request.Context(), partnerdomain.ApplyRequest{
		ApplicantID:     userIDFromContext(c),
		Name:            req.Name,
		InviteReference: req.InviteReference,
		Description:     req.Description,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": partner})
}
