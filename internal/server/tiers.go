package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	tierdomain "github.com/trackmint/trackmint/internal/tier/domain"
)

type createTierRequest struct {
	Name                 string          `json:"name" binding:"required"`
	Level                int             `json:"level"`
	CommissionMultiplier decimal.Decimal `json:"commission_multiplier" binding:"required"`
	Requirements         map[string]any  `json:"requirements"`
	Benefits             map[string]any  `json:"benefits"`
}

func (s *Server) createTier(c *gin.Context) {
	var req createTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: errorDetail{
			Code:    "invalid_request",
			Message: err.Error(),
		}})
		return
	}

	tier, err := s.tiers.Create(c.Request.Context(), tierdomain.CreateTierRequest{
		Name:                 req.Name,
		Level:                req.Level,
		CommissionMultiplier: req.CommissionMultiplier,
		Requirements:         req.Requirements,
		Benefits:             req.Benefits,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tier": tier})
}

func (s *Server) listTiers(c *gin.Context) {
	tiers, err := s.tiers.List(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tiers": tiers})
}
