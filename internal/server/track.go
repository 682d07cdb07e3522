package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	conversiondomain "github.com/trackmint/trackmint/internal/conversion/domain"
)

// trackClick counts the click and redirects to the destination.
func (s *Server) trackClick(c *gin.Context) {
	link, err := s.referrals.RecordClick(c.Request.Context(), c.Param("code"))
	if err != nil {
		c.Error(err)
		return
	}
	c.Redirect(http.StatusFound, link.DestinationURL)
}

type trackConversionRequest struct {
	SessionID       string          `json:"session_id" binding:"required"`
	CustomerID      string          `json:"customer_id"`
	ConversionType  string          `json:"conversion_type" binding:"required"`
	ConversionValue decimal.Decimal `json:"conversion_value"`
	Currency        string          `json:"currency"`
	IdempotencyKey  string          `json:"idempotency_key"`
	Metadata        map[string]any  `json:"metadata"`
}

func (s *Server) trackConversion(c *gin.Context) {
	var req trackConversionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: errorDetail{
			Code:    "invalid_request",
			Message: err.Error(),
		}})
		return
	}

	result, err := s.conversions.Intake(c.Request.Context(), conversiondomain.IntakeRequest{
		Code:            c.Param("code"),
		SessionID:       req.SessionID,
		CustomerID:      req.CustomerID,
		ConversionType:  conversiondomain.Type(req.ConversionType),
		ConversionValue: req.ConversionValue,
		Currency:        req.Currency,
		IdempotencyKey:  req.IdempotencyKey,
		Metadata:        req.Metadata,
	})
	if err != nil {
		c.Error(err)
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"conversion": result.Conversion,
		"duplicate":  result.Duplicate,
	})
}
