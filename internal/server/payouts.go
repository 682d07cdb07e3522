package server

import (
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	payoutdomain "github.com/trackmint/trackmint/internal/payout/domain"
)

type generatePayoutRequest struct {
	AffiliateID snowflake.ID `json:"affiliate_id" binding:"required"`
	PeriodStart time.Time    `json:"period_start" binding:"required"`
	PeriodEnd   time.Time    `json:"period_end" binding:"required"`
}

func (s *Server) generatePayout(c *gin.Context) {
	var req generatePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: errorDetail{
			Code:    "invalid_request",
			Message: err.Error(),
		}})
		return
	}

	payout, err := s.payouts.Generate(c.Request.Context(), payoutdomain.GenerateRequest{
		AffiliateID: req.AffiliateID,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"payout": payout})
}

type generatePeriodRequest struct {
	PeriodStart time.Time `json:"period_start" binding:"required"`
	PeriodEnd   time.Time `json:"period_end" binding:"required"`
}

func (s *Server) generatePayoutsForPeriod(c *gin.Context) {
	var req generatePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: errorDetail{
			Code:    "invalid_request",
			Message: err.Error(),
		}})
		return
	}

	report, err := s.payouts.GenerateForPeriod(c.Request.Context(), req.PeriodStart, req.PeriodEnd)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

func (s *Server) listPayouts(c *gin.Context) {
	affiliateID, err := idQuery(c, "affiliate_id")
	if err != nil {
		c.Error(err)
		return
	}

	filter := payoutdomain.ListFilter{
		AffiliateID: affiliateID,
		Status:      payoutdomain.Status(c.Query("status")),
		Pagination:  bindPagination(c),
	}
	payouts, err := s.payouts.List(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payouts": payouts})
}

func (s *Server) payoutSummary(c *gin.Context) {
	affiliateID, err := idQuery(c, "affiliate_id")
	if err != nil {
		c.Error(err)
		return
	}
	summary, err := s.payouts.Summary(c.Request.Context(), affiliateID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (s *Server) getPayout(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	payout, err := s.payouts.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payout": payout})
}

func (s *Server) startProcessingPayout(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	payout, err := s.payouts.StartProcessing(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payout": payout})
}

type processPayoutRequest struct {
	PaymentReference string `json:"payment_reference" binding:"required"`
}

func (s *Server) processPayout(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	var req processPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: errorDetail{
			Code:    "invalid_request",
			Message: err.Error(),
		}})
		return
	}

	payout, err := s.payouts.Process(c.Request.Context(), id, req.PaymentReference)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payout": payout})
}

func (s *Server) cancelPayout(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	payout, err := s.payouts.Cancel(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payout": payout})
}
