package server

import (
	"context"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	affiliatedomain "github.com/trackmint/trackmint/internal/affiliate/domain"
)

type registerAffiliateRequest struct {
	Name          string         `json:"name" binding:"required"`
	Email         string         `json:"email" binding:"required"`
	PayoutMethod  string         `json:"payout_method"`
	PayoutDetails map[string]any `json:"payout_details"`
}

func (s *Server) registerAffiliate(c *gin.Context) {
	var req registerAffiliateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: errorDetail{
			Code:    "invalid_request",
			Message: err.Error(),
		}})
		return
	}

	affiliate, err := s.affiliates.Register(c.Request.Context(), affiliatedomain.RegisterRequest{
		Name:          req.Name,
		Email:         req.Email,
		PayoutMethod:  req.PayoutMethod,
		PayoutDetails: req.PayoutDetails,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"affiliate": affiliate})
}

func (s *Server) listAffiliates(c *gin.Context) {
	tierID, err := idQuery(c, "tier_id")
	if err != nil {
		c.Error(err)
		return
	}
	filter := affiliatedomain.ListFilter{
		Status:     affiliatedomain.Status(c.Query("status")),
		TierID:     tierID,
		Pagination: bindPagination(c),
	}
	affiliates, err := s.affiliates.List(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"affiliates": affiliates})
}

func (s *Server) getAffiliate(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	affiliate, err := s.affiliates.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"affiliate": affiliate})
}

func (s *Server) approveAffiliate(c *gin.Context) {
	s.affiliateTransition(c, s.affiliates.Approve)
}

func (s *Server) rejectAffiliate(c *gin.Context) {
	s.affiliateTransition(c, s.affiliates.Reject)
}

func (s *Server) suspendAffiliate(c *gin.Context) {
	s.affiliateTransition(c, s.affiliates.Suspend)
}

func (s *Server) reinstateAffiliate(c *gin.Context) {
	s.affiliateTransition(c, s.affiliates.Reinstate)
}

func (s *Server) affiliateTransition(c *gin.Context, op func(context.Context, snowflake.ID) (affiliatedomain.Affiliate, error)) {
	id, err := idParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	affiliate, err := op(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"affiliate": affiliate})
}

type assignTierRequest struct {
	TierID snowflake.ID `json:"tier_id" binding:"required"`
}

func (s *Server) assignAffiliateTier(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	var req assignTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: errorDetail{
			Code:    "invalid_request",
			Message: err.Error(),
		}})
		return
	}

	affiliate, err := s.affiliates.AssignTier(c.Request.Context(), id, req.TierID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"affiliate": affiliate})
}

func (s *Server) listAffiliateLinks(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	links, err := s.referrals.ListByAffiliate(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"links": links})
}

func (s *Server) affiliateEarnings(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	summary, err := s.commissions.EarningsSummary(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"earnings": summary})
}
