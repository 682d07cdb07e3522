package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	commissiondomain "github.com/trackmint/trackmint/internal/commission/domain"
)

func (s *Server) listCommissions(c *gin.Context) {
	affiliateID, err := idQuery(c, "affiliate_id")
	if err != nil {
		c.Error(err)
		return
	}
	programID, err := idQuery(c, "program_id")
	if err != nil {
		c.Error(err)
		return
	}

	filter := commissiondomain.ListFilter{
		AffiliateID: affiliateID,
		ProgramID:   programID,
		Status:      commissiondomain.Status(c.Query("status")),
		Pagination:  bindPagination(c),
	}
	commissions, err := s.commissions.List(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"commissions": commissions})
}

func (s *Server) getCommission(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	commission, err := s.commissions.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"commission": commission})
}

func (s *Server) approveCommission(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	commission, err := s.commissions.Approve(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"commission": commission})
}

func (s *Server) rejectCommission(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	commission, err := s.commissions.Reject(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"commission": commission})
}
