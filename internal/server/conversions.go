package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	conversiondomain "github.com/trackmint/trackmint/internal/conversion/domain"
)

func (s *Server) listConversions(c *gin.Context) {
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

	filter := conversiondomain.ListFilter{
		AffiliateID: affiliateID,
		ProgramID:   programID,
		Status:      conversiondomain.Status(c.Query("status")),
		Pagination:  bindPagination(c),
	}
	conversions, err := s.conversions.List(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversions": conversions})
}

func (s *Server) getConversion(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	conversion, err := s.conversions.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversion": conversion})
}

func (s *Server) validateConversion(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	conversion, err := s.conversions.Validate(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversion": conversion})
}

func (s *Server) rejectConversion(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	conversion, err := s.conversions.Reject(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversion": conversion})
}
