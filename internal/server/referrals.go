package server

import (
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	referraldomain "github.com/trackmint/trackmint/internal/referral/domain"
)

type createLinkRequest struct {
	AffiliateID    snowflake.ID `json:"affiliate_id" binding:"required"`
	ProgramID      snowflake.ID `json:"program_id" binding:"required"`
	DestinationURL string       `json:"destination_url" binding:"required"`
	ExpiresAt      *time.Time   `json:"expires_at"`
}

func (s *Server) createLink(c *gin.Context) {
	var req createLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: errorDetail{
			Code:    "invalid_request",
			Message: err.Error(),
		}})
		return
	}

	link, err := s.referrals.CreateLink(c.Request.Context(), referraldomain.CreateLinkRequest{
		AffiliateID:    req.AffiliateID,
		ProgramID:      req.ProgramID,
		DestinationURL: req.DestinationURL,
		ExpiresAt:      req.ExpiresAt,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"link": link})
}

func (s *Server) getLink(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	link, err := s.referrals.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"link": link})
}

func (s *Server) deactivateLink(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	link, err := s.referrals.Deactivate(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"link": link})
}
