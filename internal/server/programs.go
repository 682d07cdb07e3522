package server

import (
	"context"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	programdomain "github.com/trackmint/trackmint/internal/program/domain"
	"github.com/trackmint/trackmint/internal/rating"
)

type createProgramRequest struct {
	Name             string        `json:"name" binding:"required"`
	Description      string        `json:"description"`
	CommissionConfig rating.Config `json:"commission_config" binding:"required"`
	CookieWindowDays int           `json:"cookie_window_days"`
}

func (s *Server) createProgram(c *gin.Context) {
	var req createProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: errorDetail{
			Code:    "invalid_request",
			Message: err.Error(),
		}})
		return
	}

	program, err := s.programs.Create(c.Request.Context(), programdomain.CreateProgramRequest{
		Name:             req.Name,
		Description:      req.Description,
		CommissionConfig: req.CommissionConfig,
		CookieWindowDays: req.CookieWindowDays,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"program": program})
}

func (s *Server) listPrograms(c *gin.Context) {
	filter := programdomain.ListFilter{
		Status:     programdomain.Status(c.Query("status")),
		Pagination: bindPagination(c),
	}
	programs, err := s.programs.List(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"programs": programs})
}

func (s *Server) getProgram(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	program, err := s.programs.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"program": program})
}

func (s *Server) activateProgram(c *gin.Context) {
	s.programTransition(c, s.programs.Activate)
}

func (s *Server) pauseProgram(c *gin.Context) {
	s.programTransition(c, s.programs.Pause)
}

func (s *Server) archiveProgram(c *gin.Context) {
	s.programTransition(c, s.programs.Archive)
}

func (s *Server) programTransition(c *gin.Context, op func(context.Context, snowflake.ID) (programdomain.Program, error)) {
	id, err := idParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	program, err := op(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"program": program})
}

type updateProgramConfigRequest struct {
	CommissionConfig rating.Config `json:"commission_config" binding:"required"`
}

func (s *Server) updateProgramConfig(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	var req updateProgramConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: errorDetail{
			Code:    "invalid_request",
			Message: err.Error(),
		}})
		return
	}

	program, err := s.programs.UpdateCommissionConfig(c.Request.Context(), programdomain.UpdateConfigRequest{
		ID:               id,
		CommissionConfig: req.CommissionConfig,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"program": program})
}
