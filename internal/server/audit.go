package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) listAudit(c *gin.Context) {
	entityType := c.Query("entity_type")
	entityID := c.Query("entity_id")
	if entityType == "" || entityID == "" {
		c.JSON(http.StatusBadRequest, errorBody{Error: errorDetail{
			Code:    "invalid_request",
			Message: "entity_type and entity_id are required",
		}})
		return
	}

	logs, err := s.audit.List(c.Request.Context(), entityType, entityID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audit_logs": logs})
}
