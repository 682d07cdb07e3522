package server

import (
	"errors"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/trackmint/trackmint/pkg/db/pagination"
)

var errInvalidID = errors.New("invalid_id")

func idParam(c *gin.Context, name string) (snowflake.ID, error) {
	raw := c.Param(name)
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || parsed <= 0 {
		return 0, errInvalidID
	}
	return snowflake.ID(parsed), nil
}

func idQuery(c *gin.Context, name string) (*snowflake.ID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || parsed <= 0 {
		return nil, errInvalidID
	}
	id := snowflake.ID(parsed)
	return &id, nil
}

func bindPagination(c *gin.Context) pagination.Pagination {
	var p pagination.Pagination
	if err := c.ShouldBindQuery(&p); err != nil || p.PageSize <= 0 || p.PageSize > 250 {
		p.PageSize = 50
	}
	return p
}
