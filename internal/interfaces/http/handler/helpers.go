package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/waterworks/backend/internal/domain/shared"
	"github.com/waterworks/backend/internal/interfaces/http/dto"
)

// bindListFilter binds common pagination query parameters and converts
// them to a repository filter. Missing values fall back to defaults.
func bindListFilter(c *gin.Context) (shared.Filter, dto.ListRequest, error) {
	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		return shared.Filter{}, req, err
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = dto.DefaultPageSize
	}

	return shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
		Search:   req.Search,
	}, req, nil
}
