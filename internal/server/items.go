package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	itemdomain "github.com/smallbiznis/regi/internal/item/domain"
	"github.com/smallbiznis/regi/pkg/db/pagination"
)

type createItemRequest struct {
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
}

func (s *Server) CreateItem(c *gin.Context) {
	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.itemSvc.Create(c.Request.Context(), itemdomain.CreateItemRequest{
		Name:      strings.TrimSpace(req.Name),
		UnitPrice: req.UnitPrice,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListItems(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Name                string `form:"name"`
		IncludeDiscontinued string `form:"include_discontinued"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	includeDiscontinued, err := parseOptionalBool(query.IncludeDiscontinued)
	if err != nil {
		AbortWithError(c, newValidationError("include_discontinued", "invalid_include_discontinued", "invalid include_discontinued"))
		return
	}

	resp, err := s.itemSvc.List(c.Request.Context(), itemdomain.ListItemRequest{
		PageToken:           query.PageToken,
		PageSize:            query.PageSize,
		Name:                strings.TrimSpace(query.Name),
		IncludeDiscontinued: includeDiscontinued != nil && *includeDiscontinued,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetItemByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.itemSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type repriceItemRequest struct {
	UnitPrice int64 `json:"unit_price"`
}

func (s *Server) RepriceItem(c *gin.Context) {
	var req repriceItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.itemSvc.Reprice(c.Request.Context(), itemdomain.RepriceItemRequest{
		ID:        strings.TrimSpace(c.Param("id")),
		UnitPrice: req.UnitPrice,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DiscontinueItem(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.itemSvc.Discontinue(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteItem(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.itemSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func isItemValidationError(err error) bool {
	switch err {
	case itemdomain.ErrInvalidName,
		itemdomain.ErrInvalidUnitPrice,
		itemdomain.ErrInvalidID:
		return true
	default:
		return false
	}
}
