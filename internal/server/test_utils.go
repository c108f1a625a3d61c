package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type testCleanupRequest struct {
	Prefix string `json:"prefix"`
}

// TestCleanup removes fixtures created by end-to-end runs: customers and
// items whose name carries the run prefix, plus every sale touching them.
// The route is only registered outside production.
func (s *Server) TestCleanup(c *gin.Context) {
	if s.cfg.Environment == "production" {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req testCleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	prefix := strings.TrimSpace(req.Prefix)
	if prefix == "" {
		AbortWithError(c, newValidationError("prefix", "required", "prefix is required"))
		return
	}

	ctx := c.Request.Context()
	like := prefix + "%"

	var customerIDs []int64
	if err := s.db.WithContext(ctx).
		Table("customers").
		Select("id").
		Where("name LIKE ?", like).
		Scan(&customerIDs).Error; err != nil {
		AbortWithError(c, err)
		return
	}

	var itemIDs []int64
	if err := s.db.WithContext(ctx).
		Table("items").
		Select("id").
		Where("name LIKE ?", like).
		Scan(&itemIDs).Error; err != nil {
		AbortWithError(c, err)
		return
	}

	var saleIDs []int64
	if len(customerIDs) > 0 {
		if err := s.db.WithContext(ctx).
			Table("sales").
			Select("id").
			Where("customer_id IN ?", customerIDs).
			Scan(&saleIDs).Error; err != nil {
			AbortWithError(c, err)
			return
		}
	}
	if len(itemIDs) > 0 {
		var byItem []int64
		if err := s.db.WithContext(ctx).
			Table("sale_details").
			Select("DISTINCT sale_id").
			Where("item_id IN ?", itemIDs).
			Scan(&byItem).Error; err != nil {
			AbortWithError(c, err)
			return
		}
		saleIDs = append(saleIDs, byItem...)
	}

	if len(saleIDs) > 0 {
		if err := s.db.WithContext(ctx).Exec(
			`DELETE FROM sale_details WHERE sale_id IN ?`, saleIDs,
		).Error; err != nil {
			AbortWithError(c, err)
			return
		}
		if err := s.db.WithContext(ctx).Exec(
			`DELETE FROM sales WHERE id IN ?`, saleIDs,
		).Error; err != nil {
			AbortWithError(c, err)
			return
		}
	}

	if len(customerIDs) > 0 {
		if err := s.db.WithContext(ctx).Exec(
			`DELETE FROM customers WHERE id IN ?`, customerIDs,
		).Error; err != nil {
			AbortWithError(c, err)
			return
		}
	}

	if len(itemIDs) > 0 {
		if err := s.db.WithContext(ctx).Exec(
			`DELETE FROM items WHERE id IN ?`, itemIDs,
		).Error; err != nil {
			AbortWithError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
