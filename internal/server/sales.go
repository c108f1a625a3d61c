package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	saledomain "github.com/smallbiznis/regi/internal/sale/domain"
	"github.com/smallbiznis/regi/pkg/db/pagination"
)

const headerIdempotencyKey = "Idempotency-Key"

type recordSaleLineRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int64  `json:"quantity"`
}

type recordSaleRequest struct {
	CustomerID       string                  `json:"customer_id"`
	SoldAt           *time.Time              `json:"sold_at"`
	Lines            []recordSaleLineRequest `json:"lines"`
	DiscountRate     *float64                `json:"discount_rate"`
	RejectDuplicates bool                    `json:"reject_duplicates"`
	Metadata         map[string]any          `json:"metadata"`
}

func (s *Server) RecordSale(c *gin.Context) {
	var req recordSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	lines := make([]saledomain.SaleLineRequest, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, saledomain.SaleLineRequest{
			ItemID:   strings.TrimSpace(line.ItemID),
			Quantity: line.Quantity,
		})
	}

	resp, err := s.saleSvc.Record(c.Request.Context(), saledomain.RecordSaleRequest{
		CustomerID:       strings.TrimSpace(req.CustomerID),
		SoldAt:           req.SoldAt,
		Lines:            lines,
		DiscountRate:     req.DiscountRate,
		RejectDuplicates: req.RejectDuplicates,
		Metadata:         req.Metadata,
		IdempotencyKey:   strings.TrimSpace(c.GetHeader(headerIdempotencyKey)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSales(c *gin.Context) {
	var query struct {
		pagination.Pagination
		CustomerID string `form:"customer_id"`
		SoldFrom   string `form:"sold_from"`
		SoldTo     string `form:"sold_to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	soldFrom, err := parseOptionalTime(query.SoldFrom, false)
	if err != nil {
		AbortWithError(c, newValidationError("sold_from", "invalid_sold_from", "invalid sold_from"))
		return
	}

	soldTo, err := parseOptionalTime(query.SoldTo, true)
	if err != nil {
		AbortWithError(c, newValidationError("sold_to", "invalid_sold_to", "invalid sold_to"))
		return
	}

	resp, err := s.saleSvc.List(c.Request.Context(), saledomain.ListSaleRequest{
		PageToken:  query.PageToken,
		PageSize:   query.PageSize,
		CustomerID: strings.TrimSpace(query.CustomerID),
		SoldFrom:   soldFrom,
		SoldTo:     soldTo,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSaleByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.saleSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteSale(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.saleSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) RenderSaleReceipt(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	doc, err := s.saleSvc.Receipt(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/pdf", doc)
}

func isSaleValidationError(err error) bool {
	switch err {
	case saledomain.ErrInvalidID,
		saledomain.ErrInvalidQuantity,
		saledomain.ErrZeroLineAmount,
		saledomain.ErrEmptySale,
		saledomain.ErrInvalidDiscountRate:
		return true
	default:
		return false
	}
}
