package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	taxdomain "github.com/smallbiznis/regi/internal/taxrate/domain"
)

type registerTaxRateRequest struct {
	BeginAt time.Time `json:"begin_dt"`
	EndAt   time.Time `json:"end_dt"`
	Rate    float64   `json:"rate"`
}

func (s *Server) ListTaxRates(c *gin.Context) {
	resp, err := s.taxSvc.ListWindows(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RegisterTaxRate(c *gin.Context) {
	var req registerTaxRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	// An omitted begin is the zero time, which already equals the
	// open-start sentinel. An omitted end means "from begin onward".
	if req.EndAt.IsZero() {
		req.EndAt = taxdomain.MaxEnd
	}

	resp, err := s.taxSvc.Register(c.Request.Context(), taxdomain.RegisterTaxRateRequest{
		BeginAt: req.BeginAt,
		EndAt:   req.EndAt,
		Rate:    req.Rate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCurrentTaxRate(c *gin.Context) {
	at, err := parseOptionalTime(c.Query("at"), false)
	if err != nil {
		AbortWithError(c, newValidationError("at", "invalid_at", "invalid at"))
		return
	}
	if at == nil {
		now := time.Now().UTC()
		at = &now
	}

	resp, err := s.taxSvc.Current(c.Request.Context(), *at)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isTaxRateValidationError(err error) bool {
	switch err {
	case taxdomain.ErrInvalidWindow,
		taxdomain.ErrInvalidTaxRate:
		return true
	default:
		return false
	}
}
