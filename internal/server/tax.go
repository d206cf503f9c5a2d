package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type computeTaxRequest struct {
	GrossSalary int64  `json:"gross_salary"`
	Date        string `json:"date"`
}

func (s *Server) ComputeTax(c *gin.Context) {
	var req computeTaxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	date := time.Now().UTC()
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			AbortWithError(c, newValidationError("date", "invalid_date", "must be formatted as YYYY-MM-DD"))
			return
		}
		date = parsed
	}

	resp, err := s.taxSvc.ComputeForDate(c.Request.Context(), req.GrossSalary, date)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
