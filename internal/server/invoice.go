package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/paylanka/paylanka/internal/invoice/domain"
)

func (s *Server) ListInvoices(c *gin.Context) {
	resp, err := s.invoiceSvc.ListByUser(c.Request.Context(), userID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoices": resp})
}

func (s *Server) GetInvoice(c *gin.Context) {
	resp, err := s.invoiceSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if resp.UserID != userID(c) {
		AbortWithError(c, invoicedomain.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, resp)
}
