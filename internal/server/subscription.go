package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/paylanka/paylanka/internal/payment/domain"
	subscriptiondomain "github.com/paylanka/paylanka/internal/subscription/domain"
)

func (s *Server) SelectPlan(c *gin.Context) {
	var req subscriptiondomain.SelectPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.UserID = userID(c)

	resp, err := s.subscriptionSvc.SelectPlan(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (s *Server) ChangePlan(c *gin.Context) {
	var req subscriptiondomain.ChangePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.UserID = userID(c)

	resp, err := s.subscriptionSvc.ChangePlan(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) CancelSubscription(c *gin.Context) {
	resp, err := s.subscriptionSvc.Cancel(c.Request.Context(), userID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) ActivateSubscription(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	resp, err := s.subscriptionSvc.Activate(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

type renewRequest struct {
	Gateway string `json:"gateway"`
}

// RenewSubscription issues the current month's invoice on demand and,
// when a gateway is named, opens a payment intent for it in the same call.
func (s *Server) RenewSubscription(c *gin.Context) {
	var req renewRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	renewal, err := s.subscriptionSvc.RenewMonthly(c.Request.Context(), userID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if strings.TrimSpace(req.Gateway) == "" {
		c.JSON(http.StatusCreated, gin.H{"invoice": renewal})
		return
	}

	intent, err := s.paymentSvc.CreateIntent(c.Request.Context(), paymentdomain.CreateIntentRequest{
		UserID:    userID(c),
		InvoiceID: renewal.InvoiceID,
		Gateway:   req.Gateway,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"invoice": renewal, "intent": intent})
}

func (s *Server) AddAddon(c *gin.Context) {
	var req subscriptiondomain.AddAddonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.UserID = userID(c)

	resp, err := s.subscriptionSvc.AddAddon(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (s *Server) GetCurrentSubscription(c *gin.Context) {
	resp, err := s.subscriptionSvc.GetCurrent(c.Request.Context(), userID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
