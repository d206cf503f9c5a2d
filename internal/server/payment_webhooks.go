package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	obsmetrics "github.com/paylanka/paylanka/internal/observability/metrics"
	paymentdomain "github.com/paylanka/paylanka/internal/payment/domain"
)

func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	provider := strings.ToLower(strings.TrimSpace(c.Param("provider")))
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err = s.webhookSvc.IngestWebhook(c.Request.Context(), provider, payload, c.Request.Header)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventAlreadyProcessed) || errors.Is(err, paymentdomain.ErrIntentNotFound) {
			// Replays and events for intents we cannot resolve are
			// acknowledged: a retry would deliver the same payload again.
			// The stored event record keeps the evidence either way.
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		if errors.Is(err, paymentdomain.ErrInvalidSignature) {
			obsmetrics.WebhookRejections.WithLabelValues(provider, "invalid_signature").Inc()
		}
		// PayHere does not retry on non-200 and expects an acknowledgement
		// even for payloads we reject; the event record keeps the evidence.
		if provider == "payhere" && !errors.Is(err, paymentdomain.ErrInvalidSignature) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
