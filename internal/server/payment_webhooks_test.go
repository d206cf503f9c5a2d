package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/paylanka/paylanka/internal/payment/domain"
)

type fakeWebhookService struct {
	calls        int
	lastProvider string
	lastPayload  []byte
	err          error
}

func (f *fakeWebhookService) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	f.calls++
	f.lastProvider = provider
	f.lastPayload = payload
	_ = ctx
	_ = headers
	return f.err
}

func newWebhookRouter(svc paymentdomain.WebhookService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	srv := &Server{webhookSvc: svc}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/payments/:provider/webhook", srv.HandlePaymentWebhook)
	return router
}

func postWebhook(router *gin.Engine, provider, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/payments/"+provider+"/webhook", bytes.NewBufferString(body))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestPaymentWebhookAcknowledgesAcceptedEvent(t *testing.T) {
	svc := &fakeWebhookService{}
	router := newWebhookRouter(svc)

	resp := postWebhook(router, "payhere", "payment_id=320025&status_code=2")

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if svc.calls != 1 {
		t.Fatalf("expected one ingest call, got %d", svc.calls)
	}
	if svc.lastProvider != "payhere" {
		t.Fatalf("expected provider payhere, got %q", svc.lastProvider)
	}
	if string(svc.lastPayload) != "payment_id=320025&status_code=2" {
		t.Fatalf("unexpected payload: %q", svc.lastPayload)
	}
}

func TestPaymentWebhookRejectsInvalidSignature(t *testing.T) {
	svc := &fakeWebhookService{err: paymentdomain.ErrInvalidSignature}
	router := newWebhookRouter(svc)

	resp := postWebhook(router, "payhere", "payment_id=320025&status_code=2")

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestPaymentWebhookAcksPayHereMalformedPayload(t *testing.T) {
	// PayHere does not retry, so anything short of a signature failure is
	// acknowledged and kept as an event record instead of bounced.
	svc := &fakeWebhookService{err: paymentdomain.ErrInvalidPayload}
	router := newWebhookRouter(svc)

	resp := postWebhook(router, "payhere", "not-a-form")

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
}

func TestPaymentWebhookStripeMalformedPayloadReturns400(t *testing.T) {
	svc := &fakeWebhookService{err: paymentdomain.ErrInvalidPayload}
	router := newWebhookRouter(svc)

	resp := postWebhook(router, "stripe", "{")

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestPaymentWebhookReplayedEventReturns200(t *testing.T) {
	svc := &fakeWebhookService{err: paymentdomain.ErrEventAlreadyProcessed}
	router := newWebhookRouter(svc)

	resp := postWebhook(router, "stripe", `{"id":"evt_1"}`)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
}

func TestPaymentWebhookUnknownIntentReturns200(t *testing.T) {
	// An event no intent matches stays unresolvable forever; failing the
	// call would only make the gateway redeliver it.
	svc := &fakeWebhookService{err: paymentdomain.ErrIntentNotFound}
	router := newWebhookRouter(svc)

	for _, provider := range []string{"stripe", "payhere"} {
		resp := postWebhook(router, provider, `{"id":"evt_orphan"}`)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", provider, resp.Code)
		}
	}
}

func TestPaymentWebhookUnknownProviderReturns404(t *testing.T) {
	svc := &fakeWebhookService{err: paymentdomain.ErrProviderNotFound}
	router := newWebhookRouter(svc)

	resp := postWebhook(router, "paypal", "{}")

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}
