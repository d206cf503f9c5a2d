package e2e

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	accessdomain "github.com/paylanka/paylanka/internal/access/domain"
	invoicedomain "github.com/paylanka/paylanka/internal/invoice/domain"
	paymentdomain "github.com/paylanka/paylanka/internal/payment/domain"
	plandomain "github.com/paylanka/paylanka/internal/plan/domain"
	subscriptiondomain "github.com/paylanka/paylanka/internal/subscription/domain"
)

func findPlan(t *testing.T, name string) plandomain.Response {
	t.Helper()
	resp, body := doJSON(t, http.MethodGet, env.baseURL+"/v1/plans", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list plans: %d: %s", resp.StatusCode, string(body))
	}
	var out struct {
		Plans []plandomain.Response `json:"plans"`
	}
	decodeJSON(t, body, &out)
	for _, p := range out.Plans {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("plan %s not seeded", name)
	return plandomain.Response{}
}

func selectPlan(t *testing.T, userID, planID string) subscriptiondomain.SelectPlanResponse {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, env.baseURL+"/v1/subscriptions/select",
		map[string]any{"plan_id": planID}, userHeaders(userID))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("select plan: %d: %s", resp.StatusCode, string(body))
	}
	var out subscriptiondomain.SelectPlanResponse
	decodeJSON(t, body, &out)
	return out
}

func createPayHereIntent(t *testing.T, userID, invoiceID string) (paymentdomain.IntentResponse, map[string]string) {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, env.baseURL+"/v1/payments/intents",
		map[string]any{"invoice_id": invoiceID, "gateway": "payhere"}, userHeaders(userID))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create intent: %d: %s", resp.StatusCode, string(body))
	}
	var intent paymentdomain.IntentResponse
	decodeJSON(t, body, &intent)

	resp, body = doJSON(t, http.MethodGet, env.baseURL+"/v1/payments/intents/"+intent.ID+"/payhere", nil, userHeaders(userID))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("checkout fields: %d: %s", resp.StatusCode, string(body))
	}
	var checkout map[string]string
	decodeJSON(t, body, &checkout)
	return intent, checkout
}

func payHereNotify(checkout map[string]string, paymentID, statusCode string) url.Values {
	secret := env.cfg.PayHere.MerchantSecret
	form := url.Values{}
	form.Set("merchant_id", checkout["merchant_id"])
	form.Set("order_id", checkout["order_id"])
	form.Set("payment_id", paymentID)
	form.Set("payhere_amount", checkout["amount"])
	form.Set("payhere_currency", checkout["currency"])
	form.Set("status_code", statusCode)
	form.Set("md5sig", signNotify(
		checkout["merchant_id"], checkout["order_id"], checkout["amount"],
		checkout["currency"], statusCode, secret,
	))
	return form
}

func getInvoice(t *testing.T, userID, invoiceID string) invoicedomain.Response {
	t.Helper()
	resp, body := doJSON(t, http.MethodGet, env.baseURL+"/v1/invoices/"+invoiceID, nil, userHeaders(userID))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get invoice: %d: %s", resp.StatusCode, string(body))
	}
	var out invoicedomain.Response
	decodeJSON(t, body, &out)
	return out
}

func getAccessStatus(t *testing.T, userID string) accessdomain.Status {
	t.Helper()
	resp, body := doJSON(t, http.MethodGet, env.baseURL+"/v1/access/status", nil, userHeaders(userID))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("access status: %d: %s", resp.StatusCode, string(body))
	}
	var out accessdomain.Status
	decodeJSON(t, body, &out)
	return out
}

func TestE2E_RegistrationToActivation(t *testing.T) {
	resetDatabase(t, env.db)
	userID := seedUser(t)

	basic := findPlan(t, "Basic")
	selection := selectPlan(t, userID, basic.ID)
	if selection.AmountDue != basic.RegistrationFee {
		t.Fatalf("expected registration fee %d, got %d", basic.RegistrationFee, selection.AmountDue)
	}
	if selection.Subscription.Status != "PENDING_ACTIVATION" {
		t.Fatalf("expected PENDING_ACTIVATION, got %s", selection.Subscription.Status)
	}

	if status := getAccessStatus(t, userID); !status.Blocked() {
		t.Fatalf("expected access blocked before payment, got %s", status.Status)
	}

	_, checkout := createPayHereIntent(t, userID, selection.InvoiceID)
	resp := postPayHereNotify(t, payHereNotify(checkout, "320025", "2"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("notify: expected 200, got %d", resp.StatusCode)
	}

	invoice := getInvoice(t, userID, selection.InvoiceID)
	if invoice.Status != "PAID" {
		t.Fatalf("expected invoice PAID, got %s", invoice.Status)
	}

	respHTTP, body := doJSON(t, http.MethodGet, env.baseURL+"/v1/subscriptions/current", nil, userHeaders(userID))
	if respHTTP.StatusCode != http.StatusOK {
		t.Fatalf("current subscription: %d: %s", respHTTP.StatusCode, string(body))
	}
	var current subscriptiondomain.CurrentResponse
	decodeJSON(t, body, &current)
	if current.Subscription.Status != "ACTIVE" {
		t.Fatalf("expected ACTIVE subscription, got %s", current.Subscription.Status)
	}

	if status := getAccessStatus(t, userID); status.Blocked() {
		t.Fatalf("expected access restored after payment, got %s: %s", status.Status, status.Reason)
	}
}

func TestE2E_TamperedNotifyDoesNotSettle(t *testing.T) {
	resetDatabase(t, env.db)
	userID := seedUser(t)

	basic := findPlan(t, "Basic")
	selection := selectPlan(t, userID, basic.ID)
	_, checkout := createPayHereIntent(t, userID, selection.InvoiceID)

	form := payHereNotify(checkout, "320026", "2")
	form.Set("payhere_amount", "1.00")
	resp := postPayHereNotify(t, form)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad signature, got %d", resp.StatusCode)
	}

	if invoice := getInvoice(t, userID, selection.InvoiceID); invoice.Status != "PENDING" {
		t.Fatalf("expected invoice untouched, got %s", invoice.Status)
	}
}

func TestE2E_FailedPaymentKeepsInvoicePayable(t *testing.T) {
	resetDatabase(t, env.db)
	userID := seedUser(t)

	basic := findPlan(t, "Basic")
	selection := selectPlan(t, userID, basic.ID)
	_, checkout := createPayHereIntent(t, userID, selection.InvoiceID)

	resp := postPayHereNotify(t, payHereNotify(checkout, "320027", "-2"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("notify: expected 200, got %d", resp.StatusCode)
	}
	if invoice := getInvoice(t, userID, selection.InvoiceID); invoice.Status != "FAILED" {
		t.Fatalf("expected invoice FAILED, got %s", invoice.Status)
	}

	// A fresh intent against the same invoice retries the charge.
	_, retry := createPayHereIntent(t, userID, selection.InvoiceID)
	resp = postPayHereNotify(t, payHereNotify(retry, "320028", "2"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("retry notify: expected 200, got %d", resp.StatusCode)
	}
	if invoice := getInvoice(t, userID, selection.InvoiceID); invoice.Status != "PAID" {
		t.Fatalf("expected invoice PAID after retry, got %s", invoice.Status)
	}
}

func TestE2E_MonthlyInvoiceRun(t *testing.T) {
	resetDatabase(t, env.db)
	userID := seedUser(t)

	basic := findPlan(t, "Basic")
	selection := selectPlan(t, userID, basic.ID)
	_, checkout := createPayHereIntent(t, userID, selection.InvoiceID)
	if resp := postPayHereNotify(t, payHereNotify(checkout, "320030", "2")); resp.StatusCode != http.StatusOK {
		t.Fatalf("notify: expected 200, got %d", resp.StatusCode)
	}

	seedCompanyWithEmployees(t, userID, 8, 2)

	if err := env.scheduler.MonthlyInvoicesJob(context.Background()); err != nil {
		t.Fatalf("monthly invoice run: %v", err)
	}

	resp, body := doJSON(t, http.MethodGet, env.baseURL+"/v1/invoices", nil, userHeaders(userID))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list invoices: %d: %s", resp.StatusCode, string(body))
	}
	var out struct {
		Invoices []invoicedomain.Response `json:"invoices"`
	}
	decodeJSON(t, body, &out)

	var monthly *invoicedomain.Response
	for i := range out.Invoices {
		if out.Invoices[i].BillingType == "MONTHLY" {
			monthly = &out.Invoices[i]
		}
	}
	if monthly == nil {
		t.Fatalf("expected a monthly invoice, got %d invoices", len(out.Invoices))
	}
	if monthly.EmployeeCount != 8 {
		t.Fatalf("expected 8 billed employees, got %d", monthly.EmployeeCount)
	}
	if want := int64(8) * basic.EmployeePrice; monthly.TotalAmount != want {
		t.Fatalf("expected monthly amount %d for 8 active employees, got %d", want, monthly.TotalAmount)
	}

	// A second run must not duplicate the month.
	if err := env.scheduler.MonthlyInvoicesJob(context.Background()); err != nil {
		t.Fatalf("second monthly invoice run: %v", err)
	}
	_, body = doJSON(t, http.MethodGet, env.baseURL+"/v1/invoices", nil, userHeaders(userID))
	var again struct {
		Invoices []invoicedomain.Response `json:"invoices"`
	}
	decodeJSON(t, body, &again)
	if len(again.Invoices) != len(out.Invoices) {
		t.Fatalf("expected %d invoices after rerun, got %d", len(out.Invoices), len(again.Invoices))
	}
}
