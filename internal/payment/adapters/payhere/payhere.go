package payhere

import (
	"context"
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	paymentdomain "github.com/paylanka/paylanka/internal/payment/domain"
)

// PayHere status codes from the notify callback.
const (
	statusSuccess     = "2"
	statusPending     = "0"
	statusCancelled   = "-1"
	statusFailed      = "-2"
	statusChargedback = "-3"
)

type Adapter struct {
	merchantID     string
	merchantSecret string
}

func New(merchantID, merchantSecret string) (*Adapter, error) {
	merchantID = strings.TrimSpace(merchantID)
	merchantSecret = strings.TrimSpace(merchantSecret)
	if merchantID == "" || merchantSecret == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}
	return &Adapter{
		merchantID:     merchantID,
		merchantSecret: merchantSecret,
	}, nil
}

func (a *Adapter) Provider() string {
	return "payhere"
}

func (a *Adapter) MerchantID() string {
	return a.merchantID
}

// SignCheckout produces the hash field of the checkout form:
// UPPER(MD5(merchant_id + order_id + amount + currency + UPPER(MD5(secret)))).
func (a *Adapter) SignCheckout(orderID string, amount int64, currency string) string {
	return upperMD5(a.merchantID + orderID + FormatAmount(amount) + currency + upperMD5(a.merchantSecret))
}

// Verify recomputes md5sig over the notify fields. The notify body is
// form encoded, not JSON.
func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	values, err := url.ParseQuery(string(payload))
	if err != nil {
		return paymentdomain.ErrInvalidPayload
	}

	merchantID := strings.TrimSpace(values.Get("merchant_id"))
	orderID := strings.TrimSpace(values.Get("order_id"))
	amount := strings.TrimSpace(values.Get("payhere_amount"))
	currency := strings.TrimSpace(values.Get("payhere_currency"))
	statusCode := strings.TrimSpace(values.Get("status_code"))
	md5sig := strings.TrimSpace(values.Get("md5sig"))
	if merchantID == "" || orderID == "" || md5sig == "" {
		return paymentdomain.ErrInvalidSignature
	}
	if merchantID != a.merchantID {
		return paymentdomain.ErrInvalidSignature
	}

	expected := upperMD5(merchantID + orderID + amount + currency + statusCode + upperMD5(a.merchantSecret))
	if !hmac.Equal([]byte(md5sig), []byte(expected)) {
		return paymentdomain.ErrInvalidSignature
	}
	return nil
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.PaymentEvent, error) {
	values, err := url.ParseQuery(string(payload))
	if err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	orderID := strings.TrimSpace(values.Get("order_id"))
	paymentID := strings.TrimSpace(values.Get("payment_id"))
	statusCode := strings.TrimSpace(values.Get("status_code"))
	if orderID == "" || paymentID == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	var eventType string
	switch statusCode {
	case statusSuccess:
		eventType = paymentdomain.EventTypePaymentSucceeded
	case statusCancelled, statusFailed, statusChargedback:
		eventType = paymentdomain.EventTypePaymentFailed
	case statusPending:
		return nil, paymentdomain.ErrEventIgnored
	default:
		return nil, paymentdomain.ErrEventIgnored
	}

	amount, err := parseAmount(values.Get("payhere_amount"))
	if err != nil {
		return nil, paymentdomain.ErrInvalidEvent
	}

	return &paymentdomain.PaymentEvent{
		Gateway:           "payhere",
		ProviderEventID:   paymentID + ":" + statusCode,
		ProviderPaymentID: paymentID,
		Type:              eventType,
		ProviderReference: orderID,
		Amount:            amount,
		Currency:          strings.ToUpper(strings.TrimSpace(values.Get("payhere_currency"))),
		OccurredAt:        time.Now().UTC(),
		RawPayload:        payload,
	}, nil
}

// FormatAmount renders cents the way PayHere hashes expect: two decimals, no
// separators.
func FormatAmount(cents int64) string {
	return fmt.Sprintf("%.2f", float64(cents)/100)
}

func parseAmount(raw string) (int64, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		return 0, paymentdomain.ErrInvalidEvent
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	return int64(math.Round(value * 100)), nil
}

func upperMD5(value string) string {
	sum := md5.Sum([]byte(value))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
