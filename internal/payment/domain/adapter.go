package domain

import (
	"context"
	"net/http"
)

// PaymentAdapter normalizes one gateway's webhook traffic. Verify must reject
// before Parse sees untrusted input.
type PaymentAdapter interface {
	Provider() string
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*PaymentEvent, error)
}
