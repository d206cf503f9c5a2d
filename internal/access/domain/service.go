package domain

import (
	"context"
	"errors"
)

const (
	StatusActive  = "ACTIVE"
	StatusBlocked = "BLOCKED"
)

const (
	ReasonNoActiveSubscription = "no_active_subscription"
	ReasonUnpaidInvoices       = "unpaid_invoices"
)

// Service answers one question: may this user keep using paid features.
type Service interface {
	GetAccessStatus(ctx context.Context, userID string) (*Status, error)
}

type Status struct {
	UserID         string   `json:"user_id"`
	Status         string   `json:"status"`
	Reason         string   `json:"reason,omitempty"`
	UnpaidInvoices []string `json:"unpaid_invoices,omitempty"`
}

func (s *Status) Blocked() bool {
	return s != nil && s.Status == StatusBlocked
}

var ErrInvalidID = errors.New("invalid_id")
