// Package payment abstracts the external payment provider behind the
// capability set the platform actually uses: hosted checkout session
// creation, transaction listing and balance reads. Handlers depend on
// the Provider interface so tests can inject a fake.
package payment

import (
	"context"
	"time"
)

// Line is one course sold through a checkout session. UnitAmount is
// in minor currency units.
type Line struct {
	CourseID     string
	Title        string
	ThumbnailURL string
	UnitAmount   int64
}

type SessionParams struct {
	UserID    string
	Lines     []Line
	ExpiresAt time.Time
}

// Session is a provider-hosted, time-bounded payment page.
type Session struct {
	ID        string
	URL       string
	ExpiresAt time.Time
}

type Transaction struct {
	ID        string    `json:"id"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Balance holds the platform funds at the provider, in minor units.
type Balance struct {
	Available int64 `json:"available"`
	Pending   int64 `json:"pending"`
}

type Provider interface {
	CreateSession(ctx context.Context, p SessionParams) (Session, error)
	Transactions(ctx context.Context, limit int64) ([]Transaction, error)
	Balance(ctx context.Context) (Balance, error)
}
