package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/learnhubdev/learnhub/config"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

// Stripe implements Provider on the Stripe API.
type Stripe struct {
	api *stripecl.API
	cfg config.Stripe
}

func NewStripe(api *stripecl.API, cfg config.Stripe) *Stripe {
	return &Stripe{api: api, cfg: cfg}
}

func (s *Stripe) CreateSession(ctx context.Context, p SessionParams) (Session, error) {
	li := make([]*stripe.CheckoutSessionLineItemParams, 0, len(p.Lines))
	ids := make([]string, 0, len(p.Lines))
	for _, line := range p.Lines {
		ids = append(ids, line.CourseID)

		pd := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(line.Title),
		}
		if line.ThumbnailURL != "" {
			pd.Images = stripe.StringSlice([]string{line.ThumbnailURL})
		}

		li = append(li, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(1),

			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String("usd"),
				UnitAmount:  stripe.Int64(line.UnitAmount),
				ProductData: pd,
			},
		})
	}

	params := &stripe.CheckoutSessionParams{
		SuccessURL:         stripe.String(s.cfg.SuccessURL),
		CancelURL:          stripe.String(s.cfg.CancelURL),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		ExpiresAt:          stripe.Int64(p.ExpiresAt.Unix()),
		LineItems:          li,
	}
	params.Context = ctx
	params.AddMetadata("userId", p.UserID)

	rawIDs, err := json.Marshal(ids)
	if err != nil {
		return Session{}, fmt.Errorf("encoding course ids: %w", err)
	}
	params.AddMetadata("courses", string(rawIDs))

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return Session{}, fmt.Errorf("creating stripe checkout session: %w", err)
	}

	expires := p.ExpiresAt
	if sess.ExpiresAt != 0 {
		expires = time.Unix(sess.ExpiresAt, 0).UTC()
	}

	return Session{ID: sess.ID, URL: sess.URL, ExpiresAt: expires}, nil
}

func (s *Stripe) Transactions(ctx context.Context, limit int64) ([]Transaction, error) {
	params := &stripe.BalanceTransactionListParams{}
	params.Context = ctx
	params.Limit = stripe.Int64(limit)

	txs := []Transaction{}
	it := s.api.BalanceTransactions.List(params)
	for it.Next() {
		bt := it.BalanceTransaction()
		txs = append(txs, Transaction{
			ID:        bt.ID,
			Amount:    bt.Amount,
			Currency:  string(bt.Currency),
			Type:      string(bt.Type),
			Status:    string(bt.Status),
			CreatedAt: time.Unix(bt.Created, 0).UTC(),
		})
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("listing stripe transactions: %w", err)
	}

	return txs, nil
}

func (s *Stripe) Balance(ctx context.Context) (Balance, error) {
	params := &stripe.BalanceParams{}
	params.Context = ctx

	b, err := s.api.Balance.Get(params)
	if err != nil {
		return Balance{}, fmt.Errorf("fetching stripe balance: %w", err)
	}

	var bal Balance
	for _, amt := range b.Available {
		bal.Available += amt.Amount
	}
	for _, amt := range b.Pending {
		bal.Pending += amt.Amount
	}

	return bal, nil
}
