package purchase

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/learnhubdev/learnhub/api/web"
	"github.com/learnhubdev/learnhub/api/weberr"
	"github.com/learnhubdev/learnhub/core/claims"
	"github.com/learnhubdev/learnhub/core/payment"
	"github.com/plutov/paypal/v4"
)

// HandlePaypalCheckout is the alternate checkout path: same cart
// validation and pending rows, a PayPal order instead of a Stripe
// session.
func HandlePaypalCheckout(db *sqlx.DB, pp *paypal.Client, duration time.Duration) web.Handler {
	type paypalResponse struct {
		Success bool          `json:"success"`
		Order   *paypal.Order `json:"order"`
	}

	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}

		items, err := FetchCheckoutItems(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("fetching checkout items: %w", err)
		}

		if len(items) == 0 {
			return weberr.NewMessages(errCheckout, []string{"Your cart is empty"}, http.StatusBadRequest)
		}

		lines, msgs := validateItems(items)
		if len(msgs) > 0 {
			return weberr.NewMessages(errCheckout, msgs, http.StatusBadRequest)
		}
		if len(lines) == 0 {
			return weberr.NewMessages(errCheckout, []string{"Your cart is empty"}, http.StatusBadRequest)
		}

		var tot int64
		ppItems := make([]paypal.Item, 0, len(lines))
		for _, line := range lines {
			price := line.UnitAmount / 100
			tot += price

			ppItems = append(ppItems, paypal.Item{
				Quantity: "1",
				Name:     line.Title,

				UnitAmount: &paypal.Money{
					Currency: "USD",
					Value:    strconv.FormatInt(price, 10),
				},
			})
		}

		units := []paypal.PurchaseUnitRequest{{
			Items: ppItems,

			Amount: &paypal.PurchaseUnitAmount{
				Currency: "USD",
				Value:    strconv.FormatInt(tot, 10),

				Breakdown: &paypal.PurchaseUnitAmountBreakdown{ItemTotal: &paypal.Money{
					Currency: "USD",
					Value:    strconv.FormatInt(tot, 10),
				}},
			},
		}}

		ord, err := pp.CreateOrder(ctx, "CAPTURE", units, nil, &paypal.ApplicationContext{})
		if err != nil {
			return fmt.Errorf("creating paypal order: %w", err)
		}

		sess := payment.Session{
			ID:        ord.ID,
			ExpiresAt: time.Now().UTC().Add(duration),
		}
		if err := prepare(ctx, db, clm.UserID, sess, lines); err != nil {
			return fmt.Errorf("recording the checkout on the database: %w", err)
		}

		return web.Respond(ctx, w, paypalResponse{Success: true, Order: ord}, http.StatusOK)
	}
}

func HandlePaypalCapture(db *sqlx.DB, pp *paypal.Client) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		orderID := web.Param(r, "id")

		resp, err := pp.CaptureOrder(ctx, orderID, paypal.CaptureOrderRequest{})
		if err != nil {
			return fmt.Errorf("capturing paypal order[%s]: %w", orderID, err)
		}

		if resp.Status != "COMPLETED" {
			return fmt.Errorf("captured order[%s] with status[%s] different from 'COMPLETED'", orderID, resp.Status)
		}

		if err := fulfill(ctx, db, orderID); err != nil {
			return fmt.Errorf("the order was paid but its fulfillment failed: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
