package purchase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/learnhubdev/learnhub/api/web"
	"github.com/learnhubdev/learnhub/api/weberr"
	"github.com/learnhubdev/learnhub/core/claims"
	"github.com/learnhubdev/learnhub/core/course"
	"github.com/learnhubdev/learnhub/core/payment"
	"github.com/learnhubdev/learnhub/database"
	"github.com/learnhubdev/learnhub/validate"
)

var errCheckout = errors.New("cart cannot be checked out")

// validateItems walks every cart entry collecting the reasons it
// cannot be sold, so a single checkout call reports all problems at
// once. Checkout proceeds only when the message list comes back
// empty.
func validateItems(items []CheckoutItem) ([]payment.Line, []string) {
	lines := make([]payment.Line, 0, len(items))
	var msgs []string

	for _, it := range items {
		switch {
		case !it.Title.Valid:
			msgs = append(msgs, "Invalid course found in cart")

		case it.Status.String != course.StatusPublished:
			msgs = append(msgs, fmt.Sprintf("%q is no longer available", it.Title.String))

		case it.Purchased:
			msgs = append(msgs, fmt.Sprintf("%q is already purchased", it.Title.String))

		default:
			lines = append(lines, payment.Line{
				CourseID:     it.CourseID,
				Title:        it.Title.String,
				ThumbnailURL: it.ThumbnailURL.String,
				UnitAmount:   it.Price.Int64 * 100,
			})
		}
	}

	return lines, msgs
}

// prepare records one pending purchase per sold course, all bound to
// the provider session. Runs after the session is created so a crash
// can only leave a session without rows, which simply expires, never
// rows without a session.
func prepare(ctx context.Context, db *sqlx.DB, userID string, sess payment.Session, lines []payment.Line) error {
	err := database.Transaction(db, func(tx sqlx.ExtContext) error {
		now := time.Now().UTC()
		for _, line := range lines {
			p := Purchase{
				ID:            validate.GenerateID(),
				UserID:        userID,
				CourseID:      line.CourseID,
				Amount:        int(line.UnitAmount / 100),
				Status:        Pending,
				PaymentID:     sess.ID,
				SessionExpiry: sess.ExpiresAt,
				CreatedAt:     now,
				UpdatedAt:     now,
			}

			if err := Create(ctx, tx, p); err != nil {
				return fmt.Errorf("creating purchase for course[%s]: %w", line.CourseID, err)
			}
		}

		return nil
	})

	if err != nil {
		return fmt.Errorf("recording purchases bound to payment[%s] for user[%s]: %w", sess.ID, userID, err)
	}
	return nil
}

// HandleCheckout converts the caller's cart into a provider-hosted
// checkout session.
func HandleCheckout(db *sqlx.DB, provider payment.Provider, duration time.Duration) web.Handler {
	type checkoutResponse struct {
		Success bool   `json:"success"`
		URL     string `json:"url"`
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

		sess, err := provider.CreateSession(ctx, payment.SessionParams{
			UserID:    clm.UserID,
			Lines:     lines,
			ExpiresAt: time.Now().UTC().Add(duration),
		})
		if err != nil {
			return fmt.Errorf("creating checkout session: %w", err)
		}

		if err := prepare(ctx, db, clm.UserID, sess, lines); err != nil {
			return fmt.Errorf("recording the checkout on the database: %w", err)
		}

		return web.Respond(ctx, w, checkoutResponse{Success: true, URL: sess.URL}, http.StatusOK)
	}
}
