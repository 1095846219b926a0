package purchase

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/learnhubdev/learnhub/api/web"
	"github.com/learnhubdev/learnhub/api/weberr"
	"github.com/learnhubdev/learnhub/config"
	"github.com/learnhubdev/learnhub/core/cart"
	"github.com/learnhubdev/learnhub/core/claims"
	"github.com/learnhubdev/learnhub/core/course"
	"github.com/learnhubdev/learnhub/core/payment"
	"github.com/learnhubdev/learnhub/database"
	"github.com/learnhubdev/learnhub/validate"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"
)

// transactionsLimit caps how much provider history the dashboard
// pulls in one read.
const transactionsLimit = 25

func HandleList(db *sqlx.DB) web.Handler {
	type listResponse struct {
		PurchasedCourse []PurchasedCourse `json:"purchasedCourse"`
	}

	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}

		ps, err := FetchByUser(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("listing purchases: %w", err)
		}

		return web.Respond(ctx, w, listResponse{PurchasedCourse: ps}, http.StatusOK)
	}
}

func HandleSuccessfulCount(db *sqlx.DB) web.Handler {
	type countResponse struct {
		Count int `json:"count"`
	}

	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		count, err := CountCompleted(ctx, db)
		if err != nil {
			return fmt.Errorf("counting successful payments: %w", err)
		}

		return web.Respond(ctx, w, countResponse{Count: count}, http.StatusOK)
	}
}

func HandleTransactionCount(db *sqlx.DB) web.Handler {
	type countResponse struct {
		Count int `json:"count"`
	}

	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		count, err := CountAll(ctx, db)
		if err != nil {
			return fmt.Errorf("counting purchase attempts: %w", err)
		}

		return web.Respond(ctx, w, countResponse{Count: count}, http.StatusOK)
	}
}

func HandleTransactions(provider payment.Provider) web.Handler {
	type transactionsResponse struct {
		Transactions []payment.Transaction `json:"transactions"`
	}

	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		txs, err := provider.Transactions(ctx, transactionsLimit)
		if err != nil {
			return fmt.Errorf("listing provider transactions: %w", err)
		}

		return web.Respond(ctx, w, transactionsResponse{Transactions: txs}, http.StatusOK)
	}
}

func HandleBalance(provider payment.Provider) web.Handler {
	type balanceResponse struct {
		Balance payment.Balance `json:"balance"`
	}

	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		bal, err := provider.Balance(ctx)
		if err != nil {
			return fmt.Errorf("fetching provider balance: %w", err)
		}

		return web.Respond(ctx, w, balanceResponse{Balance: bal}, http.StatusOK)
	}
}

// HandleShowWithStatus returns a course detail together with whether
// the caller already owns it.
func HandleShowWithStatus(db *sqlx.DB) web.Handler {
	type statusResponse struct {
		Success   bool          `json:"success"`
		Course    course.Course `json:"course"`
		Purchased bool          `json:"purchased"`
	}

	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}

		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		c, err := course.Fetch(ctx, db, courseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NewError(err, "Course not found", http.StatusNotFound)
			}
			return fmt.Errorf("fetching course[%s]: %w", courseID, err)
		}

		owned, err := CompletedExists(ctx, db, clm.UserID, courseID)
		if err != nil {
			return fmt.Errorf("checking purchase status: %w", err)
		}

		resp := statusResponse{Success: true, Course: c, Purchased: owned}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

// fulfill completes the purchases of a paid session and clears the
// bought items from the owner's cart, in one transaction.
func fulfill(ctx context.Context, db *sqlx.DB, paymentID string) error {
	ps, err := FetchByPaymentID(ctx, db, paymentID)
	if err != nil {
		return fmt.Errorf("fetching purchases bound to payment[%s]: %w", paymentID, err)
	}
	if len(ps) == 0 {
		return fmt.Errorf("no purchases bound to payment[%s]", paymentID)
	}

	courseIDs := make([]string, 0, len(ps))
	for _, p := range ps {
		courseIDs = append(courseIDs, p.CourseID)
	}

	err = database.Transaction(db, func(tx sqlx.ExtContext) error {
		now := time.Now().UTC()

		if err := CompleteByPaymentID(ctx, tx, paymentID, now); err != nil {
			return fmt.Errorf("completing purchases: %w", err)
		}

		if err := cart.DeleteItems(ctx, tx, ps[0].UserID, courseIDs); err != nil {
			return fmt.Errorf("flushing bought cart items: %w", err)
		}

		return nil
	})

	if err != nil {
		return fmt.Errorf("fulfilling payment[%s]: %w", paymentID, err)
	}
	return nil
}

// HandleStripeCapture is the Stripe webhook completing purchases once
// the hosted session is paid.
func HandleStripeCapture(db *sqlx.DB, cfg config.Stripe) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot read the request body: %w", err))
		}

		sig := r.Header.Get("Stripe-Signature")
		if sig == "" {
			return weberr.BadRequest(errors.New("received stripe event is not signed"))
		}

		event, err := webhook.ConstructEvent(b, sig, cfg.WebhookSecret)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot construct stripe event: %w", err))
		}

		if event.Type != "checkout.session.completed" {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		var session stripe.CheckoutSession
		if err = json.Unmarshal(event.Data.Raw, &session); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode stripe event: %w", err))
		}

		if session.Mode != stripe.CheckoutSessionModePayment {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		if err := fulfill(ctx, db, session.ID); err != nil {
			return fmt.Errorf("the session was paid but its fulfillment failed: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
