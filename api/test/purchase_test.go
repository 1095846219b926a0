package test

import (
	"context"
	"net/http"
	"path"
	"testing"
	"time"

	"github.com/learnhubdev/learnhub/core/course"
	"github.com/learnhubdev/learnhub/core/payment"
	"github.com/learnhubdev/learnhub/core/purchase"
	"github.com/learnhubdev/learnhub/validate"
)

func TestPurchaseQueries(t *testing.T) {
	env, err := NewTestEnv(t, "purchase_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	bought := env.createCourseOK(t, course.CourseNew{
		Title:        "SQL Deep Dive",
		Price:        30,
		Status:       course.StatusPublished,
		ThumbnailURL: "https://img.test/sql.png",
	})
	other := env.createCourseOK(t, course.CourseNew{
		Title:  "Unrelated",
		Price:  12,
		Status: course.StatusPublished,
	})

	env.Login(t, UserEmail, UserPass)

	env.addToCartOK(t, bought.ID)
	url := env.checkoutOK(t)
	env.fireStripeWebhook(t, path.Base(url))

	// Purchase history with course lines joined.
	w := env.do(t, http.MethodGet, "/api/v1/purchase", nil)
	if w.StatusCode != http.StatusOK {
		t.Fatalf("listing purchases: status code %s", w.Status)
	}
	var hist struct {
		PurchasedCourse []purchase.PurchasedCourse `json:"purchasedCourse"`
	}
	decode(t, w, &hist)
	if len(hist.PurchasedCourse) != 1 {
		t.Fatalf("expected 1 purchase, got %d", len(hist.PurchasedCourse))
	}
	got := hist.PurchasedCourse[0]
	if got.Title != "SQL Deep Dive" || got.Amount != 30 || got.Status != purchase.Completed {
		t.Fatalf("unexpected purchase line: %+v", got)
	}

	// Ownership status per course.
	var ds struct {
		Success   bool          `json:"success"`
		Course    course.Course `json:"course"`
		Purchased bool          `json:"purchased"`
	}
	w = env.do(t, http.MethodGet, "/api/v1/purchase/course/"+bought.ID+"/detail-with-status", nil)
	decode(t, w, &ds)
	if !ds.Purchased {
		t.Fatalf("bought course not reported as purchased")
	}
	w = env.do(t, http.MethodGet, "/api/v1/purchase/course/"+other.ID+"/detail-with-status", nil)
	decode(t, w, &ds)
	if ds.Purchased {
		t.Fatalf("unbought course reported as purchased")
	}

	// Platform reads are gated behind the instructor role.
	w = env.do(t, http.MethodGet, "/api/v1/purchase/balance", nil)
	if w.StatusCode != http.StatusUnauthorized {
		t.Fatalf("student read the balance: status code %s", w.Status)
	}
	w.Body.Close()

	env.Logout(t)
	env.Login(t, InstructorEmail, InstructorPass)
	defer env.Logout(t)

	var count struct {
		Count int `json:"count"`
	}
	w = env.do(t, http.MethodGet, "/api/v1/purchase/successful-count", nil)
	decode(t, w, &count)
	if count.Count != 1 {
		t.Fatalf("expected 1 successful payment, got %d", count.Count)
	}

	w = env.do(t, http.MethodGet, "/api/v1/purchase/transaction-count", nil)
	decode(t, w, &count)
	if count.Count != 1 {
		t.Fatalf("expected 1 purchase attempt, got %d", count.Count)
	}

	var bal struct {
		Balance payment.Balance `json:"balance"`
	}
	w = env.do(t, http.MethodGet, "/api/v1/purchase/balance", nil)
	decode(t, w, &bal)
	if bal.Balance.Available != 125000 || bal.Balance.Pending != 7500 {
		t.Fatalf("unexpected balance: %+v", bal.Balance)
	}

	var txs struct {
		Transactions []payment.Transaction `json:"transactions"`
	}
	w = env.do(t, http.MethodGet, "/api/v1/purchase/transactions", nil)
	decode(t, w, &txs)
	if len(txs.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs.Transactions))
	}
}

func TestReconcileExpiresStalePending(t *testing.T) {
	env, err := NewTestEnv(t, "reconcile_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	var userID string
	if err := env.DB.Get(&userID, `SELECT user_id FROM users WHERE email = $1`, UserEmail); err != nil {
		t.Fatalf("fetching user id: %v", err)
	}

	const q = `
	INSERT INTO purchases
		(purchase_id, user_id, course_id, amount, status, payment_id, session_expiry, created_at, updated_at)
	VALUES ($1, $2, $3, 9, $4, $5, $6, $7, $7)`

	now := time.Now().UTC()

	// One session lapsed an hour ago, one is still live.
	stale := validate.GenerateID()
	if _, err := env.DB.Exec(q, stale, userID, validate.GenerateID(), purchase.Pending, "cs_stale", now.Add(-time.Hour), now); err != nil {
		t.Fatalf("inserting stale purchase: %v", err)
	}
	live := validate.GenerateID()
	if _, err := env.DB.Exec(q, live, userID, validate.GenerateID(), purchase.Pending, "cs_live", now.Add(time.Hour), now); err != nil {
		t.Fatalf("inserting live purchase: %v", err)
	}

	n, err := purchase.ExpireStale(context.Background(), env.DB, now)
	if err != nil {
		t.Fatalf("expiring stale purchases: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expired purchase, got %d", n)
	}

	var status purchase.Status
	if err := env.DB.Get(&status, `SELECT status FROM purchases WHERE purchase_id = $1`, stale); err != nil {
		t.Fatalf("reading stale purchase: %v", err)
	}
	if status != purchase.Expired {
		t.Fatalf("stale purchase is %s, want expired", status)
	}

	if err := env.DB.Get(&status, `SELECT status FROM purchases WHERE purchase_id = $1`, live); err != nil {
		t.Fatalf("reading live purchase: %v", err)
	}
	if status != purchase.Pending {
		t.Fatalf("live purchase is %s, want pending", status)
	}
}
