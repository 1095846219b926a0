package test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	mock "github.com/stripe/stripe-mock/param"
)

// mockStripe fakes the slice of the Stripe API the platform touches:
// checkout session creation, balance and transaction reads. It
// records what it saw so tests can assert on side effects.
type mockStripe struct {
	mu sync.Mutex

	sessions   int
	lastTotal  int64
	lastLines  int
	lastUserID string
}

type stripeStats struct {
	Sessions   int
	LastTotal  int64
	LastLines  int
	LastUserID string
}

// snapshot reads the recorded counters under the lock, keeping
// assertions safe against in-flight requests.
func (m *mockStripe) snapshot() stripeStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return stripeStats{
		Sessions:   m.sessions,
		LastTotal:  m.lastTotal,
		LastLines:  m.lastLines,
		LastUserID: m.lastUserID,
	}
}

func (m *mockStripe) handle() http.Handler {
	createSession := func(w http.ResponseWriter, r *http.Request) {
		params, err := mock.ParseParams(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		lines, ok := params["line_items"].(map[string]interface{})
		if !ok || len(lines) == 0 {
			http.Error(w, "missing line_items", http.StatusBadRequest)
			return
		}

		var tot int64
		for _, li := range lines {
			it := li.(map[string]interface{})

			if it["quantity"] != "1" {
				http.Error(w, "quantity must be 1", http.StatusBadRequest)
				return
			}

			pd := it["price_data"].(map[string]interface{})
			amount, err := strconv.ParseInt(pd["unit_amount"].(string), 10, 64)
			if err != nil {
				http.Error(w, "bad unit_amount", http.StatusBadRequest)
				return
			}
			tot += amount
		}

		var userID string
		if md, ok := params["metadata"].(map[string]interface{}); ok {
			userID, _ = md["userId"].(string)
		}

		var expires int64
		if raw, ok := params["expires_at"].(string); ok {
			expires, _ = strconv.ParseInt(raw, 10, 64)
		}

		m.mu.Lock()
		m.sessions++
		m.lastTotal = tot
		m.lastLines = len(lines)
		m.lastUserID = userID
		id := fmt.Sprintf("cs_test_%d", m.sessions)
		m.mu.Unlock()

		respond(w, http.StatusOK, map[string]interface{}{
			"id":         id,
			"object":     "checkout.session",
			"url":        "https://stripe.test/pay/" + id,
			"mode":       "payment",
			"expires_at": expires,
		})
	}

	balance := func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]interface{}{
			"object": "balance",
			"available": []map[string]interface{}{
				{"amount": 125000, "currency": "usd"},
			},
			"pending": []map[string]interface{}{
				{"amount": 7500, "currency": "usd"},
			},
		})
	}

	transactions := func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]interface{}{
			"object":   "list",
			"has_more": false,
			"url":      "/v1/balance_transactions",
			"data": []map[string]interface{}{
				{
					"id":       "txn_1",
					"object":   "balance_transaction",
					"amount":   1000,
					"currency": "usd",
					"type":     "charge",
					"status":   "available",
					"created":  1700000000,
				},
				{
					"id":       "txn_2",
					"object":   "balance_transaction",
					"amount":   500,
					"currency": "usd",
					"type":     "charge",
					"status":   "pending",
					"created":  1700000100,
				},
			},
		})
	}

	r := mux.NewRouter()
	r.HandleFunc("/v1/checkout/sessions", createSession).Methods("POST")
	r.HandleFunc("/v1/balance", balance).Methods("GET")
	r.HandleFunc("/v1/balance_transactions", transactions).Methods("GET")
	return r
}

// mockPaypal fakes the order endpoints plus the token exchange the
// client performs on startup.
type mockPaypal struct {
	mu     sync.Mutex
	Orders int
}

func (m *mockPaypal) handle() http.Handler {
	token := func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]interface{}{
			"access_token": "test-access-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}

	createOrder := func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.Orders++
		id := fmt.Sprintf("paypal-%d", m.Orders)
		m.mu.Unlock()

		respond(w, http.StatusCreated, map[string]interface{}{
			"id":     id,
			"status": "CREATED",
		})
	}

	capture := func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]interface{}{
			"id":     mux.Vars(r)["id"],
			"status": "COMPLETED",
		})
	}

	r := mux.NewRouter()
	r.HandleFunc("/v1/oauth2/token", token).Methods("POST")
	r.HandleFunc("/v2/checkout/orders", createOrder).Methods("POST")
	r.HandleFunc("/v2/checkout/orders/{id}/capture", capture).Methods("POST")
	return r
}

// recoveryMail is one captured password recovery delivery.
type recoveryMail struct {
	To  string
	OTP string
}

// mockMailer implements token.Mailer, handing the mailed codes to the
// test instead of an SMTP server. Deliveries run on a background task,
// so the channel lets tests wait for them.
type mockMailer struct {
	sent chan recoveryMail
}

func newMockMailer() *mockMailer {
	return &mockMailer{sent: make(chan recoveryMail, 8)}
}

func (m *mockMailer) SendRecovery(to string, otp string) error {
	m.sent <- recoveryMail{To: to, OTP: otp}
	return nil
}

func (m *mockMailer) wait(t *testing.T) recoveryMail {
	t.Helper()

	select {
	case msg := <-m.sent:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("no recovery mail delivered")
		return recoveryMail{}
	}
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
