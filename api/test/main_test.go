package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/learnhubdev/learnhub/api"
	"github.com/learnhubdev/learnhub/api/background"
	"github.com/learnhubdev/learnhub/config"
	"github.com/learnhubdev/learnhub/core/auth"
	"github.com/learnhubdev/learnhub/core/course"
	"github.com/learnhubdev/learnhub/core/payment"
	"github.com/learnhubdev/learnhub/database"
	"github.com/learnhubdev/learnhub/rate"
	"github.com/ory/dockertest/v3"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

const (
	InstructorEmail = "instructor@test.io"
	InstructorPass  = "instructor-pass"
	UserEmail       = "student@test.io"
	UserPass        = "student-pass"

	webhookSecret = "whsec_test_secret"
)

var (
	pool     *dockertest.Pool
	postgres *dockertest.Resource
	pgHost   string
)

func TestMain(m *testing.M) {
	var err error
	pool, err = dockertest.NewPool("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "connecting to docker: %v\n", err)
		os.Exit(1)
	}

	postgres, err = pool.Run("postgres", "15-alpine", []string{
		"POSTGRES_USER=postgres",
		"POSTGRES_PASSWORD=postgres",
		"POSTGRES_DB=postgres",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "starting postgres container: %v\n", err)
		os.Exit(1)
	}

	pgHost = "localhost:" + postgres.GetPort("5432/tcp")

	err = pool.Retry(func() error {
		db, err := database.Open(adminDB())
		if err != nil {
			return err
		}
		defer db.Close()
		return database.StatusCheck(context.Background(), db)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "waiting for postgres: %v\n", err)
		pool.Purge(postgres)
		os.Exit(1)
	}

	code := m.Run()

	pool.Purge(postgres)
	os.Exit(code)
}

func adminDB() config.DB {
	return config.DB{
		User:       "postgres",
		Password:   "postgres",
		Host:       pgHost,
		Name:       "postgres",
		DisableTLS: true,
	}
}

// TestEnv is one isolated API instance: its own database, mock
// payment backends and cookie-holding client.
type TestEnv struct {
	DB     *sqlx.DB
	URL    string
	Stripe *mockStripe
	Paypal *mockPaypal
	Mailer *mockMailer

	WebhookSecret string

	client *http.Client
}

// NewTestEnv spins up the whole API against a fresh database named
// after the calling test.
func NewTestEnv(t *testing.T, name string) (*TestEnv, error) {
	t.Helper()

	admin, err := database.Open(adminDB())
	if err != nil {
		return nil, fmt.Errorf("opening admin connection: %w", err)
	}
	defer admin.Close()

	if _, err := admin.Exec("CREATE DATABASE " + name); err != nil {
		return nil, fmt.Errorf("creating database[%s]: %w", name, err)
	}

	dbCfg := adminDB()
	dbCfg.Name = name
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("opening test database: %w", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrating test database: %w", err)
	}

	ms := &mockStripe{}
	stripeSrv := httptest.NewServer(ms.handle())
	t.Cleanup(stripeSrv.Close)

	mp := &mockPaypal{}
	paypalSrv := httptest.NewServer(mp.handle())
	t.Cleanup(paypalSrv.Close)

	stripeCfg := config.Stripe{
		APISecret:     "sk_test_secret",
		WebhookSecret: webhookSecret,
		SuccessURL:    "http://localhost:3000/purchase-success",
		CancelURL:     "http://localhost:3000/cart",
	}

	sc := &stripecl.API{}
	sc.Init(stripeCfg.APISecret, &stripe.Backends{
		API: stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL: stripe.String(stripeSrv.URL),
		}),
	})

	pp, err := paypal.NewClient("test-client", "test-secret", paypalSrv.URL)
	if err != nil {
		return nil, fmt.Errorf("building paypal client: %w", err)
	}
	if _, err := pp.GetAccessToken(context.Background()); err != nil {
		return nil, fmt.Errorf("getting paypal token: %w", err)
	}

	session := scs.New()
	session.Lifetime = time.Hour

	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetLevel(logrus.ErrorLevel)

	bg := background.New(logger)
	t.Cleanup(func() { bg.Shutdown(context.Background()) })

	mailer := newMockMailer()

	mux := api.APIMux(api.APIConfig{
		Log:       logger,
		DB:        db,
		Session:   session,
		Provider:  payment.NewStripe(sc, stripeCfg),
		Paypal:    pp,
		StripeCfg: stripeCfg,
		CheckoutCfg: config.Checkout{
			SessionDuration:   30 * time.Minute,
			ReconcileInterval: time.Minute,
		},
		RecoveryCfg:      config.Recovery{OTPDuration: 15 * time.Minute},
		Mailer:           mailer,
		Background:       bg,
		OauthProviders:   map[string]auth.Provider{},
		LoginRedirectURL: "http://localhost:3000",
		LoginLimiter:     rate.NewLimiter(1000, 100, rate.Every(time.Millisecond)),
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("building cookie jar: %w", err)
	}

	env := &TestEnv{
		DB:            db,
		URL:           srv.URL,
		Stripe:        ms,
		Paypal:        mp,
		Mailer:        mailer,
		WebhookSecret: webhookSecret,
		client:        &http.Client{Jar: jar},
	}

	env.signupOK(t, "Ida Instructor", InstructorEmail, InstructorPass)
	env.Logout(t)
	if _, err := db.Exec(`UPDATE users SET role = 'instructor' WHERE email = $1`, InstructorEmail); err != nil {
		return nil, fmt.Errorf("promoting instructor: %w", err)
	}

	env.signupOK(t, "Sam Student", UserEmail, UserPass)
	env.Logout(t)

	return env, nil
}

func (e *TestEnv) Client() *http.Client { return e.client }

// do issues a JSON request with the env's cookie-holding client.
func (e *TestEnv) do(t *testing.T, method string, path string, body interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}

	r, err := http.NewRequest(method, e.URL+path, &buf)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}

	w, err := e.client.Do(r)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}

	return w
}

// decode drains and closes the response body into out.
func decode(t *testing.T, w *http.Response, out interface{}) {
	t.Helper()
	defer w.Body.Close()

	if err := json.NewDecoder(w.Body).Decode(out); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
}

func (e *TestEnv) signupOK(t *testing.T, name string, email string, pass string) {
	t.Helper()

	body := map[string]string{"name": name, "email": email, "password": pass}
	w := e.do(t, http.MethodPost, "/api/v1/auth/signup", body)
	defer w.Body.Close()

	if w.StatusCode != http.StatusCreated {
		t.Fatalf("signup of %s: status code %s", email, w.Status)
	}
}

func (e *TestEnv) Login(t *testing.T, email string, pass string) {
	t.Helper()

	body := map[string]string{"email": email, "password": pass}
	w := e.do(t, http.MethodPost, "/api/v1/auth/login", body)
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("login of %s: status code %s", email, w.Status)
	}
}

func (e *TestEnv) Logout(t *testing.T) {
	t.Helper()

	w := e.do(t, http.MethodPost, "/api/v1/auth/logout", nil)
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("logout: status code %s", w.Status)
	}
}

// createCourseOK publishes a course as the instructor and restores
// the previous session owner to logged out.
func (e *TestEnv) createCourseOK(t *testing.T, cn course.CourseNew) course.Course {
	t.Helper()

	e.Login(t, InstructorEmail, InstructorPass)
	defer e.Logout(t)

	w := e.do(t, http.MethodPost, "/api/v1/courses", cn)

	if w.StatusCode != http.StatusCreated {
		t.Fatalf("creating course %q: status code %s", cn.Title, w.Status)
	}

	var resp struct {
		Success bool          `json:"success"`
		Course  course.Course `json:"course"`
	}
	decode(t, w, &resp)

	return resp.Course
}
