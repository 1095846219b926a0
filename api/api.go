package api

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/learnhubdev/learnhub/api/background"
	"github.com/learnhubdev/learnhub/api/middleware"
	"github.com/learnhubdev/learnhub/api/web"
	"github.com/learnhubdev/learnhub/config"
	"github.com/learnhubdev/learnhub/core/auth"
	"github.com/learnhubdev/learnhub/core/cart"
	"github.com/learnhubdev/learnhub/core/course"
	"github.com/learnhubdev/learnhub/core/feedback"
	"github.com/learnhubdev/learnhub/core/payment"
	"github.com/learnhubdev/learnhub/core/purchase"
	"github.com/learnhubdev/learnhub/core/token"
	"github.com/learnhubdev/learnhub/core/user"
	"github.com/learnhubdev/learnhub/rate"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
)

type APIConfig struct {
	CorsOrigin       string
	Log              logrus.FieldLogger
	DB               *sqlx.DB
	Session          *scs.SessionManager
	Provider         payment.Provider
	Paypal           *paypal.Client
	StripeCfg        config.Stripe
	CheckoutCfg      config.Checkout
	RecoveryCfg      config.Recovery
	Mailer           token.Mailer
	Background       *background.Background
	OauthProviders   map[string]auth.Provider
	LoginRedirectURL string
	LoginLimiter     *rate.Limiter
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

// APIMux builds the HTTP surface of the platform under /api/v1.
func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, auth.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate(cfg.Session)
	instructor := auth.Instructor(cfg.Session)
	limited := middleware.RateLimit(cfg.LoginLimiter)

	a.Handle(http.MethodPost, "/api/v1/auth/signup", auth.HandleSignup(cfg.DB, cfg.Session), limited)
	a.Handle(http.MethodPost, "/api/v1/auth/login", auth.HandleLogin(cfg.DB, cfg.Session), limited)
	a.Handle(http.MethodPost, "/api/v1/auth/logout", auth.HandleLogout(cfg.Session))
	a.Handle(http.MethodPost, "/api/v1/auth/recover", token.HandleRecovery(cfg.DB, cfg.Mailer, cfg.RecoveryCfg.OTPDuration, cfg.Background, cfg.Log), limited)
	a.Handle(http.MethodPost, "/api/v1/auth/recover/verify", token.HandleVerify(cfg.DB), limited)
	a.Handle(http.MethodPost, "/api/v1/auth/reset", token.HandleReset(cfg.DB), limited)
	a.Handle(http.MethodGet, "/api/v1/auth/oauth-login/{provider}", auth.HandleOauthLogin(cfg.Session, cfg.OauthProviders))
	a.Handle(http.MethodGet, "/api/v1/auth/oauth-callback/{provider}", auth.HandleOauthCallback(cfg.DB, cfg.Session, cfg.OauthProviders, cfg.LoginRedirectURL))

	a.Handle(http.MethodGet, "/api/v1/users", user.HandleList(cfg.DB), authen, instructor)
	a.Handle(http.MethodGet, "/api/v1/users/current", user.HandleShowCurrent(cfg.DB), authen)
	a.Handle(http.MethodPut, "/api/v1/users/current", user.HandleUpdateCurrent(cfg.DB), authen)
	a.Handle(http.MethodGet, "/api/v1/users/{id}", user.HandleShow(cfg.DB), authen)

	a.Handle(http.MethodGet, "/api/v1/courses/owned", course.HandleListOwned(cfg.DB), authen)
	a.Handle(http.MethodGet, "/api/v1/courses/{id}", course.HandleShow(cfg.DB))
	a.Handle(http.MethodGet, "/api/v1/courses", course.HandleList(cfg.DB))
	a.Handle(http.MethodPost, "/api/v1/courses", course.HandleCreate(cfg.DB), authen, instructor)
	a.Handle(http.MethodPut, "/api/v1/courses/{id}", course.HandleUpdate(cfg.DB), authen, instructor)

	a.Handle(http.MethodGet, "/api/v1/cart", cart.HandleShow(cfg.DB), authen)
	a.Handle(http.MethodPost, "/api/v1/cart/create-checkout-session", purchase.HandleCheckout(cfg.DB, cfg.Provider, cfg.CheckoutCfg.SessionDuration), authen)
	a.Handle(http.MethodPost, "/api/v1/cart", cart.HandleCreateItem(cfg.DB), authen)
	a.Handle(http.MethodDelete, "/api/v1/cart/{course_id}", cart.HandleDeleteItem(cfg.DB), authen)

	a.Handle(http.MethodGet, "/api/v1/purchase", purchase.HandleList(cfg.DB), authen)
	a.Handle(http.MethodGet, "/api/v1/purchase/successful-count", purchase.HandleSuccessfulCount(cfg.DB), authen, instructor)
	a.Handle(http.MethodGet, "/api/v1/purchase/transaction-count", purchase.HandleTransactionCount(cfg.DB), authen, instructor)
	a.Handle(http.MethodGet, "/api/v1/purchase/transactions", purchase.HandleTransactions(cfg.Provider), authen, instructor)
	a.Handle(http.MethodGet, "/api/v1/purchase/balance", purchase.HandleBalance(cfg.Provider), authen, instructor)
	a.Handle(http.MethodGet, "/api/v1/purchase/course/{course_id}/detail-with-status", purchase.HandleShowWithStatus(cfg.DB), authen)
	a.Handle(http.MethodPost, "/api/v1/purchase/stripe/capture", purchase.HandleStripeCapture(cfg.DB, cfg.StripeCfg))
	a.Handle(http.MethodPost, "/api/v1/purchase/paypal", purchase.HandlePaypalCheckout(cfg.DB, cfg.Paypal, cfg.CheckoutCfg.SessionDuration), authen)
	a.Handle(http.MethodPost, "/api/v1/purchase/paypal/{id}/capture", purchase.HandlePaypalCapture(cfg.DB, cfg.Paypal), authen)

	a.Handle(http.MethodPost, "/api/v1/feedback", feedback.HandleCreate(cfg.DB), authen)
	a.Handle(http.MethodGet, "/api/v1/feedback/course/{course_id}", feedback.HandleListByCourse(cfg.DB))
	a.Handle(http.MethodDelete, "/api/v1/feedback/{id}", feedback.HandleDelete(cfg.DB), authen)

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}
