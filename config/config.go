package config

import "time"

// Config collects every setting of the server, parsed from the
// environment with the LEARNHUB prefix.
type Config struct {
	Web      Web
	Cors     Cors
	DB       DB
	Session  Session
	Stripe   Stripe
	Paypal   Paypal
	Oauth    Oauth
	Checkout Checkout
	Login    Login
	Email    Email
	Recovery Recovery
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type Cors struct {
	Origin string
}

type DB struct {
	User       string `conf:"default:postgres"`
	Password   string `conf:"default:postgres,mask"`
	Host       string `conf:"default:localhost"`
	Name       string `conf:"default:learnhub"`
	DisableTLS bool   `conf:"default:true"`
}

type Session struct {
	Lifetime time.Duration `conf:"default:24h"`
}

type Stripe struct {
	APISecret     string `conf:"mask"`
	WebhookSecret string `conf:"mask"`
	SuccessURL    string `conf:"default:http://localhost:3000/purchase-success"`
	CancelURL     string `conf:"default:http://localhost:3000/cart"`
}

type Paypal struct {
	ClientID string
	Secret   string `conf:"mask"`
	URL      string `conf:"default:https://api.sandbox.paypal.com"`
}

type Oauth struct {
	DiscoveryTimeout time.Duration `conf:"default:30s"`
	LoginRedirectURL string        `conf:"default:http://localhost:3000"`
	Google           OauthProvider
}

type OauthProvider struct {
	Client      string
	Secret      string `conf:"mask"`
	URL         string `conf:"default:https://accounts.google.com"`
	RedirectURL string
}

type Checkout struct {
	// SessionDuration bounds the provider checkout session; pending
	// purchases older than this are reclaimed by the reconciler.
	SessionDuration   time.Duration `conf:"default:30m"`
	ReconcileInterval time.Duration `conf:"default:1m"`
}

type Email struct {
	Host     string `conf:"default:localhost"`
	Port     string `conf:"default:25"`
	User     string
	Password string `conf:"mask"`
	From     string `conf:"default:no-reply@learnhub.dev"`
}

type Recovery struct {
	// OTPDuration bounds how long a mailed recovery code stays valid.
	OTPDuration time.Duration `conf:"default:15m"`
}

type Login struct {
	RateBurst  int `conf:"default:10"`
	RateExpiry int `conf:"default:30"`

	// RateInterval is the refill period of one login attempt.
	RateInterval time.Duration `conf:"default:1s"`
}
