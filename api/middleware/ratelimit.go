package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/learnhubdev/learnhub/api/web"
	"github.com/learnhubdev/learnhub/api/weberr"
	"github.com/learnhubdev/learnhub/rate"
)

// RateLimit rejects callers exceeding their per-address token bucket.
// Applied to the credential endpoints to slow brute forcing.
func RateLimit(lim *rate.Limiter) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}

			if !lim.Check(host) {
				err := errors.New("rate limit exceeded for " + host)
				return weberr.NewError(err, "too many requests", http.StatusTooManyRequests)
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
