// Package token implements the password recovery flow: a short-lived
// one-time code mailed to the account email, verified and then
// consumed by a password reset.
package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"time"
)

const otpLength = 6

// Recovery is the stored proof that a one-time code was issued for a
// user. Only the hash of the code is kept.
type Recovery struct {
	UserID    string    `db:"user_id"`
	OTPHash   []byte    `db:"otp_hash"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// Mailer delivers transactional mail. The recovery handlers depend on
// the interface so tests can capture the code instead of sending it.
type Mailer interface {
	SendRecovery(to string, otp string) error
}

func hashOTP(otp string) []byte {
	h := sha256.Sum256([]byte(otp))
	return h[:]
}

// matches reports whether otp is the code behind r and r has not
// lapsed yet.
func (r Recovery) matches(otp string, now time.Time) bool {
	if now.After(r.ExpiresAt) {
		return false
	}
	return subtle.ConstantTimeCompare(r.OTPHash, hashOTP(otp)) == 1
}
