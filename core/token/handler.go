package token

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/learnhubdev/learnhub/api/background"
	"github.com/learnhubdev/learnhub/api/web"
	"github.com/learnhubdev/learnhub/api/weberr"
	"github.com/learnhubdev/learnhub/core/user"
	"github.com/learnhubdev/learnhub/database"
	"github.com/learnhubdev/learnhub/random"
	"github.com/learnhubdev/learnhub/validate"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// checkOTP resolves the user behind email and validates the submitted
// code against the stored recovery token.
func checkOTP(ctx context.Context, db *sqlx.DB, email string, otp string) (user.User, error) {
	usr, err := user.FetchByEmail(ctx, db, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, weberr.NewError(err, "Email is not registered", http.StatusNotFound)
		}
		return user.User{}, fmt.Errorf("fetching user by email: %w", err)
	}

	rec, err := Fetch(ctx, db, usr.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err := errors.New("no recovery token issued")
			return user.User{}, weberr.NewError(err, "Invalid or expired OTP", http.StatusUnauthorized)
		}
		return user.User{}, fmt.Errorf("fetching recovery token: %w", err)
	}

	if !rec.matches(otp, time.Now().UTC()) {
		err := errors.New("recovery token mismatch")
		return user.User{}, weberr.NewError(err, "Invalid or expired OTP", http.StatusUnauthorized)
	}

	return usr, nil
}

// HandleRecovery issues a one-time code for the account email and
// mails it on a background task so delivery never blocks the request.
func HandleRecovery(db *sqlx.DB, mailer Mailer, duration time.Duration, bg *background.Background, log logrus.FieldLogger) web.Handler {
	type recoverRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var req recoverRequest
		if err := web.Decode(w, r, &req); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding recovery request: %w", err))
		}

		if err := validate.Check(req); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		usr, err := user.FetchByEmail(ctx, db, req.Email)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NewError(err, "Email is not registered", http.StatusNotFound)
			}
			return fmt.Errorf("fetching user by email: %w", err)
		}

		otp, err := random.DigitsSecure(otpLength)
		if err != nil {
			return fmt.Errorf("generating one-time code: %w", err)
		}

		now := time.Now().UTC()
		rec := Recovery{
			UserID:    usr.ID,
			OTPHash:   hashOTP(otp),
			ExpiresAt: now.Add(duration),
			CreatedAt: now,
		}

		if err := Upsert(ctx, db, rec); err != nil {
			return fmt.Errorf("storing recovery token: %w", err)
		}

		bg.Run("recovery-mail", func(ctx context.Context) {
			if err := mailer.SendRecovery(usr.Email, otp); err != nil {
				log.WithFields(logrus.Fields{
					"user_id": usr.ID,
					"message": err,
				}).Error("sending recovery mail")
			}
		})

		resp := messageResponse{Success: true, Message: "OTP sent to your email"}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

// HandleVerify checks a submitted code without consuming it, so the
// client can move to the reset step.
func HandleVerify(db *sqlx.DB) web.Handler {
	type verifyRequest struct {
		Email string `json:"email" validate:"required,email"`
		OTP   string `json:"otp" validate:"required,len=6,numeric"`
	}

	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var req verifyRequest
		if err := web.Decode(w, r, &req); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding verification request: %w", err))
		}

		if err := validate.Check(req); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		if _, err := checkOTP(ctx, db, req.Email, req.OTP); err != nil {
			return err
		}

		resp := messageResponse{Success: true, Message: "OTP verified"}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

// HandleReset replaces the password of the account the code was
// issued for and consumes the code, in one transaction.
func HandleReset(db *sqlx.DB) web.Handler {
	type resetRequest struct {
		Email       string `json:"email" validate:"required,email"`
		OTP         string `json:"otp" validate:"required,len=6,numeric"`
		NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
	}

	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var req resetRequest
		if err := web.Decode(w, r, &req); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding reset request: %w", err))
		}

		if err := validate.Check(req); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		usr, err := checkOTP(ctx, db, req.Email, req.OTP)
		if err != nil {
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}

		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			if err := user.UpdatePassword(ctx, tx, usr.ID, hash, time.Now().UTC()); err != nil {
				return fmt.Errorf("replacing password: %w", err)
			}

			if err := Delete(ctx, tx, usr.ID); err != nil {
				return fmt.Errorf("consuming recovery token: %w", err)
			}

			return nil
		})
		if err != nil {
			return fmt.Errorf("resetting password of user[%s]: %w", usr.ID, err)
		}

		resp := messageResponse{Success: true, Message: "Password has been reset"}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}
