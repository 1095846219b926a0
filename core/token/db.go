package token

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Upsert stores the recovery token, replacing the user's previous one
// so only the latest mailed code is live.
func Upsert(ctx context.Context, db sqlx.ExtContext, r Recovery) error {
	const q = `
	INSERT INTO recovery_tokens
		(user_id, otp_hash, expires_at, created_at)
	VALUES
		(:user_id, :otp_hash, :expires_at, :created_at)
	ON CONFLICT (user_id) DO UPDATE SET
		otp_hash = EXCLUDED.otp_hash,
		expires_at = EXCLUDED.expires_at,
		created_at = EXCLUDED.created_at`

	if _, err := sqlx.NamedExecContext(ctx, db, q, r); err != nil {
		return fmt.Errorf("upserting recovery token: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, userID string) (Recovery, error) {
	const q = `SELECT * FROM recovery_tokens WHERE user_id = $1`

	var r Recovery
	if err := sqlx.GetContext(ctx, db, &r, q, userID); err != nil {
		return Recovery{}, fmt.Errorf("selecting recovery token of user[%s]: %w", userID, err)
	}

	return r, nil
}

func Delete(ctx context.Context, db sqlx.ExtContext, userID string) error {
	const q = `DELETE FROM recovery_tokens WHERE user_id = $1`

	if _, err := db.ExecContext(ctx, q, userID); err != nil {
		return fmt.Errorf("deleting recovery token of user[%s]: %w", userID, err)
	}

	return nil
}
