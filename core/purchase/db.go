package purchase

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, p Purchase) error {
	const q = `
	INSERT INTO purchases
		(purchase_id, user_id, course_id, amount, status, payment_id, session_expiry, created_at, updated_at)
	VALUES
		(:purchase_id, :user_id, :course_id, :amount, :status, :payment_id, :session_expiry, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, p); err != nil {
		return fmt.Errorf("inserting purchase: %w", err)
	}

	return nil
}

func FetchByUser(ctx context.Context, db sqlx.ExtContext, userID string) ([]PurchasedCourse, error) {
	const q = `
	SELECT p.*,
		COALESCE(c.title, '') AS title,
		COALESCE(c.thumbnail_url, '') AS thumbnail_url
	FROM purchases AS p
	LEFT JOIN courses AS c ON c.course_id = p.course_id
	WHERE p.user_id = $1
	ORDER BY p.created_at DESC`

	ps := []PurchasedCourse{}
	if err := sqlx.SelectContext(ctx, db, &ps, q, userID); err != nil {
		return nil, fmt.Errorf("selecting purchases of user[%s]: %w", userID, err)
	}

	return ps, nil
}

func FetchByPaymentID(ctx context.Context, db sqlx.ExtContext, paymentID string) ([]Purchase, error) {
	const q = `SELECT * FROM purchases WHERE payment_id = $1`

	ps := []Purchase{}
	if err := sqlx.SelectContext(ctx, db, &ps, q, paymentID); err != nil {
		return nil, fmt.Errorf("selecting purchases of payment[%s]: %w", paymentID, err)
	}

	return ps, nil
}

func CountCompleted(ctx context.Context, db sqlx.ExtContext) (int, error) {
	const q = `SELECT COUNT(*) FROM purchases WHERE status = 'completed'`

	var count int
	if err := sqlx.GetContext(ctx, db, &count, q); err != nil {
		return 0, fmt.Errorf("counting completed purchases: %w", err)
	}

	return count, nil
}

func CountAll(ctx context.Context, db sqlx.ExtContext) (int, error) {
	const q = `SELECT COUNT(*) FROM purchases`

	var count int
	if err := sqlx.GetContext(ctx, db, &count, q); err != nil {
		return 0, fmt.Errorf("counting purchases: %w", err)
	}

	return count, nil
}

// CompletedExists reports whether the user already owns the course.
func CompletedExists(ctx context.Context, db sqlx.ExtContext, userID string, courseID string) (bool, error) {
	const q = `
	SELECT EXISTS (
		SELECT 1 FROM purchases
		WHERE user_id = $1 AND course_id = $2 AND status = 'completed'
	)`

	var exists bool
	if err := sqlx.GetContext(ctx, db, &exists, q, userID, courseID); err != nil {
		return false, fmt.Errorf("checking purchase of course[%s] by user[%s]: %w", courseID, userID, err)
	}

	return exists, nil
}

// CompleteByPaymentID transitions the pending purchases of a paid
// session to completed.
func CompleteByPaymentID(ctx context.Context, db sqlx.ExtContext, paymentID string, now time.Time) error {
	const q = `
	UPDATE purchases SET status = 'completed', updated_at = $2
	WHERE payment_id = $1 AND status = 'pending'`

	if _, err := db.ExecContext(ctx, q, paymentID, now); err != nil {
		return fmt.Errorf("completing purchases of payment[%s]: %w", paymentID, err)
	}

	return nil
}

// ExpireStale reclaims pending purchases whose checkout session has
// passed its expiry without a completed payment.
func ExpireStale(ctx context.Context, db sqlx.ExtContext, now time.Time) (int64, error) {
	const q = `
	UPDATE purchases SET status = 'expired', updated_at = $1
	WHERE status = 'pending' AND session_expiry < $1`

	res, err := db.ExecContext(ctx, q, now)
	if err != nil {
		return 0, fmt.Errorf("expiring stale purchases: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}

	return n, nil
}

// CheckoutItem is a cart entry resolved for checkout validation. The
// course columns are nullable: the catalog record may be gone while
// the cart still references it.
type CheckoutItem struct {
	CourseID     string         `db:"course_id"`
	Title        sql.NullString `db:"title"`
	Price        sql.NullInt64  `db:"price"`
	ThumbnailURL sql.NullString `db:"thumbnail_url"`
	Status       sql.NullString `db:"status"`
	Purchased    bool           `db:"purchased"`
}

func FetchCheckoutItems(ctx context.Context, db sqlx.ExtContext, userID string) ([]CheckoutItem, error) {
	const q = `
	SELECT i.course_id,
		c.title, c.price, c.thumbnail_url, c.status,
		EXISTS (
			SELECT 1 FROM purchases AS p
			WHERE p.user_id = i.user_id AND p.course_id = i.course_id AND p.status = 'completed'
		) AS purchased
	FROM cart_items AS i
	LEFT JOIN courses AS c ON c.course_id = i.course_id
	WHERE i.user_id = $1
	ORDER BY i.added_at`

	items := []CheckoutItem{}
	if err := sqlx.SelectContext(ctx, db, &items, q, userID); err != nil {
		return nil, fmt.Errorf("selecting checkout items of user[%s]: %w", userID, err)
	}

	return items, nil
}
