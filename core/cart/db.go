package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// UpsertItem inserts the course into the user's cart with set
// semantics, creating the cart on first use. A single statement so
// concurrent adds converge without application-level locking.
func UpsertItem(ctx context.Context, db sqlx.ExtContext, userID string, courseID string, now time.Time) error {
	const q = `
	WITH new_cart AS (
		INSERT INTO carts (user_id, created_at, updated_at)
		VALUES ($1, $2, $2)
		ON CONFLICT (user_id) DO NOTHING
	)
	INSERT INTO cart_items (user_id, course_id, added_at)
	VALUES ($1, $3, $2)
	ON CONFLICT (user_id, course_id) DO NOTHING`

	if _, err := db.ExecContext(ctx, q, userID, now, courseID); err != nil {
		return fmt.Errorf("upserting cart item[%s] for user[%s]: %w", courseID, userID, err)
	}

	return nil
}

// DeleteItem removes the course from the cart. Removing an absent
// item is a no-op, not an error.
func DeleteItem(ctx context.Context, db sqlx.ExtContext, userID string, courseID string) error {
	const q = `DELETE FROM cart_items WHERE user_id = $1 AND course_id = $2`

	if _, err := db.ExecContext(ctx, q, userID, courseID); err != nil {
		return fmt.Errorf("deleting cart item[%s] for user[%s]: %w", courseID, userID, err)
	}

	return nil
}

// DeleteItems removes the given courses from the cart, used when a
// payment completes.
func DeleteItems(ctx context.Context, db sqlx.ExtContext, userID string, courseIDs []string) error {
	const q = `DELETE FROM cart_items WHERE user_id = $1 AND course_id = ANY($2)`

	if _, err := db.ExecContext(ctx, q, userID, pq.Array(courseIDs)); err != nil {
		return fmt.Errorf("deleting cart items for user[%s]: %w", userID, err)
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, userID string) (Cart, error) {
	const q = `SELECT * FROM carts WHERE user_id = $1`

	var c Cart
	if err := sqlx.GetContext(ctx, db, &c, q, userID); err != nil {
		return Cart{}, fmt.Errorf("selecting cart of user[%s]: %w", userID, err)
	}

	return c, nil
}

// FetchItems resolves the cart entries against the catalog. Entries
// whose course no longer exists are not displayed; checkout runs its
// own stricter resolution.
func FetchItems(ctx context.Context, db sqlx.ExtContext, userID string) ([]Item, error) {
	const q = `
	SELECT i.course_id, c.title, c.price, c.thumbnail_url, i.added_at
	FROM cart_items AS i
	JOIN courses AS c ON c.course_id = i.course_id
	WHERE i.user_id = $1
	ORDER BY i.added_at`

	items := []Item{}
	if err := sqlx.SelectContext(ctx, db, &items, q, userID); err != nil {
		return nil, fmt.Errorf("selecting cart items of user[%s]: %w", userID, err)
	}

	return items, nil
}

// completedPurchaseExists reports whether the user already holds a
// completed purchase for the course, which blocks re-adding it.
func completedPurchaseExists(ctx context.Context, db sqlx.ExtContext, userID string, courseID string) (bool, error) {
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
