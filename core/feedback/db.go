package feedback

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Upsert stores the review, replacing the user's previous one for the
// same course if present.
func Upsert(ctx context.Context, db sqlx.ExtContext, f Feedback) error {
	const q = `
	INSERT INTO feedback
		(feedback_id, user_id, course_id, rating, comment, created_at, updated_at)
	VALUES
		(:feedback_id, :user_id, :course_id, :rating, :comment, :created_at, :updated_at)
	ON CONFLICT (user_id, course_id) DO UPDATE SET
		rating = EXCLUDED.rating,
		comment = EXCLUDED.comment,
		updated_at = EXCLUDED.updated_at`

	if _, err := sqlx.NamedExecContext(ctx, db, q, f); err != nil {
		return fmt.Errorf("upserting feedback: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Feedback, error) {
	const q = `SELECT * FROM feedback WHERE feedback_id = $1`

	var f Feedback
	if err := sqlx.GetContext(ctx, db, &f, q, id); err != nil {
		return Feedback{}, fmt.Errorf("selecting feedback[%s]: %w", id, err)
	}

	return f, nil
}

func FetchByUserCourse(ctx context.Context, db sqlx.ExtContext, userID string, courseID string) (Feedback, error) {
	const q = `SELECT * FROM feedback WHERE user_id = $1 AND course_id = $2`

	var f Feedback
	if err := sqlx.GetContext(ctx, db, &f, q, userID, courseID); err != nil {
		return Feedback{}, fmt.Errorf("selecting feedback of user[%s] for course[%s]: %w", userID, courseID, err)
	}

	return f, nil
}

func FetchByCourse(ctx context.Context, db sqlx.ExtContext, courseID string) ([]CourseFeedback, error) {
	const q = `
	SELECT f.*, u.name AS author_name, u.photo_url AS author_photo
	FROM feedback AS f
	JOIN users AS u ON u.user_id = f.user_id
	WHERE f.course_id = $1
	ORDER BY f.updated_at DESC`

	fs := []CourseFeedback{}
	if err := sqlx.SelectContext(ctx, db, &fs, q, courseID); err != nil {
		return nil, fmt.Errorf("selecting feedback of course[%s]: %w", courseID, err)
	}

	return fs, nil
}

func Delete(ctx context.Context, db sqlx.ExtContext, id string) error {
	const q = `DELETE FROM feedback WHERE feedback_id = $1`

	if _, err := db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("deleting feedback[%s]: %w", id, err)
	}

	return nil
}
