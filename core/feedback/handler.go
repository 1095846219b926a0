package feedback

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/learnhubdev/learnhub/api/web"
	"github.com/learnhubdev/learnhub/api/weberr"
	"github.com/learnhubdev/learnhub/core/claims"
	"github.com/learnhubdev/learnhub/core/course"
	"github.com/learnhubdev/learnhub/validate"
)

type feedbackResponse struct {
	Success  bool     `json:"success"`
	Feedback Feedback `json:"feedback"`
}

// HandleCreate stores the caller's review of a course, replacing a
// previous one if present.
func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}

		var fn FeedbackNew
		if err := web.Decode(w, r, &fn); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding feedback: %w", err))
		}

		if err := validate.Check(fn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}
		if err := validate.CheckID(fn.CourseID); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		if _, err := course.Fetch(ctx, db, fn.CourseID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NewError(err, "Course not found", http.StatusNotFound)
			}
			return fmt.Errorf("fetching course[%s]: %w", fn.CourseID, err)
		}

		now := time.Now().UTC()
		f := Feedback{
			ID:        validate.GenerateID(),
			UserID:    clm.UserID,
			CourseID:  fn.CourseID,
			Rating:    fn.Rating,
			Comment:   fn.Comment,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := Upsert(ctx, db, f); err != nil {
			return fmt.Errorf("storing feedback: %w", err)
		}

		// Re-read: on replacement the original row id survives.
		f, err = FetchByUserCourse(ctx, db, clm.UserID, fn.CourseID)
		if err != nil {
			return fmt.Errorf("fetching stored feedback: %w", err)
		}

		return web.Respond(ctx, w, feedbackResponse{Success: true, Feedback: f}, http.StatusOK)
	}
}

func HandleListByCourse(db *sqlx.DB) web.Handler {
	type listResponse struct {
		Success  bool             `json:"success"`
		Feedback []CourseFeedback `json:"feedback"`
	}

	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		fs, err := FetchByCourse(ctx, db, courseID)
		if err != nil {
			return fmt.Errorf("listing feedback of course[%s]: %w", courseID, err)
		}

		return web.Respond(ctx, w, listResponse{Success: true, Feedback: fs}, http.StatusOK)
	}
}

// HandleDelete removes a review. Only its author can delete it.
func HandleDelete(db *sqlx.DB) web.Handler {
	type deleteResponse struct {
		Success bool `json:"success"`
	}

	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		f, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching feedback[%s]: %w", id, err)
		}

		if f.UserID != clm.UserID {
			return weberr.NotAuthorized(errors.New("feedback belongs to another user"))
		}

		if err := Delete(ctx, db, id); err != nil {
			return fmt.Errorf("deleting feedback[%s]: %w", id, err)
		}

		return web.Respond(ctx, w, deleteResponse{Success: true}, http.StatusOK)
	}
}
