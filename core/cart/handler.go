package cart

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

type cartResponse struct {
	Success bool `json:"success"`
	Cart    Cart `json:"cart"`
}

// resolve loads the user's cart with line items filled in. An absent
// cart is a normal state and comes back as the empty-items shape.
func resolve(ctx context.Context, db *sqlx.DB, userID string) (Cart, error) {
	c, err := Fetch(ctx, db, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Cart{Items: []Item{}}, nil
		}
		return Cart{}, err
	}

	items, err := FetchItems(ctx, db, userID)
	if err != nil {
		return Cart{}, err
	}

	c.Items = items
	return c, nil
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}

		c, err := resolve(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("resolving cart: %w", err)
		}

		return web.Respond(ctx, w, cartResponse{Success: true, Cart: c}, http.StatusOK)
	}
}

// HandleCreateItem adds a course to the caller's cart. The course
// must exist and must not be already owned; duplicate adds collapse
// into one entry.
func HandleCreateItem(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}

		var in ItemNew
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding cart item: %w", err))
		}

		if err := validate.Check(in); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}
		if err := validate.CheckID(in.CourseID); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		if _, err := course.Fetch(ctx, db, in.CourseID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NewError(err, "Course not found", http.StatusNotFound)
			}
			return fmt.Errorf("fetching course[%s]: %w", in.CourseID, err)
		}

		owned, err := completedPurchaseExists(ctx, db, clm.UserID, in.CourseID)
		if err != nil {
			return fmt.Errorf("checking existing purchase: %w", err)
		}
		if owned {
			err := errors.New("course already purchased by user")
			return weberr.NewError(err, "Course is already purchased", http.StatusBadRequest)
		}

		if err := UpsertItem(ctx, db, clm.UserID, in.CourseID, time.Now().UTC()); err != nil {
			return fmt.Errorf("adding course[%s] to cart: %w", in.CourseID, err)
		}

		c, err := resolve(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("resolving cart: %w", err)
		}

		return web.Respond(ctx, w, cartResponse{Success: true, Cart: c}, http.StatusOK)
	}
}

func HandleDeleteItem(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}

		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		if err := DeleteItem(ctx, db, clm.UserID, courseID); err != nil {
			return fmt.Errorf("removing course[%s] from cart: %w", courseID, err)
		}

		c, err := resolve(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("resolving cart: %w", err)
		}

		return web.Respond(ctx, w, cartResponse{Success: true, Cart: c}, http.StatusOK)
	}
}
