package test

import (
	"net/http"
	"testing"

	"github.com/learnhubdev/learnhub/core/course"
	"github.com/learnhubdev/learnhub/core/purchase"
	"github.com/plutov/paypal/v4"
)

func TestPaypalCheckout(t *testing.T) {
	env, err := NewTestEnv(t, "paypal_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	c := env.createCourseOK(t, course.CourseNew{
		Title:  "Distributed Systems",
		Price:  40,
		Status: course.StatusPublished,
	})

	env.Login(t, UserEmail, UserPass)
	defer env.Logout(t)

	env.addToCartOK(t, c.ID)

	w := env.do(t, http.MethodPost, "/api/v1/purchase/paypal", nil)
	if w.StatusCode != http.StatusOK {
		t.Fatalf("creating paypal order: status code %s", w.Status)
	}

	var resp struct {
		Success bool          `json:"success"`
		Order   *paypal.Order `json:"order"`
	}
	decode(t, w, &resp)
	if !resp.Success || resp.Order == nil || resp.Order.ID == "" {
		t.Fatalf("unexpected paypal response: %+v", resp)
	}

	rows := purchaseRows(t, env)
	if len(rows) != 1 || rows[0].Status != purchase.Pending || rows[0].PaymentID != resp.Order.ID {
		t.Fatalf("unexpected purchase rows: %+v", rows)
	}

	w = env.do(t, http.MethodPost, "/api/v1/purchase/paypal/"+resp.Order.ID+"/capture", nil)
	if w.StatusCode != http.StatusNoContent {
		t.Fatalf("capturing paypal order: status code %s", w.Status)
	}
	w.Body.Close()

	rows = purchaseRows(t, env)
	if len(rows) != 1 || rows[0].Status != purchase.Completed {
		t.Fatalf("purchase not completed: %+v", rows)
	}

	if got := env.showCartOK(t); len(got.Items) != 0 {
		t.Fatalf("cart not cleared after capture: %d items", len(got.Items))
	}
}
