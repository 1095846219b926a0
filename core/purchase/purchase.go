package purchase

import "time"

type Status string

const (
	Pending   Status = "pending"
	Completed Status = "completed"
	Expired   Status = "expired"
)

// Purchase is one purchase attempt of a course by a user. Rows are
// created in pending state at checkout, stamped with the provider
// session, and either completed by the provider webhook or expired by
// the reconciler.
type Purchase struct {
	ID            string    `json:"id" db:"purchase_id"`
	UserID        string    `json:"userId" db:"user_id"`
	CourseID      string    `json:"courseId" db:"course_id"`
	Amount        int       `json:"amount" db:"amount"`
	Status        Status    `json:"status" db:"status"`
	PaymentID     string    `json:"paymentId" db:"payment_id"`
	SessionExpiry time.Time `json:"sessionExpiry" db:"session_expiry"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// PurchasedCourse is a purchase with its course line joined for
// history views. Course fields are empty when the catalog record was
// removed after the purchase.
type PurchasedCourse struct {
	Purchase
	Title        string `json:"title" db:"title"`
	ThumbnailURL string `json:"thumbnailUrl" db:"thumbnail_url"`
}
