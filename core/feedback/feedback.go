package feedback

import "time"

// Feedback is a user's review of a course. One per (user, course):
// submitting again replaces the previous review.
type Feedback struct {
	ID        string    `json:"id" db:"feedback_id"`
	UserID    string    `json:"userId" db:"user_id"`
	CourseID  string    `json:"courseId" db:"course_id"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   string    `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type FeedbackNew struct {
	CourseID string `json:"courseId" validate:"required"`
	Rating   int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment  string `json:"comment" validate:"max=2000"`
}

// CourseFeedback is a review with its author resolved for display.
type CourseFeedback struct {
	Feedback
	AuthorName  string `json:"authorName" db:"author_name"`
	AuthorPhoto string `json:"authorPhoto" db:"author_photo"`
}
