package course

import "time"

// Publication status. Only published courses can be bought.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

type Course struct {
	ID           string    `json:"id" db:"course_id"`
	Title        string    `json:"title" db:"title"`
	Description  string    `json:"description" db:"description"`
	Price        int       `json:"price" db:"price"`
	ThumbnailURL string    `json:"thumbnailUrl" db:"thumbnail_url"`
	Status       string    `json:"status" db:"status"`
	InstructorID string    `json:"instructorId" db:"instructor_id"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
	Version      int       `json:"-" db:"version"`
}

type CourseNew struct {
	Title        string `json:"title" validate:"required"`
	Description  string `json:"description"`
	Price        int    `json:"price" validate:"gte=0,lte=10000"`
	ThumbnailURL string `json:"thumbnailUrl" validate:"omitempty,url"`
	Status       string `json:"status" validate:"omitempty,oneof=draft published"`
}

type CourseUp struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Price        *int    `json:"price" validate:"omitempty,gte=0,lte=10000"`
	ThumbnailURL *string `json:"thumbnailUrl" validate:"omitempty,url"`
	Status       *string `json:"status" validate:"omitempty,oneof=draft published"`
}
