package cart

import (
	"time"
)

// Cart holds the courses a user intends to buy. One cart per user,
// created lazily on the first add.
type Cart struct {
	UserID    string    `json:"-" db:"user_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
	Version   int       `json:"-" db:"version"`
	Items     []Item    `json:"items" db:"-"`
}

// Item is a cart entry with its course line resolved for display.
type Item struct {
	CourseID     string    `json:"courseId" db:"course_id"`
	Title        string    `json:"title" db:"title"`
	Price        int       `json:"price" db:"price"`
	ThumbnailURL string    `json:"thumbnailUrl" db:"thumbnail_url"`
	AddedAt      time.Time `json:"addedAt" db:"added_at"`
}

type ItemNew struct {
	CourseID string `json:"courseId" validate:"required"`
}
