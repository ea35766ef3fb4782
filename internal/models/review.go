package models

import (
	"time"

	"github.com/google/uuid"
)

type ReviewStatus string

const (
	ReviewStatusPending   ReviewStatus = "pending"
	ReviewStatusPublished ReviewStatus = "published"
)

// Review is a visitor-submitted review. Status is the single source of truth
// for moderation state; the admin wire format still splits reviews into a
// pending and a published array.
type Review struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Text      string       `json:"text"`
	Rating    int          `json:"rating"`
	Status    ReviewStatus `json:"-"`
	CreatedAt time.Time    `json:"created"`
}

// NewID returns a fresh entity identifier.
func NewID() string {
	return uuid.NewString()
}
