package model

import "time"

// ReferenceType identifies what kind of object a notification points at.
type ReferenceType string

const (
	ReferenceRecipe  ReferenceType = "recipe"
	ReferenceComment ReferenceType = "comment"
	ReferenceFollow  ReferenceType = "follow"
)

// Notification represents an alert created server-side and fetched
// read-only. The Read flag is the only field mutated locally, and only
// through an optimistic flip that is reconciled against the server.
type Notification struct {
	// ID is the unique identifier for this notification.
	ID string `json:"id"`

	// Read indicates whether the user has seen this notification.
	Read bool `json:"is_read"`

	// ReferenceType identifies which object this notification is about.
	ReferenceType ReferenceType `json:"reference_type"`

	// ReferenceID is the id of the referenced object, empty when the
	// notification stands alone.
	ReferenceID string `json:"reference_id,omitempty"`

	// Content is the human-readable notification text.
	Content string `json:"content"`

	// CreatedAt is when the server generated this notification.
	CreatedAt time.Time `json:"created_at"`
}
