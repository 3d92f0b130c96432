package model

import "time"

// ChatRole identifies the sender of a chat message.
type ChatRole string

const (
	// RoleUser marks a message typed by the user.
	RoleUser ChatRole = "user"
	// RoleBot marks a reply from the recommendation bot.
	RoleBot ChatRole = "bot"
)

// ChatMessage is one turn in the recommendation chat transcript.
// Messages are append-only and never mutated. A bot message carrying a
// non-empty Recipes slice is the card-carousel variant; rendering only
// needs to branch on HasRecipes.
type ChatMessage struct {
	// ID is a locally minted unique identifier.
	ID string `json:"id"`

	// Role is the sender of this message.
	Role ChatRole `json:"role"`

	// Text is the message body.
	Text string `json:"text"`

	// Timestamp is when the message was appended.
	Timestamp time.Time `json:"timestamp"`

	// Recipes holds hydrated results attached to a bot reply, in the
	// order their detail fetches completed.
	Recipes []Recipe `json:"recipes,omitempty"`
}

// HasRecipes reports whether this message carries a recipe carousel.
func (m ChatMessage) HasRecipes() bool {
	return len(m.Recipes) > 0
}
