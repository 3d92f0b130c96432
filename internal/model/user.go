package model

// UserProfile is the authenticated user as reported by the service.
// The core resolves it once at login and otherwise treats it as opaque.
type UserProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
