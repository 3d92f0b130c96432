package api

import (
	"context"

	"github.com/plateful/recipe-companion/internal/model"
)

// Service is the surface of the remote recipe service consumed by the
// rest of the core. Implementations must be safe for concurrent use;
// the background poller and the chat session share one instance.
type Service interface {
	// FetchRecipes retrieves the current recipe listing.
	FetchRecipes(ctx context.Context, token string) ([]model.Recipe, error)

	// SearchRecipes finds recipes matching a free-text query and
	// returns lightweight summaries.
	SearchRecipes(ctx context.Context, token, query string) ([]model.RecipeSummary, error)

	// FetchRecipeDetail hydrates a single recipe by id.
	FetchRecipeDetail(ctx context.Context, token, id string) (*model.Recipe, error)

	// FetchNotifications retrieves the user's current notification list.
	FetchNotifications(ctx context.Context, token string) ([]model.Notification, error)

	// MarkNotificationRead confirms a local read flip with the server.
	MarkNotificationRead(ctx context.Context, token, id string) error

	// DeleteNotification confirms a local removal with the server.
	DeleteNotification(ctx context.Context, token, id string) error

	// CurrentUser resolves the profile behind an auth token.
	CurrentUser(ctx context.Context, token string) (*model.UserProfile, error)
}
