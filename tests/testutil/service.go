package testutil

import (
	"context"

	"github.com/plateful/recipe-companion/internal/api"
	"github.com/plateful/recipe-companion/internal/model"
)

// FakeService is a scriptable api.Service for tests. Unset hooks
// return empty results.
type FakeService struct {
	FetchRecipesFunc         func(ctx context.Context, token string) ([]model.Recipe, error)
	SearchRecipesFunc        func(ctx context.Context, token, query string) ([]model.RecipeSummary, error)
	FetchRecipeDetailFunc    func(ctx context.Context, token, id string) (*model.Recipe, error)
	FetchNotificationsFunc   func(ctx context.Context, token string) ([]model.Notification, error)
	MarkNotificationReadFunc func(ctx context.Context, token, id string) error
	DeleteNotificationFunc   func(ctx context.Context, token, id string) error
	CurrentUserFunc          func(ctx context.Context, token string) (*model.UserProfile, error)
}

var _ api.Service = (*FakeService)(nil)

func (f *FakeService) FetchRecipes(ctx context.Context, token string) ([]model.Recipe, error) {
	if f.FetchRecipesFunc == nil {
		return nil, nil
	}
	return f.FetchRecipesFunc(ctx, token)
}

func (f *FakeService) SearchRecipes(ctx context.Context, token, query string) ([]model.RecipeSummary, error) {
	if f.SearchRecipesFunc == nil {
		return nil, nil
	}
	return f.SearchRecipesFunc(ctx, token, query)
}

func (f *FakeService) FetchRecipeDetail(ctx context.Context, token, id string) (*model.Recipe, error) {
	if f.FetchRecipeDetailFunc == nil {
		return &model.Recipe{ID: id}, nil
	}
	return f.FetchRecipeDetailFunc(ctx, token, id)
}

func (f *FakeService) FetchNotifications(ctx context.Context, token string) ([]model.Notification, error) {
	if f.FetchNotificationsFunc == nil {
		return nil, nil
	}
	return f.FetchNotificationsFunc(ctx, token)
}

func (f *FakeService) MarkNotificationRead(ctx context.Context, token, id string) error {
	if f.MarkNotificationReadFunc == nil {
		return nil
	}
	return f.MarkNotificationReadFunc(ctx, token, id)
}

func (f *FakeService) DeleteNotification(ctx context.Context, token, id string) error {
	if f.DeleteNotificationFunc == nil {
		return nil
	}
	return f.DeleteNotificationFunc(ctx, token, id)
}

func (f *FakeService) CurrentUser(ctx context.Context, token string) (*model.UserProfile, error) {
	if f.CurrentUserFunc == nil {
		return &model.UserProfile{ID: "user-1", Username: "tester"}, nil
	}
	return f.CurrentUserFunc(ctx, token)
}
