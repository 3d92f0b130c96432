package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plateful/recipe-companion/internal/cache"
	"github.com/plateful/recipe-companion/internal/model"
	"github.com/plateful/recipe-companion/tests/testutil"
)

// memTokenStore keeps the token in memory instead of the OS keyring.
type memTokenStore struct {
	token string
}

func (m *memTokenStore) Get() (string, error) { return m.token, nil }
func (m *memTokenStore) Set(tok string) error { m.token = tok; return nil }
func (m *memTokenStore) Delete() error        { m.token = ""; return nil }

func testConfig() *model.AppConfig {
	return &model.AppConfig{
		API:    model.APIConfig{BaseURL: "https://food.example.com", TimeoutSec: 5},
		Notify: model.NotifyConfig{PollIntervalSec: 60},
		Cache:  model.CacheConfig{RecipeTTLHours: 24},
		Chat:   model.ChatConfig{MaxResults: 5},
	}
}

func newTestApp(t *testing.T, svc *testutil.FakeService) (*App, *memTokenStore) {
	t.Helper()

	tokens := &memTokenStore{}
	a := NewWithParts(
		testConfig(), svc, testutil.NewTestStore(t), tokens,
		&testutil.RecordingAlerter{}, slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	t.Cleanup(func() { a.Poller().Stop() })
	return a, tokens
}

func TestLoginWiresSessionAndPoller(t *testing.T) {
	a, tokens := newTestApp(t, &testutil.FakeService{})

	user, err := a.Login(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "tester", user.Username)
	assert.Equal(t, "tok-1", tokens.token)
	assert.True(t, a.Poller().Running())

	require.NotNil(t, a.Chat())
	msgs := a.Chat().Messages()
	require.Len(t, msgs, 1, "restored chat opens with the greeting")
	require.NotNil(t, a.Inbox())
}

func TestLoginFailsWhenUserUnresolvable(t *testing.T) {
	svc := &testutil.FakeService{
		CurrentUserFunc: func(context.Context, string) (*model.UserProfile, error) {
			return nil, errors.New("401")
		},
	}
	a, tokens := newTestApp(t, svc)

	_, err := a.Login(context.Background(), "bad")
	require.Error(t, err)
	assert.Empty(t, tokens.token)
	assert.False(t, a.Poller().Running())
}

func TestLogoutStopsPollingAndForgetsToken(t *testing.T) {
	a, tokens := newTestApp(t, &testutil.FakeService{})

	_, err := a.Login(context.Background(), "tok-1")
	require.NoError(t, err)

	a.Logout()
	assert.False(t, a.Poller().Running())
	assert.Empty(t, tokens.token)
	assert.Nil(t, a.Chat())
	assert.Nil(t, a.Inbox())
	assert.Nil(t, a.User())
}

func TestRestoreLogin(t *testing.T) {
	a, tokens := newTestApp(t, &testutil.FakeService{})

	ok, err := a.RestoreLogin(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "nothing stored yet")

	tokens.token = "tok-saved"
	ok, err = a.RestoreLogin(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, a.Poller().Running())
}

func TestRecipesReadThrough(t *testing.T) {
	var fetches atomic.Int64
	listing := []model.Recipe{{ID: "r1", Title: "Dal"}}
	svc := &testutil.FakeService{
		FetchRecipesFunc: func(context.Context, string) ([]model.Recipe, error) {
			fetches.Add(1)
			return listing, nil
		},
	}
	a, _ := newTestApp(t, svc)
	ctx := context.Background()

	got, err := a.Recipes(ctx)
	require.NoError(t, err)
	assert.Equal(t, listing, got)
	assert.EqualValues(t, 1, fetches.Load())

	// Second call is served from cache, no extra round trip.
	got, err = a.Recipes(ctx)
	require.NoError(t, err)
	assert.Equal(t, listing, got)
	assert.EqualValues(t, 1, fetches.Load())
}

func TestRefreshRecipesBypassesCache(t *testing.T) {
	var fetches atomic.Int64
	svc := &testutil.FakeService{
		FetchRecipesFunc: func(context.Context, string) ([]model.Recipe, error) {
			fetches.Add(1)
			return []model.Recipe{{ID: "r1"}}, nil
		},
	}
	a, _ := newTestApp(t, svc)
	ctx := context.Background()

	_, err := a.Recipes(ctx)
	require.NoError(t, err)
	_, err = a.RefreshRecipes(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, fetches.Load())
}

func TestRecipesServesStaleOnFetchFailure(t *testing.T) {
	stale := []model.Recipe{{ID: "r1", Title: "Old Dal"}}
	svc := &testutil.FakeService{
		FetchRecipesFunc: func(context.Context, string) ([]model.Recipe, error) {
			return nil, errors.New("connection refused")
		},
	}
	a, _ := newTestApp(t, svc)
	ctx := context.Background()

	// Seed an entry, then let it expire immediately.
	a.Store().SetTTL(cache.NamespaceRecipes, time.Nanosecond)
	require.NoError(t, a.Store().Put(ctx, cache.NamespaceRecipes, stale))
	time.Sleep(time.Millisecond)

	got, err := a.Recipes(ctx)
	require.NoError(t, err, "stale listing beats an error")
	assert.Equal(t, stale, got)
}

func TestRecipesErrorWhenNothingCached(t *testing.T) {
	svc := &testutil.FakeService{
		FetchRecipesFunc: func(context.Context, string) ([]model.Recipe, error) {
			return nil, errors.New("connection refused")
		},
	}
	a, _ := newTestApp(t, svc)

	_, err := a.Recipes(context.Background())
	require.Error(t, err)
}
