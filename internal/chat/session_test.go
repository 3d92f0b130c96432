package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plateful/recipe-companion/internal/api"
	"github.com/plateful/recipe-companion/internal/cache"
	"github.com/plateful/recipe-companion/internal/model"
	"github.com/plateful/recipe-companion/tests/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession(t *testing.T, svc api.Service) (*Session, *cache.Store) {
	t.Helper()

	store := testutil.NewTestStore(t)
	s := NewSession(svc, store, "tok", "", 0, testLogger())
	return s, store
}

func summaries(n int) []model.RecipeSummary {
	out := make([]model.RecipeSummary, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, model.RecipeSummary{
			ID:    strconv.Itoa(i),
			Title: fmt.Sprintf("recipe %d", i),
		})
	}
	return out
}

func TestRestoreEmptyStartsWithGreeting(t *testing.T) {
	s, _ := newTestSession(t, &testutil.FakeService{})

	s.Restore(context.Background())

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, model.RoleBot, msgs[0].Role)
	assert.Equal(t, DefaultGreeting, msgs[0].Text)
}

func TestClearIsIdempotent(t *testing.T) {
	s, _ := newTestSession(t, &testutil.FakeService{})
	ctx := context.Background()

	s.Restore(ctx)
	s.AppendUserMessage(ctx, "pasta ideas?")

	s.Clear(ctx)
	s.Clear(ctx)

	msgs := s.Messages()
	require.Len(t, msgs, 1, "two clears still leave exactly one greeting")
	assert.Equal(t, DefaultGreeting, msgs[0].Text)
}

func TestRestartDurability(t *testing.T) {
	svc := &testutil.FakeService{}
	store := testutil.NewTestStore(t)
	ctx := context.Background()

	s1 := NewSession(svc, store, "tok", "", 0, testLogger())
	s1.Restore(ctx)
	s1.AppendUserMessage(ctx, "what's for dinner?")
	s1.AppendBotMessage(ctx, "How about pho?", nil)
	require.Len(t, s1.Messages(), 3)
	s1.Close()

	// A new session over the same store stands in for a process restart.
	s2 := NewSession(svc, store, "tok", "", 0, testLogger())
	s2.Restore(ctx)

	msgs := s2.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, DefaultGreeting, msgs[0].Text)
	assert.Equal(t, model.RoleUser, msgs[1].Role)
	assert.Equal(t, "what's for dinner?", msgs[1].Text)
	assert.Equal(t, "How about pho?", msgs[2].Text)
}

func TestRestoreCorruptTranscriptStartsFresh(t *testing.T) {
	svc := &testutil.FakeService{}
	store := testutil.NewTestStore(t)
	ctx := context.Background()

	// A payload that is valid JSON but not a transcript.
	require.NoError(t, store.Put(ctx, cache.NamespaceChatHistory, "not a transcript"))

	s := NewSession(svc, store, "tok", "", 0, testLogger())
	s.Restore(ctx)

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, DefaultGreeting, msgs[0].Text)
}

func TestSearchJoinToleratesPartialFailure(t *testing.T) {
	svc := &testutil.FakeService{
		SearchRecipesFunc: func(context.Context, string, string) ([]model.RecipeSummary, error) {
			return summaries(5), nil
		},
		FetchRecipeDetailFunc: func(_ context.Context, _, id string) (*model.Recipe, error) {
			if id == "3" {
				return nil, errors.New("timeout")
			}
			return &model.Recipe{ID: id, Title: "recipe " + id}, nil
		},
	}
	s, _ := newTestSession(t, svc)

	s.Search(context.Background(), "noodles")

	msgs := s.Messages()
	require.Len(t, msgs, 1, "exactly one bot message, never a hang")
	require.Equal(t, model.RoleBot, msgs[0].Role)
	assert.Len(t, msgs[0].Recipes, 4, "the failed leg is dropped")
	for _, r := range msgs[0].Recipes {
		assert.NotEqual(t, "3", r.ID)
	}
}

func TestSearchZeroResultsIssuesNoDetailFetches(t *testing.T) {
	var detailCalls atomic.Int64
	svc := &testutil.FakeService{
		SearchRecipesFunc: func(context.Context, string, string) ([]model.RecipeSummary, error) {
			return nil, nil
		},
		FetchRecipeDetailFunc: func(_ context.Context, _, id string) (*model.Recipe, error) {
			detailCalls.Add(1)
			return &model.Recipe{ID: id}, nil
		},
	}
	s, _ := newTestSession(t, svc)

	s.Search(context.Background(), "zzzznonexistent")

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].HasRecipes())
	assert.Contains(t, msgs[0].Text, "couldn't find any recipes")
	assert.Zero(t, detailCalls.Load())
}

func TestSearchAllDetailsFailedIsNoResults(t *testing.T) {
	svc := &testutil.FakeService{
		SearchRecipesFunc: func(context.Context, string, string) ([]model.RecipeSummary, error) {
			return summaries(3), nil
		},
		FetchRecipeDetailFunc: func(context.Context, string, string) (*model.Recipe, error) {
			return nil, errors.New("timeout")
		},
	}
	s, _ := newTestSession(t, svc)

	s.Search(context.Background(), "soup")

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].HasRecipes())
	assert.Contains(t, msgs[0].Text, "couldn't find any recipes")
}

func TestSearchCapsMatches(t *testing.T) {
	var detailCalls atomic.Int64
	svc := &testutil.FakeService{
		SearchRecipesFunc: func(context.Context, string, string) ([]model.RecipeSummary, error) {
			return summaries(8), nil
		},
		FetchRecipeDetailFunc: func(_ context.Context, _, id string) (*model.Recipe, error) {
			detailCalls.Add(1)
			return &model.Recipe{ID: id}, nil
		},
	}
	s, _ := newTestSession(t, svc)

	s.Search(context.Background(), "chicken")

	assert.EqualValues(t, 5, detailCalls.Load())
	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Len(t, msgs[0].Recipes, 5)
}

func TestSearchNetworkFailureMessage(t *testing.T) {
	svc := &testutil.FakeService{
		SearchRecipesFunc: func(context.Context, string, string) ([]model.RecipeSummary, error) {
			return nil, errors.New("dial tcp: connection refused")
		},
	}
	s, _ := newTestSession(t, svc)

	s.Search(context.Background(), "tacos")

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "couldn't reach the recipe service")
}

func TestSearchServerFailureMentionsStatusCode(t *testing.T) {
	svc := &testutil.FakeService{
		SearchRecipesFunc: func(context.Context, string, string) ([]model.RecipeSummary, error) {
			return nil, &api.StatusError{Code: 503, Body: "unavailable"}
		},
	}
	s, _ := newTestSession(t, svc)

	s.Search(context.Background(), "tacos")

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "503")
}

func TestAskRecordsUserTurnThenBotReply(t *testing.T) {
	svc := &testutil.FakeService{
		SearchRecipesFunc: func(context.Context, string, string) ([]model.RecipeSummary, error) {
			return summaries(1), nil
		},
	}
	s, _ := newTestSession(t, svc)

	s.Ask(context.Background(), "ramen")

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "ramen", msgs[0].Text)
	assert.Equal(t, model.RoleBot, msgs[1].Role)
	assert.Len(t, msgs[1].Recipes, 1)
}

func TestClosedSessionIgnoresAppends(t *testing.T) {
	s, store := newTestSession(t, &testutil.FakeService{})
	ctx := context.Background()

	s.Restore(ctx)
	persisted := s.Messages()
	s.Close()

	s.AppendBotMessage(ctx, "late completion", nil)
	assert.Equal(t, persisted, s.Messages())

	// The persisted transcript is untouched as well.
	var onDisk []model.ChatMessage
	require.True(t, store.Get(ctx, cache.NamespaceChatHistory, &onDisk))
	assert.Len(t, onDisk, 1)
}
