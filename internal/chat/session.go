package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/plateful/recipe-companion/internal/api"
	"github.com/plateful/recipe-companion/internal/cache"
	"github.com/plateful/recipe-companion/internal/model"
)

// DefaultGreeting opens every fresh or cleared transcript, so a cleared
// chat is never literally empty.
const DefaultGreeting = "Hi! Tell me what you're craving and I'll suggest some recipes."

// defaultMaxResults caps how many search matches are hydrated into a
// single carousel reply.
const defaultMaxResults = 5

// Session holds the ordered transcript of one user's conversation with
// the recommendation bot and persists the full transcript after every
// mutation. A single logical writer is assumed (one chat screen at a
// time); Close makes late async completions no-ops.
type Session struct {
	svc        api.Service
	store      *cache.Store
	token      string
	greeting   string
	maxResults int
	logger     *slog.Logger
	now        func() time.Time

	mu       sync.Mutex
	messages []model.ChatMessage
	closed   bool
}

// NewSession creates a session with the given configuration. An empty
// greeting and a non-positive maxResults fall back to defaults.
func NewSession(
	svc api.Service,
	store *cache.Store,
	token string,
	greeting string,
	maxResults int,
	logger *slog.Logger,
) *Session {
	if greeting == "" {
		greeting = DefaultGreeting
	}
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		svc:        svc,
		store:      store,
		token:      token,
		greeting:   greeting,
		maxResults: maxResults,
		logger:     logger,
		now:        time.Now,
	}
}

// Restore loads the persisted transcript at session start. A missing or
// corrupt transcript starts fresh with the greeting.
func (s *Session) Restore(ctx context.Context) {
	var msgs []model.ChatMessage
	if s.store.Get(ctx, cache.NamespaceChatHistory, &msgs) && len(msgs) > 0 {
		s.mu.Lock()
		s.messages = msgs
		s.mu.Unlock()
		return
	}
	s.reset(ctx)
}

// Clear empties the transcript and reopens it with the greeting.
// Clearing twice in a row still leaves exactly one greeting.
func (s *Session) Clear(ctx context.Context) {
	s.reset(ctx)
}

// Messages returns a snapshot of the transcript in insertion order.
func (s *Session) Messages() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// AppendUserMessage adds a user turn and persists the transcript.
// Persistence is fire-and-forget from the caller's perspective: a
// write failure is logged, never surfaced.
func (s *Session) AppendUserMessage(ctx context.Context, text string) {
	s.append(ctx, model.ChatMessage{
		ID:        uuid.New().String(),
		Role:      model.RoleUser,
		Text:      text,
		Timestamp: s.now(),
	})
}

// AppendBotMessage adds a bot turn. A non-empty recipes slice makes it
// the carousel variant.
func (s *Session) AppendBotMessage(ctx context.Context, text string, recipes []model.Recipe) {
	s.append(ctx, model.ChatMessage{
		ID:        uuid.New().String(),
		Role:      model.RoleBot,
		Text:      text,
		Timestamp: s.now(),
		Recipes:   recipes,
	})
}

// Ask records the user's message, then runs the search for it.
func (s *Session) Ask(ctx context.Context, text string) {
	s.AppendUserMessage(ctx, text)
	s.Search(ctx, text)
}

// Search runs the query against the recipe service, hydrates up to
// maxResults matches with parallel detail fetches, and appends exactly
// one bot message carrying whatever subset of details succeeded. A
// failed detail fetch drops that one recipe; only a total failure
// produces the "no results" reply. Carousel order is detail completion
// order, not request order.
func (s *Session) Search(ctx context.Context, query string) {
	matches, err := s.svc.SearchRecipes(ctx, s.token, query)
	if err != nil {
		s.AppendBotMessage(ctx, searchFailureText(err), nil)
		return
	}
	if len(matches) == 0 {
		s.AppendBotMessage(ctx, noResultsText(query), nil)
		return
	}
	if len(matches) > s.maxResults {
		matches = matches[:s.maxResults]
	}

	// Fan out one detail fetch per match and join on all of them.
	var (
		wg      sync.WaitGroup
		resMu   sync.Mutex
		recipes []model.Recipe
	)
	for _, m := range matches {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()

			detail, err := s.svc.FetchRecipeDetail(ctx, s.token, id)
			if err != nil {
				s.logger.Warn("detail fetch dropped from results",
					"recipe_id", id, "error", err)
				return
			}

			resMu.Lock()
			recipes = append(recipes, *detail)
			resMu.Unlock()
		}(m.ID)
	}
	wg.Wait()

	if len(recipes) == 0 {
		s.AppendBotMessage(ctx, noResultsText(query), nil)
		return
	}
	s.AppendBotMessage(ctx, resultsText(len(recipes)), recipes)
}

// Close marks the session torn down. Subsequent appends, including
// completions that arrive late, are ignored rather than touching
// shared state.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// reset replaces the transcript with empty, persists it, then appends
// the greeting.
func (s *Session) reset(ctx context.Context) {
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()

	s.persist(ctx)
	s.AppendBotMessage(ctx, s.greeting, nil)
}

// append adds a message and persists the full transcript snapshot.
func (s *Session) append(ctx context.Context, msg model.ChatMessage) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	s.persist(ctx)
}

// persist writes the current transcript to the chat cache namespace.
func (s *Session) persist(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	snapshot := make([]model.ChatMessage, len(s.messages))
	copy(snapshot, s.messages)
	s.mu.Unlock()

	if err := s.store.Put(ctx, cache.NamespaceChatHistory, snapshot); err != nil {
		s.logger.Warn("persisting chat transcript failed", "error", err)
	}
}

// searchFailureText distinguishes server errors (with status code) from
// plain connectivity failures in the surfaced message.
func searchFailureText(err error) string {
	if code := api.StatusCode(err); code != 0 {
		return fmt.Sprintf(
			"Something went wrong on our side (error %d). Please try again.", code,
		)
	}
	return "I couldn't reach the recipe service. Check your connection and try again."
}

func noResultsText(query string) string {
	return fmt.Sprintf(
		"I couldn't find any recipes for %q. Try different ingredients or a dish name.",
		query,
	)
}

func resultsText(n int) string {
	if n == 1 {
		return "Here's a recipe you might like:"
	}
	return fmt.Sprintf("Here are %d recipes you might like:", n)
}
