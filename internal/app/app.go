// Package app is the composition root for the recipe companion core.
// It owns the single poller and cache store instances and hands them to
// every consumer through accessors, so screens share state without
// global lookups and tests can substitute fakes.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/plateful/recipe-companion/internal/api"
	"github.com/plateful/recipe-companion/internal/cache"
	"github.com/plateful/recipe-companion/internal/chat"
	"github.com/plateful/recipe-companion/internal/credential"
	"github.com/plateful/recipe-companion/internal/model"
	"github.com/plateful/recipe-companion/internal/notify"
)

// TokenStore persists the auth token between runs.
type TokenStore interface {
	Get() (string, error)
	Set(token string) error
	Delete() error
}

// keyringTokenStore keeps the token in the OS keyring.
type keyringTokenStore struct{}

func (keyringTokenStore) Get() (string, error) { return credential.Get(credential.TokenKey) }
func (keyringTokenStore) Set(tok string) error { return credential.Set(credential.TokenKey, tok) }
func (keyringTokenStore) Delete() error        { return credential.Delete(credential.TokenKey) }

// App wires the core subsystems together for one process.
type App struct {
	cfg    *model.AppConfig
	svc    api.Service
	store  *cache.Store
	poller *notify.Poller
	tokens TokenStore
	logger *slog.Logger

	token string
	user  *model.UserProfile
	chat  *chat.Session
	inbox *notify.Inbox
}

// New wires the core from configuration with production collaborators:
// an HTTP client against cfg.API.BaseURL, a SQLite cache at
// cfg.Cache.Path, and the OS keyring for the auth token. alerter is the
// host's local notification surface.
func New(cfg *model.AppConfig, alerter notify.Alerter, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := cache.NewStore(cfg.Cache.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	if cfg.Cache.RecipeTTLHours > 0 {
		store.SetTTL(cache.NamespaceRecipes,
			time.Duration(cfg.Cache.RecipeTTLHours)*time.Hour)
	}

	svc := api.NewClient(cfg.API.BaseURL, time.Duration(cfg.API.TimeoutSec)*time.Second)

	return NewWithParts(cfg, svc, store, keyringTokenStore{}, alerter, logger), nil
}

// NewWithParts wires the core from pre-built collaborators. Used by
// tests and by hosts that bring their own service client.
func NewWithParts(
	cfg *model.AppConfig,
	svc api.Service,
	store *cache.Store,
	tokens TokenStore,
	alerter notify.Alerter,
	logger *slog.Logger,
) *App {
	if logger == nil {
		logger = slog.Default()
	}
	if tokens == nil {
		tokens = keyringTokenStore{}
	}

	poller := notify.NewPoller(
		svc, alerter,
		time.Duration(cfg.Notify.PollIntervalSec)*time.Second,
		logger,
	)

	return &App{
		cfg:    cfg,
		svc:    svc,
		store:  store,
		poller: poller,
		tokens: tokens,
		logger: logger,
	}
}

// Login resolves the user behind token, persists the token, restores
// the chat transcript, and starts the background poller.
func (a *App) Login(ctx context.Context, token string) (*model.UserProfile, error) {
	user, err := a.svc.CurrentUser(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("resolving current user: %w", err)
	}

	if err := a.tokens.Set(token); err != nil {
		// Not fatal: the session works, it just won't survive a restart.
		a.logger.Warn("storing auth token failed", "error", err)
	}

	if a.chat != nil {
		a.chat.Close()
	}

	a.token = token
	a.user = user
	a.chat = chat.NewSession(
		a.svc, a.store, token,
		a.cfg.Chat.Greeting, a.cfg.Chat.MaxResults, a.logger,
	)
	a.chat.Restore(ctx)
	a.inbox = notify.NewInbox(a.svc, token, a.logger)
	a.poller.Start(token)

	return user, nil
}

// RestoreLogin resumes a previous session from the stored token.
// Returns false when no token is stored.
func (a *App) RestoreLogin(ctx context.Context) (bool, error) {
	token, err := a.tokens.Get()
	if err != nil || token == "" {
		return false, nil
	}
	if _, err := a.Login(ctx, token); err != nil {
		return false, err
	}
	return true, nil
}

// Logout stops polling, forgets surfaced notification ids so a
// re-login can alert on them again, and removes the stored token.
func (a *App) Logout() {
	a.poller.Stop()
	a.poller.ClearKnown()

	if a.chat != nil {
		a.chat.Close()
	}
	a.chat = nil
	a.inbox = nil
	a.user = nil
	a.token = ""

	if err := a.tokens.Delete(); err != nil {
		a.logger.Debug("removing stored auth token", "error", err)
	}
}

// Recipes returns the recipe listing, served from cache while the
// cached copy is fresh (read-through). On a fetch failure the last
// stored listing is returned even if expired, so the screen can still
// render something.
func (a *App) Recipes(ctx context.Context) ([]model.Recipe, error) {
	var cached []model.Recipe
	if a.store.Get(ctx, cache.NamespaceRecipes, &cached) {
		return cached, nil
	}

	fetched, err := a.svc.FetchRecipes(ctx, a.token)
	if err != nil {
		var stale []model.Recipe
		if a.store.GetStale(ctx, cache.NamespaceRecipes, &stale) {
			a.logger.Warn("recipe fetch failed, serving stale listing", "error", err)
			return stale, nil
		}
		return nil, fmt.Errorf("fetching recipes: %w", err)
	}

	if err := a.store.Put(ctx, cache.NamespaceRecipes, fetched); err != nil {
		a.logger.Warn("caching recipe listing failed", "error", err)
	}
	return fetched, nil
}

// RefreshRecipes drops the cached listing and fetches a fresh one.
func (a *App) RefreshRecipes(ctx context.Context) ([]model.Recipe, error) {
	if err := a.store.Invalidate(ctx, cache.NamespaceRecipes); err != nil {
		a.logger.Warn("invalidating recipe cache failed", "error", err)
	}
	return a.Recipes(ctx)
}

// Chat returns the active chat session, nil when logged out.
func (a *App) Chat() *chat.Session { return a.chat }

// Inbox returns the active notification inbox, nil when logged out.
func (a *App) Inbox() *notify.Inbox { return a.inbox }

// Poller returns the process-wide notification poller.
func (a *App) Poller() *notify.Poller { return a.poller }

// Store returns the shared cache store.
func (a *App) Store() *cache.Store { return a.store }

// User returns the logged-in profile, nil when logged out.
func (a *App) User() *model.UserProfile { return a.user }

// Close stops background work and releases the cache store.
func (a *App) Close() error {
	a.poller.Stop()
	return a.store.Close()
}
