package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/plateful/recipe-companion/internal/model"
)

// Client is a thin HTTP client for the recipe service REST API. It
// handles Bearer token authentication, JSON marshaling, automatic retry
// with exponential backoff on HTTP 429, and client-side rate limiting
// so background polling cannot storm the server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
}

var _ Service = (*Client)(nil)

// NewClient creates a new recipe service client. The baseURL should be
// the root URL of the service (e.g., https://api.example.com).
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter:    rate.NewLimiter(rate.Limit(10), 20),
		maxRetries: 3,
	}
}

// FetchRecipes retrieves the current recipe listing.
func (c *Client) FetchRecipes(ctx context.Context, token string) ([]model.Recipe, error) {
	var recipes []model.Recipe
	if err := c.do(ctx, http.MethodGet, "/api/recipes", token, nil, &recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

// SearchRecipes finds recipes matching a free-text query.
func (c *Client) SearchRecipes(
	ctx context.Context,
	token, query string,
) ([]model.RecipeSummary, error) {
	path := "/api/recipes/search?q=" + url.QueryEscape(query)

	var summaries []model.RecipeSummary
	if err := c.do(ctx, http.MethodGet, path, token, nil, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

// FetchRecipeDetail hydrates a single recipe by id.
func (c *Client) FetchRecipeDetail(
	ctx context.Context,
	token, id string,
) (*model.Recipe, error) {
	var recipe model.Recipe
	path := "/api/recipes/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodGet, path, token, nil, &recipe); err != nil {
		return nil, err
	}
	return &recipe, nil
}

// FetchNotifications retrieves the user's current notification list.
func (c *Client) FetchNotifications(
	ctx context.Context,
	token string,
) ([]model.Notification, error) {
	var notifications []model.Notification
	if err := c.do(ctx, http.MethodGet, "/api/notifications", token, nil, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkNotificationRead confirms a read flip with the server.
func (c *Client) MarkNotificationRead(ctx context.Context, token, id string) error {
	path := "/api/notifications/" + url.PathEscape(id) + "/read"
	return c.do(ctx, http.MethodPost, path, token, nil, nil)
}

// DeleteNotification confirms a removal with the server.
func (c *Client) DeleteNotification(ctx context.Context, token, id string) error {
	path := "/api/notifications/" + url.PathEscape(id)
	return c.do(ctx, http.MethodDelete, path, token, nil, nil)
}

// CurrentUser resolves the profile behind an auth token.
func (c *Client) CurrentUser(ctx context.Context, token string) (*model.UserProfile, error) {
	var user model.UserProfile
	if err := c.do(ctx, http.MethodGet, "/api/users/me", token, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// errorResponse is the service's error envelope.
type errorResponse struct {
	Message string `json:"message"`
}

// do is the core HTTP method that builds the request, handles auth,
// rate limiting with exponential backoff, and JSON (de)serialization.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	token string,
	body interface{},
	result interface{},
) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	endpoint := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		// Rebuild the body reader on retries since it was consumed.
		if attempt > 0 && body != nil {
			data, _ := json.Marshal(body)
			bodyReader = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("executing request %s %s: %w", method, path, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("reading response body: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			waitDuration := retryAfterDuration(resp, attempt)
			lastErr = fmt.Errorf("rate limited (429) on %s %s", method, path)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitDuration):
				continue
			}
		}

		if resp.StatusCode == http.StatusUnauthorized {
			return &AuthError{
				Message: fmt.Sprintf("token rejected by %s", c.baseURL),
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			var svcErr errorResponse
			if json.Unmarshal(respBody, &svcErr) == nil && svcErr.Message != "" {
				return &StatusError{Code: resp.StatusCode, Body: svcErr.Message}
			}
			return &StatusError{Code: resp.StatusCode, Body: string(respBody)}
		}

		// No content to parse (e.g. 204).
		if result == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}

		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf(
				"unmarshaling response from %s %s: %w",
				method, path, err,
			)
		}

		return nil
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
