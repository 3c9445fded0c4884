package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/Olzhassss/flappy-bird/pkg/leaderboard"
)

// StatusError is returned when the API answers with an unexpected status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("leaderboard api returned %d: %s", e.StatusCode, e.Body)
}

// Client talks to the leaderboard API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the API rooted at baseURL
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Leaderboard fetches the current top entries
func (c *Client) Leaderboard(ctx context.Context) ([]leaderboard.Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+leaderboard.APIPath, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var entries []leaderboard.Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode leaderboard: %w", err)
	}
	return entries, nil
}

// Submit posts a score. The API reports success for names it refuses to store
// unless it runs in strict mode, so a nil error does not guarantee a new entry.
func (c *Client) Submit(ctx context.Context, name string, score int64) error {
	body, err := json.Marshal(map[string]interface{}{
		"name":  name,
		"score": score,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+leaderboard.APIPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to submit score: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return &StatusError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}
