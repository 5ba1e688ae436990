// Package mochi is a client for the Mochi HTTP API
// (https://mochi.cards/docs/api/). Requests authenticate with HTTP
// basic auth: the account API key as the user name, empty password.
package mochi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://app.mochi.cards/api"

var (
	// ErrNoAPIKey is returned by every remote operation when the client
	// was built without credentials. Local-only operations never need
	// the key, so this is surfaced lazily rather than at construction.
	ErrNoAPIKey = errors.New("mochi: API key not configured (set MOCHI_API_KEY)")

	// ErrNotFound marks a 404 from the API.
	ErrNotFound = errors.New("mochi: not found")
)

// StatusError is a non-2xx API response that is not handled specially.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("mochi: unexpected status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("mochi: unexpected status %d", e.Status)
}

// Client talks to the Mochi API.
type Client struct {
	apiKey  string
	baseURL string
	httpc   *http.Client

	// backoff is the single wait applied after a rate-limit response.
	backoff time.Duration
}

// NewClient builds a client. An empty baseURL selects the production
// API; an empty apiKey defers failure to the first remote call.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpc:   &http.Client{Timeout: 30 * time.Second},
		backoff: time.Second,
	}
}

// Deck is one deck document from the API.
type Deck struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent-id,omitempty"`
	Archived bool   `json:"archived?,omitempty"`
}

// Card is one card document from the API.
type Card struct {
	ID      string `json:"id"`
	DeckID  string `json:"deck-id"`
	Content string `json:"content"`
}

// SubmitReview posts one review outcome: remembered maps to the "good"
// rating, forgotten to "again". The documented per-card endpoint is
// tried first; a 404 falls over to the legacy /reviews/ endpoint. A
// rate-limit response waits once and retries the same endpoint exactly
// one additional time. Best effort: there is no queue or durable retry.
func (c *Client) SubmitReview(ctx context.Context, cardID string, remembered bool) error {
	if c.apiKey == "" {
		return ErrNoAPIKey
	}

	rating := "again"
	if remembered {
		rating = "good"
	}
	payload := map[string]string{"card-id": cardID, "rating": rating}

	endpoints := []string{
		c.baseURL + "/cards/" + url.PathEscape(cardID) + "/review/",
		c.baseURL + "/reviews/",
	}

	var lastErr error
	for _, endpoint := range endpoints {
		status, body, err := c.post(ctx, endpoint, payload)
		if err != nil {
			return err
		}
		if status == http.StatusTooManyRequests {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff):
			}
			status, body, err = c.post(ctx, endpoint, payload)
			if err != nil {
				return err
			}
		}

		switch {
		case status >= 200 && status < 300:
			return nil
		case status == http.StatusNotFound:
			lastErr = fmt.Errorf("%w: POST %s", ErrNotFound, endpoint)
		default:
			return &StatusError{Status: status, Body: body}
		}
	}
	return lastErr
}

// ListDecks returns every deck in the account.
func (c *Client) ListDecks(ctx context.Context) ([]Deck, error) {
	var out struct {
		Docs []Deck `json:"docs"`
	}
	if err := c.do(ctx, http.MethodGet, "/decks", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Docs, nil
}

// GetDeck fetches one deck by id.
func (c *Client) GetDeck(ctx context.Context, deckID string) (*Deck, error) {
	var deck Deck
	if err := c.do(ctx, http.MethodGet, "/decks/"+url.PathEscape(deckID), nil, nil, &deck); err != nil {
		return nil, err
	}
	return &deck, nil
}

// CreateDeck creates a deck, optionally under a parent.
func (c *Client) CreateDeck(ctx context.Context, name, parentID string) (*Deck, error) {
	payload := map[string]string{"name": name}
	if parentID != "" {
		payload["parent-id"] = parentID
	}
	var deck Deck
	if err := c.do(ctx, http.MethodPost, "/decks", nil, payload, &deck); err != nil {
		return nil, err
	}
	return &deck, nil
}

// CreateCard creates a markdown card in a deck. templateID and reverse
// are optional.
func (c *Client) CreateCard(ctx context.Context, deckID, content, templateID string, reverse bool) (*Card, error) {
	payload := map[string]any{
		"content": content,
		"deck-id": deckID,
	}
	if templateID != "" {
		payload["template-id"] = templateID
	}
	if reverse {
		payload["review-reverse?"] = true
	}
	var card Card
	if err := c.do(ctx, http.MethodPost, "/cards", nil, payload, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// ListCards lists cards, optionally filtered by deck.
func (c *Client) ListCards(ctx context.Context, deckID string, limit int) ([]Card, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if deckID != "" {
		query.Set("deck-id", deckID)
	}
	var out struct {
		Docs []Card `json:"docs"`
	}
	if err := c.do(ctx, http.MethodGet, "/cards", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Docs, nil
}

// DeleteCard deletes one card by id.
func (c *Client) DeleteCard(ctx context.Context, cardID string) error {
	return c.do(ctx, http.MethodDelete, "/cards/"+url.PathEscape(cardID), nil, nil, nil)
}

// DueCards asks the API which cards are due, server-side. date is an
// optional YYYY-MM-DD override of "now".
func (c *Client) DueCards(ctx context.Context, deckID, date string) ([]Card, error) {
	path := "/due"
	if deckID != "" {
		path += "/" + url.PathEscape(deckID)
	}
	query := url.Values{}
	if date != "" {
		query.Set("date", date)
	}
	var out struct {
		Cards []Card `json:"cards"`
	}
	if err := c.do(ctx, http.MethodGet, path, query, nil, &out); err != nil {
		return nil, err
	}
	return out.Cards, nil
}

// SearchDecks returns every deck whose name contains the fragment,
// case-insensitively. Callers decide what zero or multiple matches
// mean; the due resolver only ever accepts a single resolved deck id.
func (c *Client) SearchDecks(ctx context.Context, name string) ([]Deck, error) {
	decks, err := c.ListDecks(ctx)
	if err != nil {
		return nil, err
	}
	fragment := strings.ToLower(name)
	var matches []Deck
	for _, deck := range decks {
		if strings.Contains(strings.ToLower(deck.Name), fragment) {
			matches = append(matches, deck)
		}
	}
	return matches, nil
}

// post sends one JSON request and reads back the status and a bounded
// body snippet. Transport failures are returned as errors; HTTP
// statuses are left to the caller.
func (c *Client) post(ctx context.Context, endpoint string, payload any) (int, string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, "", fmt.Errorf("mochi: failed to encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("mochi: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.apiKey, "")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("mochi: request failed: %w", err)
	}
	defer resp.Body.Close()

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return resp.StatusCode, strings.TrimSpace(string(snippet)), nil
}

// do runs one CRUD request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	if c.apiKey == "" {
		return ErrNoAPIKey
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("mochi: failed to encode payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("mochi: failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetBasicAuth(c.apiKey, "")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("mochi: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s %s", ErrNotFound, method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("mochi: failed to decode response: %w", err)
	}
	return nil
}
