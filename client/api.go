// Package client is the consumer half of the note synchronization protocol:
// a typed HTTP client for the server's REST surface and an optimistic
// mutation engine that keeps a speculative local UserStore reconciled
// against server responses.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Note mirrors the server's wire representation.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Color     string    `json:"color"`
	Pinned    bool      `json:"pinned"`
	Archived  bool      `json:"archived"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserStore is the full per-user state returned by every server operation.
// The three order lists partition the key set of Notes.
type UserStore struct {
	Notes         map[string]Note `json:"notes"`
	PinnedOrder   []string        `json:"pinnedOrder"`
	UnpinnedOrder []string        `json:"unpinnedOrder"`
	ArchivedOrder []string        `json:"archivedOrder"`
}

// NotePayload carries the optional fields of a create or update request;
// nil fields are omitted from the wire.
type NotePayload struct {
	Title    *string `json:"title,omitempty"`
	Body     *string `json:"body,omitempty"`
	Color    *string `json:"color,omitempty"`
	Pinned   *bool   `json:"pinned,omitempty"`
	Archived *bool   `json:"archived,omitempty"`
}

func (p NotePayload) empty() bool {
	return p.Title == nil && p.Body == nil && p.Color == nil && p.Pinned == nil && p.Archived == nil
}

type ReorderPayload struct {
	Order []string `json:"order"`
}

// APIError is a non-2xx response decoded from the server's
// {message, details} error body.
type APIError struct {
	Status  int
	Message string
	Details json.RawMessage
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

type API struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewAPI(baseURL string) *API {
	return &API{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *API) GetStore(ctx context.Context, userID string) (UserStore, error) {
	return a.do(ctx, http.MethodGet, fmt.Sprintf("/api/users/%s/store", encode(userID)), nil)
}

func (a *API) CreateNote(ctx context.Context, userID string, payload NotePayload) (UserStore, error) {
	return a.do(ctx, http.MethodPost, fmt.Sprintf("/api/users/%s/notes", encode(userID)), payload)
}

func (a *API) UpdateNote(ctx context.Context, userID, noteID string, payload NotePayload) (UserStore, error) {
	return a.do(ctx, http.MethodPatch, fmt.Sprintf("/api/users/%s/notes/%s", encode(userID), encode(noteID)), payload)
}

func (a *API) DeleteNote(ctx context.Context, userID, noteID string) (UserStore, error) {
	return a.do(ctx, http.MethodDelete, fmt.Sprintf("/api/users/%s/notes/%s", encode(userID), encode(noteID)), nil)
}

func (a *API) ReorderBucket(ctx context.Context, userID, bucket string, payload ReorderPayload) (UserStore, error) {
	return a.do(ctx, http.MethodPut, fmt.Sprintf("/api/users/%s/orders/%s", encode(userID), encode(bucket)), payload)
}

func (a *API) do(ctx context.Context, method, path string, body any) (UserStore, error) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return UserStore{}, err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, reader)
	if err != nil {
		return UserStore{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := a.HTTPClient.Do(req)
	if err != nil {
		return UserStore{}, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return UserStore{}, decodeError(res)
	}

	var store UserStore
	if err := json.NewDecoder(res.Body).Decode(&store); err != nil {
		return UserStore{}, &APIError{Status: res.StatusCode, Message: "Received empty response body"}
	}
	return store, nil
}

func decodeError(res *http.Response) error {
	apiErr := &APIError{Status: res.StatusCode}
	var payload struct {
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err == nil {
		apiErr.Message = payload.Message
		apiErr.Details = payload.Details
	}
	return apiErr
}

func encode(v string) string {
	return url.PathEscape(v)
}
