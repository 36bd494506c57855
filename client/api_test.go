package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storeJSON(t *testing.T, s UserStore) []byte {
	t.Helper()
	data, err := json.Marshal(s)
	require.NoError(t, err)
	return data
}

func sampleStore() UserStore {
	return UserStore{
		Notes:         map[string]Note{"n1": {ID: "n1", Title: "hello", Color: DefaultColor}},
		PinnedOrder:   []string{},
		UnpinnedOrder: []string{"n1"},
		ArchivedOrder: []string{},
	}
}

func TestAPIGetStore(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(storeJSON(t, sampleStore()))
	}))
	defer ts.Close()

	api := NewAPI(ts.URL)
	store, err := api.GetStore(context.Background(), "alice smith")
	require.NoError(t, err)
	assert.Equal(t, "/api/users/alice%20smith/store", gotPath)
	assert.Equal(t, []string{"n1"}, store.UnpinnedOrder)
	assert.Equal(t, "hello", store.Notes["n1"].Title)
}

func TestAPIMethodsAndPaths(t *testing.T) {
	var gotMethod, gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.EscapedPath()
		_, _ = w.Write(storeJSON(t, sampleStore()))
	}))
	defer ts.Close()

	api := NewAPI(ts.URL)
	ctx := context.Background()

	_, err := api.CreateNote(ctx, "u", NotePayload{})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/users/u/notes", gotPath)

	_, err = api.UpdateNote(ctx, "u", "n/1", NotePayload{})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, "/api/users/u/notes/n%2F1", gotPath)

	_, err = api.DeleteNote(ctx, "u", "n1")
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, gotMethod)

	_, err = api.ReorderBucket(ctx, "u", "pinned", ReorderPayload{Order: []string{"n1"}})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/api/users/u/orders/pinned", gotPath)
}

func TestAPIErrorBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Validation failed","details":["title must be at most 512 characters"]}`))
	}))
	defer ts.Close()

	api := NewAPI(ts.URL)
	_, err := api.CreateNote(context.Background(), "u", NotePayload{})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Validation failed", apiErr.Message)
	assert.JSONEq(t, `["title must be at most 512 characters"]`, string(apiErr.Details))
	assert.Equal(t, "Validation failed", apiErr.Error())
}

func TestAPIErrorWithoutBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	api := NewAPI(ts.URL)
	_, err := api.GetStore(context.Background(), "u")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "request failed with status 502", apiErr.Error())
}

func TestAPIEmptySuccessBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	api := NewAPI(ts.URL)
	_, err := api.GetStore(context.Background(), "u")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Received empty response body", apiErr.Message)
}
