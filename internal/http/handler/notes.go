package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"noteslite/internal/note"

	"github.com/go-chi/chi/v5"
)

// Service is the slice of the note service the HTTP layer needs.
type Service interface {
	GetUserStore(ctx context.Context, userID string) (note.UserStore, error)
	CreateNote(ctx context.Context, userID string, p note.Payload) (note.Note, error)
	UpdateNote(ctx context.Context, userID, noteID string, p note.Payload) (note.Note, error)
	DeleteNote(ctx context.Context, userID, noteID string) error
	ReorderBucket(ctx context.Context, userID string, bucket note.Bucket, p note.ReorderPayload) error
}

type NoteHandler struct {
	Svc Service
}

func (h *NoteHandler) GetStore(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	store, err := h.Svc.GetUserStore(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, store)
}

func (h *NoteHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var p note.Payload
	if !decodeBody(w, r, &p) {
		return
	}
	if _, err := h.Svc.CreateNote(r.Context(), userID, p); err != nil {
		writeServiceError(w, err)
		return
	}
	h.respondStore(w, r, userID, http.StatusCreated)
}

func (h *NoteHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	noteID, ok := requireParam(w, r, "noteID", "Note id is required")
	if !ok {
		return
	}
	var p note.Payload
	if !decodeBody(w, r, &p) {
		return
	}
	if _, err := h.Svc.UpdateNote(r.Context(), userID, noteID, p); err != nil {
		writeServiceError(w, err)
		return
	}
	h.respondStore(w, r, userID, http.StatusOK)
}

func (h *NoteHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	noteID, ok := requireParam(w, r, "noteID", "Note id is required")
	if !ok {
		return
	}
	if err := h.Svc.DeleteNote(r.Context(), userID, noteID); err != nil {
		writeServiceError(w, err)
		return
	}
	h.respondStore(w, r, userID, http.StatusOK)
}

func (h *NoteHandler) ReorderBucket(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	bucket, ok := requireParam(w, r, "bucket", "Bucket is required")
	if !ok {
		return
	}
	var p note.ReorderPayload
	if !decodeBody(w, r, &p) {
		return
	}
	if err := h.Svc.ReorderBucket(r.Context(), userID, note.Bucket(bucket), p); err != nil {
		writeServiceError(w, err)
		return
	}
	h.respondStore(w, r, userID, http.StatusOK)
}

// respondStore echoes the full refreshed UserStore after a mutation; the
// client replaces its local state with this wholesale.
func (h *NoteHandler) respondStore(w http.ResponseWriter, r *http.Request, userID string, status int) {
	store, err := h.Svc.GetUserStore(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, status, store)
}

func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Not found", nil)
}

func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	return requireParam(w, r, "userID", "User id is required")
}

func requireParam(w http.ResponseWriter, r *http.Request, key, message string) (string, bool) {
	v := strings.TrimSpace(chi.URLParam(r, key))
	if v == "" {
		writeError(w, http.StatusBadRequest, message, nil)
		return "", false
	}
	return v, true
}

// decodeBody parses a JSON body strictly: unknown fields are rejected, an
// absent body decodes to the zero payload.
func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	if r.Body == nil {
		return true
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON body", nil)
		return false
	}
	return true
}

func writeServiceError(w http.ResponseWriter, err error) {
	var verr *note.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, verr.Message, verr.Details)
		return
	}
	if errors.Is(err, note.ErrNoteNotFound) {
		writeError(w, http.StatusNotFound, "Note not found", nil)
		return
	}
	log.Printf("unexpected error: %v", err)
	writeError(w, http.StatusInternalServerError, "Internal server error", nil)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string, details any) {
	body := map[string]any{"message": message}
	if details != nil {
		body["details"] = details
	}
	writeJSON(w, status, body)
}
