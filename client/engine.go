package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Phase string

const (
	PhaseSignedOut Phase = "signedOut"
	PhaseLoading   Phase = "loading"
	PhaseReady     Phase = "ready"
)

const (
	BucketPinned   = "pinned"
	BucketUnpinned = "unpinned"
	BucketArchived = "archived"
)

// DefaultColor is the color given to optimistic notes when the caller does
// not pick one; it matches the server default.
const DefaultColor = "#fde2e4"

var ErrSignedOut = errors.New("no active user")

const genericErrorMessage = "Something went wrong. Please try again."

// Engine applies speculative local changes ahead of server confirmation.
// Each mutation snapshots the local store, publishes an optimistic guess,
// and then either adopts the server's returned UserStore wholesale or rolls
// back to the snapshot. Mutations are not serialized against each other:
// overlapping mutations each carry their own snapshot, and the last server
// response to land wins.
type Engine struct {
	api *API

	mu      sync.Mutex
	userID  string
	phase   Phase
	store   UserStore
	saving  int
	errMsg  string
	retry   func()
	pending map[string]string
}

func NewEngine(api *API) *Engine {
	return &Engine{
		api:     api,
		phase:   PhaseSignedOut,
		store:   emptyStore(),
		pending: map[string]string{},
	}
}

// Login binds the engine to a user and loads their store. The session is an
// explicit value held by the engine, not ambient state; every server call
// uses the id captured here.
func (e *Engine) Login(ctx context.Context, name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return errors.New("user name is required")
	}

	e.mu.Lock()
	e.errMsg, e.retry = "", nil
	e.phase = PhaseLoading
	e.userID = trimmed
	e.mu.Unlock()

	store, err := e.api.GetStore(ctx, trimmed)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.phase = PhaseSignedOut
		e.userID = ""
		e.errMsg = errorMessage(err)
		e.retry = func() { _ = e.Login(context.Background(), trimmed) }
		return err
	}
	e.store = normalizeStore(store)
	e.phase = PhaseReady
	return nil
}

func (e *Engine) SignOut() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.userID = ""
	e.store = emptyStore()
	e.phase = PhaseSignedOut
	e.saving = 0
	e.errMsg, e.retry = "", nil
	e.pending = map[string]string{}
}

// Store returns a deep copy of the current local state.
func (e *Engine) Store() UserStore {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneStore(e.store)
}

func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Saving reports whether any mutation is still in flight. Overlapping
// mutations are tracked with a counter, not a boolean.
func (e *Engine) Saving() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saving > 0
}

// Err returns the last failure's message and a callback that re-issues the
// exact same mutation. Both are zero after any mutation starts.
func (e *Engine) Err() (string, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errMsg, e.retry
}

func (e *Engine) ClearError() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errMsg, e.retry = "", nil
}

// runMutation is the shared protocol behind every mutation: snapshot, apply
// the optimistic transform, call the server, then reconcile (replace the
// whole store) or roll back (restore the snapshot) and record a retry.
func (e *Engine) runMutation(
	ctx context.Context,
	optimistic func(*UserStore),
	call func(ctx context.Context, userID string) (UserStore, error),
	retry func(),
) (UserStore, error) {
	e.mu.Lock()
	if e.userID == "" {
		e.mu.Unlock()
		return UserStore{}, ErrSignedOut
	}
	userID := e.userID
	snapshot := cloneStore(e.store)
	applied := false
	if optimistic != nil {
		next := cloneStore(snapshot)
		optimistic(&next)
		e.store = next
		applied = true
	}
	e.saving++
	e.errMsg, e.retry = "", nil
	e.mu.Unlock()

	remote, err := call(ctx, userID)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.saving--
	if err != nil {
		if applied {
			e.store = snapshot
		}
		e.errMsg = errorMessage(err)
		e.retry = retry
		return UserStore{}, err
	}
	e.store = normalizeStore(remote)
	return e.store, nil
}

// CreateNote inserts a note under a temporary id at the head of the unpinned
// list, then diffs the server's response to learn the real id. When the two
// differ the mapping is parked for a one-shot ResolveTempID. The server id
// is returned on success.
func (e *Engine) CreateNote(ctx context.Context, payload NotePayload) (string, error) {
	e.mu.Lock()
	previous := make(map[string]struct{}, len(e.store.Notes))
	for id := range e.store.Notes {
		previous[id] = struct{}{}
	}
	e.mu.Unlock()

	tempID := uuid.NewString()
	now := time.Now().UTC()
	color := DefaultColor
	if payload.Color != nil {
		color = *payload.Color
	}

	remote, err := e.runMutation(ctx,
		func(s *UserStore) {
			s.Notes[tempID] = Note{
				ID:        tempID,
				Color:     color,
				CreatedAt: now,
				UpdatedAt: now,
			}
			s.UnpinnedOrder = prepend(tempID, removeID(s.UnpinnedOrder, tempID))
		},
		func(ctx context.Context, userID string) (UserStore, error) {
			return e.api.CreateNote(ctx, userID, payload)
		},
		func() { _, _ = e.CreateNote(context.Background(), payload) },
	)
	if err != nil {
		e.mu.Lock()
		delete(e.pending, tempID)
		e.mu.Unlock()
		return "", err
	}

	newID := ""
	for id := range remote.Notes {
		if _, ok := previous[id]; !ok {
			newID = id
			break
		}
	}
	if newID == "" {
		return tempID, nil
	}
	if newID != tempID {
		e.mu.Lock()
		e.pending[tempID] = newID
		e.mu.Unlock()
	}
	return newID, nil
}

// ResolveTempID follows a temp-id redirection exactly once: the mapping is
// deleted on read, so a second call reports not-found and the caller must
// drop the reference.
func (e *Engine) ResolveTempID(id string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	resolved, ok := e.pending[id]
	if !ok {
		return "", false
	}
	delete(e.pending, id)
	return resolved, true
}

// UpdateNote merges the payload over the local note optimistically and sends
// it to the server. An empty payload is a no-op.
func (e *Engine) UpdateNote(ctx context.Context, id string, payload NotePayload) error {
	if payload.empty() {
		return nil
	}
	now := time.Now().UTC()
	_, err := e.runMutation(ctx,
		func(s *UserStore) {
			existing, ok := s.Notes[id]
			if !ok {
				return
			}
			if payload.Title != nil {
				existing.Title = *payload.Title
			}
			if payload.Body != nil {
				existing.Body = *payload.Body
			}
			if payload.Color != nil {
				existing.Color = *payload.Color
			}
			if payload.Pinned != nil {
				existing.Pinned = *payload.Pinned
			}
			if payload.Archived != nil {
				existing.Archived = *payload.Archived
			}
			existing.UpdatedAt = now
			s.Notes[id] = existing
		},
		func(ctx context.Context, userID string) (UserStore, error) {
			return e.api.UpdateNote(ctx, userID, id, payload)
		},
		func() { _ = e.UpdateNote(context.Background(), id, payload) },
	)
	return err
}

// TogglePinned flips a note between the pinned and unpinned buckets. The
// optimistic guess puts the note at the head of the destination list; the
// server appends to the end, and its answer wins on reconciliation.
// Archived notes cannot be pinned.
func (e *Engine) TogglePinned(ctx context.Context, id string) error {
	e.mu.Lock()
	existing, ok := e.store.Notes[id]
	e.mu.Unlock()
	if !ok || existing.Archived {
		return nil
	}
	nextPinned := !existing.Pinned
	now := time.Now().UTC()

	_, err := e.runMutation(ctx,
		func(s *UserStore) {
			n, ok := s.Notes[id]
			if !ok {
				return
			}
			n.Pinned = nextPinned
			n.Archived = false
			n.UpdatedAt = now
			s.Notes[id] = n
			s.PinnedOrder = removeID(s.PinnedOrder, id)
			s.UnpinnedOrder = removeID(s.UnpinnedOrder, id)
			if nextPinned {
				s.PinnedOrder = prepend(id, s.PinnedOrder)
			} else {
				s.UnpinnedOrder = prepend(id, s.UnpinnedOrder)
			}
		},
		func(ctx context.Context, userID string) (UserStore, error) {
			return e.api.UpdateNote(ctx, userID, id, NotePayload{Pinned: &nextPinned})
		},
		func() { _ = e.TogglePinned(context.Background(), id) },
	)
	return err
}

// ToggleArchived moves a note in or out of the archived bucket. Archiving
// always clears the pinned flag; unarchiving lands in unpinned, never back
// in pinned.
func (e *Engine) ToggleArchived(ctx context.Context, id string) error {
	e.mu.Lock()
	existing, ok := e.store.Notes[id]
	e.mu.Unlock()
	if !ok {
		return nil
	}
	nextArchived := !existing.Archived
	nextPinned := existing.Pinned
	if nextArchived {
		nextPinned = false
	}
	now := time.Now().UTC()

	_, err := e.runMutation(ctx,
		func(s *UserStore) {
			n, ok := s.Notes[id]
			if !ok {
				return
			}
			n.Archived = nextArchived
			n.Pinned = nextPinned
			n.UpdatedAt = now
			s.Notes[id] = n
			s.PinnedOrder = removeID(s.PinnedOrder, id)
			s.UnpinnedOrder = removeID(s.UnpinnedOrder, id)
			s.ArchivedOrder = removeID(s.ArchivedOrder, id)
			switch {
			case nextArchived:
				s.ArchivedOrder = prepend(id, s.ArchivedOrder)
			case nextPinned:
				s.PinnedOrder = prepend(id, s.PinnedOrder)
			default:
				s.UnpinnedOrder = prepend(id, s.UnpinnedOrder)
			}
		},
		func(ctx context.Context, userID string) (UserStore, error) {
			return e.api.UpdateNote(ctx, userID, id, NotePayload{Archived: &nextArchived, Pinned: &nextPinned})
		},
		func() { _ = e.ToggleArchived(context.Background(), id) },
	)
	return err
}

// DeleteNote removes the note locally and purges it from all three lists
// before asking the server to do the same.
func (e *Engine) DeleteNote(ctx context.Context, id string) error {
	_, err := e.runMutation(ctx,
		func(s *UserStore) {
			if _, ok := s.Notes[id]; !ok {
				return
			}
			delete(s.Notes, id)
			s.PinnedOrder = removeID(s.PinnedOrder, id)
			s.UnpinnedOrder = removeID(s.UnpinnedOrder, id)
			s.ArchivedOrder = removeID(s.ArchivedOrder, id)
		},
		func(ctx context.Context, userID string) (UserStore, error) {
			return e.api.DeleteNote(ctx, userID, id)
		},
		func() { _ = e.DeleteNote(context.Background(), id) },
	)
	return err
}

// ReorderBucket replaces one list with a client-computed permutation. The
// optimistic transform drops ids the client no longer knows and gap-fills
// with any current members missing from the proposal, so a stale drag result
// still produces a plausible local list while the server stays authoritative.
func (e *Engine) ReorderBucket(ctx context.Context, bucket string, newOrder []string) error {
	order := append([]string(nil), newOrder...)
	_, err := e.runMutation(ctx,
		func(s *UserStore) {
			setList(s, bucket, mergeReorder(s, bucket, order))
		},
		func(ctx context.Context, userID string) (UserStore, error) {
			return e.api.ReorderBucket(ctx, userID, bucket, ReorderPayload{Order: order})
		},
		func() { _ = e.ReorderBucket(context.Background(), bucket, order) },
	)
	return err
}

// mergeReorder keeps the proposed ids that exist locally, in proposed order,
// then appends current members the proposal missed.
func mergeReorder(s *UserStore, bucket string, proposed []string) []string {
	valid := make([]string, 0, len(proposed))
	seen := make(map[string]bool, len(proposed))
	for _, id := range proposed {
		if _, ok := s.Notes[id]; ok && !seen[id] {
			valid = append(valid, id)
			seen[id] = true
		}
	}
	for _, id := range listFor(s, bucket) {
		if !seen[id] {
			valid = append(valid, id)
		}
	}
	return valid
}

func listFor(s *UserStore, bucket string) []string {
	switch bucket {
	case BucketPinned:
		return s.PinnedOrder
	case BucketArchived:
		return s.ArchivedOrder
	default:
		return s.UnpinnedOrder
	}
}

func setList(s *UserStore, bucket string, list []string) {
	switch bucket {
	case BucketPinned:
		s.PinnedOrder = list
	case BucketArchived:
		s.ArchivedOrder = list
	default:
		s.UnpinnedOrder = list
	}
}

func emptyStore() UserStore {
	return UserStore{
		Notes:         map[string]Note{},
		PinnedOrder:   []string{},
		UnpinnedOrder: []string{},
		ArchivedOrder: []string{},
	}
}

// normalizeStore guards against nil maps/slices in decoded responses so the
// rest of the engine can index freely.
func normalizeStore(s UserStore) UserStore {
	if s.Notes == nil {
		s.Notes = map[string]Note{}
	}
	if s.PinnedOrder == nil {
		s.PinnedOrder = []string{}
	}
	if s.UnpinnedOrder == nil {
		s.UnpinnedOrder = []string{}
	}
	if s.ArchivedOrder == nil {
		s.ArchivedOrder = []string{}
	}
	return s
}

func cloneStore(s UserStore) UserStore {
	out := UserStore{
		Notes:         make(map[string]Note, len(s.Notes)),
		PinnedOrder:   append([]string{}, s.PinnedOrder...),
		UnpinnedOrder: append([]string{}, s.UnpinnedOrder...),
		ArchivedOrder: append([]string{}, s.ArchivedOrder...),
	}
	for id, n := range s.Notes {
		out.Notes[id] = n
	}
	return out
}

func removeID(list []string, id string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func prepend(id string, list []string) []string {
	return append([]string{id}, list...)
}

func errorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return genericErrorMessage
}

