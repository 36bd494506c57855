package note

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service owns every note mutation. All row and order updates of a mutating
// operation run inside one transaction together with the per-user touched
// timestamp, so concurrent readers never observe a torn intermediate state.
type Service struct {
	DB    *gorm.DB
	Cache *StoreCache // optional
}

func (s *Service) ensureUser(ctx context.Context, tx *gorm.DB, userID string) error {
	return tx.WithContext(ctx).Exec(
		`insert into users (id) values (?) on conflict (id) do nothing`, userID,
	).Error
}

func touchUser(tx *gorm.DB, userID string) error {
	return tx.Exec(`update users set updated_at = now() where id = ?`, userID).Error
}

// GetUserStore materializes the full per-user state. It always succeeds for
// any non-empty user id; unseen users get an empty store. Orphaned order
// records are discarded lazily here rather than treated as corruption.
//
// Cache misses fill with SetNX: a read that started before a concurrent
// mutation committed must not replace the store the mutation published.
func (s *Service) GetUserStore(ctx context.Context, userID string) (UserStore, error) {
	if err := s.ensureUser(ctx, s.DB, userID); err != nil {
		return UserStore{}, err
	}

	if s.Cache != nil {
		if store, ok := s.Cache.Get(ctx, userID); ok {
			return store, nil
		}
	}

	store, err := s.loadStore(ctx, userID)
	if err != nil {
		return UserStore{}, err
	}

	if s.Cache != nil {
		s.Cache.SetNX(ctx, userID, store)
	}
	return store, nil
}

func (s *Service) loadStore(ctx context.Context, userID string) (UserStore, error) {
	var notes []Note
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at, id").
		Find(&notes).Error; err != nil {
		return UserStore{}, err
	}

	var orders []NoteOrder
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("bucket, position").
		Find(&orders).Error; err != nil {
		return UserStore{}, err
	}

	store, orphans := materialize(notes, orders)
	for _, noteID := range orphans {
		if err := deleteOrder(s.DB.WithContext(ctx), userID, noteID); err != nil {
			log.Printf("discard orphan order user=%s note=%s: %v", userID, noteID, err)
		}
	}
	return store, nil
}

// CreateNote validates the payload, generates a server-side id, and appends
// the note to the end of the bucket its flags select (unpinned by default).
func (s *Service) CreateNote(ctx context.Context, userID string, p Payload) (Note, error) {
	if err := s.ensureUser(ctx, s.DB, userID); err != nil {
		return Note{}, err
	}
	if err := validatePayload(p); err != nil {
		return Note{}, err
	}

	pinned := p.Pinned != nil && *p.Pinned
	archived := p.Archived != nil && *p.Archived
	if err := assertFlags(pinned, archived); err != nil {
		return Note{}, err
	}

	now := time.Now().UTC()
	n := Note{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     strValue(p.Title, ""),
		Body:      strValue(p.Body, ""),
		Color:     strValue(p.Color, DefaultColor),
		Pinned:    pinned,
		Archived:  archived,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&n).Error; err != nil {
			return err
		}
		if err := appendOrder(tx, userID, n.ID, n.Bucket()); err != nil {
			return err
		}
		return touchUser(tx, userID)
	})
	if err != nil {
		return Note{}, err
	}

	s.refresh(ctx, userID)
	return n, nil
}

// UpdateNote merges the payload over the stored note. The pinned+archived
// exclusivity check runs against the merged result, and a bucket change
// re-homes the order record to the end of the destination bucket.
func (s *Service) UpdateNote(ctx context.Context, userID, noteID string, p Payload) (Note, error) {
	if err := s.ensureUser(ctx, s.DB, userID); err != nil {
		return Note{}, err
	}
	// existence wins over validation: a bad payload for a missing note is
	// still a not-found
	var existing Note
	if err := s.DB.WithContext(ctx).
		Where("user_id = ? and id = ?", userID, noteID).
		First(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Note{}, ErrNoteNotFound
		}
		return Note{}, err
	}

	if p.Empty() {
		return Note{}, badRequest("At least one field must be provided when updating a note")
	}
	if err := validatePayload(p); err != nil {
		return Note{}, err
	}

	pinned := boolValue(p.Pinned, existing.Pinned)
	archived := boolValue(p.Archived, existing.Archived)
	if err := assertFlags(pinned, archived); err != nil {
		return Note{}, err
	}

	next := existing
	next.Title = strValue(p.Title, existing.Title)
	next.Body = strValue(p.Body, existing.Body)
	next.Color = strValue(p.Color, existing.Color)
	next.Pinned = pinned
	next.Archived = archived
	next.UpdatedAt = time.Now().UTC()

	bucketBefore := existing.Bucket()
	bucketAfter := next.Bucket()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Note{}).
			Where("user_id = ? and id = ?", userID, noteID).
			Updates(map[string]any{
				"title":      next.Title,
				"body":       next.Body,
				"color":      next.Color,
				"pinned":     next.Pinned,
				"archived":   next.Archived,
				"updated_at": next.UpdatedAt,
			}).Error; err != nil {
			return err
		}
		if bucketBefore != bucketAfter {
			if err := moveBucket(tx, userID, noteID, bucketAfter); err != nil {
				return err
			}
		}
		return touchUser(tx, userID)
	})
	if err != nil {
		return Note{}, err
	}

	s.refresh(ctx, userID)
	return next, nil
}

// DeleteNote removes the note row and its order record. Sibling positions
// are left untouched.
func (s *Service) DeleteNote(ctx context.Context, userID, noteID string) error {
	if err := s.ensureUser(ctx, s.DB, userID); err != nil {
		return err
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? and id = ?", userID, noteID).Delete(&Note{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNoteNotFound
		}
		if err := deleteOrder(tx, userID, noteID); err != nil {
			return err
		}
		return touchUser(tx, userID)
	})
	if err != nil {
		return err
	}

	s.refresh(ctx, userID)
	return nil
}

// ReorderBucket rewrites a bucket's positions to 0..n-1 following the
// proposed order. The proposal must match current membership exactly; any
// violation rejects the request with nothing applied.
func (s *Service) ReorderBucket(ctx context.Context, userID string, bucket Bucket, p ReorderPayload) error {
	if err := s.ensureUser(ctx, s.DB, userID); err != nil {
		return err
	}
	if !ValidBucket(bucket) {
		return badRequest(fmt.Sprintf("Unsupported bucket %q", bucket))
	}

	order := p.Order
	if order == nil {
		order = []string{}
	}

	var current []string
	if err := s.DB.WithContext(ctx).
		Model(&NoteOrder{}).
		Where("user_id = ? and bucket = ?", userID, bucket).
		Order("position").
		Pluck("note_id", &current).Error; err != nil {
		return err
	}
	if err := validateReorder(bucket, current, order); err != nil {
		return err
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(order) > 0 {
			if err := rewriteOrder(tx, userID, bucket, order); err != nil {
				return err
			}
		}
		return touchUser(tx, userID)
	})
	if err != nil {
		return err
	}

	s.refresh(ctx, userID)
	return nil
}

// refresh writes the post-commit store through to the cache. Mutations
// overwrite unconditionally while read-path fills use SetNX, so a read that
// raced the mutation can never clobber the fresh store with a pre-mutation
// one.
func (s *Service) refresh(ctx context.Context, userID string) {
	if s.Cache == nil {
		return
	}
	store, err := s.loadStore(ctx, userID)
	if err != nil {
		log.Printf("refresh store cache user=%s: %v", userID, err)
		s.Cache.Invalidate(ctx, userID)
		return
	}
	s.Cache.Set(ctx, userID, store)
}

func strValue(p *string, def string) string {
	if p != nil {
		return *p
	}
	return def
}

func boolValue(p *bool, def bool) bool {
	if p != nil {
		return *p
	}
	return def
}
