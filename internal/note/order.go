package note

import (
	"fmt"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// nextPosition returns the append slot for a bucket: one past the current
// maximum, or 0 for an empty bucket. Positions are never compacted, so this
// can exceed the bucket's cardinality.
func nextPosition(tx *gorm.DB, userID string, bucket Bucket) (int, error) {
	var pos int
	err := tx.Raw(
		`select coalesce(max(position), -1) + 1 from note_orders where user_id = ? and bucket = ?`,
		userID, bucket,
	).Scan(&pos).Error
	return pos, err
}

func appendOrder(tx *gorm.DB, userID, noteID string, bucket Bucket) error {
	pos, err := nextPosition(tx, userID, bucket)
	if err != nil {
		return err
	}
	return tx.Create(&NoteOrder{UserID: userID, NoteID: noteID, Bucket: bucket, Position: pos}).Error
}

func deleteOrder(tx *gorm.DB, userID, noteID string) error {
	return tx.Where("user_id = ? and note_id = ?", userID, noteID).Delete(&NoteOrder{}).Error
}

// moveBucket re-homes a note's order record: the old row is dropped and a new
// one appended to the end of the destination bucket. Siblings in the old
// bucket keep their positions; the resulting gap is harmless.
func moveBucket(tx *gorm.DB, userID, noteID string, to Bucket) error {
	if err := deleteOrder(tx, userID, noteID); err != nil {
		return err
	}
	return appendOrder(tx, userID, noteID, to)
}

// validateReorder checks a proposed order against current bucket membership:
// no duplicates, same cardinality, exact same id set. Any violation rejects
// the whole request.
func validateReorder(bucket Bucket, current, proposed []string) error {
	seen := make(map[string]bool, len(proposed))
	for _, id := range proposed {
		if seen[id] {
			return badRequest("Order contains duplicate note ids")
		}
		seen[id] = true
	}
	if len(proposed) != len(current) {
		return badRequest("Order must include all notes in the bucket")
	}
	members := make(map[string]bool, len(current))
	for _, id := range current {
		members[id] = true
	}
	for _, id := range proposed {
		if !members[id] {
			return badRequest(fmt.Sprintf("Note %s does not belong to bucket %s", id, bucket))
		}
	}
	return nil
}

// rewriteOrder renumbers an entire bucket to 0..n-1 following the proposed
// order in a single statement. Relies on the deferred uniqueness constraint
// on (user_id, bucket, position).
func rewriteOrder(tx *gorm.DB, userID string, bucket Bucket, order []string) error {
	return tx.Exec(
		`update note_orders
		    set position = array_position(?::text[], note_id) - 1
		  where user_id = ? and bucket = ?`,
		pq.Array(order), userID, bucket,
	).Error
}

// materialize builds the per-user view from note rows and order rows (sorted
// by bucket, then position). Order rows pointing at missing notes are
// reported as orphans for lazy cleanup; notes without an order row fall back
// to the bucket their flags indicate, appended at the end.
func materialize(notes []Note, orders []NoteOrder) (UserStore, []string) {
	store := NewUserStore()
	for _, n := range notes {
		store.Notes[n.ID] = n
	}

	var orphans []string
	placed := make(map[string]bool, len(notes))
	lists := map[Bucket][]string{}
	for _, o := range orders {
		if _, ok := store.Notes[o.NoteID]; !ok {
			orphans = append(orphans, o.NoteID)
			continue
		}
		if !ValidBucket(o.Bucket) {
			continue
		}
		lists[o.Bucket] = append(lists[o.Bucket], o.NoteID)
		placed[o.NoteID] = true
	}

	for _, n := range notes {
		if placed[n.ID] {
			continue
		}
		b := n.Bucket()
		lists[b] = append(lists[b], n.ID)
	}

	store.PinnedOrder = append(store.PinnedOrder, lists[BucketPinned]...)
	store.UnpinnedOrder = append(store.UnpinnedOrder, lists[BucketUnpinned]...)
	store.ArchivedOrder = append(store.ArchivedOrder, lists[BucketArchived]...)
	return store, orphans
}
