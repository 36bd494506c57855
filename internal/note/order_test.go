package note

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateReorder(t *testing.T) {
	current := []string{"a", "b", "c"}

	t.Run("accepts a permutation", func(t *testing.T) {
		require.NoError(t, validateReorder(BucketUnpinned, current, []string{"c", "a", "b"}))
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		err := validateReorder(BucketUnpinned, current, []string{"a", "a", "b"})
		require.Error(t, err)
		assert.Equal(t, "Order contains duplicate note ids", err.Error())
	})

	t.Run("rejects missing members", func(t *testing.T) {
		err := validateReorder(BucketUnpinned, current, []string{"a", "b"})
		require.Error(t, err)
		assert.Equal(t, "Order must include all notes in the bucket", err.Error())
	})

	t.Run("rejects extra members", func(t *testing.T) {
		err := validateReorder(BucketUnpinned, current, []string{"a", "b", "c", "d"})
		require.Error(t, err)
		assert.Equal(t, "Order must include all notes in the bucket", err.Error())
	})

	t.Run("rejects foreign ids at equal cardinality", func(t *testing.T) {
		err := validateReorder(BucketPinned, current, []string{"a", "b", "z"})
		require.Error(t, err)
		assert.Equal(t, "Note z does not belong to bucket pinned", err.Error())
	})

	t.Run("empty against empty is fine", func(t *testing.T) {
		require.NoError(t, validateReorder(BucketArchived, nil, []string{}))
	})
}

func TestMaterialize(t *testing.T) {
	now := time.Now()
	mk := func(id string, pinned, archived bool) Note {
		return Note{ID: id, Pinned: pinned, Archived: archived, Color: DefaultColor, CreatedAt: now, UpdatedAt: now}
	}

	t.Run("orders drive list membership", func(t *testing.T) {
		notes := []Note{mk("n1", true, false), mk("n2", false, false), mk("n3", false, true)}
		orders := []NoteOrder{
			{NoteID: "n1", Bucket: BucketPinned, Position: 0},
			{NoteID: "n2", Bucket: BucketUnpinned, Position: 0},
			{NoteID: "n3", Bucket: BucketArchived, Position: 0},
		}

		store, orphans := materialize(notes, orders)
		assert.Empty(t, orphans)
		assert.Equal(t, []string{"n1"}, store.PinnedOrder)
		assert.Equal(t, []string{"n2"}, store.UnpinnedOrder)
		assert.Equal(t, []string{"n3"}, store.ArchivedOrder)
		assert.Len(t, store.Notes, 3)
	})

	t.Run("orders win over flags", func(t *testing.T) {
		// A note flagged pinned but ordered in unpinned stays where the
		// order row says.
		notes := []Note{mk("n1", true, false)}
		orders := []NoteOrder{{NoteID: "n1", Bucket: BucketUnpinned, Position: 0}}

		store, _ := materialize(notes, orders)
		assert.Empty(t, store.PinnedOrder)
		assert.Equal(t, []string{"n1"}, store.UnpinnedOrder)
	})

	t.Run("dangling order rows become orphans", func(t *testing.T) {
		notes := []Note{mk("n1", false, false)}
		orders := []NoteOrder{
			{NoteID: "gone", Bucket: BucketUnpinned, Position: 0},
			{NoteID: "n1", Bucket: BucketUnpinned, Position: 1},
		}

		store, orphans := materialize(notes, orders)
		assert.Equal(t, []string{"gone"}, orphans)
		assert.Equal(t, []string{"n1"}, store.UnpinnedOrder)
	})

	t.Run("unplaced notes fall back to their flag bucket", func(t *testing.T) {
		notes := []Note{mk("ordered", false, false), mk("strayPinned", true, false), mk("strayArchived", false, true)}
		orders := []NoteOrder{{NoteID: "ordered", Bucket: BucketUnpinned, Position: 0}}

		store, orphans := materialize(notes, orders)
		assert.Empty(t, orphans)
		assert.Equal(t, []string{"strayPinned"}, store.PinnedOrder)
		assert.Equal(t, []string{"ordered"}, store.UnpinnedOrder)
		assert.Equal(t, []string{"strayArchived"}, store.ArchivedOrder)
	})

	t.Run("unknown buckets are skipped, note falls back", func(t *testing.T) {
		notes := []Note{mk("n1", false, false)}
		orders := []NoteOrder{{NoteID: "n1", Bucket: "trash", Position: 0}}

		store, orphans := materialize(notes, orders)
		assert.Empty(t, orphans)
		assert.Equal(t, []string{"n1"}, store.UnpinnedOrder)
	})

	t.Run("lists partition the note set", func(t *testing.T) {
		notes := []Note{mk("a", false, false), mk("b", true, false), mk("c", false, true), mk("d", false, false)}
		orders := []NoteOrder{
			{NoteID: "b", Bucket: BucketPinned, Position: 0},
			{NoteID: "a", Bucket: BucketUnpinned, Position: 0},
			{NoteID: "d", Bucket: BucketUnpinned, Position: 1},
		}

		store, _ := materialize(notes, orders)
		placed := map[string]int{}
		for _, list := range [][]string{store.PinnedOrder, store.UnpinnedOrder, store.ArchivedOrder} {
			for _, id := range list {
				placed[id]++
			}
		}
		require.Len(t, placed, len(store.Notes))
		for id, count := range placed {
			assert.Equal(t, 1, count, "note %s placed %d times", id, count)
		}
	})
}

func TestBucketFromFlags(t *testing.T) {
	assert.Equal(t, BucketArchived, BucketFromFlags(true, true))
	assert.Equal(t, BucketArchived, BucketFromFlags(false, true))
	assert.Equal(t, BucketPinned, BucketFromFlags(true, false))
	assert.Equal(t, BucketUnpinned, BucketFromFlags(false, false))
}
