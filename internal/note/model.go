package note

import "time"

// Bucket is one of the three mutually exclusive membership classes a note
// can occupy. A note's flags map to exactly one bucket: archived wins over
// pinned, pinned over unpinned.
type Bucket string

const (
	BucketPinned   Bucket = "pinned"
	BucketUnpinned Bucket = "unpinned"
	BucketArchived Bucket = "archived"
)

var Buckets = []Bucket{BucketPinned, BucketUnpinned, BucketArchived}

func ValidBucket(b Bucket) bool {
	return b == BucketPinned || b == BucketUnpinned || b == BucketArchived
}

func BucketFromFlags(pinned, archived bool) Bucket {
	if archived {
		return BucketArchived
	}
	if pinned {
		return BucketPinned
	}
	return BucketUnpinned
}

// User rows exist only to carry the per-user touched timestamp; users are
// auto-created on first touch.
type User struct {
	ID        string    `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

type Note struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"index;not null" json:"-"`
	Title     string    `gorm:"type:text;not null;default:''" json:"title"`
	Body      string    `gorm:"type:text;not null;default:''" json:"body"`
	Color     string    `gorm:"type:text;not null" json:"color"`
	Pinned    bool      `gorm:"not null;default:false" json:"pinned"`
	Archived  bool      `gorm:"not null;default:false" json:"archived"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updatedAt"`
}

func (n Note) Bucket() Bucket {
	return BucketFromFlags(n.Pinned, n.Archived)
}

// NoteOrder is the persistent rank of a note within its bucket. Positions are
// appended on create and bucket change, rewritten wholesale on reorder, and
// never compacted on delete; reads only ever sort by ascending position, so
// gaps are harmless.
type NoteOrder struct {
	UserID   string `gorm:"primaryKey"`
	NoteID   string `gorm:"primaryKey"`
	Bucket   Bucket `gorm:"type:text;not null"`
	Position int    `gorm:"not null"`
}

func (NoteOrder) TableName() string { return "note_orders" }

// UserStore is the materialized per-user view returned to clients. The three
// order lists partition the key set of Notes exactly.
type UserStore struct {
	Notes         map[string]Note `json:"notes"`
	PinnedOrder   []string        `json:"pinnedOrder"`
	UnpinnedOrder []string        `json:"unpinnedOrder"`
	ArchivedOrder []string        `json:"archivedOrder"`
}

func NewUserStore() UserStore {
	return UserStore{
		Notes:         map[string]Note{},
		PinnedOrder:   []string{},
		UnpinnedOrder: []string{},
		ArchivedOrder: []string{},
	}
}
