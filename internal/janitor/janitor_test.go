package janitor

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"noteslite/internal/db"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("NOTESLITE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("NOTESLITE_TEST_DATABASE_URL not set")
	}
	gdb, err := db.Connect(dsn)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	return gdb
}

func TestSweepOrphans(t *testing.T) {
	gdb := testDB(t)
	ctx := context.Background()
	user := "janitor-test-" + uuid.NewString()

	require.NoError(t, gdb.Exec(`insert into users (id) values (?)`, user).Error)
	live := uuid.NewString()
	require.NoError(t, gdb.Exec(
		`insert into notes (id, user_id) values (?, ?)`, live, user,
	).Error)
	require.NoError(t, gdb.Exec(
		`insert into note_orders (user_id, note_id, bucket, position) values (?, ?, 'unpinned', 0)`,
		user, live,
	).Error)

	// an order row whose note is gone
	orphan := uuid.NewString()
	require.NoError(t, gdb.Exec(
		`insert into note_orders (user_id, note_id, bucket, position) values (?, ?, 'unpinned', 1)`,
		user, orphan,
	).Error)

	w := &Worker{ID: "test", DB: gdb, Batch: 10}
	n, err := w.SweepOrphans(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))

	var count int64
	require.NoError(t, gdb.Raw(
		`select count(*) from note_orders where user_id = ? and note_id = ?`, user, orphan,
	).Scan(&count).Error)
	assert.Zero(t, count, "orphan row survives the sweep")

	require.NoError(t, gdb.Raw(
		`select count(*) from note_orders where user_id = ? and note_id = ?`, user, live,
	).Scan(&count).Error)
	assert.Equal(t, int64(1), count, "live row removed by the sweep")
}

func TestSweepOrphansNothingToDo(t *testing.T) {
	gdb := testDB(t)

	w := &Worker{ID: "test", DB: gdb, Batch: 10}
	// a second pass over a clean table removes nothing from this user
	_, err := w.SweepOrphans(context.Background())
	require.NoError(t, err)
}
