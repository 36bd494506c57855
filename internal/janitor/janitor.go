package janitor

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"
)

// Worker is the background complement of the read path's lazy orphan
// discard: it periodically deletes note_orders rows whose note is gone.
// Orphans are tolerated everywhere, so the sweep is purely housekeeping.
type Worker struct {
	ID       string
	DB       *gorm.DB
	Interval time.Duration
	Batch    int
}

func (w *Worker) Run(ctx context.Context) {
	interval := w.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.SweepOrphans(ctx)
			if err != nil {
				log.Printf("janitor %s sweep error: %v", w.ID, err)
				continue
			}
			if n > 0 {
				log.Printf("janitor %s discarded %d orphaned order records", w.ID, n)
			}
		}
	}
}

// SweepOrphans removes one batch of orphaned order records.
// FOR UPDATE SKIP LOCKED keeps replicas running the same sweep from
// contending over the same rows.
func (w *Worker) SweepOrphans(ctx context.Context) (int64, error) {
	batch := w.Batch
	if batch <= 0 {
		batch = 100
	}

	res := w.DB.WithContext(ctx).Exec(`
delete from note_orders
where (user_id, note_id) in (
    select o.user_id, o.note_id
    from note_orders o
    left join notes n on n.user_id = o.user_id and n.id = o.note_id
    where n.id is null
    for update of o skip locked
    limit ?
)`, batch)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
