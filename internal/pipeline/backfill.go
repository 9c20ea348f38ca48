package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/auction-tracker/internal/db"
)

// minChunk is the smallest batch reported as one progress step.
const minChunk = 100

// BackfillStore reads and updates stored listings whose transmission is
// still unknown.
type BackfillStore interface {
	FetchTransmissionCandidates(ctx context.Context, source string, limit int) ([]db.BackfillRow, error)
	UpdateTransmission(ctx context.Context, id int64, manual bool) error
}

// BackfillOptions filters a transmission backfill.
type BackfillOptions struct {
	Source string
	Limit  int
	DryRun bool
}

// Backfill classifies the transmission of stored listings where it is
// unknown and writes the result back. Returns how many rows were updated
// out of how many were examined. Rows the classifier cannot decide stay
// unknown and are picked up by a later pass.
func (c *Coordinator) Backfill(ctx context.Context, store BackfillStore, opts BackfillOptions) (updated, total int, err error) {
	stop := c.perf.Start("backfill.fetch_candidates")
	rows, err := store.FetchTransmissionCandidates(ctx, opts.Source, opts.Limit)
	stop()
	if err != nil {
		return 0, 0, err
	}
	if len(rows) == 0 {
		fmt.Println("Backfill: no rows with unknown transmission (matching filters).")
		return 0, 0, nil
	}

	chunk := minChunk
	if c.opts.Concurrency*2 > chunk {
		chunk = c.opts.Concurrency * 2
	}

	var updatedCount atomic.Int64
	for i := 0; i < len(rows); i += chunk {
		end := i + chunk
		if end > len(rows) {
			end = len(rows)
		}

		stopBatch := c.perf.Start("backfill.batch")
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.opts.Concurrency)
		for _, row := range rows[i:end] {
			row := row
			g.Go(func() error {
				defer func() {
					if r := recover(); r != nil {
						fmt.Printf("Warning: backfill panicked for id=%d: %v\n", row.ID, r)
					}
				}()
				c.backfillRow(gctx, store, row, opts.DryRun, &updatedCount)
				return nil
			})
		}
		_ = g.Wait()
		stopBatch()

		if ctx.Err() != nil {
			return int(updatedCount.Load()), len(rows), ctx.Err()
		}
		fmt.Printf("Processed %d/%d rows...\n", end, len(rows))
	}

	fmt.Printf("Backfill complete: updated %d/%d rows\n", updatedCount.Load(), len(rows))
	return int(updatedCount.Load()), len(rows), nil
}

// backfillRow classifies one row and persists the outcome. An undecided
// classification leaves the row untouched.
func (c *Coordinator) backfillRow(ctx context.Context, store BackfillStore, row db.BackfillRow, dryRun bool, updated *atomic.Int64) {
	stop := c.perf.Start("backfill.ai_call")
	manual := c.enricher.IdentifyTransmission(ctx, row.Title, row.Excerpt)
	stop()
	if manual == nil {
		return
	}

	if dryRun {
		fmt.Printf("DRY-RUN: would set manual=%t for id=%d\n", *manual, row.ID)
		updated.Add(1)
		return
	}

	stop = c.perf.Start("backfill.db_update")
	err := store.UpdateTransmission(ctx, row.ID, *manual)
	stop()
	if err != nil {
		fmt.Printf("Warning: transmission update failed for id=%d: %v\n", row.ID, err)
		return
	}
	updated.Add(1)
}
