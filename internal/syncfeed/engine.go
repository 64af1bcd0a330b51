// Pagination controller for the change feed.
package syncfeed

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	apperrors "github.com/tetondan64/recordergear/backend/internal/errors"
)

// Page size bounds for a single pull. Out-of-range limits are rejected, not
// clamped, so clients never silently get different pagination than asked.
const (
	MinLimit     = 1
	MaxLimit     = 1000
	DefaultLimit = 500
)

// Clock abstracts time retrieval so the snapshot bound is deterministic in
// tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Engine merges the five change sources into paginated pulls. It holds no
// per-user state; every pull is an independent read-only operation, safe to
// run concurrently and to abandon and retry with the same cursor.
type Engine struct {
	sources []Source
	clock   Clock
}

// NewEngine creates an Engine over the five family readers.
func NewEngine(db *sql.DB) *Engine {
	return NewEngineWithClock(db, realClock{})
}

// NewEngineWithClock creates an Engine with an injected clock.
func NewEngineWithClock(db *sql.DB, clock Clock) *Engine {
	return &Engine{
		sources: defaultSources(db),
		clock:   clock,
	}
}

// Page is the result of one pull.
type Page struct {
	Items   []ChangeItem
	HasMore bool
	Next    Cursor
}

// Pull returns up to limit changes for userID strictly after cur.
//
// The snapshot bound is fixed once at the start: rows committed during the
// scan are deferred to the next pull rather than risking a torn view. Each
// source is probed for limit+1 candidates so HasMore can be derived without
// a count query. The next cursor carries the full ordering key of the last
// delivered row; on an empty page it advances to the bound so polling
// replicas make forward progress.
//
// A store error aborts the whole pull: no partial results are returned and
// the caller retries with the same cursor.
func (e *Engine) Pull(ctx context.Context, userID string, cur Cursor, limit int) (*Page, error) {
	if limit < MinLimit || limit > MaxLimit {
		return nil, apperrors.New(apperrors.ErrInvalidLimit,
			fmt.Sprintf("limit must be in [%d, %d], got %d", MinLimit, MaxLimit, limit))
	}

	boundMs := e.clock.Now().UnixMilli()

	batches := make([][]ChangeRow, 0, len(e.sources))
	for _, src := range e.sources {
		rows, err := src.ListChanges(ctx, userID, cur, boundMs, limit+1)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStoreFailure,
				fmt.Sprintf("reading %s changes", src.Type()), err)
		}
		batches = append(batches, rows)
	}

	merged := Merge(batches...)

	hasMore := len(merged) > limit
	if hasMore {
		merged = merged[:limit]
	}

	var next Cursor
	if len(merged) == 0 {
		// Never move the watermark backwards: the write path can push a
		// row's updated_at slightly past wall time, and a cursor minted
		// from such a row may sit at or ahead of this pull's bound.
		next = Cursor{Timestamp: boundMs}
		if next.OrderKey().Compare(cur.OrderKey()) < 0 {
			next = cur
		}
	} else {
		last := merged[len(merged)-1].OrderKey()
		next = Cursor{Timestamp: last.Timestamp, Priority: last.Priority, Key: last.Key}
	}

	return &Page{
		Items:   AssembleAll(merged),
		HasMore: hasMore,
		Next:    next,
	}, nil
}
