package sources

import (
	"context"
	"fmt"

	"github.com/hankgalt/batch-export/pkg/domain"
)

// rowCursor is the forward-only result set capability both database sources share.
type rowCursor interface {
	Next() bool
	Err() error
	Close() error
}

// pull reads up to n rows from the cursor. Done is set, and the cursor closed, once it is exhausted.
// Rows scanned before a failure are returned along with the error. A row that fails to
// scan has already been consumed, so its error wraps domain.ErrRecordUnreadable.
func pull[T any](
	ctx context.Context,
	cur rowCursor,
	n uint,
	scan func() (T, error),
) (*domain.BatchProcess[T], error) {
	bp := &domain.BatchProcess[T]{}
	for i := uint(0); i < n; i++ {
		if err := ctx.Err(); err != nil {
			return bp, err
		}

		if !cur.Next() {
			if err := cur.Err(); err != nil {
				return bp, err
			}
			bp.Done = true
			return bp, cur.Close()
		}

		rec, err := scan()
		if err != nil {
			return bp, fmt.Errorf("%w: %w", domain.ErrRecordUnreadable, err)
		}
		bp.Records = append(bp.Records, &domain.BatchRecord[T]{Data: rec})
	}
	return bp, nil
}
