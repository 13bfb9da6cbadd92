package walk

import (
	"cmp"
	"context"

	"github.com/emirpasic/gods/trees/binaryheap"

	"github.com/onexay/revwalk/internal/types"
)

// maxExtraCommits is how many consecutive commits older than the since
// boundary are walked before the walk stops. Commit times need not decrease
// along parent edges.
const maxExtraCommits = 5

// frontier yields the commits a Walker filters, in walk order, and nil once
// there are no more.
type frontier interface {
	next(ctx context.Context) (*Entry, error)
}

// frontiers maps each supported Order to the frontier producing it.
var frontiers = map[Order]func(context.Context, *Walker) (frontier, error){
	OrderDate: newDateFrontier,
}

func newDateFrontier(ctx context.Context, w *Walker) (frontier, error) {
	q, err := newCommitTimeQueue(ctx, w)
	if err != nil {
		return nil, err
	}
	return q, nil
}

type queuedCommit struct {
	commit types.Commit
	seq    uint64
}

// newestFirst orders the heap by commit time, descending, then by push order.
func newestFirst(a, b interface{}) int {
	x, y := a.(queuedCommit), b.(queuedCommit)
	if n := cmp.Compare(y.commit.CommitTime, x.commit.CommitTime); n != 0 {
		return n
	}
	return cmp.Compare(x.seq, y.seq)
}

// commitTimeQueue yields the commits reachable from the walker's seeds,
// newest first, skipping excluded history.
type commitTimeQueue struct {
	walker    *Walker
	heap      *binaryheap.Heap
	queued    map[string]struct{}
	done      map[string]struct{}
	excluded  map[string]struct{}
	minTime   *int64
	extraLeft int
	seq       uint64
	stopped   bool
}

func newCommitTimeQueue(ctx context.Context, w *Walker) (*commitTimeQueue, error) {
	q := &commitTimeQueue{
		walker:    w,
		heap:      binaryheap.NewWith(newestFirst),
		queued:    make(map[string]struct{}),
		done:      make(map[string]struct{}),
		excluded:  w.excluded,
		minTime:   w.since,
		extraLeft: maxExtraCommits,
	}
	for _, seeds := range [][]string{w.include, w.exclude} {
		for _, id := range seeds {
			if err := q.push(ctx, id); err != nil {
				return nil, err
			}
		}
	}
	return q, nil
}

func (q *commitTimeQueue) push(ctx context.Context, id string) error {
	if _, ok := q.queued[id]; ok {
		return nil
	}
	if _, ok := q.done[id]; ok {
		return nil
	}
	commit, err := lookupCommit(ctx, q.walker.store, id)
	if err != nil {
		return err
	}
	q.heap.Push(queuedCommit{commit: commit, seq: q.seq})
	q.seq++
	q.queued[id] = struct{}{}
	return nil
}

// next returns the next non-excluded commit, or nil once the frontier is
// empty or the since boundary has been overrun.
func (q *commitTimeQueue) next(ctx context.Context) (*Entry, error) {
	for !q.stopped {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, ok := q.heap.Pop()
		if !ok {
			return nil, nil
		}
		commit := v.(queuedCommit).commit
		delete(q.queued, commit.ID)
		if _, ok := q.done[commit.ID]; ok {
			continue
		}
		q.done[commit.ID] = struct{}{}

		_, isExcluded := q.excluded[commit.ID]
		if isExcluded {
			for _, p := range commit.Parents {
				q.excluded[p] = struct{}{}
			}
		}

		if q.minTime != nil {
			if commit.CommitTime < *q.minTime {
				q.extraLeft--
				if q.extraLeft == 0 {
					q.stopped = true
					break
				}
			} else {
				q.extraLeft = maxExtraCommits
			}
		}

		for _, p := range commit.Parents {
			if err := q.push(ctx, p); err != nil {
				return nil, err
			}
		}

		if !isExcluded {
			return newEntry(q.walker, commit), nil
		}
	}
	return nil, nil
}
