// Package walk iterates over the history of a commit graph.
//
// A Walker visits the commits reachable from a set of include seeds, newest
// first, leaving out the history of the exclude seeds. Results can be limited
// to commits touching given paths, optionally following renames, to a commit
// time window, and to a maximum count.
package walk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"
	"strings"

	"github.com/onexay/revwalk/internal/diff"
	"github.com/onexay/revwalk/internal/storage"
)

// Order selects the order of walk results.
type Order string

// OrderDate yields commits by descending commit time. It is the only order supported.
const OrderDate Order = "date"

// Options configure a Walker.
type Options struct {
	// Include lists the commits whose history is walked.
	Include []string
	// Exclude lists commits whose history is left out, overriding Include.
	Exclude []string
	// Order defaults to OrderDate.
	Order Order
	// Reverse yields the oldest result first. All results are held in memory.
	Reverse bool
	// MaxEntries caps the number of results; nil means no limit.
	MaxEntries *int
	// Paths restricts results to commits changing these files or directories.
	Paths []string
	// RenameDetector is passed to the diff engine when computing changes.
	RenameDetector *diff.RenameDetector
	// Follow tracks Paths across renames and copies. It installs a default
	// RenameDetector when none is given.
	Follow bool
	// Since drops commits older than this unix time and ends the walk shortly
	// after passing it.
	Since *int64
	// Until drops commits newer than this unix time.
	Until *int64
}

// Limit returns a MaxEntries value that stops a walk after n results.
func Limit(n int) *int {
	return &n
}

type walkState int

const (
	stateCreated walkState = iota
	stateIterating
	stateExhausted
	stateDraining
	stateDone
)

// Walker yields Entries for the commits selected by its Options.
// A Walker is not safe for concurrent use.
type Walker struct {
	store          storage.ObjectReader
	include        []string
	exclude        []string
	excluded       map[string]struct{}
	reverse        bool
	maxEntries     *int
	paths          map[string]struct{}
	renameDetector *diff.RenameDetector
	follow         bool
	since          *int64
	until          *int64

	queue      frontier
	numEntries int
	state      walkState
	buffered   []*Entry
	err        error
}

// New validates opts and seeds a walk over the commits of store.
func New(ctx context.Context, store storage.ObjectReader, opts Options) (*Walker, error) {
	order := opts.Order
	if order == "" {
		order = OrderDate
	}
	newFrontier, ok := frontiers[order]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownOrder, order)
	}

	w := &Walker{
		store:          store,
		include:        slices.Clone(opts.Include),
		exclude:        slices.Clone(opts.Exclude),
		excluded:       make(map[string]struct{}, len(opts.Exclude)),
		reverse:        opts.Reverse,
		maxEntries:     copyInt(opts.MaxEntries),
		renameDetector: opts.RenameDetector,
		follow:         opts.Follow,
		since:          copyTime(opts.Since),
		until:          copyTime(opts.Until),
	}
	for _, id := range opts.Exclude {
		w.excluded[id] = struct{}{}
	}
	for _, p := range opts.Paths {
		p = strings.TrimRight(p, "/")
		if p == "" {
			continue
		}
		if w.paths == nil {
			w.paths = make(map[string]struct{}, len(opts.Paths))
		}
		w.paths[p] = struct{}{}
	}
	if w.follow && w.renameDetector == nil {
		w.renameDetector = diff.NewRenameDetector(store)
	}

	queue, err := newFrontier(ctx, w)
	if err != nil {
		return nil, err
	}
	w.queue = queue
	return w, nil
}

// Paths returns the paths currently matched, sorted. With Follow set the set
// changes as renames are crossed.
func (w *Walker) Paths() []string {
	if w.paths == nil {
		return nil
	}
	paths := make([]string, 0, len(w.paths))
	for p := range w.paths {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Next returns the next entry, or io.EOF once the walk is complete.
// After an error every later call returns the same error.
func (w *Walker) Next(ctx context.Context) (*Entry, error) {
	if w.err != nil {
		return nil, w.err
	}

	switch w.state {
	case stateCreated, stateIterating:
		if w.reverse {
			if err := w.materialize(ctx); err != nil {
				w.err = err
				return nil, err
			}
			return w.Next(ctx)
		}
		w.state = stateIterating
		entry, err := w.next(ctx)
		if err != nil {
			w.err = err
			return nil, err
		}
		if entry == nil {
			w.state = stateExhausted
			return nil, io.EOF
		}
		return entry, nil
	case stateDraining:
		n := len(w.buffered)
		if n == 0 {
			w.state = stateDone
			return nil, io.EOF
		}
		entry := w.buffered[n-1]
		w.buffered[n-1] = nil
		w.buffered = w.buffered[:n-1]
		return entry, nil
	default:
		return nil, io.EOF
	}
}

// ForEach calls fn for every entry. Returning ErrStop from fn ends the walk
// without error.
func (w *Walker) ForEach(ctx context.Context, fn func(*Entry) error) error {
	for {
		entry, err := w.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(entry); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
}

// All returns an iterator over the remaining entries. Iteration ends after
// the first error is yielded.
func (w *Walker) All(ctx context.Context) iter.Seq2[*Entry, error] {
	return func(yield func(*Entry, error) bool) {
		for {
			entry, err := w.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(entry, err) || err != nil {
				return
			}
		}
	}
}

// Collect returns all remaining entries.
func (w *Walker) Collect(ctx context.Context) ([]*Entry, error) {
	var entries []*Entry
	err := w.ForEach(ctx, func(e *Entry) error {
		entries = append(entries, e)
		return nil
	})
	return entries, err
}

func (w *Walker) materialize(ctx context.Context) error {
	w.state = stateIterating
	for {
		entry, err := w.next(ctx)
		if err != nil {
			return err
		}
		if entry == nil {
			break
		}
		w.buffered = append(w.buffered, entry)
	}
	w.state = stateDraining
	return nil
}

func (w *Walker) next(ctx context.Context) (*Entry, error) {
	for {
		if w.maxEntries != nil && w.numEntries >= *w.maxEntries {
			return nil, nil
		}
		entry, err := w.queue.next(ctx)
		if err != nil || entry == nil {
			return nil, err
		}
		ok, err := w.shouldReturn(ctx, entry)
		if err != nil {
			return nil, err
		}
		if ok {
			w.numEntries++
			return entry, nil
		}
	}
}

func (w *Walker) shouldReturn(ctx context.Context, entry *Entry) (bool, error) {
	commitTime := entry.Commit.CommitTime
	if w.since != nil && commitTime < *w.since {
		return false, nil
	}
	if w.until != nil && commitTime > *w.until {
		return false, nil
	}

	if w.paths == nil {
		return true, nil
	}

	changes, err := entry.Changes(ctx)
	if err != nil {
		return false, err
	}
	if changes.IsMerge() {
		// any parent's change list may match
		for _, parentChanges := range changes.PerParent() {
			for _, c := range parentChanges {
				if w.changeMatches(c) {
					return true, nil
				}
			}
		}
		return false, nil
	}
	for _, c := range changes.Single() {
		if w.changeMatches(c) {
			return true, nil
		}
	}
	return false, nil
}

func (w *Walker) changeMatches(c diff.Change) bool {
	if w.pathMatches(c.New.Path) {
		if w.follow && c.Type.IsRenameOrCopy() {
			w.paths[c.Old.Path] = struct{}{}
			delete(w.paths, c.New.Path)
		}
		return true
	}
	return w.pathMatches(c.Old.Path)
}

// pathMatches reports whether changed is a followed path or lies beneath one.
func (w *Walker) pathMatches(changed string) bool {
	if changed == "" {
		return false
	}
	for followed := range w.paths {
		if changed == followed {
			return true
		}
		if strings.HasPrefix(changed, followed) && changed[len(followed)] == '/' {
			return true
		}
	}
	return false
}

func copyInt(n *int) *int {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}

func copyTime(t *int64) *int64 {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
