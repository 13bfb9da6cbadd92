package walk

import (
	"context"

	"github.com/onexay/revwalk/internal/diff"
	"github.com/onexay/revwalk/internal/storage"
	"github.com/onexay/revwalk/internal/types"
)

// Changes is the diff a commit introduces. Commits with at most one parent
// carry a single change list; merges carry one list per parent.
type Changes struct {
	merge     bool
	single    []diff.Change
	perParent [][]diff.Change
}

// IsMerge reports whether the changes are per-parent lists of a merge commit.
func (c Changes) IsMerge() bool {
	return c.merge
}

// Single returns the change list of a non-merge commit.
func (c Changes) Single() []diff.Change {
	return c.single
}

// PerParent returns one change list per parent of a merge commit.
func (c Changes) PerParent() [][]diff.Change {
	return c.perParent
}

// Flatten returns every change, concatenating per-parent lists for merges.
func (c Changes) Flatten() []diff.Change {
	if !c.merge {
		return c.single
	}
	var all []diff.Change
	for _, changes := range c.perParent {
		all = append(all, changes...)
	}
	return all
}

// Entry is a single result of a walk.
type Entry struct {
	Commit types.Commit

	store    storage.ObjectReader
	detector *diff.RenameDetector
	changes  *Changes
}

func newEntry(w *Walker, commit types.Commit) *Entry {
	return &Entry{Commit: commit, store: w.store, detector: w.renameDetector}
}

// Changes returns the tree changes of the entry's commit against its
// parents, relative to the empty tree for root commits. The result is
// computed on first use and cached.
func (e *Entry) Changes(ctx context.Context) (Changes, error) {
	if e.changes != nil {
		return *e.changes, nil
	}

	var result Changes
	parents := e.Commit.Parents
	switch len(parents) {
	case 0:
		changes, err := diff.TreeChanges(ctx, e.store, "", e.Commit.Tree, e.detector)
		if err != nil {
			return Changes{}, err
		}
		result = Changes{single: changes}
	case 1:
		parent, err := lookupCommit(ctx, e.store, parents[0])
		if err != nil {
			return Changes{}, err
		}
		changes, err := diff.TreeChanges(ctx, e.store, parent.Tree, e.Commit.Tree, e.detector)
		if err != nil {
			return Changes{}, err
		}
		result = Changes{single: changes}
	default:
		trees := make([]string, 0, len(parents))
		for _, id := range parents {
			parent, err := lookupCommit(ctx, e.store, id)
			if err != nil {
				return Changes{}, err
			}
			trees = append(trees, parent.Tree)
		}
		perParent, err := diff.TreeChangesForMerge(ctx, e.store, trees, e.Commit.Tree, e.detector)
		if err != nil {
			return Changes{}, err
		}
		result = Changes{merge: true, perParent: perParent}
	}

	e.changes = &result
	return result, nil
}
