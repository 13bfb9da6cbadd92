package diff

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/onexay/revwalk/internal/storage"
	"github.com/onexay/revwalk/internal/types"
)

// TreeChanges lists the changes that turn oldTree into newTree. An empty tree
// identifier stands for the empty tree. When rd is non-nil, matching
// deletions and additions are folded into renames and copies.
func TreeChanges(ctx context.Context, r storage.ObjectReader, oldTree, newTree string, rd *RenameDetector) ([]Change, error) {
	tw := &treeWalker{r: r, wantUnchanged: rd != nil && rd.FindCopiesHarder}
	if err := tw.walk(ctx, "", oldTree, newTree); err != nil {
		return nil, err
	}
	sortChanges(tw.out)

	if rd != nil {
		return rd.Detect(ctx, tw.out)
	}
	return tw.out, nil
}

// TreeChangesForMerge diffs every parent tree against tree independently and
// returns one change list per parent, in parent order.
func TreeChangesForMerge(ctx context.Context, r storage.ObjectReader, parentTrees []string, tree string, rd *RenameDetector) ([][]Change, error) {
	result := make([][]Change, 0, len(parentTrees))
	for _, parent := range parentTrees {
		changes, err := TreeChanges(ctx, r, parent, tree, rd)
		if err != nil {
			return nil, err
		}
		result = append(result, changes)
	}
	return result, nil
}

// treeWalker compares two trees recursively. With wantUnchanged set it also
// reports identical files, which copy detection uses as sources.
type treeWalker struct {
	r             storage.ObjectReader
	wantUnchanged bool
	out           []Change
}

func (tw *treeWalker) walk(ctx context.Context, prefix, oldID, newID string) error {
	if oldID == newID && !tw.wantUnchanged {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	oldEntries, err := loadEntries(ctx, tw.r, oldID)
	if err != nil {
		return err
	}
	newEntries := oldEntries
	if newID != oldID {
		if newEntries, err = loadEntries(ctx, tw.r, newID); err != nil {
			return err
		}
	}

	i, j := 0, 0
	for i < len(oldEntries) || j < len(newEntries) {
		switch {
		case j >= len(newEntries) || (i < len(oldEntries) && oldEntries[i].Name < newEntries[j].Name):
			if err := tw.removed(ctx, prefix, oldEntries[i]); err != nil {
				return err
			}
			i++
		case i >= len(oldEntries) || newEntries[j].Name < oldEntries[i].Name:
			if err := tw.added(ctx, prefix, newEntries[j]); err != nil {
				return err
			}
			j++
		default:
			if err := tw.changed(ctx, prefix, oldEntries[i], newEntries[j]); err != nil {
				return err
			}
			i++
			j++
		}
	}
	return nil
}

func (tw *treeWalker) removed(ctx context.Context, prefix string, e types.TreeEntry) error {
	p := path.Join(prefix, e.Name)
	if e.IsDir() {
		return tw.walk(ctx, p, e.ID, "")
	}
	tw.out = append(tw.out, Change{Type: ChangeDelete, Old: side(p, e)})
	return nil
}

func (tw *treeWalker) added(ctx context.Context, prefix string, e types.TreeEntry) error {
	p := path.Join(prefix, e.Name)
	if e.IsDir() {
		return tw.walk(ctx, p, "", e.ID)
	}
	tw.out = append(tw.out, Change{Type: ChangeAdd, New: side(p, e)})
	return nil
}

func (tw *treeWalker) changed(ctx context.Context, prefix string, o, n types.TreeEntry) error {
	p := path.Join(prefix, o.Name)
	switch {
	case o.IsDir() && n.IsDir():
		return tw.walk(ctx, p, o.ID, n.ID)
	case o.IsDir() != n.IsDir():
		if err := tw.removed(ctx, prefix, o); err != nil {
			return err
		}
		return tw.added(ctx, prefix, n)
	case o.ID == n.ID && o.Mode == n.Mode:
		if tw.wantUnchanged {
			tw.out = append(tw.out, Change{Type: ChangeUnchanged, Old: side(p, o), New: side(p, n)})
		}
		return nil
	default:
		tw.out = append(tw.out, Change{Type: ChangeModify, Old: side(p, o), New: side(p, n)})
		return nil
	}
}

func loadEntries(ctx context.Context, r storage.ObjectReader, id string) ([]types.TreeEntry, error) {
	if id == "" {
		return nil, nil
	}
	tree, err := r.GetTree(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load tree %s: %w", id, err)
	}
	entries := slices.Clone(tree.Entries)
	slices.SortFunc(entries, func(a, b types.TreeEntry) int {
		return strings.Compare(a.Name, b.Name)
	})
	return entries, nil
}

func side(p string, e types.TreeEntry) Side {
	return Side{Path: p, Mode: e.Mode, ID: e.ID}
}
