package diff

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/onexay/revwalk/internal/storage"
)

const (
	// DefaultRenameThreshold is the minimum similarity, in percent, for an
	// addition and a deletion to be paired as a rename.
	DefaultRenameThreshold = 60
	// DefaultMaxFiles bounds the inexact search to this many additions and deletions.
	DefaultMaxFiles = 200
)

// RenameDetector folds add/delete pairs into rename and copy changes.
type RenameDetector struct {
	store storage.ObjectReader

	RenameThreshold int
	MaxFiles        int
	// FindCopiesHarder also considers the pre-image of modified files as copy sources.
	FindCopiesHarder bool
}

// NewRenameDetector returns a detector with default thresholds.
func NewRenameDetector(r storage.ObjectReader) *RenameDetector {
	return &RenameDetector{
		store:           r,
		RenameThreshold: DefaultRenameThreshold,
		MaxFiles:        DefaultMaxFiles,
	}
}

type renameCandidate struct {
	score int
	del   int
	add   int
}

// Detect rewrites changes, pairing deletions with additions. Exact content
// matches are paired first; remaining pairs are scored by line similarity.
// Unchanged records only serve as copy sources and are dropped from the result.
func (d *RenameDetector) Detect(ctx context.Context, changes []Change) ([]Change, error) {
	var adds, deletes, unchanged, result []Change
	for _, c := range changes {
		switch c.Type {
		case ChangeAdd:
			adds = append(adds, c)
		case ChangeDelete:
			deletes = append(deletes, c)
		case ChangeUnchanged:
			unchanged = append(unchanged, c)
		default:
			result = append(result, c)
		}
	}
	if len(adds) == 0 || (len(deletes) == 0 && !d.FindCopiesHarder) {
		if len(unchanged) == 0 {
			return changes, nil
		}
		return slices.DeleteFunc(slices.Clone(changes), func(c Change) bool {
			return c.Type == ChangeUnchanged
		}), nil
	}

	addDone := make([]bool, len(adds))
	delDone := make([]bool, len(deletes))

	byID := make(map[string][]int)
	for i, c := range deletes {
		byID[c.Old.ID] = append(byID[c.Old.ID], i)
	}
	for ai, a := range adds {
		sources := byID[a.New.ID]
		source := -1
		for _, di := range sources {
			if !sameKind(deletes[di].Old.Mode, a.New.Mode) {
				continue
			}
			if !delDone[di] {
				source = di
				break
			}
			if source < 0 {
				source = di
			}
		}
		if source < 0 {
			continue
		}
		typ := ChangeCopy
		if !delDone[source] {
			typ = ChangeRename
			delDone[source] = true
		}
		result = append(result, Change{Type: typ, Old: deletes[source].Old, New: a.New})
		addDone[ai] = true
	}

	if d.FindCopiesHarder {
		for ai, a := range adds {
			if addDone[ai] {
				continue
			}
			for _, c := range changes {
				if c.Type != ChangeModify && c.Type != ChangeUnchanged {
					continue
				}
				if c.Old.ID == a.New.ID && sameKind(c.Old.Mode, a.New.Mode) {
					result = append(result, Change{Type: ChangeCopy, Old: c.Old, New: a.New})
					addDone[ai] = true
					break
				}
			}
		}
	}

	inexact, err := d.similarRenames(ctx, adds, deletes, addDone, delDone)
	if err != nil {
		return nil, err
	}
	result = append(result, inexact...)

	for i, c := range adds {
		if !addDone[i] {
			result = append(result, c)
		}
	}
	for i, c := range deletes {
		if !delDone[i] {
			result = append(result, c)
		}
	}
	sortChanges(result)
	return result, nil
}

func (d *RenameDetector) similarRenames(ctx context.Context, adds, deletes []Change, addDone, delDone []bool) ([]Change, error) {
	var addIdx, delIdx []int
	for i := range adds {
		if !addDone[i] {
			addIdx = append(addIdx, i)
		}
	}
	for i := range deletes {
		if !delDone[i] {
			delIdx = append(delIdx, i)
		}
	}
	if len(addIdx) == 0 || len(delIdx) == 0 {
		return nil, nil
	}
	if d.MaxFiles > 0 && len(addIdx)*len(delIdx) > d.MaxFiles*d.MaxFiles {
		return nil, nil
	}

	lines := make(map[string][]string)
	load := func(id string) ([]string, error) {
		if l, ok := lines[id]; ok {
			return l, nil
		}
		data, err := d.store.GetBlob(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load blob %s: %w", id, err)
		}
		l := splitLines(string(data))
		lines[id] = l
		return l, nil
	}

	var candidates []renameCandidate
	for _, di := range delIdx {
		del := deletes[di].Old
		before, err := load(del.ID)
		if err != nil {
			return nil, err
		}
		for _, ai := range addIdx {
			add := adds[ai].New
			if !sameKind(del.Mode, add.Mode) {
				continue
			}
			after, err := load(add.ID)
			if err != nil {
				return nil, err
			}
			if score := similarity(before, after); score >= d.RenameThreshold {
				candidates = append(candidates, renameCandidate{score: score, del: di, add: ai})
			}
		}
	}

	slices.SortStableFunc(candidates, func(a, b renameCandidate) int {
		if n := cmp.Compare(b.score, a.score); n != 0 {
			return n
		}
		if n := cmp.Compare(deletes[a.del].Old.Path, deletes[b.del].Old.Path); n != 0 {
			return n
		}
		return cmp.Compare(adds[a.add].New.Path, adds[b.add].New.Path)
	})

	var result []Change
	for _, c := range candidates {
		if delDone[c.del] || addDone[c.add] {
			continue
		}
		delDone[c.del] = true
		addDone[c.add] = true
		result = append(result, Change{Type: ChangeRename, Old: deletes[c.del].Old, New: adds[c.add].New})
	}
	return result, nil
}

// similarity scores two line sequences from 0 to 100.
func similarity(a, b []string) int {
	if len(a) == 0 && len(b) == 0 {
		return 100
	}
	m := difflib.NewMatcher(a, b)
	return int(m.Ratio() * 100)
}

func sameKind(a, b uint32) bool {
	return a&0o170000 == b&0o170000
}
