// Package diff computes the changes between trees of the object store.
package diff

import (
	"cmp"
	"fmt"
	"slices"
)

// ChangeType classifies a Change.
type ChangeType string

const (
	ChangeAdd       ChangeType = "add"
	ChangeDelete    ChangeType = "delete"
	ChangeModify    ChangeType = "modify"
	ChangeRename    ChangeType = "rename"
	ChangeCopy      ChangeType = "copy"
	ChangeUnchanged ChangeType = "unchanged"
)

// IsRenameOrCopy reports whether the change carries content across paths.
func (t ChangeType) IsRenameOrCopy() bool {
	return t == ChangeRename || t == ChangeCopy
}

// Side is one end of a change. An absent side has an empty Path.
type Side struct {
	Path string `json:"path,omitempty"`
	Mode uint32 `json:"mode,omitempty"`
	ID   string `json:"id,omitempty"`
}

// Exists reports whether the side is present.
func (s Side) Exists() bool {
	return s.Path != ""
}

// Change describes the difference between two trees for one path.
type Change struct {
	Type ChangeType `json:"type"`
	Old  Side       `json:"old"`
	New  Side       `json:"new"`
}

// Path returns the new path, or the old one for deletions.
func (c Change) Path() string {
	if c.New.Exists() {
		return c.New.Path
	}
	return c.Old.Path
}

func (c Change) String() string {
	switch c.Type {
	case ChangeRename, ChangeCopy:
		return fmt.Sprintf("%s %s -> %s", c.Type, c.Old.Path, c.New.Path)
	default:
		return fmt.Sprintf("%s %s", c.Type, c.Path())
	}
}

func sortChanges(changes []Change) {
	slices.SortStableFunc(changes, func(a, b Change) int {
		if n := cmp.Compare(a.Path(), b.Path()); n != 0 {
			return n
		}
		return cmp.Compare(a.Old.Path, b.Old.Path)
	})
}
