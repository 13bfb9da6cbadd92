package types

// Tree entry modes, matching the git object model.
const (
	ModeFile       uint32 = 0o100644
	ModeExecutable uint32 = 0o100755
	ModeSymlink    uint32 = 0o120000
	ModeDir        uint32 = 0o040000
	ModeSubmodule  uint32 = 0o160000
)

// Commit is an immutable node of the history DAG.
type Commit struct {
	ID         string   `json:"id,omitempty"`
	Tree       string   `json:"tree"`
	Parents    []string `json:"parents,omitempty"`
	CommitTime int64    `json:"commitTime"`
	Author     string   `json:"author,omitempty"`
	Message    string   `json:"message,omitempty"`
}

// IsMerge reports whether the commit has more than one parent.
func (c Commit) IsMerge() bool {
	return len(c.Parents) > 1
}

// Tree is a snapshot of one directory level.
type Tree struct {
	ID      string      `json:"id,omitempty"`
	Entries []TreeEntry `json:"entries"`
}

// TreeEntry names a blob or subtree inside a tree.
type TreeEntry struct {
	Name string `json:"name"`
	Mode uint32 `json:"mode"`
	ID   string `json:"id"`
}

// IsDir reports whether the entry points at a subtree.
func (e TreeEntry) IsDir() bool {
	return e.Mode&0o170000 == ModeDir
}

// Ref points a symbolic name at a commit.
type Ref struct {
	Name   string `json:"name"`
	Target string `json:"target"`
}
