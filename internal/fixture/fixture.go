// Package fixture builds commit graphs in a store from compact descriptions.
//
// A graph is a list of commits, parents first. Each commit's tree starts as
// a copy of its first parent's files, then Delete paths (files or whole
// directories) are removed and Files are written over what is left.
//
//	[[commit]]
//	name = "A"
//	time = 10
//	files = { "dir/file.txt" = "hello\n" }
//
//	[[commit]]
//	name = "B"
//	parents = ["A"]
//	time = 20
//	delete = ["dir"]
//	ref = "refs/heads/main"
package fixture

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/onexay/revwalk/internal/storage"
	"github.com/onexay/revwalk/internal/types"
)

// Graph is an ordered commit graph description.
type Graph struct {
	Commits []Commit `toml:"commit"`
}

// Commit describes one commit of a Graph.
type Commit struct {
	Name    string            `toml:"name"`
	Parents []string          `toml:"parents"`
	Time    int64             `toml:"time"`
	Files   map[string]string `toml:"files"`
	Delete  []string          `toml:"delete"`
	Ref     string            `toml:"ref"`
	Author  string            `toml:"author"`
	Message string            `toml:"message"`
}

// Parse decodes a TOML graph description.
func Parse(data []byte) (Graph, error) {
	var g Graph
	if err := toml.Unmarshal(data, &g); err != nil {
		return Graph{}, fmt.Errorf("parse graph: %w", err)
	}
	return g, nil
}

// Load writes every commit of g into w and returns the identifiers by name.
// Refs that already exist are never moved: a ref pointing at a different
// commit fails the load with a storage.ConflictError.
func Load(ctx context.Context, w storage.Store, g Graph) (map[string]string, error) {
	ids := make(map[string]string, len(g.Commits))
	snapshots := make(map[string]map[string]string, len(g.Commits))

	for _, c := range g.Commits {
		if c.Name == "" {
			return nil, fmt.Errorf("commit without a name")
		}
		if _, dup := ids[c.Name]; dup {
			return nil, fmt.Errorf("duplicate commit name %q", c.Name)
		}

		parents := make([]string, 0, len(c.Parents))
		for _, p := range c.Parents {
			id, ok := ids[p]
			if !ok {
				return nil, fmt.Errorf("commit %q: parent %q must be declared before it", c.Name, p)
			}
			parents = append(parents, id)
		}

		files := make(map[string]string)
		if len(c.Parents) > 0 {
			maps.Copy(files, snapshots[c.Parents[0]])
		}
		for _, d := range c.Delete {
			delete(files, d)
			maps.DeleteFunc(files, func(p, _ string) bool {
				return strings.HasPrefix(p, d+"/")
			})
		}
		maps.Copy(files, c.Files)

		treeID, err := writeTree(ctx, w, files)
		if err != nil {
			return nil, fmt.Errorf("commit %q: %w", c.Name, err)
		}

		message := c.Message
		if message == "" {
			message = c.Name
		}
		id, err := w.PutCommit(ctx, types.Commit{
			Tree:       treeID,
			Parents:    parents,
			CommitTime: c.Time,
			Author:     c.Author,
			Message:    message,
		})
		if err != nil {
			return nil, fmt.Errorf("commit %q: %w", c.Name, err)
		}
		if c.Ref != "" {
			if err := checkRef(ctx, w, c.Ref, id); err != nil {
				return nil, fmt.Errorf("commit %q: %w", c.Name, err)
			}
			if err := w.SetRef(ctx, c.Ref, id); err != nil {
				return nil, fmt.Errorf("commit %q: set ref: %w", c.Name, err)
			}
		}

		ids[c.Name] = id
		snapshots[c.Name] = files
	}
	return ids, nil
}

func checkRef(ctx context.Context, r storage.RefReader, name, target string) error {
	ref, err := r.GetRef(ctx, name)
	if err != nil {
		var notFound *storage.NotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	if ref.Target != target {
		return &storage.ConflictError{Resource: "ref", Key: name}
	}
	return nil
}

type dirNode struct {
	files map[string]string
	dirs  map[string]*dirNode
}

func newDirNode() *dirNode {
	return &dirNode{files: make(map[string]string), dirs: make(map[string]*dirNode)}
}

func writeTree(ctx context.Context, w storage.Writer, files map[string]string) (string, error) {
	root := newDirNode()
	for p, content := range files {
		parts := strings.Split(strings.Trim(p, "/"), "/")
		node := root
		for _, part := range parts[:len(parts)-1] {
			if _, clash := node.files[part]; clash {
				return "", fmt.Errorf("path %q: %q is a file", p, part)
			}
			next, ok := node.dirs[part]
			if !ok {
				next = newDirNode()
				node.dirs[part] = next
			}
			node = next
		}
		leaf := parts[len(parts)-1]
		if _, clash := node.dirs[leaf]; clash || leaf == "" {
			return "", fmt.Errorf("invalid file path %q", p)
		}
		node.files[leaf] = content
	}
	return root.write(ctx, w)
}

func (d *dirNode) write(ctx context.Context, w storage.Writer) (string, error) {
	entries := make([]types.TreeEntry, 0, len(d.files)+len(d.dirs))
	for name, content := range d.files {
		id, err := w.PutBlob(ctx, []byte(content))
		if err != nil {
			return "", err
		}
		entries = append(entries, types.TreeEntry{Name: name, Mode: types.ModeFile, ID: id})
	}
	for name, sub := range d.dirs {
		id, err := sub.write(ctx, w)
		if err != nil {
			return "", err
		}
		entries = append(entries, types.TreeEntry{Name: name, Mode: types.ModeDir, ID: id})
	}
	return w.PutTree(ctx, types.Tree{Entries: entries})
}
