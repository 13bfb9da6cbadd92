package fixture

import (
	"context"
	"errors"
	"testing"

	"github.com/onexay/revwalk/internal/storage"
)

const sampleGraph = `
[[commit]]
name = "A"
time = 10
ref = "refs/heads/base"
files = { "dir/file.txt" = "one\n", "README" = "readme\n" }

[[commit]]
name = "B"
parents = ["A"]
time = 20
delete = ["dir"]
files = { "other.txt" = "two\n" }
ref = "refs/heads/main"
`

func TestParseAndLoad(t *testing.T) {
	g, err := Parse([]byte(sampleGraph))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(g.Commits) != 2 {
		t.Fatalf("expected 2 commits, got %d", len(g.Commits))
	}

	store := storage.NewMemoryStore()
	ctx := context.Background()
	ids, err := Load(ctx, store, g)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	b, err := store.GetCommit(ctx, ids["B"])
	if err != nil {
		t.Fatalf("GetCommit: %v", err)
	}
	if b.CommitTime != 20 || len(b.Parents) != 1 || b.Parents[0] != ids["A"] {
		t.Fatalf("unexpected commit B: %+v", b)
	}
	if b.Message != "B" {
		t.Errorf("Message = %q, want %q", b.Message, "B")
	}

	tree, err := store.GetTree(ctx, b.Tree)
	if err != nil {
		t.Fatalf("GetTree: %v", err)
	}
	var names []string
	for _, e := range tree.Entries {
		names = append(names, e.Name)
	}
	if len(names) != 2 || names[0] != "README" || names[1] != "other.txt" {
		t.Fatalf("unexpected entries in B: %v", names)
	}

	ref, err := store.GetRef(ctx, "refs/heads/main")
	if err != nil {
		t.Fatalf("GetRef: %v", err)
	}
	if ref.Target != ids["B"] {
		t.Errorf("ref target = %s, want %s", ref.Target, ids["B"])
	}
}

func TestLoadRejectsForwardParents(t *testing.T) {
	g := Graph{Commits: []Commit{
		{Name: "B", Parents: []string{"A"}, Time: 2},
		{Name: "A", Time: 1},
	}}
	if _, err := Load(context.Background(), storage.NewMemoryStore(), g); err == nil {
		t.Fatalf("expected error for parent declared after child")
	}
}

func TestLoadRejectsDuplicates(t *testing.T) {
	g := Graph{Commits: []Commit{{Name: "A", Time: 1}, {Name: "A", Time: 2}}}
	if _, err := Load(context.Background(), storage.NewMemoryStore(), g); err == nil {
		t.Fatalf("expected error for duplicate names")
	}
}

func TestLoadRejectsFileDirectoryClash(t *testing.T) {
	g := Graph{Commits: []Commit{{Name: "A", Time: 1, Files: map[string]string{"x": "1", "x/y": "2"}}}}
	if _, err := Load(context.Background(), storage.NewMemoryStore(), g); err == nil {
		t.Fatalf("expected error for path used as file and directory")
	}
}

func TestSameContentSameTree(t *testing.T) {
	g := Graph{Commits: []Commit{
		{Name: "A", Time: 1, Files: map[string]string{"a": "1"}},
		{Name: "B", Parents: []string{"A"}, Time: 2},
	}}
	store := storage.NewMemoryStore()
	ctx := context.Background()
	ids, err := Load(ctx, store, g)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	a, _ := store.GetCommit(ctx, ids["A"])
	b, _ := store.GetCommit(ctx, ids["B"])
	if a.Tree != b.Tree {
		t.Fatalf("expected unchanged snapshot to reuse tree %s, got %s", a.Tree, b.Tree)
	}
}

func TestLoadDoesNotMoveExistingRefs(t *testing.T) {
	g, err := Parse([]byte(sampleGraph))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	store := storage.NewMemoryStore()
	ctx := context.Background()

	first, err := Load(ctx, store, g)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	again, err := Load(ctx, store, g)
	if err != nil {
		t.Fatalf("reloading the same graph should succeed: %v", err)
	}
	if again["B"] != first["B"] {
		t.Fatalf("expected identical ids on reload, got %s and %s", first["B"], again["B"])
	}

	moved := Graph{Commits: []Commit{{Name: "X", Time: 99, Files: map[string]string{"x": "1"}, Ref: "refs/heads/main"}}}
	_, err = Load(ctx, store, moved)
	var conflict *storage.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.Key != "refs/heads/main" {
		t.Fatalf("unexpected conflict key %q", conflict.Key)
	}

	ref, err := store.GetRef(ctx, "refs/heads/main")
	if err != nil {
		t.Fatalf("GetRef: %v", err)
	}
	if ref.Target != first["B"] {
		t.Fatalf("ref moved to %s", ref.Target)
	}
}
