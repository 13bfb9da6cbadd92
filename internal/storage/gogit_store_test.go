package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/onexay/revwalk/internal/types"
)

func commitFile(t *testing.T, repo *git.Repository, path, content string, when int64) plumbing.Hash {
	t.Helper()
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	f, err := wt.Filesystem.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	if _, err := f.Write([]byte(content)); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	_ = f.Close()
	if _, err := wt.Add(path); err != nil {
		t.Fatalf("add %s: %v", path, err)
	}
	hash, err := wt.Commit("update "+path, &git.CommitOptions{
		Author: &object.Signature{Name: "Alice", Email: "alice@example.com", When: time.Unix(when, 0)},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	return hash
}

func TestGitRepository(t *testing.T) {
	repo, err := git.Init(memory.NewStorage(), memfs.New())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	first := commitFile(t, repo, "dir/file.txt", "hello\n", 100)
	second := commitFile(t, repo, "dir/file.txt", "hello world\n", 200)

	if _, err := repo.CreateTag("v1", first, &git.CreateTagOptions{
		Tagger:  &object.Signature{Name: "Alice", Email: "alice@example.com", When: time.Unix(150, 0)},
		Message: "v1",
	}); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}

	store := NewGitRepository(repo)
	ctx := context.Background()

	commit, err := store.GetCommit(ctx, second.String())
	if err != nil {
		t.Fatalf("GetCommit: %v", err)
	}
	if commit.CommitTime != 200 || commit.Author != "Alice" {
		t.Fatalf("unexpected commit: %+v", commit)
	}
	if len(commit.Parents) != 1 || commit.Parents[0] != first.String() {
		t.Fatalf("unexpected parents: %v", commit.Parents)
	}

	root, err := store.GetTree(ctx, commit.Tree)
	if err != nil {
		t.Fatalf("GetTree: %v", err)
	}
	if len(root.Entries) != 1 || root.Entries[0].Name != "dir" || !root.Entries[0].IsDir() {
		t.Fatalf("unexpected root tree: %+v", root)
	}
	sub, err := store.GetTree(ctx, root.Entries[0].ID)
	if err != nil {
		t.Fatalf("GetTree (dir): %v", err)
	}
	if len(sub.Entries) != 1 || sub.Entries[0].Mode != types.ModeFile {
		t.Fatalf("unexpected subtree: %+v", sub)
	}
	data, err := store.GetBlob(ctx, sub.Entries[0].ID)
	if err != nil {
		t.Fatalf("GetBlob: %v", err)
	}
	if string(data) != "hello world\n" {
		t.Fatalf("unexpected blob %q", data)
	}

	ref, err := store.GetRef(ctx, "master")
	if err != nil {
		t.Fatalf("GetRef(master): %v", err)
	}
	if ref.Name != "refs/heads/master" || ref.Target != second.String() {
		t.Fatalf("unexpected branch ref: %+v", ref)
	}
	tag, err := store.GetRef(ctx, "v1")
	if err != nil {
		t.Fatalf("GetRef(v1): %v", err)
	}
	if tag.Target != first.String() {
		t.Fatalf("expected annotated tag to peel to %s, got %s", first, tag.Target)
	}

	refs, err := store.ListRefs(ctx)
	if err != nil {
		t.Fatalf("ListRefs: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected branch and tag refs, got %+v", refs)
	}

	var notFound *NotFoundError
	if _, err := store.GetCommit(ctx, "not-a-hash"); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError for malformed id, got %v", err)
	}
	if _, err := store.GetCommit(ctx, plumbing.ZeroHash.String()); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError for unknown hash, got %v", err)
	}
	if _, err := store.GetRef(ctx, "nope"); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError for unknown ref, got %v", err)
	}
}
