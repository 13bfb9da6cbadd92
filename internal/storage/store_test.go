package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/onexay/revwalk/internal/types"
)

// exerciseStore runs the behaviour every writable backend must share.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	blobID, err := store.PutBlob(ctx, []byte("line one\nline two\n"))
	if err != nil {
		t.Fatalf("PutBlob: %v", err)
	}
	again, err := store.PutBlob(ctx, []byte("line one\nline two\n"))
	if err != nil {
		t.Fatalf("PutBlob (again): %v", err)
	}
	if again != blobID {
		t.Fatalf("expected idempotent blob id, got %s and %s", blobID, again)
	}
	if !validID(blobID) {
		t.Fatalf("blob id %q does not decode as a CID", blobID)
	}

	data, err := store.GetBlob(ctx, blobID)
	if err != nil {
		t.Fatalf("GetBlob: %v", err)
	}
	if string(data) != "line one\nline two\n" {
		t.Fatalf("unexpected blob content: %q", data)
	}

	treeID, err := store.PutTree(ctx, types.Tree{Entries: []types.TreeEntry{
		{Name: "b.txt", Mode: types.ModeFile, ID: blobID},
		{Name: "a.txt", Mode: types.ModeFile, ID: blobID},
	}})
	if err != nil {
		t.Fatalf("PutTree: %v", err)
	}
	tree, err := store.GetTree(ctx, treeID)
	if err != nil {
		t.Fatalf("GetTree: %v", err)
	}
	if tree.ID != treeID || len(tree.Entries) != 2 {
		t.Fatalf("unexpected tree: %+v", tree)
	}
	if tree.Entries[0].Name != "a.txt" {
		t.Fatalf("expected entries sorted by name, got %q first", tree.Entries[0].Name)
	}

	rootID, err := store.PutCommit(ctx, types.Commit{Tree: treeID, CommitTime: 10, Author: "Alice", Message: "root"})
	if err != nil {
		t.Fatalf("PutCommit: %v", err)
	}
	childID, err := store.PutCommit(ctx, types.Commit{Tree: treeID, Parents: []string{rootID}, CommitTime: 20, Message: "child"})
	if err != nil {
		t.Fatalf("PutCommit (child): %v", err)
	}
	if childID == rootID {
		t.Fatalf("expected distinct commit ids")
	}

	child, err := store.GetCommit(ctx, childID)
	if err != nil {
		t.Fatalf("GetCommit: %v", err)
	}
	if child.ID != childID || child.Tree != treeID || child.CommitTime != 20 {
		t.Fatalf("unexpected commit: %+v", child)
	}
	if len(child.Parents) != 1 || child.Parents[0] != rootID {
		t.Fatalf("unexpected parents: %v", child.Parents)
	}

	var notFound *NotFoundError
	if _, err := store.GetCommit(ctx, "missing"); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError for missing commit, got %v", err)
	}
	if _, err := store.GetTree(ctx, "missing"); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError for missing tree, got %v", err)
	}
	if _, err := store.GetBlob(ctx, blobID[:len(blobID)-3]+"!!!"); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError for malformed blob id, got %v", err)
	}

	var validation *ValidationError
	if _, err := store.PutCommit(ctx, types.Commit{CommitTime: 1}); !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError for commit without tree, got %v", err)
	}
	if _, err := store.PutTree(ctx, types.Tree{Entries: []types.TreeEntry{{Name: "a/b", Mode: types.ModeFile, ID: blobID}}}); !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError for nested entry name, got %v", err)
	}

	if err := store.SetRef(ctx, "refs/heads/main", childID); err != nil {
		t.Fatalf("SetRef: %v", err)
	}
	if err := store.SetRef(ctx, "refs/heads/base", rootID); err != nil {
		t.Fatalf("SetRef (base): %v", err)
	}
	if err := store.SetRef(ctx, "refs/heads/bad", "missing"); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError for dangling ref, got %v", err)
	}

	ref, err := store.GetRef(ctx, "refs/heads/main")
	if err != nil {
		t.Fatalf("GetRef: %v", err)
	}
	if ref.Target != childID {
		t.Fatalf("unexpected ref target %s", ref.Target)
	}

	refs, err := store.ListRefs(ctx)
	if err != nil {
		t.Fatalf("ListRefs: %v", err)
	}
	if len(refs) != 2 || refs[0].Name != "refs/heads/base" {
		t.Fatalf("unexpected refs: %+v", refs)
	}
}

func TestValidID(t *testing.T) {
	id, err := ComputeID(KindBlob, []byte("x"))
	if err != nil {
		t.Fatalf("ComputeID: %v", err)
	}
	for _, tc := range []struct {
		id   string
		want bool
	}{
		{id: id, want: true},
		{id: "", want: false},
		{id: "missing", want: false},
		{id: "not a cid", want: false},
	} {
		if got := validID(tc.id); got != tc.want {
			t.Errorf("validID(%q) = %v, want %v", tc.id, got, tc.want)
		}
	}
}
