package storage

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	gocid "github.com/ipfs/go-cid"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multihash"

	"github.com/onexay/revwalk/internal/types"
)

// ObjectKind distinguishes the object namespaces hashed into identifiers.
type ObjectKind string

const (
	KindCommit ObjectKind = "commit"
	KindTree   ObjectKind = "tree"
	KindBlob   ObjectKind = "blob"
)

// ComputeID returns the base32 CIDv1 (raw codec, SHA2-256) of a typed payload.
// The kind and length are hashed as a header so equal payloads of different
// kinds never share an identifier.
func ComputeID(kind ObjectKind, payload []byte) (string, error) {
	data := make([]byte, 0, len(payload)+32)
	data = fmt.Appendf(data, "%s %d\x00", kind, len(payload))
	data = append(data, payload...)

	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("multihash: %w", err)
	}
	c := gocid.NewCidV1(gocid.Raw, mh)
	encoded, err := multibase.Encode(multibase.Base32, c.Bytes())
	if err != nil {
		return "", fmt.Errorf("encode cid: %w", err)
	}
	return encoded, nil
}

// validID reports whether id decodes as a CID produced by ComputeID.
func validID(id string) bool {
	if id == "" {
		return false
	}
	_, err := gocid.Decode(id)
	return err == nil
}

// prepareCommit validates a commit and returns it with its identifier set,
// together with the canonical payload to persist.
func prepareCommit(commit types.Commit) (types.Commit, []byte, error) {
	if commit.Tree == "" {
		return types.Commit{}, nil, &ValidationError{Message: "commit tree is required"}
	}
	for _, p := range commit.Parents {
		if p == "" {
			return types.Commit{}, nil, &ValidationError{Message: "commit parent must not be empty"}
		}
	}
	commit.ID = ""
	commit.Parents = slices.Clone(commit.Parents)

	payload, err := json.Marshal(commit)
	if err != nil {
		return types.Commit{}, nil, err
	}
	id, err := ComputeID(KindCommit, payload)
	if err != nil {
		return types.Commit{}, nil, err
	}
	commit.ID = id
	return commit, payload, nil
}

// prepareTree validates and canonicalises a tree (entries sorted by name).
func prepareTree(tree types.Tree) (types.Tree, []byte, error) {
	entries := slices.Clone(tree.Entries)
	slices.SortFunc(entries, func(a, b types.TreeEntry) int {
		return strings.Compare(a.Name, b.Name)
	})
	for i, e := range entries {
		if e.Name == "" || strings.Contains(e.Name, "/") {
			return types.Tree{}, nil, &ValidationError{Message: fmt.Sprintf("invalid tree entry name %q", e.Name)}
		}
		if e.ID == "" {
			return types.Tree{}, nil, &ValidationError{Message: fmt.Sprintf("tree entry %q has no object id", e.Name)}
		}
		if i > 0 && entries[i-1].Name == e.Name {
			return types.Tree{}, nil, &ValidationError{Message: fmt.Sprintf("duplicate tree entry %q", e.Name)}
		}
	}
	if entries == nil {
		entries = []types.TreeEntry{}
	}

	tree = types.Tree{Entries: entries}
	payload, err := json.Marshal(tree)
	if err != nil {
		return types.Tree{}, nil, err
	}
	id, err := ComputeID(KindTree, payload)
	if err != nil {
		return types.Tree{}, nil, err
	}
	tree.ID = id
	return tree, payload, nil
}

func decodeCommit(id string, payload []byte) (types.Commit, error) {
	var commit types.Commit
	if err := json.Unmarshal(payload, &commit); err != nil {
		return types.Commit{}, fmt.Errorf("decode commit %s: %w", id, err)
	}
	commit.ID = id
	return commit, nil
}

func decodeTree(id string, payload []byte) (types.Tree, error) {
	var tree types.Tree
	if err := json.Unmarshal(payload, &tree); err != nil {
		return types.Tree{}, fmt.Errorf("decode tree %s: %w", id, err)
	}
	tree.ID = id
	return tree, nil
}
