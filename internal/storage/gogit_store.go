package storage

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/onexay/revwalk/internal/types"
)

// gitRepository exposes an on-disk or in-memory git repository read-only.
// Identifiers are hex SHA-1 object names.
type gitRepository struct {
	repo *git.Repository
}

// OpenGitRepository opens the git repository containing path.
func OpenGitRepository(path string) (Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open git repository %s: %w", path, err)
	}
	return NewGitRepository(repo), nil
}

// NewGitRepository wraps an already opened go-git repository.
func NewGitRepository(repo *git.Repository) Repository {
	return &gitRepository{repo: repo}
}

func (g *gitRepository) GetCommit(ctx context.Context, id string) (types.Commit, error) {
	hash, ok := parseHash(id)
	if !ok {
		return types.Commit{}, &NotFoundError{Resource: "commit", Key: id}
	}
	c, err := g.repo.CommitObject(hash)
	if err != nil {
		return types.Commit{}, translateGitError(err, "commit", id)
	}
	return convertCommit(c), nil
}

func (g *gitRepository) GetTree(ctx context.Context, id string) (types.Tree, error) {
	hash, ok := parseHash(id)
	if !ok {
		return types.Tree{}, &NotFoundError{Resource: "tree", Key: id}
	}
	t, err := g.repo.TreeObject(hash)
	if err != nil {
		return types.Tree{}, translateGitError(err, "tree", id)
	}

	tree := types.Tree{ID: t.Hash.String(), Entries: make([]types.TreeEntry, 0, len(t.Entries))}
	for _, e := range t.Entries {
		tree.Entries = append(tree.Entries, types.TreeEntry{
			Name: e.Name,
			Mode: uint32(e.Mode),
			ID:   e.Hash.String(),
		})
	}
	return tree, nil
}

func (g *gitRepository) GetBlob(ctx context.Context, id string) ([]byte, error) {
	hash, ok := parseHash(id)
	if !ok {
		return nil, &NotFoundError{Resource: "blob", Key: id}
	}
	b, err := g.repo.BlobObject(hash)
	if err != nil {
		return nil, translateGitError(err, "blob", id)
	}
	rd, err := b.Reader()
	if err != nil {
		return nil, err
	}
	defer rd.Close()
	return io.ReadAll(rd)
}

// GetRef accepts full ref names as well as short branch and tag names.
// Annotated tags are peeled to the commit they point at.
func (g *gitRepository) GetRef(ctx context.Context, name string) (types.Ref, error) {
	candidates := []string{name, "refs/heads/" + name, "refs/tags/" + name}
	for _, candidate := range candidates {
		ref, err := g.repo.Reference(plumbing.ReferenceName(candidate), true)
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			continue
		}
		if err != nil {
			return types.Ref{}, err
		}
		return types.Ref{Name: candidate, Target: g.peel(ref.Hash()).String()}, nil
	}
	return types.Ref{}, &NotFoundError{Resource: "ref", Key: name}
}

func (g *gitRepository) ListRefs(ctx context.Context) ([]types.Ref, error) {
	iter, err := g.repo.References()
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	result := []types.Ref{}
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		result = append(result, types.Ref{Name: ref.Name().String(), Target: g.peel(ref.Hash()).String()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(result, func(a, b types.Ref) int {
		return strings.Compare(a.Name, b.Name)
	})
	return result, nil
}

func (g *gitRepository) Close() error { return nil }

func (g *gitRepository) peel(hash plumbing.Hash) plumbing.Hash {
	tag, err := g.repo.TagObject(hash)
	if err != nil {
		return hash
	}
	c, err := tag.Commit()
	if err != nil {
		return hash
	}
	return c.Hash
}

func convertCommit(c *object.Commit) types.Commit {
	parents := make([]string, 0, len(c.ParentHashes))
	for _, p := range c.ParentHashes {
		parents = append(parents, p.String())
	}
	return types.Commit{
		ID:         c.Hash.String(),
		Tree:       c.TreeHash.String(),
		Parents:    parents,
		CommitTime: c.Committer.When.Unix(),
		Author:     c.Author.Name,
		Message:    c.Message,
	}
}

func parseHash(id string) (plumbing.Hash, bool) {
	if len(id) != 40 {
		return plumbing.ZeroHash, false
	}
	if _, err := hex.DecodeString(id); err != nil {
		return plumbing.ZeroHash, false
	}
	return plumbing.NewHash(id), true
}

func translateGitError(err error, resource, id string) error {
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return &NotFoundError{Resource: resource, Key: id}
	}
	return fmt.Errorf("read %s %s: %w", resource, id, err)
}
