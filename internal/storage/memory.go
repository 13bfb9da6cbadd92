package storage

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/onexay/revwalk/internal/types"
)

// memoryStore provides an in-memory object database for development and testing.
type memoryStore struct {
	mu      sync.RWMutex
	commits map[string]types.Commit
	trees   map[string]types.Tree
	blobs   map[string][]byte
	refs    map[string]string
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() Store {
	return &memoryStore{
		commits: make(map[string]types.Commit),
		trees:   make(map[string]types.Tree),
		blobs:   make(map[string][]byte),
		refs:    make(map[string]string),
	}
}

func (m *memoryStore) PutCommit(ctx context.Context, commit types.Commit) (string, error) {
	commit, _, err := prepareCommit(commit)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.commits[commit.ID]; !ok {
		m.commits[commit.ID] = commit
	}
	return commit.ID, nil
}

func (m *memoryStore) PutTree(ctx context.Context, tree types.Tree) (string, error) {
	tree, _, err := prepareTree(tree)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trees[tree.ID]; !ok {
		m.trees[tree.ID] = tree
	}
	return tree.ID, nil
}

func (m *memoryStore) PutBlob(ctx context.Context, data []byte) (string, error) {
	id, err := ComputeID(KindBlob, data)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[id]; !ok {
		m.blobs[id] = slices.Clone(data)
	}
	return id, nil
}

func (m *memoryStore) GetCommit(ctx context.Context, id string) (types.Commit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	commit, ok := m.commits[id]
	if !ok {
		return types.Commit{}, &NotFoundError{Resource: "commit", Key: id}
	}
	commit.Parents = slices.Clone(commit.Parents)
	return commit, nil
}

func (m *memoryStore) GetTree(ctx context.Context, id string) (types.Tree, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tree, ok := m.trees[id]
	if !ok {
		return types.Tree{}, &NotFoundError{Resource: "tree", Key: id}
	}
	tree.Entries = slices.Clone(tree.Entries)
	return tree, nil
}

func (m *memoryStore) GetBlob(ctx context.Context, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[id]
	if !ok {
		return nil, &NotFoundError{Resource: "blob", Key: id}
	}
	return slices.Clone(data), nil
}

func (m *memoryStore) SetRef(ctx context.Context, name, target string) error {
	if name == "" || target == "" {
		return &ValidationError{Message: "ref name and target are required"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.commits[target]; !ok {
		return &NotFoundError{Resource: "commit", Key: target}
	}
	m.refs[name] = target
	return nil
}

func (m *memoryStore) GetRef(ctx context.Context, name string) (types.Ref, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	target, ok := m.refs[name]
	if !ok {
		return types.Ref{}, &NotFoundError{Resource: "ref", Key: name}
	}
	return types.Ref{Name: name, Target: target}, nil
}

func (m *memoryStore) ListRefs(ctx context.Context) ([]types.Ref, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]types.Ref, 0, len(m.refs))
	for name, target := range m.refs {
		result = append(result, types.Ref{Name: name, Target: target})
	}
	slices.SortFunc(result, func(a, b types.Ref) int {
		return strings.Compare(a.Name, b.Name)
	})
	return result, nil
}

func (m *memoryStore) Close() error { return nil }
