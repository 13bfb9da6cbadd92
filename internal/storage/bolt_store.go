package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	bolt "go.etcd.io/bbolt"

	"github.com/onexay/revwalk/internal/types"
)

var (
	boltCommitsBucket = []byte("commits")
	boltTreesBucket   = []byte("trees")
	boltBlobsBucket   = []byte("blobs")
	boltRefsBucket    = []byte("refs")
)

// BoltStore keeps objects and refs inside a single BoltDB file.
type BoltStore struct {
	db   *bolt.DB
	once sync.Once
}

// OpenBoltStore opens (or creates) a BoltDB object database at the provided path.
func OpenBoltStore(path string) (*BoltStore, error) {
	if path == "" {
		return nil, errors.New("bolt store path is required")
	}

	cleaned := filepath.Clean(path)
	if dir := filepath.Dir(cleaned); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := bolt.Open(cleaned, 0o600, nil)
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{boltCommitsBucket, boltTreesBucket, boltBlobsBucket, boltRefsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// PutCommit stores a commit, returning its identifier.
func (b *BoltStore) PutCommit(ctx context.Context, commit types.Commit) (string, error) {
	commit, payload, err := prepareCommit(commit)
	if err != nil {
		return "", err
	}
	return commit.ID, b.put(ctx, boltCommitsBucket, commit.ID, payload)
}

// PutTree stores a tree, returning its identifier.
func (b *BoltStore) PutTree(ctx context.Context, tree types.Tree) (string, error) {
	tree, payload, err := prepareTree(tree)
	if err != nil {
		return "", err
	}
	return tree.ID, b.put(ctx, boltTreesBucket, tree.ID, payload)
}

// PutBlob stores file content, returning its identifier.
func (b *BoltStore) PutBlob(ctx context.Context, data []byte) (string, error) {
	id, err := ComputeID(KindBlob, data)
	if err != nil {
		return "", err
	}
	return id, b.put(ctx, boltBlobsBucket, id, data)
}

func (b *BoltStore) put(ctx context.Context, bucket []byte, id string, payload []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		bkt := tx.Bucket(bucket)
		if bkt == nil {
			return errors.New("bolt bucket " + string(bucket) + " missing")
		}
		if bkt.Get([]byte(id)) != nil {
			return nil
		}
		return bkt.Put([]byte(id), payload)
	})
}

// GetCommit loads a commit by identifier.
func (b *BoltStore) GetCommit(ctx context.Context, id string) (types.Commit, error) {
	payload, err := b.get(ctx, boltCommitsBucket, "commit", id)
	if err != nil {
		return types.Commit{}, err
	}
	return decodeCommit(id, payload)
}

// GetTree loads a tree by identifier.
func (b *BoltStore) GetTree(ctx context.Context, id string) (types.Tree, error) {
	payload, err := b.get(ctx, boltTreesBucket, "tree", id)
	if err != nil {
		return types.Tree{}, err
	}
	return decodeTree(id, payload)
}

// GetBlob loads file content by identifier.
func (b *BoltStore) GetBlob(ctx context.Context, id string) ([]byte, error) {
	return b.get(ctx, boltBlobsBucket, "blob", id)
}

func (b *BoltStore) get(ctx context.Context, bucket []byte, resource, id string) ([]byte, error) {
	if !validID(id) {
		return nil, &NotFoundError{Resource: resource, Key: id}
	}
	var result []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		bkt := tx.Bucket(bucket)
		if bkt == nil {
			return &NotFoundError{Resource: resource, Key: id}
		}
		data := bkt.Get([]byte(id))
		if data == nil {
			return &NotFoundError{Resource: resource, Key: id}
		}
		// bolt memory is only valid inside the transaction
		result = append([]byte{}, data...)
		return nil
	})
	return result, err
}

// SetRef points name at an existing commit.
func (b *BoltStore) SetRef(ctx context.Context, name, target string) error {
	if name == "" || target == "" {
		return &ValidationError{Message: "ref name and target are required"}
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(boltCommitsBucket).Get([]byte(target)) == nil {
			return &NotFoundError{Resource: "commit", Key: target}
		}
		return tx.Bucket(boltRefsBucket).Put([]byte(name), []byte(target))
	})
}

// GetRef resolves a ref by name.
func (b *BoltStore) GetRef(ctx context.Context, name string) (types.Ref, error) {
	target, err := b.get(ctx, boltRefsBucket, "ref", name)
	if err != nil {
		return types.Ref{}, err
	}
	return types.Ref{Name: name, Target: string(target)}, nil
}

// ListRefs returns all refs ordered by name.
func (b *BoltStore) ListRefs(ctx context.Context) ([]types.Ref, error) {
	var result []types.Ref
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(boltRefsBucket).ForEach(func(k, v []byte) error {
			result = append(result, types.Ref{Name: string(k), Target: string(v)})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	// bolt iterates keys in byte order
	if result == nil {
		result = []types.Ref{}
	}
	return result, nil
}

// Close shuts down the Bolt DB.
func (b *BoltStore) Close() error {
	var err error
	b.once.Do(func() {
		err = b.db.Close()
	})
	return err
}
