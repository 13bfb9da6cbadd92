package storage

import (
	"context"

	"github.com/onexay/revwalk/internal/types"
)

// ObjectReader provides content-addressed lookup of history objects.
type ObjectReader interface {
	GetCommit(ctx context.Context, id string) (types.Commit, error)
	GetTree(ctx context.Context, id string) (types.Tree, error)
	GetBlob(ctx context.Context, id string) ([]byte, error)
}

// RefReader resolves symbolic names to commit identifiers.
type RefReader interface {
	GetRef(ctx context.Context, name string) (types.Ref, error)
	ListRefs(ctx context.Context) ([]types.Ref, error)
}

// Repository is a readable object database with refs.
type Repository interface {
	ObjectReader
	RefReader
	Close() error
}

// Writer stores new objects. Puts are idempotent and return the content identifier.
type Writer interface {
	PutCommit(ctx context.Context, commit types.Commit) (string, error)
	PutTree(ctx context.Context, tree types.Tree) (string, error)
	PutBlob(ctx context.Context, data []byte) (string, error)
	SetRef(ctx context.Context, name, target string) error
}

// Store is a writable Repository.
type Store interface {
	Repository
	Writer
}

// NotFoundError signals missing records.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " " + e.Key + " not found"
}

// ConflictError signals an update that would move existing state elsewhere,
// such as repointing a ref.
type ConflictError struct {
	Resource string
	Key      string
}

func (e *ConflictError) Error() string {
	return e.Resource + " " + e.Key + " already points elsewhere"
}

// ValidationError represents invalid input supplied by clients.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
