package walk

import (
	"context"
	"errors"

	"github.com/onexay/revwalk/internal/storage"
	"github.com/onexay/revwalk/internal/types"
)

var (
	// ErrUnknownOrder is returned by New for any order other than OrderDate.
	ErrUnknownOrder = errors.New("unknown walk order")
	// ErrStop may be returned from a ForEach callback to end the walk early.
	ErrStop = errors.New("stop walk")
)

// MissingCommitError reports a commit that is referenced but cannot be found.
type MissingCommitError struct {
	ID  string
	Err error
}

func (e *MissingCommitError) Error() string {
	return "missing commit " + e.ID
}

func (e *MissingCommitError) Unwrap() error {
	return e.Err
}

func lookupCommit(ctx context.Context, r storage.ObjectReader, id string) (types.Commit, error) {
	commit, err := r.GetCommit(ctx, id)
	if err != nil {
		var notFound *storage.NotFoundError
		if errors.As(err, &notFound) {
			return types.Commit{}, &MissingCommitError{ID: id, Err: err}
		}
		return types.Commit{}, err
	}
	if commit.ID == "" {
		commit.ID = id
	}
	return commit, nil
}
