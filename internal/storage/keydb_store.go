package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/onexay/revwalk/internal/types"
)

const refsKey = "refs"

type keydbStore struct {
	client *redis.Client
}

// Config defines KeyDB connection settings.
type Config struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database int    `mapstructure:"database"`
}

// NewKeyDBStore initializes a Store backed by KeyDB.
func NewKeyDBStore(cfg Config) (Store, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.Database,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to keydb: %w", err)
	}

	return &keydbStore{client: client}, nil
}

func (s *keydbStore) PutCommit(ctx context.Context, commit types.Commit) (string, error) {
	commit, payload, err := prepareCommit(commit)
	if err != nil {
		return "", err
	}
	if err := s.client.SetNX(ctx, objectKey(KindCommit, commit.ID), payload, 0).Err(); err != nil {
		return "", err
	}
	return commit.ID, nil
}

func (s *keydbStore) PutTree(ctx context.Context, tree types.Tree) (string, error) {
	tree, payload, err := prepareTree(tree)
	if err != nil {
		return "", err
	}
	if err := s.client.SetNX(ctx, objectKey(KindTree, tree.ID), payload, 0).Err(); err != nil {
		return "", err
	}
	return tree.ID, nil
}

func (s *keydbStore) PutBlob(ctx context.Context, data []byte) (string, error) {
	id, err := ComputeID(KindBlob, data)
	if err != nil {
		return "", err
	}
	if err := s.client.SetNX(ctx, objectKey(KindBlob, id), data, 0).Err(); err != nil {
		return "", err
	}
	return id, nil
}

func (s *keydbStore) GetCommit(ctx context.Context, id string) (types.Commit, error) {
	payload, err := s.get(ctx, KindCommit, id)
	if err != nil {
		return types.Commit{}, err
	}
	return decodeCommit(id, payload)
}

func (s *keydbStore) GetTree(ctx context.Context, id string) (types.Tree, error) {
	payload, err := s.get(ctx, KindTree, id)
	if err != nil {
		return types.Tree{}, err
	}
	return decodeTree(id, payload)
}

func (s *keydbStore) GetBlob(ctx context.Context, id string) ([]byte, error) {
	return s.get(ctx, KindBlob, id)
}

func (s *keydbStore) get(ctx context.Context, kind ObjectKind, id string) ([]byte, error) {
	if !validID(id) {
		return nil, &NotFoundError{Resource: string(kind), Key: id}
	}
	data, err := s.client.Get(ctx, objectKey(kind, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, &NotFoundError{Resource: string(kind), Key: id}
		}
		return nil, err
	}
	return data, nil
}

func (s *keydbStore) SetRef(ctx context.Context, name, target string) error {
	if name == "" || target == "" {
		return &ValidationError{Message: "ref name and target are required"}
	}

	exists, err := s.client.Exists(ctx, objectKey(KindCommit, target)).Result()
	if err != nil {
		return err
	}
	if exists != 1 {
		return &NotFoundError{Resource: "commit", Key: target}
	}
	return s.client.HSet(ctx, refsKey, name, target).Err()
}

func (s *keydbStore) GetRef(ctx context.Context, name string) (types.Ref, error) {
	target, err := s.client.HGet(ctx, refsKey, name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return types.Ref{}, &NotFoundError{Resource: "ref", Key: name}
		}
		return types.Ref{}, err
	}
	return types.Ref{Name: name, Target: target}, nil
}

func (s *keydbStore) ListRefs(ctx context.Context) ([]types.Ref, error) {
	all, err := s.client.HGetAll(ctx, refsKey).Result()
	if err != nil {
		return nil, err
	}
	result := make([]types.Ref, 0, len(all))
	for name, target := range all {
		result = append(result, types.Ref{Name: name, Target: target})
	}
	slices.SortFunc(result, func(a, b types.Ref) int {
		return strings.Compare(a.Name, b.Name)
	})
	return result, nil
}

func (s *keydbStore) Close() error {
	return s.client.Close()
}

func objectKey(kind ObjectKind, id string) string {
	return fmt.Sprintf("%s:%s", kind, id)
}
