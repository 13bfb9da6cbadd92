package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/onexay/revwalk/internal/config"
	"github.com/onexay/revwalk/internal/diff"
	"github.com/onexay/revwalk/internal/fixture"
	"github.com/onexay/revwalk/internal/storage"
	"github.com/onexay/revwalk/internal/types"
	"github.com/onexay/revwalk/internal/walk"
)

// maxImportBytes bounds the size of an imported graph description.
const maxImportBytes = 8 << 20

// Service exposes commit history of a repository over HTTP.
type Service struct {
	repo storage.Repository
	walk config.WalkConfig
}

// New constructs the service wiring.
func New(repo storage.Repository, walkCfg config.WalkConfig) *Service {
	return &Service{repo: repo, walk: walkCfg}
}

// OpenStore opens the backend selected by cfg.
func OpenStore(cfg config.StorageConfig) (storage.Repository, error) {
	switch cfg.Backend {
	case config.StorageBackendKeyDB:
		return storage.NewKeyDBStore(cfg.KeyDB)
	case config.StorageBackendBolt:
		store, err := storage.OpenBoltStore(cfg.Bolt.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageBackendGit:
		return storage.OpenGitRepository(cfg.Git.Path)
	case config.StorageBackendMemory, "":
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Close releases the underlying repository.
func (s *Service) Close() error {
	return s.repo.Close()
}

// ResolveRevision maps a ref name or commit identifier to a commit identifier.
// Names that are not refs are returned unchanged.
func ResolveRevision(ctx context.Context, repo storage.RefReader, rev string) (string, error) {
	ref, err := repo.GetRef(ctx, rev)
	if err == nil {
		return ref.Target, nil
	}
	var notFound *storage.NotFoundError
	if errors.As(err, &notFound) {
		return rev, nil
	}
	return "", err
}

// NewRenameDetector builds a rename detector from the walk settings.
func NewRenameDetector(repo storage.ObjectReader, cfg config.WalkConfig) *diff.RenameDetector {
	rd := diff.NewRenameDetector(repo)
	if cfg.RenameThreshold > 0 {
		rd.RenameThreshold = cfg.RenameThreshold
	}
	rd.FindCopiesHarder = cfg.FindCopiesHarder
	return rd
}

// Handler builds the REST routes for the service.
func Handler(svc *Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/v1")
		if path == "" || path == "/" {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown endpoint"})
			return
		}

		switch {
		case path == "/log":
			svc.handleLog(w, r)
		case strings.HasPrefix(path, "/commits/"):
			svc.handleCommits(w, r, strings.TrimPrefix(path, "/commits/"))
		case path == "/refs":
			svc.handleRefs(w, r)
		case path == "/import":
			svc.handleImport(w, r)
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown resource"})
		}
	})
}

type commitResponse struct {
	ID            string          `json:"id"`
	Tree          string          `json:"tree"`
	Parents       []string        `json:"parents"`
	CommitTime    int64           `json:"commit_time"`
	Author        string          `json:"author,omitempty"`
	Message       string          `json:"message"`
	Changes       []diff.Change   `json:"changes,omitempty"`
	ParentChanges [][]diff.Change `json:"parent_changes,omitempty"`
}

type logResponse struct {
	Entries []commitResponse `json:"entries"`
	Paths   []string         `json:"paths,omitempty"`
}

func makeCommitResponse(c types.Commit) commitResponse {
	parents := c.Parents
	if parents == nil {
		parents = []string{}
	}
	return commitResponse{
		ID:         c.ID,
		Tree:       c.Tree,
		Parents:    parents,
		CommitTime: c.CommitTime,
		Author:     c.Author,
		Message:    c.Message,
	}
}

func (s *Service) handleLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	ctx := r.Context()
	query := r.URL.Query()

	includeRevs := query["include"]
	if len(includeRevs) == 0 {
		includeRevs = []string{"HEAD"}
	}
	include, err := s.resolveAll(ctx, includeRevs)
	if err != nil {
		writeError(w, err)
		return
	}
	exclude, err := s.resolveAll(ctx, query["exclude"])
	if err != nil {
		writeError(w, err)
		return
	}

	opts := walk.Options{
		Include: include,
		Exclude: exclude,
		Order:   walk.Order(query.Get("order")),
		Paths:   query["path"],
		Follow:  queryBool(query.Get("follow")),
		Reverse: queryBool(query.Get("reverse")),
	}
	if s.walk.MaxEntries > 0 {
		opts.MaxEntries = walk.Limit(s.walk.MaxEntries)
	}
	if raw := query.Get("max"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "max must be a non-negative integer"})
			return
		}
		opts.MaxEntries = walk.Limit(n)
	}
	if opts.Since, err = ParseTime(query.Get("since")); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid since: " + err.Error()})
		return
	}
	if opts.Until, err = ParseTime(query.Get("until")); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid until: " + err.Error()})
		return
	}
	withChanges := queryBool(query.Get("changes"))
	if len(opts.Paths) > 0 || withChanges {
		opts.RenameDetector = NewRenameDetector(s.repo, s.walk)
	}

	walker, err := walk.New(ctx, s.repo, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := logResponse{Entries: []commitResponse{}}
	err = walker.ForEach(ctx, func(e *walk.Entry) error {
		item := makeCommitResponse(e.Commit)
		if withChanges {
			if err := attachChanges(ctx, e, &item); err != nil {
				return err
			}
		}
		resp.Entries = append(resp.Entries, item)
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	resp.Paths = walker.Paths()

	log.Printf("log: include=%d exclude=%d paths=%d entries=%d", len(include), len(exclude), len(opts.Paths), len(resp.Entries))
	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handleCommits(w http.ResponseWriter, r *http.Request, tail string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rev, action := strings.Trim(tail, "/"), ""
	if trimmed, ok := strings.CutSuffix(rev, "/patch"); ok {
		rev, action = trimmed, "patch"
	}
	if rev == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "commit id required"})
		return
	}

	ctx := r.Context()
	id, err := ResolveRevision(ctx, s.repo, rev)
	if err != nil {
		writeError(w, err)
		return
	}
	walker, err := walk.New(ctx, s.repo, walk.Options{
		Include:        []string{id},
		MaxEntries:     walk.Limit(1),
		RenameDetector: NewRenameDetector(s.repo, s.walk),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	entry, err := walker.Next(ctx)
	if err != nil {
		writeError(w, err)
		return
	}

	switch action {
	case "patch":
		patch, err := PatchText(ctx, s.repo, entry)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, patch)
	default:
		item := makeCommitResponse(entry.Commit)
		if err := attachChanges(ctx, entry, &item); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func (s *Service) handleRefs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	refs, err := s.repo.ListRefs(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, refs)
}

func (s *Service) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	writer, ok := s.repo.(storage.Store)
	if !ok {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "repository is read-only"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unable to read request body"})
		return
	}
	graph, err := fixture.Parse(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	ids, err := fixture.Load(r.Context(), writer, graph)
	if err != nil {
		var (
			validation *storage.ValidationError
			conflict   *storage.ConflictError
		)
		if errors.As(err, &validation) || errors.As(err, &conflict) {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	log.Printf("import: %d commits", len(ids))
	writeJSON(w, http.StatusCreated, map[string]any{"commits": ids})
}

// PatchText renders the changes of an entry as a unified diff. Merges are
// shown against their first parent.
func PatchText(ctx context.Context, r storage.ObjectReader, e *walk.Entry) (string, error) {
	changes, err := e.Changes(ctx)
	if err != nil {
		return "", err
	}
	list := changes.Single()
	if changes.IsMerge() {
		list = changes.PerParent()[0]
	}

	var b strings.Builder
	for _, c := range list {
		p, err := diff.Patch(ctx, r, c)
		if err != nil {
			return "", err
		}
		b.WriteString(p)
	}
	return b.String(), nil
}

func attachChanges(ctx context.Context, e *walk.Entry, item *commitResponse) error {
	changes, err := e.Changes(ctx)
	if err != nil {
		return err
	}
	if changes.IsMerge() {
		item.ParentChanges = changes.PerParent()
		return nil
	}
	item.Changes = changes.Single()
	return nil
}

func (s *Service) resolveAll(ctx context.Context, revs []string) ([]string, error) {
	ids := make([]string, 0, len(revs))
	for _, rev := range revs {
		if rev == "" {
			continue
		}
		id, err := ResolveRevision(ctx, s.repo, rev)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ParseTime accepts unix seconds, RFC 3339 timestamps or dates. An empty
// value yields nil.
func ParseTime(raw string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return &n, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			unix := t.Unix()
			return &unix, nil
		}
	}
	return nil, fmt.Errorf("%q is neither unix seconds nor a date", raw)
}

func queryBool(raw string) bool {
	v, err := strconv.ParseBool(raw)
	return err == nil && v
}

func writeError(w http.ResponseWriter, err error) {
	var notFound *storage.NotFoundError
	if errors.As(err, &notFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}

	var conflict *storage.ConflictError
	if errors.As(err, &conflict) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}

	var validation *storage.ValidationError
	if errors.As(err, &validation) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": validation.Error()})
		return
	}

	if errors.Is(err, walk.ErrUnknownOrder) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
