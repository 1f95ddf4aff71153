package wizard

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"cpq-console/internal/common/database"
	"cpq-console/internal/common/errors"
)

// DraftStore persists the unsubmitted form. Load returns nil without an
// error when there is no draft.
type DraftStore interface {
	Load(ctx context.Context) (*FormState, error)
	Save(ctx context.Context, f FormState) error
	Clear(ctx context.Context) error
}

// RedisDraftStore keeps one draft as JSON under a fixed key.
type RedisDraftStore struct {
	kv  *database.RedisClient
	key string
	ttl time.Duration
}

// NewRedisDraftStore stores the draft under "<key>:<owner>". A zero ttl
// keeps the draft until it is cleared.
func NewRedisDraftStore(kv *database.RedisClient, key, owner string, ttl time.Duration) *RedisDraftStore {
	if owner != "" {
		key = key + ":" + owner
	}
	return &RedisDraftStore{kv: kv, key: key, ttl: ttl}
}

func (s *RedisDraftStore) Key() string { return s.key }

func (s *RedisDraftStore) Load(ctx context.Context) (*FormState, error) {
	var f FormState
	err := s.kv.GetJSON(ctx, s.key, &f)
	if stderrors.Is(err, database.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewDraftStoreFailedError("load", err)
	}
	return &f, nil
}

func (s *RedisDraftStore) Save(ctx context.Context, f FormState) error {
	if err := s.kv.SetJSON(ctx, s.key, f, s.ttl); err != nil {
		return errors.NewDraftStoreFailedError("save", err)
	}
	return nil
}

func (s *RedisDraftStore) Clear(ctx context.Context) error {
	if err := s.kv.Del(ctx, s.key); err != nil {
		return errors.NewDraftStoreFailedError("clear", err)
	}
	return nil
}

// GateDraftStore returns store unchanged outside edit mode. In edit mode
// every call is a no-op so a stale new-record draft never touches an edit
// session.
func GateDraftStore(editMode bool, store DraftStore) DraftStore {
	if editMode || store == nil {
		return noopDraftStore{}
	}
	return store
}

type noopDraftStore struct{}

func (noopDraftStore) Load(context.Context) (*FormState, error) { return nil, nil }
func (noopDraftStore) Save(context.Context, FormState) error    { return nil }
func (noopDraftStore) Clear(context.Context) error              { return nil }

// MemoryDraftStore keeps the draft in process. Sessions of the same owner
// may share one.
type MemoryDraftStore struct {
	mu    sync.Mutex
	draft *FormState
}

func (m *MemoryDraftStore) Load(context.Context) (*FormState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.draft == nil {
		return nil, nil
	}
	f := m.draft.Clone()
	return &f, nil
}

func (m *MemoryDraftStore) Save(_ context.Context, f FormState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := f.Clone()
	m.draft = &c
	return nil
}

func (m *MemoryDraftStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.draft = nil
	return nil
}
