package viewmodel

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/matheus3301/apurimac/internal/auth"
	"github.com/matheus3301/apurimac/internal/backend"
	"github.com/matheus3301/apurimac/internal/backend/mock"
	"github.com/matheus3301/apurimac/internal/bus"
	"github.com/matheus3301/apurimac/internal/docstore"
	"github.com/matheus3301/apurimac/internal/store"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

// env is one shared backend that several clients can talk to.
type env struct {
	db   *store.DB
	bus  *bus.Bus
	docs *docstore.Store
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	_, err = db.Migrate()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	b := bus.New()
	return &env{db: db, bus: b, docs: docstore.New(db, b, zap.NewNop())}
}

func (e *env) count(t *testing.T, collection string) int64 {
	t.Helper()
	n, err := e.db.DocumentCount(context.Background(), collection)
	require.NoError(t, err)
	return n
}

type client struct {
	vm    *ViewModel
	docs  *spyDocs
	auth  *spyAuth
	blobs *mock.MockBlobStore
}

func (e *env) client(t *testing.T, opts Options) *client {
	t.Helper()
	svc, err := auth.New(e.db, auth.Options{Secret: "test-secret"}, zap.NewNop())
	require.NoError(t, err)
	return e.clientWith(t, svc, opts)
}

func (e *env) clientWith(t *testing.T, a backend.Auth, opts Options) *client {
	t.Helper()
	c := &client{
		docs:  &spyDocs{DocumentStore: e.docs},
		auth:  &spyAuth{Auth: a},
		blobs: mock.NewMockBlobStore(gomock.NewController(t)),
	}
	logger, _ := zap.NewDevelopment()
	c.vm = New(c.auth, c.docs, c.blobs, e.bus, logger, opts)
	t.Cleanup(c.vm.Close)
	return c
}

func signUp(t *testing.T, c *client, name, phone string) {
	t.Helper()
	require.NoError(t, c.vm.SignUp(context.Background(), name, phone, name+"@x.com", "secret"))
}

// spyDocs counts backend calls and can fail, hold or leak them.
type spyDocs struct {
	backend.DocumentStore
	calls atomic.Int64

	// Hooks for writes to message collections.
	sendErr   error         // returned instead of writing
	sendGate  chan struct{} // waited for before writing
	afterSend func()        // runs once the write is visible

	leak bool // Subscribe hands out subscriptions that never stop

	mu     sync.Mutex
	leaked []backend.SnapshotFunc
}

func (s *spyDocs) Query(ctx context.Context, collection string, f backend.Filter) (backend.Snapshot, error) {
	s.calls.Add(1)
	return s.DocumentStore.Query(ctx, collection, f)
}

func (s *spyDocs) Get(ctx context.Context, collection, id string) (backend.Document, bool, error) {
	s.calls.Add(1)
	return s.DocumentStore.Get(ctx, collection, id)
}

func (s *spyDocs) Set(ctx context.Context, collection, id string, v any) error {
	s.calls.Add(1)
	if !isMessages(collection) {
		return s.DocumentStore.Set(ctx, collection, id, v)
	}
	if s.sendGate != nil {
		<-s.sendGate
	}
	if s.sendErr != nil {
		return s.sendErr
	}
	if err := s.DocumentStore.Set(ctx, collection, id, v); err != nil {
		return err
	}
	if s.afterSend != nil {
		s.afterSend()
	}
	return nil
}

func (s *spyDocs) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	s.calls.Add(1)
	return s.DocumentStore.Update(ctx, collection, id, fields)
}

func (s *spyDocs) Add(ctx context.Context, collection string, v any) (string, error) {
	s.calls.Add(1)
	return s.DocumentStore.Add(ctx, collection, v)
}

func (s *spyDocs) Subscribe(ctx context.Context, collection string, f backend.Filter, fn backend.SnapshotFunc) (backend.Subscription, error) {
	s.calls.Add(1)
	if s.leak {
		s.mu.Lock()
		s.leaked = append(s.leaked, fn)
		s.mu.Unlock()
		return nopSubscription{}, nil
	}
	return s.DocumentStore.Subscribe(ctx, collection, f, fn)
}

func (s *spyDocs) leakedFunc(i int) backend.SnapshotFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leaked[i]
}

type nopSubscription struct{}

func (nopSubscription) Stop() {}

func isMessages(collection string) bool {
	return strings.HasSuffix(collection, "/messages")
}

type spyAuth struct {
	backend.Auth
	calls atomic.Int64
}

func (s *spyAuth) SignUp(ctx context.Context, email, password string) (backend.Identity, error) {
	s.calls.Add(1)
	return s.Auth.SignUp(ctx, email, password)
}

func (s *spyAuth) SignIn(ctx context.Context, email, password string) (backend.Identity, error) {
	s.calls.Add(1)
	return s.Auth.SignIn(ctx, email, password)
}

func (s *spyAuth) SignOut(ctx context.Context) error {
	s.calls.Add(1)
	return s.Auth.SignOut(ctx)
}
