package docstore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/apurimac/internal/backend"
	"github.com/matheus3301/apurimac/internal/bus"
	"github.com/matheus3301/apurimac/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	_, err = db.Migrate()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, bus.New(), zap.NewNop())
}

type user struct {
	UserID string  `json:"userId"`
	Name   *string `json:"name"`
	Phone  string  `json:"phoneNumber"`
}

func ptr(s string) *string { return &s }

// recorder collects snapshots delivered to a live query.
type recorder struct {
	mu    sync.Mutex
	snaps []backend.Snapshot
	errs  []error
}

func (r *recorder) fn(s backend.Snapshot, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.errs = append(r.errs, err)
		return
	}
	r.snaps = append(r.snaps, s)
}

func (r *recorder) last() (backend.Snapshot, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snaps) == 0 {
		return backend.Snapshot{}, 0
	}
	return r.snaps[len(r.snaps)-1], len(r.snaps)
}

func TestSetGetQuery(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, backend.Users, "u1", user{UserID: "u1", Name: ptr("Nadia"), Phone: "5550001"}))
	require.NoError(t, s.Set(ctx, backend.Users, "u2", user{UserID: "u2", Phone: "5550002"}))

	doc, ok, err := s.Get(ctx, backend.Users, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	var u user
	require.NoError(t, doc.Decode(&u))
	assert.Equal(t, "Nadia", *u.Name)

	_, ok, err = s.Get(ctx, backend.Users, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	snap, err := s.Query(ctx, backend.Users, backend.Eq("phoneNumber", "5550002"))
	require.NoError(t, err)
	require.Len(t, snap.Docs, 1)
	assert.Equal(t, "u2", snap.Docs[0].ID)

	all, err := s.Query(ctx, backend.Users, nil)
	require.NoError(t, err)
	assert.Len(t, all.Docs, 2)
}

func TestUpdateMergesFields(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, backend.Users, "u1", user{UserID: "u1", Name: ptr("Nadia"), Phone: "5550001"}))
	require.NoError(t, s.Update(ctx, backend.Users, "u1", map[string]any{
		"name":           "Nadia K",
		"profile.avatar": "http://x/1",
	}))

	doc, _, err := s.Get(ctx, backend.Users, "u1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"userId":"u1","name":"Nadia K","phoneNumber":"5550001","profile":{"avatar":"http://x/1"}}`, string(doc.Data))
}

func TestUpdateMissingDocument(t *testing.T) {
	s := testStore(t)
	err := s.Update(context.Background(), backend.Users, "ghost", map[string]any{"name": "x"})
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func TestAddKeepsInsertionOrder(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	coll := backend.Messages("c1")

	var ids []string
	for _, text := range []string{"one", "two", "three"} {
		id, err := s.Add(ctx, coll, map[string]string{"text": text})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	snap, err := s.Query(ctx, coll, nil)
	require.NoError(t, err)
	require.Len(t, snap.Docs, 3)
	for i, d := range snap.Docs {
		assert.Equal(t, ids[i], d.ID)
	}
	assert.Less(t, snap.Docs[0].Seq, snap.Docs[2].Seq)
}

func TestSubscribeDeliversInitialAndUpdates(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, backend.Chats, "c1", map[string]any{"participantA": map[string]string{"userId": "u1"}}))

	rec := &recorder{}
	filter := backend.Or(backend.Eq("participantA.userId", "u1"), backend.Eq("participantB.userId", "u1"))
	sub, err := s.Subscribe(ctx, backend.Chats, filter, rec.fn)
	require.NoError(t, err)
	defer sub.Stop()

	require.Eventually(t, func() bool {
		snap, n := rec.last()
		return n >= 1 && len(snap.Docs) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Set(ctx, backend.Chats, "c2", map[string]any{"participantB": map[string]string{"userId": "u1"}}))
	require.NoError(t, s.Set(ctx, backend.Chats, "c3", map[string]any{"participantB": map[string]string{"userId": "u9"}}))

	require.Eventually(t, func() bool {
		snap, _ := rec.last()
		return len(snap.Docs) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSubscribeIgnoresSubCollections(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rec := &recorder{}
	sub, err := s.Subscribe(ctx, backend.Chats, nil, rec.fn)
	require.NoError(t, err)
	defer sub.Stop()

	require.Eventually(t, func() bool { _, n := rec.last(); return n == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err = s.Add(ctx, backend.Messages("c1"), map[string]string{"text": "hi"})
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	_, n := rec.last()
	assert.Equal(t, 1, n, "message write must not re-run the chat query")
}

func TestStopPreventsFurtherDeliveries(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rec := &recorder{}
	sub, err := s.Subscribe(ctx, backend.Statuses, nil, rec.fn)
	require.NoError(t, err)

	require.Eventually(t, func() bool { _, n := rec.last(); return n == 1 }, 2*time.Second, 10*time.Millisecond)
	sub.Stop()
	sub.Stop()

	_, err = s.Add(ctx, backend.Statuses, map[string]string{"mediaUrl": "x"})
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	_, n := rec.last()
	assert.Equal(t, 1, n)

	select {
	case <-sub.(*subscription).done:
	case <-time.After(time.Second):
		t.Fatal("delivery goroutine did not exit after Stop")
	}
}

func TestSubscribeEndsWithContext(t *testing.T) {
	s := testStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	rec := &recorder{}
	sub, err := s.Subscribe(ctx, backend.Users, nil, rec.fn)
	require.NoError(t, err)
	cancel()

	select {
	case <-sub.(*subscription).done:
	case <-time.After(time.Second):
		t.Fatal("subscription outlived its context")
	}
}
