// Package docstore implements backend.DocumentStore on the local SQLite
// store. Writes publish a change signal on the bus; live queries re-run on
// every signal and deliver the full snapshot.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/matheus3301/apurimac/internal/backend"
	"github.com/matheus3301/apurimac/internal/bus"
	"github.com/matheus3301/apurimac/internal/store"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"
)

// Store is a document store over store.DB.
type Store struct {
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
}

var _ backend.DocumentStore = (*Store)(nil)

// New creates a document store.
func New(db *store.DB, b *bus.Bus, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, bus: b, logger: logger}
}

// NewID returns a fresh document id.
func (s *Store) NewID() string {
	return uuid.NewString()
}

// Query returns the documents of collection matching f in insertion order.
func (s *Store) Query(ctx context.Context, collection string, f backend.Filter) (backend.Snapshot, error) {
	docs, err := s.db.ListDocuments(ctx, collection)
	if err != nil {
		return backend.Snapshot{}, fmt.Errorf("query %s: %w", collection, err)
	}
	snap := backend.Snapshot{Docs: make([]backend.Document, 0, len(docs))}
	for _, d := range docs {
		if backend.Matches(f, d.Data) {
			snap.Docs = append(snap.Docs, backend.Document{ID: d.ID, Seq: d.Seq, Data: d.Data})
		}
	}
	return snap, nil
}

// Get returns one document and whether it exists.
func (s *Store) Get(ctx context.Context, collection, id string) (backend.Document, bool, error) {
	d, err := s.db.GetDocument(ctx, collection, id)
	if err != nil {
		return backend.Document{}, false, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	if d == nil {
		return backend.Document{}, false, nil
	}
	return backend.Document{ID: d.ID, Seq: d.Seq, Data: d.Data}, true, nil
}

// Set creates or replaces a document with the JSON encoding of v.
func (s *Store) Set(ctx context.Context, collection, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	if err := s.db.PutDocument(ctx, collection, id, data); err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	s.changed(collection, id)
	return nil
}

// Add stores v under a fresh id and returns the id.
func (s *Store) Add(ctx context.Context, collection string, v any) (string, error) {
	id := s.NewID()
	if err := s.Set(ctx, collection, id, v); err != nil {
		return "", err
	}
	return id, nil
}

// Update writes the given field paths into an existing document. Paths may
// be dotted to reach nested objects. It returns backend.ErrNotFound if the
// document does not exist.
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	// Apply in a stable order so a parent path lands before its children.
	paths := make([]string, 0, len(fields))
	for p := range fields {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	found, err := s.db.ModifyDocument(ctx, collection, id, func(data []byte) ([]byte, error) {
		var err error
		for _, p := range paths {
			data, err = sjson.SetBytes(data, p, fields[p])
			if err != nil {
				return nil, fmt.Errorf("set field %q: %w", p, err)
			}
		}
		return data, nil
	})
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if !found {
		return fmt.Errorf("update %s/%s: %w", collection, id, backend.ErrNotFound)
	}
	s.changed(collection, id)
	return nil
}

func (s *Store) changed(collection, id string) {
	s.bus.Publish(bus.Event{Kind: bus.DocKind(collection), Payload: id})
}

// Subscribe starts a live query. fn receives the initial snapshot and then a
// fresh snapshot after every write to the collection. A failed query is
// reported through fn and ends the subscription.
func (s *Store) Subscribe(ctx context.Context, collection string, f backend.Filter, fn backend.SnapshotFunc) (backend.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	// Buffer of one: bursts of writes collapse into a single re-query.
	ch, unsub := s.bus.Subscribe(bus.DocKind(collection), 1)

	sub := &subscription{cancel: cancel, unsub: unsub, done: make(chan struct{})}

	snap, err := s.Query(ctx, collection, f)
	if err != nil {
		sub.Stop()
		close(sub.done)
		return nil, err
	}

	go func() {
		defer close(sub.done)
		defer sub.Stop()
		if !sub.deliver(ctx, fn, snap, nil) {
			return
		}
		for {
			select {
			case <-ch:
				snap, err := s.Query(ctx, collection, f)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					s.logger.Warn("live query failed", zap.String("collection", collection), zap.Error(err))
					sub.deliver(ctx, fn, backend.Snapshot{}, err)
					return
				}
				if !sub.deliver(ctx, fn, snap, nil) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	s.logger.Debug("live query started", zap.String("collection", collection), zap.Stringer("filter", filterString{f}))
	return sub, nil
}

type subscription struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	unsub  func()
	done   chan struct{} // closed once the delivery goroutine exited
}

// deliver invokes fn unless the subscription was stopped. It reports whether
// the subscription is still live.
func (s *subscription) deliver(ctx context.Context, fn backend.SnapshotFunc, snap backend.Snapshot, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	fn(snap, err)
	return true
}

// Stop detaches the live query. It is safe to call more than once and from
// inside the callback.
func (s *subscription) Stop() {
	s.cancel()
	s.unsub()
}

type filterString struct{ f backend.Filter }

func (f filterString) String() string {
	if f.f == nil {
		return "*"
	}
	return f.f.String()
}
