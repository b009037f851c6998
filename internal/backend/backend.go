// Package backend declares the hosted services the view-model talks to:
// authentication, a document store and a blob store.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
)

// Collection names.
const (
	Users    = "users"
	Chats    = "chats"
	Statuses = "statuses"
)

// Messages returns the message collection path of a chat.
func Messages(chatID string) string {
	return Chats + "/" + chatID + "/messages"
}

var (
	// ErrNotFound is returned by Update when the document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrNotSignedIn is returned by operations that need an identity.
	ErrNotSignedIn = errors.New("not signed in")
)

// Identity is an authenticated account.
type Identity struct {
	UserID string
	Email  string
}

// Auth manages accounts and the local sign-in session.
type Auth interface {
	SignUp(ctx context.Context, email, password string) (Identity, error)
	SignIn(ctx context.Context, email, password string) (Identity, error)
	SignOut(ctx context.Context) error
	CurrentIdentity() (Identity, bool)
}

// Document is one stored record. Seq is the insertion order assigned by the
// store.
type Document struct {
	ID   string
	Seq  int64
	Data json.RawMessage
}

// Decode unmarshals the document body into v.
func (d Document) Decode(v any) error {
	return json.Unmarshal(d.Data, v)
}

// Snapshot is the full result of a query at one point in time, in insertion
// order.
type Snapshot struct {
	Docs []Document
}

// Empty reports whether the snapshot holds no documents.
func (s Snapshot) Empty() bool { return len(s.Docs) == 0 }

// DecodeAll decodes every document with decode, skipping documents that fail
// to decode.
func DecodeAll[T any](s Snapshot, decode func(Document) (T, error)) []T {
	out := make([]T, 0, len(s.Docs))
	for _, d := range s.Docs {
		v, err := decode(d)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Subscription is a live query. Stop detaches it; no callback starts after
// Stop returns, though one already running may finish.
type Subscription interface {
	Stop()
}

// SnapshotFunc receives every snapshot of a live query, or the error that
// ended it.
type SnapshotFunc func(Snapshot, error)

// DocumentStore is a collection-scoped document database.
type DocumentStore interface {
	Query(ctx context.Context, collection string, f Filter) (Snapshot, error)
	Get(ctx context.Context, collection, id string) (Document, bool, error)
	Set(ctx context.Context, collection, id string, v any) error
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Add(ctx context.Context, collection string, v any) (string, error)
	NewID() string
	Subscribe(ctx context.Context, collection string, f Filter, fn SnapshotFunc) (Subscription, error)
}

//go:generate mockgen -destination=mock/blob_mock.go -package=mock . BlobStore

// BlobStore stores binary objects and resolves retrievable addresses.
type BlobStore interface {
	// Put returns after the object is fully written.
	Put(ctx context.Context, key string, r io.Reader) error
	ResolveAddress(ctx context.Context, key string) (string, error)
}
