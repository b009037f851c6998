package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PutDocument inserts or replaces a document. Replacing keeps the original
// insertion sequence.
func (db *DB) PutDocument(ctx context.Context, collection, id string, data []byte) error {
	now := time.Now().UnixMilli()
	_, err := db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at`,
		collection, id, string(data), now, now)
	return err
}

// GetDocument returns a document, or nil if it does not exist.
func (db *DB) GetDocument(ctx context.Context, collection, id string) (*Document, error) {
	var (
		d    Document
		data string
	)
	err := db.QueryRowContext(ctx, `
		SELECT seq, collection, id, data, created_at, updated_at
		FROM documents WHERE collection = ? AND id = ?`, collection, id).
		Scan(&d.Seq, &d.Collection, &d.ID, &data, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.Data = []byte(data)
	return &d, nil
}

// ListDocuments returns every document of a collection in insertion order.
func (db *DB) ListDocuments(ctx context.Context, collection string) ([]Document, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT seq, collection, id, data, created_at, updated_at
		FROM documents
		WHERE collection = ?
		ORDER BY seq ASC`, collection)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var docs []Document
	for rows.Next() {
		var (
			d    Document
			data string
		)
		if err := rows.Scan(&d.Seq, &d.Collection, &d.ID, &data, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.Data = []byte(data)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// ModifyDocument rewrites a document body with fn inside a transaction.
// It reports false when the document does not exist.
func (db *DB) ModifyDocument(ctx context.Context, collection, id string, fn func([]byte) ([]byte, error)) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var data string
	err = tx.QueryRowContext(ctx, `SELECT data FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&data)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read document: %w", err)
	}

	updated, err := fn([]byte(data))
	if err != nil {
		return false, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE documents SET data = ?, updated_at = ?
		WHERE collection = ? AND id = ?`,
		string(updated), time.Now().UnixMilli(), collection, id); err != nil {
		return false, fmt.Errorf("write document: %w", err)
	}
	return true, tx.Commit()
}

// DocumentCount returns the number of documents in a collection.
func (db *DB) DocumentCount(ctx context.Context, collection string) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE collection = ?`, collection).Scan(&count)
	return count, err
}
