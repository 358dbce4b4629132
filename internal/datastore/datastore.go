// Package datastore is the document store functions reach through the SDK.
// Documents are JSON, grouped into named collections, and persisted in a
// single bbolt file.
package datastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	// ErrNotFound is returned by Get when the document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidName is returned for an empty collection or document id.
	ErrInvalidName = errors.New("collection and id must not be empty")
	// ErrInvalidDocument is returned by Put when the document is not JSON.
	ErrInvalidDocument = errors.New("document is not valid JSON")
)

// Document is one stored document.
type Document struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// Database is the handle functions use to read and write documents.
type Database interface {
	Get(ctx context.Context, collection, id string) ([]byte, error)
	Put(ctx context.Context, collection, id string, doc []byte) error
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string) ([]Document, error)
}

// Store is the bbolt-backed Database.
type Store struct {
	db *bolt.DB
}

var _ Database = (*Store)(nil)

// Open opens (creating if needed) the store file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening data store %q: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Client exposes the underlying bbolt handle for direct access.
func (s *Store) Client() *bolt.DB {
	return s.db
}

// Close releases the store file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the raw JSON of a document.
func (s *Store) Get(ctx context.Context, collection, id string) ([]byte, error) {
	if err := check(ctx, collection, id); err != nil {
		return nil, err
	}
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return ErrNotFound
		}
		v := b.Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		// bbolt values are only valid inside the transaction.
		out = append([]byte(nil), v...)
		return nil
	})
	return out, err
}

// Put stores doc under id, replacing any existing document.
func (s *Store) Put(ctx context.Context, collection, id string, doc []byte) error {
	if err := check(ctx, collection, id); err != nil {
		return err
	}
	if !json.Valid(doc) {
		return ErrInvalidDocument
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			return fmt.Errorf("creating collection %q: %w", collection, err)
		}
		return b.Put([]byte(id), doc)
	})
}

// Delete removes a document. Deleting a missing document is not an error.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := check(ctx, collection, id); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(id))
	})
}

// List returns every document in a collection ordered by id. A missing
// collection is empty.
func (s *Store) List(ctx context.Context, collection string) ([]Document, error) {
	if err := check(ctx, collection, "-"); err != nil {
		return nil, err
	}
	var docs []Document
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			docs = append(docs, Document{
				ID:   string(k),
				Data: append(json.RawMessage(nil), v...),
			})
			return nil
		})
	})
	return docs, err
}

func check(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if collection == "" || id == "" {
		return ErrInvalidName
	}
	return nil
}
