// Package postgres implements the document gateway on PostgreSQL, storing
// documents as JSONB rows in a single table.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rkgupta29/assignment-story-creation-app/internal/docstore"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    collection TEXT NOT NULL,
    id         TEXT NOT NULL,
    data       JSONB NOT NULL,
    PRIMARY KEY (collection, id)
)`

// Store is a PostgreSQL-backed docstore.Store. The subscription feed is
// process-local: it fires after writes issued through this store, which
// covers the single-service deployment this backend targets.
type Store struct {
	pool *pgxpool.Pool

	mu          sync.Mutex
	subscribers map[int]*subscriber
	nextSubID   int
}

type subscriber struct {
	collection  string
	constraints []docstore.Constraint
	cb          func([]docstore.Snapshot)
}

// Connect establishes a connection pool and ensures the documents table.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure documents table: %w", err)
	}
	return &Store{pool: pool, subscribers: make(map[int]*subscriber)}, nil
}

// Get returns the document or (nil, nil) when absent.
func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	var doc docstore.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

// List returns the constrained snapshot of a collection. Constraints are
// applied in memory so ordering semantics match the other adapters.
func (s *Store) List(ctx context.Context, collection string, constraints ...docstore.Constraint) ([]docstore.Snapshot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, data FROM documents WHERE collection = $1`, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	defer rows.Close()

	var snaps []docstore.Snapshot
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", collection, err)
		}
		var doc docstore.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode %s/%s: %w", collection, id, err)
		}
		snaps = append(snaps, docstore.Snapshot{ID: id, Data: doc})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", collection, err)
	}
	return docstore.ApplyConstraints(snaps, constraints), nil
}

// Add inserts a document under a fresh id.
func (s *Store) Add(ctx context.Context, collection string, doc docstore.Document) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

// Set writes a document under an explicit id, replacing any existing one.
func (s *Store) Set(ctx context.Context, collection, id string, doc docstore.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", collection, id, err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)
		 ON CONFLICT (collection, id) DO UPDATE SET data = $3`,
		collection, id, raw,
	)
	if err != nil {
		return fmt.Errorf("failed to set %s/%s: %w", collection, id, err)
	}
	s.notify(ctx, collection)
	return nil
}

// Update merges partial fields into the document, creating it if absent.
func (s *Store) Update(ctx context.Context, collection, id string, partial docstore.Document) error {
	raw, err := json.Marshal(partial)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", collection, id, err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)
		 ON CONFLICT (collection, id) DO UPDATE SET data = documents.data || $3`,
		collection, id, raw,
	)
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	s.notify(ctx, collection)
	return nil
}

// Delete removes a document. Missing documents are treated as success.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() > 0 {
		s.notify(ctx, collection)
	}
	return nil
}

// Subscribe registers a process-local live feed over a collection. The
// callback fires once with the current snapshot before Subscribe returns.
func (s *Store) Subscribe(ctx context.Context, collection string, constraints []docstore.Constraint, cb func([]docstore.Snapshot)) (docstore.Unsubscribe, error) {
	initial, err := s.List(ctx, collection, constraints...)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = &subscriber{collection: collection, constraints: constraints, cb: cb}
	s.mu.Unlock()

	cb(initial)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}, nil
}

// Close closes the connection pool.
func (s *Store) Close(_ context.Context) error {
	s.pool.Close()
	return nil
}

func (s *Store) notify(ctx context.Context, collection string) {
	s.mu.Lock()
	subs := make([]*subscriber, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		if sub.collection == collection {
			subs = append(subs, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range subs {
		snaps, err := s.List(ctx, collection, sub.constraints...)
		if err != nil {
			continue
		}
		sub.cb(snaps)
	}
}
