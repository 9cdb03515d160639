package docstore

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used by tests and local development.
// Subscriptions are fed by an internal broadcaster that re-delivers the
// matching snapshot after every mutation in the subscribed collection.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string]Document
	subscribers map[int]*memorySubscriber
	nextSubID   int
	closed      bool
}

type memorySubscriber struct {
	collection  string
	constraints []Constraint
	cb          func([]Snapshot)
}

// NewMemoryStore creates an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]Document),
		subscribers: make(map[int]*memorySubscriber),
	}
}

// Get returns the document or (nil, nil) when absent.
func (s *MemoryStore) Get(_ context.Context, collection, id string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, nil
	}
	return Clone(doc), nil
}

// List returns the constrained snapshot of a collection.
func (s *MemoryStore) List(_ context.Context, collection string, constraints ...Constraint) ([]Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(collection, constraints), nil
}

// Add inserts a document under a fresh id and returns the id.
func (s *MemoryStore) Add(_ context.Context, collection string, doc Document) (string, error) {
	id := uuid.NewString()
	s.mu.Lock()
	s.setLocked(collection, id, doc)
	notify := s.pendingNotificationsLocked(collection)
	s.mu.Unlock()
	deliver(notify)
	return id, nil
}

// Set writes a document under an explicit id, replacing any existing one.
func (s *MemoryStore) Set(_ context.Context, collection, id string, doc Document) error {
	s.mu.Lock()
	s.setLocked(collection, id, doc)
	notify := s.pendingNotificationsLocked(collection)
	s.mu.Unlock()
	deliver(notify)
	return nil
}

// Update merges partial into an existing document, creating it if absent.
func (s *MemoryStore) Update(_ context.Context, collection, id string, partial Document) error {
	s.mu.Lock()
	col := s.collectionLocked(collection)
	existing, ok := col[id]
	if !ok {
		existing = Document{}
	}
	for k, v := range Clone(partial) {
		existing[k] = v
	}
	col[id] = existing
	notify := s.pendingNotificationsLocked(collection)
	s.mu.Unlock()
	deliver(notify)
	return nil
}

// Delete removes a document. Deleting a missing document is a no-op success.
func (s *MemoryStore) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	col := s.collectionLocked(collection)
	_, existed := col[id]
	delete(col, id)
	var notify []func()
	if existed {
		notify = s.pendingNotificationsLocked(collection)
	}
	s.mu.Unlock()
	deliver(notify)
	return nil
}

// Subscribe registers a live feed over a collection. The callback fires once
// with the current snapshot before Subscribe returns.
func (s *MemoryStore) Subscribe(_ context.Context, collection string, constraints []Constraint, cb func([]Snapshot)) (Unsubscribe, error) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = &memorySubscriber{collection: collection, constraints: constraints, cb: cb}
	initial := s.snapshotLocked(collection, constraints)
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

// Close drops all state and subscribers.
func (s *MemoryStore) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = make(map[string]map[string]Document)
	s.subscribers = make(map[int]*memorySubscriber)
	s.closed = true
	return nil
}

func (s *MemoryStore) collectionLocked(name string) map[string]Document {
	col, ok := s.collections[name]
	if !ok {
		col = make(map[string]Document)
		s.collections[name] = col
	}
	return col
}

func (s *MemoryStore) setLocked(collection, id string, doc Document) {
	s.collectionLocked(collection)[id] = Clone(doc)
}

func (s *MemoryStore) snapshotLocked(collection string, constraints []Constraint) []Snapshot {
	col := s.collections[collection]
	snaps := make([]Snapshot, 0, len(col))
	for id, doc := range col {
		snaps = append(snaps, Snapshot{ID: id, Data: Clone(doc)})
	}
	return ApplyConstraints(snaps, constraints)
}

// pendingNotificationsLocked captures subscriber callbacks with their
// snapshots while the lock is held; deliver runs them after release so a
// callback can safely call back into the store.
func (s *MemoryStore) pendingNotificationsLocked(collection string) []func() {
	var out []func()
	for _, sub := range s.subscribers {
		if sub.collection != collection {
			continue
		}
		snaps := s.snapshotLocked(collection, sub.constraints)
		cb := sub.cb
		out = append(out, func() { cb(snaps) })
	}
	return out
}

func deliver(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}
