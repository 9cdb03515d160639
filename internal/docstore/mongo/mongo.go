// Package mongo implements the document gateway on MongoDB.
package mongo

import (
	"context"
	"fmt"
	"log"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/google/uuid"
	"github.com/rkgupta29/assignment-story-creation-app/internal/docstore"
)

// Store is a MongoDB-backed docstore.Store. Documents live one collection
// per logical collection name with string _id keys. Ordering and limits are
// applied client-side so no composite indexes are required.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return &Store{client: client, db: client.Database(dbName)}, nil
}

// Get returns the document or (nil, nil) when absent.
func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	return fromBSON(raw), nil
}

// List returns the constrained snapshot of a collection. Equality filters
// are pushed down; ordering and limits happen client-side.
func (s *Store) List(ctx context.Context, collection string, constraints ...docstore.Constraint) ([]docstore.Snapshot, error) {
	filter := bson.M{}
	for _, c := range constraints {
		if c.Kind == docstore.ConstraintWhere {
			filter[c.Field] = c.Value
		}
	}

	cur, err := s.db.Collection(collection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	defer func() { _ = cur.Close(ctx) }()

	var snaps []docstore.Snapshot
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to decode %s document: %w", collection, err)
		}
		id, _ := raw["_id"].(string)
		snaps = append(snaps, docstore.Snapshot{ID: id, Data: fromBSON(raw)})
	}
	if err := cur.Err(); err != nil {
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
	payload := toBSON(doc)
	payload["_id"] = id
	_, err := s.db.Collection(collection).ReplaceOne(ctx,
		bson.M{"_id": id}, payload, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to set %s/%s: %w", collection, id, err)
	}
	return nil
}

// Update merges partial fields into the document, creating it if absent.
func (s *Store) Update(ctx context.Context, collection, id string, partial docstore.Document) error {
	_, err := s.db.Collection(collection).UpdateOne(ctx,
		bson.M{"_id": id}, bson.M{"$set": toBSON(partial)}, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	return nil
}

// Delete removes a document. Missing documents are treated as success.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// Subscribe watches the collection through a change stream and re-queries
// the matching snapshot after every event. The callback fires once with the
// current snapshot before Subscribe returns.
func (s *Store) Subscribe(ctx context.Context, collection string, constraints []docstore.Constraint, cb func([]docstore.Snapshot)) (docstore.Unsubscribe, error) {
	initial, err := s.List(ctx, collection, constraints...)
	if err != nil {
		return nil, err
	}
	cb(initial)

	streamCtx, cancel := context.WithCancel(context.Background())
	stream, err := s.db.Collection(collection).Watch(streamCtx, mongo.Pipeline{})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to watch %s: %w", collection, err)
	}

	go func() {
		defer func() { _ = stream.Close(context.Background()) }()
		for stream.Next(streamCtx) {
			snaps, err := s.List(streamCtx, collection, constraints...)
			if err != nil {
				if streamCtx.Err() != nil {
					return
				}
				log.Printf("[docstore] re-query after change event failed: %v", err)
				continue
			}
			cb(snaps)
		}
	}()

	var once sync.Once
	return func() { once.Do(cancel) }, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect mongodb: %w", err)
	}
	return nil
}

func toBSON(doc docstore.Document) bson.M {
	out := bson.M{}
	for k, v := range doc {
		out[k] = v
	}
	return out
}

func fromBSON(raw bson.M) docstore.Document {
	out := docstore.Document{}
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		out[k] = normalize(v)
	}
	return out
}

// normalize converts driver-specific container types back into the plain
// map/slice shapes the rest of the system works with.
func normalize(v any) any {
	switch t := v.(type) {
	case bson.M:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = normalize(val)
		}
		return m
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = normalize(e.Value)
		}
		return m
	case bson.A:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = normalize(val)
		}
		return s
	default:
		return v
	}
}
