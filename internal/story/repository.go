package story

import (
	"context"
	"fmt"
	"time"

	"github.com/rkgupta29/assignment-story-creation-app/internal/docstore"
	"github.com/rkgupta29/assignment-story-creation-app/internal/types"
)

// Collection is where story documents live.
const Collection = "stories"

// Repository persists stories as documents. The document never carries its
// own id field; the id is the document key.
type Repository struct {
	docs docstore.Store
}

// NewRepository creates a story repository over the document gateway.
func NewRepository(docs docstore.Store) *Repository {
	return &Repository{docs: docs}
}

// Create persists a new story and returns its generated id.
func (r *Repository) Create(ctx context.Context, s *types.Story) (string, error) {
	doc, err := docstore.Encode(s)
	if err != nil {
		return "", err
	}
	delete(doc, "id")
	id, err := r.docs.Add(ctx, Collection, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create story: %w", err)
	}
	return id, nil
}

// GetByID loads a story, or (nil, nil) when it does not exist.
func (r *Repository) GetByID(ctx context.Context, id string) (*types.Story, error) {
	doc, err := r.docs.Get(ctx, Collection, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get story: %w", err)
	}
	if doc == nil {
		return nil, nil
	}
	return decodeStory(docstore.Snapshot{ID: id, Data: doc})
}

// GetBySlug loads a story by its unique slug, or (nil, nil) when absent.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*types.Story, error) {
	snaps, err := r.docs.List(ctx, Collection, docstore.Where("slug", slug), docstore.Limit(1))
	if err != nil {
		return nil, fmt.Errorf("failed to get story by slug: %w", err)
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	return decodeStory(snaps[0])
}

// ListAll returns every story, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]types.Story, error) {
	return r.list(ctx, docstore.OrderBy("created_at", true))
}

// ListByAuthor returns one author's stories, newest first.
func (r *Repository) ListByAuthor(ctx context.Context, authorID string) ([]types.Story, error) {
	return r.list(ctx, docstore.Where("author_id", authorID), docstore.OrderBy("created_at", true))
}

func (r *Repository) list(ctx context.Context, constraints ...docstore.Constraint) ([]types.Story, error) {
	snaps, err := r.docs.List(ctx, Collection, constraints...)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	stories := make([]types.Story, 0, len(snaps))
	for _, snap := range snaps {
		s, err := decodeStory(snap)
		if err != nil {
			return nil, err
		}
		stories = append(stories, *s)
	}
	// The gateway's ordering is not trusted; newest-first is imposed here.
	sortNewestFirst(stories)
	return stories, nil
}

// Update persists a delta with a refreshed updated_at. Fields left nil in the
// delta are not touched; audio fields cannot change after creation.
func (r *Repository) Update(ctx context.Context, id string, delta *types.StoryUpdate) error {
	partial := docstore.Document{
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
	}
	if delta.Title != nil {
		partial["title"] = *delta.Title
	}
	if delta.Content != nil {
		partial["content"] = *delta.Content
	}
	if delta.AudioTranscript != nil {
		partial["audio_transcript"] = *delta.AudioTranscript
	}
	if err := r.docs.Update(ctx, Collection, id, partial); err != nil {
		return fmt.Errorf("failed to update story: %w", err)
	}
	return nil
}

// Delete removes a story. Deleting a story that no longer exists succeeds.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.docs.Delete(ctx, Collection, id); err != nil {
		return fmt.Errorf("failed to delete story: %w", err)
	}
	return nil
}

// Watch subscribes to the story collection, optionally scoped to one author.
func (r *Repository) Watch(ctx context.Context, authorID string, cb func([]docstore.Snapshot)) (docstore.Unsubscribe, error) {
	var constraints []docstore.Constraint
	if authorID != "" {
		constraints = append(constraints, docstore.Where("author_id", authorID))
	}
	return r.docs.Subscribe(ctx, Collection, constraints, cb)
}

func decodeStory(snap docstore.Snapshot) (*types.Story, error) {
	var s types.Story
	if err := docstore.Decode(snap.Data, &s); err != nil {
		return nil, err
	}
	s.ID = snap.ID
	return &s, nil
}
