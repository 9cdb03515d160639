package profile

import (
	"context"
	"fmt"
	"time"

	"github.com/rkgupta29/assignment-story-creation-app/internal/docstore"
	"github.com/rkgupta29/assignment-story-creation-app/internal/types"
)

const candidatesCollection = "candidates"

// Repository persists candidate profiles as documents keyed by credential id.
// Writes are always merges over the remote document, never full overwrites,
// so concurrent editors cannot blank out each other's sections.
type Repository struct {
	docs docstore.Store
}

// NewRepository creates a profile repository over the document gateway.
func NewRepository(docs docstore.Store) *Repository {
	return &Repository{docs: docs}
}

// Load fetches a candidate profile, or (nil, nil) when none exists yet.
func (r *Repository) Load(ctx context.Context, candidateID string) (*types.CandidateProfile, error) {
	doc, err := r.docs.Get(ctx, candidatesCollection, candidateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if doc == nil {
		return nil, nil
	}
	var p types.CandidateProfile
	if err := docstore.Decode(doc, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Save merges the profile over the remote document. created_at is written
// only on the first save; updated_at is refreshed on every save.
func (r *Repository) Save(ctx context.Context, candidateID string, p *types.CandidateProfile) error {
	existing, err := r.docs.Get(ctx, candidatesCollection, candidateID)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}

	doc, err := docstore.Encode(p)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	doc["updated_at"] = now
	if existing == nil {
		doc["created_at"] = now
	} else {
		delete(doc, "created_at")
	}

	if err := r.docs.Update(ctx, candidatesCollection, candidateID, doc); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// Watch subscribes to the candidate's profile document. The callback fires
// with the current profile immediately and after every remote change; it
// fires with nil while no profile document exists.
func (r *Repository) Watch(ctx context.Context, candidateID string, cb func(*types.CandidateProfile)) (docstore.Unsubscribe, error) {
	return r.docs.Subscribe(ctx, candidatesCollection, nil, func(snaps []docstore.Snapshot) {
		for _, snap := range snaps {
			if snap.ID != candidateID {
				continue
			}
			var p types.CandidateProfile
			if err := docstore.Decode(snap.Data, &p); err != nil {
				return
			}
			cb(&p)
			return
		}
		cb(nil)
	})
}
