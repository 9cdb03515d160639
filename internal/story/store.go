package story

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rkgupta29/assignment-story-creation-app/internal/docstore"
	"github.com/rkgupta29/assignment-story-creation-app/internal/objectstore"
	"github.com/rkgupta29/assignment-story-creation-app/internal/types"
)

// Scope selects which stories the store tracks: every story, or one author's.
type Scope struct {
	AuthorID string
}

// Store maintains the authoritative in-memory story list for the active
// scope and keeps it synchronized with the document gateway through a live
// subscription. Create and Update never mutate the local list directly; the
// push feed is the single convergence path. Remove is the one exception: it
// is optimistic, with a compensating full re-fetch on remote failure.
type Store struct {
	repo  *Repository
	media objectstore.Store

	mu          sync.Mutex
	scope       Scope
	initialized bool
	stories     []types.Story
	loading     bool
	errMsg      string
	unsubscribe docstore.Unsubscribe

	watchers    map[int]func([]types.Story)
	nextWatchID int
}

// NewStore creates a story store over the repository and the media gateway.
func NewStore(repo *Repository, media objectstore.Store) *Store {
	return &Store{
		repo:     repo,
		media:    media,
		watchers: make(map[int]func([]types.Story)),
	}
}

// Initialize opens the live subscription for a scope. Idempotent per scope:
// re-initializing with the same scope is a no-op, while a different scope
// tears down the previous subscription before subscribing again.
func (s *Store) Initialize(ctx context.Context, scope Scope) error {
	s.mu.Lock()
	if s.initialized && s.scope == scope {
		s.mu.Unlock()
		return nil
	}
	prev := s.unsubscribe
	s.unsubscribe = nil
	s.initialized = true
	s.scope = scope
	s.loading = true
	s.mu.Unlock()

	if prev != nil {
		prev()
	}

	unsub, err := s.repo.Watch(ctx, scope.AuthorID, func(snaps []docstore.Snapshot) {
		s.onPush(snaps)
	})
	if err != nil {
		s.mu.Lock()
		s.initialized = false
		s.loading = false
		s.errMsg = "Failed to load stories. Please try again."
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.unsubscribe = unsub
	s.mu.Unlock()
	return nil
}

// onPush replaces the local list with the pushed snapshot. The feed's own
// order is not trusted; the list is re-sorted newest-first on every push.
func (s *Store) onPush(snaps []docstore.Snapshot) {
	stories := make([]types.Story, 0, len(snaps))
	for _, snap := range snaps {
		st, err := decodeStory(snap)
		if err != nil {
			continue
		}
		stories = append(stories, *st)
	}
	sortNewestFirst(stories)

	s.mu.Lock()
	s.stories = stories
	s.loading = false
	watchers, snapshot := s.watchersLocked()
	s.mu.Unlock()
	for _, cb := range watchers {
		cb(snapshot)
	}
}

// Create builds and persists a new story. Voice stories with an attached
// audio file upload the audio first, reporting fractional progress; the
// document is only written after the upload succeeds, so a failed upload
// never leaves an orphaned story record. Errors are returned to the caller
// so submitting forms can stay in a recoverable state.
func (s *Store) Create(ctx context.Context, input types.CreateStoryInput, authorID, authorName string, onProgress func(float64)) (*types.Story, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	st := &types.Story{
		Title:           input.Title,
		Content:         input.Content,
		Type:            input.Type,
		AuthorID:        authorID,
		AuthorName:      authorName,
		Slug:            NewSlug(input.Title),
		AudioTranscript: input.AudioTranscript,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if input.Type == types.StoryVoice && input.Audio != nil {
		file := objectstore.File{
			Name:     input.Audio.FileName,
			MIMEType: input.Audio.MIMEType,
			Data:     input.Audio.Data,
		}
		result, err := objectstore.UploadAudio(ctx, s.media, file, authorID, input.Title, onProgress)
		if err != nil {
			return nil, err
		}
		st.AudioURL = result.URL
		st.AudioPublicID = result.PublicID
	}

	id, err := s.repo.Create(ctx, st)
	if err != nil {
		return nil, err
	}
	st.ID = id
	return st, nil
}

// Update persists a delta. The local list converges through the push feed.
func (s *Store) Update(ctx context.Context, id string, delta *types.StoryUpdate) error {
	if err := delta.Validate(); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, delta)
}

// Remove deletes a story optimistically: the local list drops it first, then
// the remote delete runs. On remote failure the store re-fetches the full
// authoritative list to undo the removal, then returns the error so the UI
// can surface it.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	kept := make([]types.Story, 0, len(s.stories))
	for _, st := range s.stories {
		if st.ID != id {
			kept = append(kept, st)
		}
	}
	s.stories = kept
	scope := s.scope
	watchers, snapshot := s.watchersLocked()
	s.mu.Unlock()
	for _, cb := range watchers {
		cb(snapshot)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.refetch(ctx, scope)
		return err
	}
	return nil
}

// refetch restores the local list from the authoritative remote list.
func (s *Store) refetch(ctx context.Context, scope Scope) {
	var stories []types.Story
	var err error
	if scope.AuthorID != "" {
		stories, err = s.repo.ListByAuthor(ctx, scope.AuthorID)
	} else {
		stories, err = s.repo.ListAll(ctx)
	}
	if err != nil {
		return
	}
	sortNewestFirst(stories)

	s.mu.Lock()
	s.stories = stories
	watchers, snapshot := s.watchersLocked()
	s.mu.Unlock()
	for _, cb := range watchers {
		cb(snapshot)
	}
}

// Stories returns a copy of the current story list.
func (s *Store) Stories() []types.Story {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Story, len(s.stories))
	copy(out, s.stories)
	return out
}

// Loading reports whether the initial snapshot is still pending.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Error returns the current error message, empty when healthy.
func (s *Store) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// Watch registers a callback fired with the story list after every change.
func (s *Store) Watch(cb func([]types.Story)) func() {
	s.mu.Lock()
	id := s.nextWatchID
	s.nextWatchID++
	s.watchers[id] = cb
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
		})
	}
}

// Close tears down the live subscription.
func (s *Store) Close() {
	s.mu.Lock()
	unsub := s.unsubscribe
	s.unsubscribe = nil
	s.initialized = false
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (s *Store) watchersLocked() ([]func([]types.Story), []types.Story) {
	watchers := make([]func([]types.Story), 0, len(s.watchers))
	for _, cb := range s.watchers {
		watchers = append(watchers, cb)
	}
	snapshot := make([]types.Story, len(s.stories))
	copy(snapshot, s.stories)
	return watchers, snapshot
}

func sortNewestFirst(stories []types.Story) {
	sort.SliceStable(stories, func(i, j int) bool {
		return stories[i].CreatedAt.After(stories[j].CreatedAt)
	})
}
