package story

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rkgupta29/assignment-story-creation-app/internal/docstore"
	"github.com/rkgupta29/assignment-story-creation-app/internal/objectstore"
	"github.com/rkgupta29/assignment-story-creation-app/internal/types"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"simple", "My Trip", "my-trip"},
		{"punctuation stripped", "Hello, World!", "hello-world"},
		{"collapses runs", "a  --  b", "a-b"},
		{"trims edges", " - leading and trailing - ", "leading-and-trailing"},
		{"digits kept", "Summer 2024", "summer-2024"},
		{"non-ascii dropped", "Café Diary", "caf-diary"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.title))
		})
	}
}

func TestNewSlug(t *testing.T) {
	assert.Regexp(t, regexp.MustCompile(`^my-trip-\d+$`), NewSlug("My Trip"))

	t.Run("identical titles get distinct slugs", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 50; i++ {
			slug := NewSlug("My Trip")
			assert.False(t, seen[slug], "duplicate slug %s", slug)
			seen[slug] = true
		}
	})
}

func TestPlainTextAndExcerpt(t *testing.T) {
	text, err := PlainText("<h1>Title</h1><p>First   paragraph.</p><p>Second.</p>")
	require.NoError(t, err)
	assert.Equal(t, "Title First paragraph. Second.", text)

	t.Run("excerpt truncates with ellipsis", func(t *testing.T) {
		assert.Equal(t, "Title First...", Excerpt("<p>Title First paragraph here</p>", 12))
	})

	t.Run("short content untruncated", func(t *testing.T) {
		assert.Equal(t, "Short", Excerpt("<p>Short</p>", 100))
	})
}

func TestRepository(t *testing.T) {
	docs := docstore.NewMemoryStore()
	repo := NewRepository(docs)
	ctx := context.Background()

	day1 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)
	first := &types.Story{Title: "First", Content: "<p>one</p>", Type: types.StoryText,
		AuthorID: "a1", AuthorName: "Ada", Slug: NewSlug("First"),
		CreatedAt: day1, UpdatedAt: day1}
	second := &types.Story{Title: "Second", Content: "<p>two</p>", Type: types.StoryText,
		AuthorID: "a2", AuthorName: "Bob", Slug: NewSlug("Second"),
		CreatedAt: day2, UpdatedAt: day2}

	id1, err := repo.Create(ctx, first)
	require.NoError(t, err)
	_, err = repo.Create(ctx, second)
	require.NoError(t, err)

	t.Run("document never stores its own id", func(t *testing.T) {
		doc, err := docs.Get(ctx, Collection, id1)
		require.NoError(t, err)
		_, present := doc["id"]
		assert.False(t, present)
	})

	t.Run("get by id", func(t *testing.T) {
		got, err := repo.GetByID(ctx, id1)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "First", got.Title)
		assert.Equal(t, id1, got.ID)
	})

	t.Run("get missing is nil nil", func(t *testing.T) {
		got, err := repo.GetByID(ctx, "ghost")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("get by slug", func(t *testing.T) {
		got, err := repo.GetBySlug(ctx, first.Slug)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "First", got.Title)

		missing, err := repo.GetBySlug(ctx, "no-such-slug-1")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("list all newest first", func(t *testing.T) {
		all, err := repo.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "Second", all[0].Title)
	})

	t.Run("list by author", func(t *testing.T) {
		mine, err := repo.ListByAuthor(ctx, "a1")
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, "First", mine[0].Title)
	})

	t.Run("update touches only the delta", func(t *testing.T) {
		title := "First, Revised"
		require.NoError(t, repo.Update(ctx, id1, &types.StoryUpdate{Title: &title}))
		got, err := repo.GetByID(ctx, id1)
		require.NoError(t, err)
		assert.Equal(t, "First, Revised", got.Title)
		assert.Equal(t, "<p>one</p>", got.Content)
		assert.Equal(t, first.Slug, got.Slug, "slug is immutable")
		assert.True(t, got.UpdatedAt.After(got.CreatedAt))
	})

	t.Run("delete missing succeeds", func(t *testing.T) {
		assert.NoError(t, repo.Delete(ctx, "ghost"))
	})
}

// trackingStore wraps the memory docstore to count subscriptions and inject
// delete failures.
type trackingStore struct {
	docstore.Store
	subscribeCalls int
	deleteErr      error
}

func (t *trackingStore) Subscribe(ctx context.Context, collection string, constraints []docstore.Constraint, cb func([]docstore.Snapshot)) (docstore.Unsubscribe, error) {
	t.subscribeCalls++
	return t.Store.Subscribe(ctx, collection, constraints, cb)
}

func (t *trackingStore) Delete(ctx context.Context, collection, id string) error {
	if t.deleteErr != nil {
		return t.deleteErr
	}
	return t.Store.Delete(ctx, collection, id)
}

func newTestStore() (*Store, *trackingStore, *objectstore.MemoryStore) {
	docs := &trackingStore{Store: docstore.NewMemoryStore()}
	media := objectstore.NewMemoryObjectStore()
	return NewStore(NewRepository(docs), media), docs, media
}

func TestStoreInitializeIdempotentPerScope(t *testing.T) {
	store, docs, _ := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.Initialize(ctx, Scope{}))
	require.NoError(t, store.Initialize(ctx, Scope{}))
	require.NoError(t, store.Initialize(ctx, Scope{}))
	assert.Equal(t, 1, docs.subscribeCalls, "same scope never resubscribes")

	require.NoError(t, store.Initialize(ctx, Scope{AuthorID: "a1"}))
	assert.Equal(t, 2, docs.subscribeCalls, "new scope replaces the subscription")
	store.Close()
}

func TestStoreCreateTextStory(t *testing.T) {
	store, docs, media := newTestStore()
	ctx := context.Background()
	require.NoError(t, store.Initialize(ctx, Scope{}))

	st, err := store.Create(ctx, types.CreateStoryInput{
		Title: "My Trip", Content: "<p>It was great.</p>", Type: types.StoryText,
	}, "a1", "Ada", nil)
	require.NoError(t, err)
	assert.Regexp(t, `^my-trip-\d+$`, st.Slug)
	assert.Equal(t, types.StoryText, st.Type)
	assert.Zero(t, media.UploadCalls(), "text stories never touch the media gateway")

	t.Run("audio fields absent, not null", func(t *testing.T) {
		doc, err := docs.Get(ctx, Collection, st.ID)
		require.NoError(t, err)
		for _, key := range []string{"audio_url", "audio_public_id", "audio_transcript"} {
			_, present := doc[key]
			assert.False(t, present, "%s should be absent", key)
		}
	})

	t.Run("push feed converges the local list", func(t *testing.T) {
		stories := store.Stories()
		require.Len(t, stories, 1)
		assert.Equal(t, st.ID, stories[0].ID)
	})
	store.Close()
}

func TestStoreCreateVoiceStory(t *testing.T) {
	store, docs, media := newTestStore()
	ctx := context.Background()
	require.NoError(t, store.Initialize(ctx, Scope{}))

	audio := &types.AudioUpload{
		FileName: "take1.webm",
		MIMEType: "audio/webm;codecs=opus",
		Data:     []byte("pretend-this-is-audio"),
	}

	t.Run("upload failure creates no document", func(t *testing.T) {
		media.FailUploadsWith(errors.New("bucket unavailable"))
		_, err := store.Create(ctx, types.CreateStoryInput{
			Title: "Voice Memo", Content: "<p>t</p>", Type: types.StoryVoice, Audio: audio,
		}, "a1", "Ada", nil)
		require.Error(t, err)
		snaps, err := docs.List(ctx, Collection)
		require.NoError(t, err)
		assert.Empty(t, snaps, "no orphaned story record")
	})

	t.Run("oversize audio rejected before any network call", func(t *testing.T) {
		media.FailUploadsWith(nil)
		before := media.UploadCalls()
		big := &types.AudioUpload{FileName: "big.mp3", MIMEType: "audio/mpeg",
			Data: make([]byte, objectstore.MaxUploadSize+1)}
		_, err := store.Create(ctx, types.CreateStoryInput{
			Title: "Too Big", Content: "<p>t</p>", Type: types.StoryVoice, Audio: big,
		}, "a1", "Ada", nil)
		var tooLarge *objectstore.ErrFileTooLarge
		require.ErrorAs(t, err, &tooLarge)
		assert.Equal(t, before, media.UploadCalls())
	})

	media.FailUploadsWith(nil)
	var progress []float64
	st, err := store.Create(ctx, types.CreateStoryInput{
		Title: "Voice Memo", Content: "<p>t</p>", Type: types.StoryVoice, Audio: audio,
	}, "a1", "Ada", func(f float64) { progress = append(progress, f) })
	require.NoError(t, err)
	assert.NotEmpty(t, st.AudioURL)
	assert.Regexp(t, `^stories/a1/audio/.+\.webm$`, st.AudioPublicID)
	require.NotEmpty(t, progress)
	assert.Equal(t, 1.0, progress[len(progress)-1])

	t.Run("voice story without audio is allowed", func(t *testing.T) {
		st, err := store.Create(ctx, types.CreateStoryInput{
			Title: "Silent Voice", Content: "<p>t</p>", Type: types.StoryVoice,
		}, "a1", "Ada", nil)
		require.NoError(t, err)
		assert.Empty(t, st.AudioURL)
	})
	store.Close()
}

func TestStoreOptimisticRemove(t *testing.T) {
	store, docs, _ := newTestStore()
	ctx := context.Background()
	require.NoError(t, store.Initialize(ctx, Scope{}))

	var ids []string
	for _, title := range []string{"A", "B", "C"} {
		st, err := store.Create(ctx, types.CreateStoryInput{
			Title: title, Content: "<p>x</p>", Type: types.StoryText,
		}, "a1", "Ada", nil)
		require.NoError(t, err)
		ids = append(ids, st.ID)
	}
	require.Len(t, store.Stories(), 3)

	t.Run("successful remove converges without the story", func(t *testing.T) {
		require.NoError(t, store.Remove(ctx, ids[0]))
		for _, st := range store.Stories() {
			assert.NotEqual(t, ids[0], st.ID)
		}
	})

	t.Run("failed remove rolls back to the authoritative list", func(t *testing.T) {
		docs.deleteErr = errors.New("permission denied")
		err := store.Remove(ctx, ids[1])
		require.Error(t, err, "remote failure is re-surfaced")

		remote, err := NewRepository(docs.Store).ListAll(ctx)
		require.NoError(t, err)
		local := store.Stories()
		require.Equal(t, len(remote), len(local))
		for i := range remote {
			assert.Equal(t, remote[i].ID, local[i].ID)
		}
		docs.deleteErr = nil
	})
	store.Close()
}

func TestStoreScopedToAuthor(t *testing.T) {
	store, _, _ := newTestStore()
	ctx := context.Background()
	require.NoError(t, store.Initialize(ctx, Scope{AuthorID: "a1"}))

	_, err := store.Create(ctx, types.CreateStoryInput{
		Title: "Mine", Content: "<p>x</p>", Type: types.StoryText,
	}, "a1", "Ada", nil)
	require.NoError(t, err)
	_, err = store.Create(ctx, types.CreateStoryInput{
		Title: "Theirs", Content: "<p>x</p>", Type: types.StoryText,
	}, "a2", "Bob", nil)
	require.NoError(t, err)

	stories := store.Stories()
	require.Len(t, stories, 1)
	assert.Equal(t, "Mine", stories[0].Title)
	store.Close()
}
