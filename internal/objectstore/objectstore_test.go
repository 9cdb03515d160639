package objectstore

import (
	"bytes"
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name    string
		file    File
		wantErr error
	}{
		{
			name:    "empty file rejected",
			file:    File{Name: "a.mp3", MIMEType: "audio/mpeg"},
			wantErr: &ErrEmptyFile{},
		},
		{
			name:    "oversize file rejected",
			file:    File{Name: "a.mp3", MIMEType: "audio/mpeg", Data: make([]byte, MaxUploadSize+1)},
			wantErr: &ErrFileTooLarge{Size: MaxUploadSize + 1},
		},
		{
			name: "valid file accepted",
			file: File{Name: "a.mp3", MIMEType: "audio/mpeg", Data: []byte("abc")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpload(tt.file)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.IsType(t, tt.wantErr, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateAudioUpload(t *testing.T) {
	t.Run("codec suffix is stripped before matching", func(t *testing.T) {
		err := ValidateAudioUpload(File{Name: "a.webm", MIMEType: "audio/webm;codecs=opus", Data: []byte("x")})
		assert.NoError(t, err)
	})

	t.Run("unrecognized base type rejected", func(t *testing.T) {
		err := ValidateAudioUpload(File{Name: "a.flac", MIMEType: "audio/flac", Data: []byte("x")})
		var formatErr *ErrUnsupportedAudioFormat
		require.ErrorAs(t, err, &formatErr)
		assert.Equal(t, "audio/flac", formatErr.MIMEType)
	})

	t.Run("video mime rejected even with audio extension", func(t *testing.T) {
		err := ValidateAudioUpload(File{Name: "a.mp3", MIMEType: "video/mp4", Data: []byte("x")})
		assert.Error(t, err)
	})
}

func TestUploadAudio_PreconditionsSkipGateway(t *testing.T) {
	store := NewMemoryObjectStore()
	ctx := context.Background()

	_, err := UploadAudio(ctx, store, File{Name: "a.mp3", MIMEType: "audio/mpeg"}, "author", "Title", nil)
	require.Error(t, err)
	assert.Equal(t, 0, store.UploadCalls(), "empty file must be rejected before any gateway call")

	_, err = UploadAudio(ctx, store, File{Name: "big.mp3", MIMEType: "audio/mpeg", Data: make([]byte, MaxUploadSize+1)}, "author", "Title", nil)
	require.Error(t, err)
	assert.Equal(t, 0, store.UploadCalls())

	_, err = UploadAudio(ctx, store, File{Name: "a.txt", MIMEType: "text/plain", Data: []byte("x")}, "author", "Title", nil)
	require.Error(t, err)
	assert.Equal(t, 0, store.UploadCalls())
}

func TestUploadAudio_Success(t *testing.T) {
	store := NewMemoryObjectStore()
	var fractions []float64

	result, err := UploadAudio(context.Background(), store,
		File{Name: "take1.webm", MIMEType: "audio/webm;codecs=opus", Data: bytes.Repeat([]byte("a"), 100)},
		"author-1", "My Trip!", func(f float64) { fractions = append(fractions, f) })
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^stories/author-1/audio/My-Trip--\d+-[a-z0-9]{12}\.webm$`), result.PublicID)
	assert.Equal(t, int64(100), result.Bytes)
	assert.Equal(t, "webm", result.Format)
	require.NotEmpty(t, fractions)
	assert.Equal(t, 1.0, fractions[len(fractions)-1])
}

func TestAudioObjectPath_TruncatesLongTitles(t *testing.T) {
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'a'
	}
	p := AudioObjectPath("author", string(long), "f.mp3")
	assert.Regexp(t, `^stories/author/audio/a{50}-\d+-[a-z0-9]{12}\.mp3$`, p)
}

func TestUploadMany(t *testing.T) {
	store := NewMemoryObjectStore()
	files := []File{
		{Name: "one.pdf", MIMEType: "application/pdf", Data: []byte("one")},
		{Name: "two.pdf", MIMEType: "application/pdf", Data: []byte("two")},
	}

	results, err := UploadMany(context.Background(), store, files, "resumes/u1", nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "resumes/u1/one.pdf", results[0].PublicID)
	assert.Equal(t, "resumes/u1/two.pdf", results[1].PublicID)
}

func TestUploadMany_FailureFailsBatch(t *testing.T) {
	store := NewMemoryObjectStore()
	files := []File{
		{Name: "ok.pdf", MIMEType: "application/pdf", Data: []byte("x")},
		{Name: "empty.pdf", MIMEType: "application/pdf"},
	}
	_, err := UploadMany(context.Background(), store, files, "", nil)
	assert.Error(t, err)
}
