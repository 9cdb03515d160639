// Package objectstore defines the object/media gateway: binary uploads with
// progress reporting, keyed deletes, and prefix listing. Preconditions are
// enforced here, before any network call, so every adapter inherits them.
package objectstore

import (
	"context"
	"fmt"
	"math/rand"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// MaxUploadSize is the hard client-side ceiling for a single upload.
const MaxUploadSize = 50 * 1024 * 1024

// allowedAudioBaseTypes are the accepted audio MIME types after codec
// suffixes are stripped.
var allowedAudioBaseTypes = map[string]bool{
	"audio/mpeg": true,
	"audio/mp3":  true,
	"audio/wav":  true,
	"audio/ogg":  true,
	"audio/webm": true,
	"audio/mp4":  true,
	"audio/m4a":  true,
	"audio/aac":  true,
}

// File is an in-memory file queued for upload.
type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Options tune a single upload.
type Options struct {
	Folder     string
	PublicID   string
	Tags       []string
	OnProgress func(fraction float64)
}

// UploadResult describes a stored object.
type UploadResult struct {
	URL      string  `json:"url"`
	PublicID string  `json:"public_id"`
	Bytes    int64   `json:"bytes"`
	Format   string  `json:"format"`
	Duration float64 `json:"duration,omitempty"`
}

// Store is the object-storage capability.
type Store interface {
	Upload(ctx context.Context, file File, opts Options) (*UploadResult, error)
	Delete(ctx context.Context, publicID string) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// ErrEmptyFile rejects zero-byte uploads.
type ErrEmptyFile struct{}

func (e *ErrEmptyFile) Error() string {
	return "file is empty"
}

// ErrFileTooLarge rejects uploads over the size ceiling.
type ErrFileTooLarge struct {
	Size int64
}

func (e *ErrFileTooLarge) Error() string {
	return fmt.Sprintf("file too large: %.2fMB (max: 50MB)", float64(e.Size)/1024/1024)
}

// ErrUnsupportedAudioFormat rejects audio uploads with an unrecognized base
// MIME type.
type ErrUnsupportedAudioFormat struct {
	MIMEType string
}

func (e *ErrUnsupportedAudioFormat) Error() string {
	return fmt.Sprintf("unsupported audio format: %s (use MP3, WAV, OGG, WebM, MP4, or M4A)", e.MIMEType)
}

// ValidateUpload enforces the size preconditions shared by every upload.
func ValidateUpload(file File) error {
	if len(file.Data) == 0 {
		return &ErrEmptyFile{}
	}
	if int64(len(file.Data)) > MaxUploadSize {
		return &ErrFileTooLarge{Size: int64(len(file.Data))}
	}
	return nil
}

// BaseMIMEType strips codec parameters, e.g. "audio/webm;codecs=opus"
// becomes "audio/webm".
func BaseMIMEType(mimeType string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
}

// ValidateAudioUpload enforces the audio-specific preconditions on top of
// the shared size checks.
func ValidateAudioUpload(file File) error {
	base := BaseMIMEType(file.MIMEType)
	if !allowedAudioBaseTypes[base] {
		return &ErrUnsupportedAudioFormat{MIMEType: base}
	}
	return ValidateUpload(file)
}

// AudioObjectPath derives the storage path for a story's audio file:
// stories/<author>/audio/<sanitized-title>-<timestamp>-<random>.<ext>.
func AudioObjectPath(authorID, storyTitle, fileName string) string {
	sanitized := sanitizeTitle(storyTitle)
	ext := strings.TrimPrefix(path.Ext(fileName), ".")
	if ext == "" {
		ext = "audio"
	}
	suffix := randomSuffix()
	return fmt.Sprintf("stories/%s/audio/%s-%d-%s.%s",
		authorID, sanitized, time.Now().UnixMilli(), suffix, ext)
}

func sanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	s := b.String()
	if len(s) > 50 {
		s = s[:50]
	}
	return s
}

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomSuffix() string {
	b := make([]byte, 12)
	for i := range b {
		b[i] = suffixAlphabet[rand.Intn(len(suffixAlphabet))]
	}
	return string(b)
}

// UploadAudio validates and uploads a story audio file, tagging it with the
// author and title.
func UploadAudio(ctx context.Context, store Store, file File, authorID, storyTitle string, onProgress func(float64)) (*UploadResult, error) {
	if err := ValidateAudioUpload(file); err != nil {
		return nil, err
	}
	opts := Options{
		PublicID:   AudioObjectPath(authorID, storyTitle, file.Name),
		Tags:       []string{"story-audio", "author:" + authorID},
		OnProgress: onProgress,
	}
	result, err := store.Upload(ctx, file, opts)
	if err != nil {
		return nil, fmt.Errorf("audio upload failed: %w", err)
	}
	return result, nil
}

// UploadMany uploads several files concurrently, reporting per-file
// progress. Results preserve input order. The whole batch fails if any
// upload fails.
func UploadMany(ctx context.Context, store Store, files []File, folder string, onProgress func(index int, fraction float64)) ([]*UploadResult, error) {
	results := make([]*UploadResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			opts := Options{Folder: folder}
			if onProgress != nil {
				opts.OnProgress = func(fraction float64) { onProgress(i, fraction) }
			}
			res, err := store.Upload(gctx, f, opts)
			if err != nil {
				return fmt.Errorf("failed to upload %s: %w", f.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// FormatFromName extracts the file extension used as the stored format.
func FormatFromName(name string) string {
	return strings.TrimPrefix(path.Ext(name), ".")
}
