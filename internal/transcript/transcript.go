// Package transcript converts voice-story audio into story text.
package transcript

import (
	"context"

	"github.com/rkgupta29/assignment-story-creation-app/internal/types"
)

// Transcriber produces a text transcript for an uploaded audio file.
type Transcriber interface {
	// Transcribe returns the spoken content of the audio as plain text.
	Transcribe(ctx context.Context, audio *types.AudioUpload) (string, error)
	// Polish rewrites a raw transcript into readable story prose.
	Polish(ctx context.Context, raw string) (string, error)
	// Close releases any resources held by the transcriber.
	Close() error
}
