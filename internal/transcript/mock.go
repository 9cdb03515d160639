package transcript

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rkgupta29/assignment-story-creation-app/internal/types"
)

var cannedTranscripts = []string{
	"This is a sample transcription of the voice story. The content has been automatically generated from the audio file.",
	"Welcome to my voice story. Today I want to share something important with all of you.",
	"Once upon a time, there was a fascinating tale that needed to be told through voice.",
	"In this audio story, I explore the themes of technology and human connection.",
}

// MockTranscriber cycles through canned transcripts with a simulated delay.
// Used when no API key is configured, and in tests.
type MockTranscriber struct {
	Delay time.Duration

	mu   sync.Mutex
	next int
}

// NewMockTranscriber creates a mock with no artificial delay.
func NewMockTranscriber() *MockTranscriber {
	return &MockTranscriber{}
}

// Transcribe returns the next canned transcript, honoring ctx cancellation
// during the simulated delay.
func (m *MockTranscriber) Transcribe(ctx context.Context, _ *types.AudioUpload) (string, error) {
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	text := cannedTranscripts[m.next%len(cannedTranscripts)]
	m.next++
	return text, nil
}

// Polish trims and returns the raw transcript unchanged.
func (m *MockTranscriber) Polish(ctx context.Context, raw string) (string, error) {
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

// Close is a no-op.
func (m *MockTranscriber) Close() error { return nil }

func (m *MockTranscriber) wait(ctx context.Context) error {
	if m.Delay <= 0 {
		return nil
	}
	select {
	case <-time.After(m.Delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
