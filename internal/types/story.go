package types

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// StoryType discriminates text stories from voice stories.
type StoryType string

const (
	StoryText  StoryType = "text"
	StoryVoice StoryType = "voice"
)

// ParseStoryType validates a raw story-type tag.
func ParseStoryType(raw string) (StoryType, error) {
	switch StoryType(raw) {
	case StoryText:
		return StoryText, nil
	case StoryVoice:
		return StoryVoice, nil
	default:
		return "", fmt.Errorf("unknown story type: %q", raw)
	}
}

// Story is a published text or voice story. The slug is derived from the
// title at creation time and immutable thereafter. Audio fields are only
// present for voice stories that completed an audio upload; when absent they
// are omitted from the persisted document entirely, never stored as null.
type Story struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Content         string    `json:"content"`
	Type            StoryType `json:"type"`
	AuthorID        string    `json:"author_id"`
	AuthorName      string    `json:"author_name"`
	Slug            string    `json:"slug"`
	AudioURL        string    `json:"audio_url,omitempty"`
	AudioPublicID   string    `json:"audio_public_id,omitempty"`
	AudioTranscript string    `json:"audio_transcript,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CreateStoryInput is the payload for creating a story. Audio carries the
// raw file for voice stories; it may be nil, in which case the story is
// persisted without audio fields.
type CreateStoryInput struct {
	Title           string       `json:"title" validate:"required,min=1,max=200"`
	Content         string       `json:"content" validate:"required"`
	Type            StoryType    `json:"type" validate:"required,oneof=text voice"`
	Audio           *AudioUpload `json:"-"`
	AudioTranscript string       `json:"audio_transcript,omitempty"`
}

// AudioUpload is an in-memory audio file attached to a voice story.
type AudioUpload struct {
	FileName string
	MIMEType string
	Data     []byte
}

// StoryUpdate is the mutable subset of a story. Audio is immutable after
// creation; only title, content, and transcript can change.
type StoryUpdate struct {
	Title           *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Content         *string `json:"content,omitempty"`
	AudioTranscript *string `json:"audio_transcript,omitempty"`
}

// Validate validates the CreateStoryInput using the validator.
func (i *CreateStoryInput) Validate() error {
	validate := validator.New()
	return validate.Struct(i)
}

// Validate validates the StoryUpdate using the validator.
func (u *StoryUpdate) Validate() error {
	validate := validator.New()
	return validate.Struct(u)
}
