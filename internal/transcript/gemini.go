package transcript

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/rkgupta29/assignment-story-creation-app/internal/objectstore"
	"github.com/rkgupta29/assignment-story-creation-app/internal/types"
)

const defaultModel = "gemini-2.0-flash"

const transcribePrompt = `Transcribe the spoken content of this audio recording.
Return ONLY the transcript text, no markdown, no timestamps, no speaker labels.`

const polishPrompt = `Rewrite the following raw voice transcript into readable story prose.
Fix grammar and filler words but preserve the speaker's meaning and voice.
Return ONLY the rewritten text, no markdown, no explanation.

Transcript:
"""
%s
"""`

// GeminiTranscriber transcribes audio with the Gemini API.
type GeminiTranscriber struct {
	client *genai.Client
	model  string
}

// NewGeminiTranscriber creates a Gemini-backed transcriber.
func NewGeminiTranscriber(ctx context.Context, apiKey string) (*GeminiTranscriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiTranscriber{client: client, model: defaultModel}, nil
}

// Transcribe sends the audio bytes inline with the transcription prompt.
func (g *GeminiTranscriber) Transcribe(ctx context.Context, audio *types.AudioUpload) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0.1)

	resp, err := model.GenerateContent(ctx,
		genai.Blob{MIMEType: objectstore.BaseMIMEType(audio.MIMEType), Data: audio.Data},
		genai.Text(transcribePrompt),
	)
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}
	return extractTextFromResponse(resp)
}

// Polish rewrites a raw transcript into story prose.
func (g *GeminiTranscriber) Polish(ctx context.Context, raw string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0.1)

	resp, err := model.GenerateContent(ctx, genai.Text(fmt.Sprintf(polishPrompt, raw)))
	if err != nil {
		return "", fmt.Errorf("failed to polish transcript: %w", err)
	}
	return extractTextFromResponse(resp)
}

// Close releases the underlying API client.
func (g *GeminiTranscriber) Close() error {
	return g.client.Close()
}

// extractTextFromResponse concatenates the text parts of the first candidate.
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("empty response from model")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return "", fmt.Errorf("response candidate has no content")
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	result := strings.TrimSpace(sb.String())
	if result == "" {
		return "", fmt.Errorf("response contains no text parts")
	}
	return result, nil
}
