package script

import (
	"context"
	"fmt"
	"log"
	"strings"

	apperrors "github.com/codebuildervaibhav/news-shorts/internal/errors"
	"github.com/codebuildervaibhav/news-shorts/internal/llm"
)

const systemPrompt = `Speak in %s. You are a presenter of short viral videos for TikTok and Reels.
You will receive a topic and must write the exact text that will be spoken in the video.
Be direct. No emojis, no bold, no markdown, no stage directions, no scene labels.
Sound natural, as if you were talking straight to the audience.`

// Writer turns a topic prompt into a narration script
type Writer struct {
	llm      llm.Completer
	model    string
	language string
}

// NewWriter creates a script writer
func NewWriter(completer llm.Completer, model, language string) *Writer {
	return &Writer{llm: completer, model: model, language: language}
}

// Write returns the narration text for prompt
func (w *Writer) Write(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", apperrors.NewValidationError("prompt is empty", nil)
	}

	log.Printf("[script] Generating narration with %s...", w.model)

	raw, err := w.llm.Complete(ctx, w.model, fmt.Sprintf(systemPrompt, w.language), prompt)
	if err != nil {
		return "", fmt.Errorf("script generation: %w", err)
	}

	text := llm.StripFences(raw)
	if text == "" {
		return "", apperrors.NewMalformedModelOutputError("model returned an empty script", nil)
	}

	log.Printf("[script] Narration ready (%d words)", len(strings.Fields(text)))
	return text, nil
}
