package speech

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/codebuildervaibhav/news-shorts/internal/errors"
	"github.com/codebuildervaibhav/news-shorts/internal/llm"
	"github.com/codebuildervaibhav/news-shorts/internal/media"
)

// Synthesizer renders narration text into an MP3 file
type Synthesizer struct {
	tts   llm.SpeechGenerator
	model string
	voice string
}

// NewSynthesizer creates a synthesizer with a fixed model and voice
func NewSynthesizer(tts llm.SpeechGenerator, model, voice string) *Synthesizer {
	return &Synthesizer{tts: tts, model: model, voice: voice}
}

// Synthesize writes speech for text to outPath, creating parent directories as needed
func (s *Synthesizer) Synthesize(ctx context.Context, text, outPath string) error {
	if strings.TrimSpace(text) == "" {
		return apperrors.NewValidationError("nothing to synthesize", nil)
	}

	log.Printf("[speech] Synthesizing %d chars with %s/%s", len(text), s.model, s.voice)

	audio, err := s.tts.Speech(ctx, s.model, s.voice, text)
	if err != nil {
		return fmt.Errorf("speech synthesis: %w", err)
	}

	if len(audio) == 0 {
		return apperrors.NewExternalError("speech endpoint returned no audio", nil)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return apperrors.NewIOError("create audio dir", err)
	}
	if err := media.WriteFileAtomic(outPath, audio, 0644); err != nil {
		return err
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return apperrors.NewIOError("audio file missing after write", err)
	}

	log.Printf("[speech] Saved %s (%d bytes)", outPath, info.Size())
	return nil
}
