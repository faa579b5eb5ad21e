package transcription

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	apperrors "github.com/codebuildervaibhav/news-shorts/internal/errors"
	"github.com/codebuildervaibhav/news-shorts/internal/media"
)

// SampleRate is what the whisper models expect
const SampleRate = 16000

// Transcoder converts narration audio into 16kHz mono WAV
type Transcoder struct {
	runner media.Runner
}

// NewTranscoder creates a transcoder backed by ffmpeg
func NewTranscoder(runner media.Runner) *Transcoder {
	return &Transcoder{runner: runner}
}

// Transcode writes a 16kHz mono PCM copy of src to dst and returns once ffmpeg exits
func (t *Transcoder) Transcode(ctx context.Context, src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		return apperrors.NewIOError("source audio missing", err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return apperrors.NewIOError("create transcode dir", err)
	}

	log.Printf("[transcode] %s -> %s (%d Hz mono)", src, dst, SampleRate)

	err := media.WriteAtomic(dst, func(tmp string) error {
		_, err := t.runner.Run(ctx, "ffmpeg",
			"-y",
			"-i", src,
			"-ar", fmt.Sprintf("%d", SampleRate),
			"-ac", "1",
			"-c:a", "pcm_s16le",
			tmp,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("transcode audio: %w", err)
	}
	return nil
}
