package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/codebuildervaibhav/news-shorts/internal/errors"
	"github.com/codebuildervaibhav/news-shorts/internal/media"
	"github.com/codebuildervaibhav/news-shorts/internal/types"
)

// DurationProber reports the length of an audio file
type DurationProber interface {
	DurationMs(ctx context.Context, path string) (int64, error)
}

// WhisperTranscriber wraps Python's OpenAI Whisper for word-level captions
type WhisperTranscriber struct {
	command  string
	model    string
	language string
	runner   media.Runner
	prober   DurationProber
}

// NewWhisperTranscriber creates a transcriber with a fixed model and language
func NewWhisperTranscriber(command, model, language string, runner media.Runner, prober DurationProber) *WhisperTranscriber {
	if command == "" {
		command = "python"
	}
	return &WhisperTranscriber{
		command:  command,
		model:    model,
		language: language,
		runner:   runner,
		prober:   prober,
	}
}

// CaptionPath is where the captions for audioPath are written inside outDir
func CaptionPath(audioPath, outDir string) string {
	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	return filepath.Join(outDir, base+".json")
}

// Extract transcribes a 16kHz wav into caption tokens and saves them to CaptionPath(audioPath, outDir)
func (wt *WhisperTranscriber) Extract(ctx context.Context, audioPath, outDir string) ([]types.CaptionToken, string, error) {
	log.Printf("[captions] Transcribing with Whisper (%s, %s): %s", wt.model, wt.language, audioPath)

	absAudioPath, err := filepath.Abs(audioPath)
	if err != nil {
		return nil, "", apperrors.NewIOError("resolve audio path", err)
	}

	tempDir, err := os.MkdirTemp("", "whisper_output")
	if err != nil {
		return nil, "", apperrors.NewIOError("create whisper dir", err)
	}
	defer os.RemoveAll(tempDir)

	_, err = wt.runner.Run(ctx, wt.command, "-m", "whisper",
		absAudioPath,
		"--model", wt.model,
		"--language", wt.language,
		"--word_timestamps", "True",
		"--output_dir", tempDir,
		"--output_format", "json",
		"--fp16", "False",
	)
	if err != nil {
		return nil, "", fmt.Errorf("whisper transcription: %w", err)
	}

	jsonData, err := os.ReadFile(CaptionPath(absAudioPath, tempDir))
	if err != nil {
		return nil, "", apperrors.NewIOError("read whisper output", err)
	}

	var whisperOutput WhisperOutput
	if err := json.Unmarshal(jsonData, &whisperOutput); err != nil {
		return nil, "", apperrors.NewExternalError("parse whisper JSON", err)
	}

	durationMs, err := wt.prober.DurationMs(ctx, audioPath)
	if err != nil {
		return nil, "", err
	}

	tokens := TokensFromWhisper(whisperOutput, durationMs)
	if len(tokens) == 0 {
		return nil, "", apperrors.NewExternalError("whisper returned no words", nil)
	}

	outPath := CaptionPath(audioPath, outDir)
	if err := WriteCaptions(outPath, tokens); err != nil {
		return nil, "", err
	}

	log.Printf("[captions] %d tokens over %dms saved to %s", len(tokens), durationMs, outPath)
	return tokens, outPath, nil
}

// TokensFromWhisper flattens segment words into ordered tokens bounded by durationMs.
// Start times never move backwards and every token ends at or after it starts.
func TokensFromWhisper(out WhisperOutput, durationMs int64) []types.CaptionToken {
	var tokens []types.CaptionToken
	var prevFrom int64

	for _, seg := range out.Segments {
		for _, w := range seg.Words {
			text := strings.TrimSpace(w.Word)
			if text == "" {
				continue
			}

			from := int64(math.Round(w.Start * 1000))
			to := int64(math.Round(w.End * 1000))

			if from < prevFrom {
				from = prevFrom
			}
			if durationMs > 0 {
				from = min(from, durationMs)
				to = min(to, durationMs)
			}
			if to < from {
				to = from
			}

			tokens = append(tokens, types.CaptionToken{
				Text:       text,
				FromMs:     from,
				ToMs:       to,
				Confidence: w.Probability,
			})
			prevFrom = from
		}
	}
	return tokens
}

// WhisperOutput matches Python Whisper's JSON output format
type WhisperOutput struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Segments []WhisperSegment `json:"segments"`
}

// WhisperSegment represents a timestamped segment from Whisper
type WhisperSegment struct {
	ID    int           `json:"id"`
	Start float64       `json:"start"`
	End   float64       `json:"end"`
	Text  string        `json:"text"`
	Words []WhisperWord `json:"words"`
}

// WhisperWord is present when --word_timestamps is on
type WhisperWord struct {
	Word        string  `json:"word"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Probability float64 `json:"probability"`
}
