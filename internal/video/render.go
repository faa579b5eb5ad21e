package video

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/codebuildervaibhav/news-shorts/internal/errors"
	"github.com/codebuildervaibhav/news-shorts/internal/media"
	"github.com/codebuildervaibhav/news-shorts/internal/transcription"
)

// CaptionStyle controls how burned-in captions look
type CaptionStyle struct {
	Font         string
	FontSize     int
	MarginBottom int
	MaxChars     int
}

// RenderInput names the artifacts that go into the final video
type RenderInput struct {
	VideoPath    string
	AudioPath    string
	CaptionsPath string
	OutPath      string
}

// Renderer muxes narration over the background video and burns in captions
type Renderer struct {
	runner media.Runner
	style  CaptionStyle
}

// NewRenderer creates an ffmpeg based renderer
func NewRenderer(runner media.Runner, style CaptionStyle) *Renderer {
	return &Renderer{runner: runner, style: style}
}

// Render writes the final captioned MP4 to in.OutPath
func (r *Renderer) Render(ctx context.Context, in RenderInput) error {
	tokens, err := transcription.ReadCaptions(in.CaptionsPath)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return apperrors.NewValidationError("caption file has no tokens", nil)
	}

	srtFile := filepath.Join(filepath.Dir(in.CaptionsPath), "captions.srt")
	if err := os.WriteFile(srtFile, []byte(transcription.ToSRT(tokens, r.style.MaxChars)), 0644); err != nil {
		return apperrors.NewIOError("write srt", err)
	}
	if err := os.MkdirAll(filepath.Dir(in.OutPath), 0755); err != nil {
		return apperrors.NewIOError("create output dir", err)
	}

	log.Printf("[render] Burning %d caption words into %s", len(tokens), in.OutPath)

	err = media.WriteAtomic(in.OutPath, func(tmp string) error {
		_, err := r.runner.Run(ctx, "ffmpeg", "-y",
			"-i", in.VideoPath,
			"-i", in.AudioPath,
			"-vf", r.subtitleFilter(srtFile),
			"-map", "0:v:0",
			"-map", "1:a:0",
			"-c:v", "libx264",
			"-preset", "fast",
			"-crf", "20",
			"-pix_fmt", "yuv420p",
			"-c:a", "aac",
			"-b:a", "192k",
			"-movflags", "+faststart",
			tmp,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("render final video: %w", err)
	}

	log.Printf("[render] Final video ready: %s", in.OutPath)
	return nil
}

func (r *Renderer) subtitleFilter(srtFile string) string {
	return fmt.Sprintf(
		"subtitles=%s:force_style='FontName=%s,FontSize=%d,Bold=1,PrimaryColour=&H00FFFFFF,OutlineColour=&H00000000,Outline=2,Alignment=2,MarginV=%d'",
		escapeSubtitlePath(srtFile),
		r.style.Font,
		r.style.FontSize,
		r.style.MarginBottom,
	)
}

func escapeSubtitlePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.ReplaceAll(path, ":", "\\:")
	path = strings.ReplaceAll(path, "'", "\\'")
	return path
}
