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
	"github.com/codebuildervaibhav/news-shorts/internal/types"
)

// Composer trims scene clips to their allocated length and joins them
type Composer struct {
	runner media.Runner
	width  int
	height int
	fps    int
}

// NewComposer creates a composer producing width x height video at fps
func NewComposer(runner media.Runner, width, height, fps int) *Composer {
	return &Composer{runner: runner, width: width, height: height, fps: fps}
}

// CropPath is where the trimmed copy of scene index (0-based) is written
func CropPath(workDir string, index int) string {
	return filepath.Join(workDir, "crop", fmt.Sprintf("video_%d.mp4", index+1))
}

// Compose writes a silent video made of allocs in order to outPath
func (c *Composer) Compose(ctx context.Context, allocs []types.SceneAllocation, workDir, outPath string) error {
	if len(allocs) == 0 {
		return apperrors.NewValidationError("no scenes to compose", nil)
	}

	cropDir := filepath.Join(workDir, "crop")
	if err := os.MkdirAll(cropDir, 0755); err != nil {
		return apperrors.NewIOError("create crop dir", err)
	}

	log.Printf("[compose] Cropping %d scenes to %dx%d@%d", len(allocs), c.width, c.height, c.fps)

	crops := make([]string, 0, len(allocs))
	for i, a := range allocs {
		dst := CropPath(workDir, i)
		log.Printf("[compose] Crop %d/%d: %s -> %dms", i+1, len(allocs), a.Path, a.DurationMs())
		if err := c.crop(ctx, a.Path, dst, a.DurationMs()); err != nil {
			return fmt.Errorf("crop scene %d: %w", i+1, err)
		}
		crops = append(crops, dst)
	}

	if err := c.concat(ctx, crops, filepath.Join(cropDir, "concat.txt"), outPath); err != nil {
		return err
	}

	log.Printf("[compose] Background video ready: %s", outPath)
	return nil
}

func (c *Composer) crop(ctx context.Context, src, dst string, durationMs int64) error {
	filter := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,setsar=1",
		c.width, c.height, c.width, c.height)

	return media.WriteAtomic(dst, func(tmp string) error {
		_, err := c.runner.Run(ctx, "ffmpeg", "-y",
			"-ss", "0",
			"-i", src,
			"-t", fmt.Sprintf("%.3f", float64(durationMs)/1000),
			"-vf", filter,
			"-r", fmt.Sprintf("%d", c.fps),
			"-c:v", "libx264",
			"-preset", "fast",
			"-pix_fmt", "yuv420p",
			"-an",
			tmp,
		)
		return err
	})
}

func (c *Composer) concat(ctx context.Context, clips []string, listFile, outPath string) error {
	lines := make([]string, 0, len(clips))
	for _, clip := range clips {
		abs, err := filepath.Abs(clip)
		if err != nil {
			return apperrors.NewIOError("resolve clip path", err)
		}
		lines = append(lines, fmt.Sprintf("file '%s'", strings.ReplaceAll(abs, "'", `'\''`)))
	}
	if err := os.WriteFile(listFile, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		return apperrors.NewIOError("write concat list", err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return apperrors.NewIOError("create output dir", err)
	}

	log.Printf("[compose] Concatenating %d clips...", len(clips))
	err := media.WriteAtomic(outPath, func(tmp string) error {
		_, err := c.runner.Run(ctx, "ffmpeg", "-y",
			"-f", "concat",
			"-safe", "0",
			"-i", listFile,
			"-c", "copy",
			tmp,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("concat scenes: %w", err)
	}
	return nil
}
