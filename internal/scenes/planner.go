package scenes

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/codebuildervaibhav/news-shorts/internal/errors"
	"github.com/codebuildervaibhav/news-shorts/internal/llm"
	"github.com/codebuildervaibhav/news-shorts/internal/media"
	"github.com/codebuildervaibhav/news-shorts/internal/retry"
	"github.com/codebuildervaibhav/news-shorts/internal/types"
)

// ScenesFile is the name of the persisted allocation list inside the scene directory
const ScenesFile = "scenes.json"

// StockSource finds and fetches stock clips
type StockSource interface {
	Search(ctx context.Context, query string, targetMs int64) (*StockVideo, error)
	BestFile(v *StockVideo) (string, bool)
	Download(ctx context.Context, link, dst string) error
}

// DurationProber reports the length of a media file
type DurationProber interface {
	DurationMs(ctx context.Context, path string) (int64, error)
}

// Policy holds the scene count bounds and the search retry budget
type Policy struct {
	MinScenes int
	MaxScenes int
	Attempts  int
	Backoff   time.Duration
}

// Planner turns a script into stock clips laid out on the narration timeline
type Planner struct {
	llm    llm.Completer
	model  string
	stock  StockSource
	prober DurationProber
	policy Policy
}

// NewPlanner creates a scene planner
func NewPlanner(completer llm.Completer, model string, stock StockSource, prober DurationProber, policy Policy) *Planner {
	return &Planner{
		llm:    completer,
		model:  model,
		stock:  stock,
		prober: prober,
		policy: policy,
	}
}

// Plan resolves a clip for every scene the model proposes and writes scenes.json to outDir.
// Scenes whose search keeps coming back empty are skipped.
func (p *Planner) Plan(ctx context.Context, script, audioPath, outDir string) ([]types.SceneAllocation, error) {
	descriptors, err := p.Descriptors(ctx, script)
	if err != nil {
		return nil, err
	}
	if len(descriptors) == 0 {
		return nil, apperrors.NewMalformedModelOutputError("model returned no scenes", nil)
	}

	totalMs, err := p.prober.DurationMs(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("measure narration: %w", err)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, apperrors.NewIOError("create scene dir", err)
	}

	targets := TargetDurations(totalMs, descriptors)
	var timeline layout

	for i, d := range descriptors {
		log.Printf("[scenes] Scene %d: %q (weight %d, target %.1fs)", i+1, d.Text, d.Weight, float64(targets[i])/1000)

		policy := retry.Policy{
			Attempts: p.policy.Attempts,
			Backoff:  p.policy.Backoff,
			Name:     fmt.Sprintf("scene %d search", i+1),
		}
		video, err := retry.Do(ctx, policy, func(ctx context.Context, attempt int) (*StockVideo, error) {
			return p.stock.Search(ctx, d.Text, targets[i])
		})
		if err != nil {
			if apperrors.IsPermanent(err) || ctx.Err() != nil {
				return nil, fmt.Errorf("scene %d search: %w", i+1, err)
			}
			log.Printf("[scenes] WARNING: no video for %q, skipping: %v", d.Text, err)
			continue
		}

		link, ok := p.stock.BestFile(video)
		if !ok {
			log.Printf("[scenes] WARNING: video %d has no downloadable file, skipping", video.ID)
			continue
		}

		clipPath := filepath.Join(outDir, fmt.Sprintf("video_%02d.mp4", i+1))
		if err := p.stock.Download(ctx, link, clipPath); err != nil {
			return nil, fmt.Errorf("scene %d download: %w", i+1, err)
		}

		clipMs, err := p.prober.DurationMs(ctx, clipPath)
		if err != nil {
			return nil, fmt.Errorf("scene %d probe: %w", i+1, err)
		}

		alloc := timeline.place(d, clipPath, targets[i], clipMs)
		log.Printf("[scenes] Saved %s (%.1fs of %.1fs clip)", clipPath, float64(alloc.DurationMs())/1000, float64(clipMs)/1000)
	}

	if len(timeline.allocs) == 0 {
		return nil, apperrors.NewNotFoundError("no stock video found for any scene", nil)
	}

	if err := WriteScenes(filepath.Join(outDir, ScenesFile), timeline.allocs); err != nil {
		return nil, err
	}

	log.Printf("[scenes] %d/%d scenes cover %dms of %dms narration", len(timeline.allocs), len(descriptors), timeline.cursorMs, totalMs)
	return timeline.allocs, nil
}

// WriteScenes persists an allocation list as indented JSON
func WriteScenes(path string, allocs []types.SceneAllocation) error {
	data, err := json.MarshalIndent(allocs, "", "  ")
	if err != nil {
		return apperrors.NewIOError("encode scenes", err)
	}
	return media.WriteFileAtomic(path, data, 0644)
}

// ReadScenes loads an allocation list written by WriteScenes
func ReadScenes(path string) ([]types.SceneAllocation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewIOError("read scenes", err)
	}
	var allocs []types.SceneAllocation
	if err := json.Unmarshal(data, &allocs); err != nil {
		return nil, apperrors.NewIOError("decode scenes", err)
	}
	return allocs, nil
}
