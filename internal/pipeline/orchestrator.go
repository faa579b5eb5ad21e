package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/codebuildervaibhav/news-shorts/internal/errors"
	"github.com/codebuildervaibhav/news-shorts/internal/retry"
	"github.com/codebuildervaibhav/news-shorts/internal/scenes"
	"github.com/codebuildervaibhav/news-shorts/internal/types"
	"github.com/codebuildervaibhav/news-shorts/internal/video"
)

// Stage names a pipeline step
type Stage string

const (
	StageScript    Stage = "script"
	StageSpeech    Stage = "speech"
	StageTranscode Stage = "transcode"
	StageCaptions  Stage = "captions"
	StageScenes    Stage = "scenes"
	StageCompose   Stage = "compose"
	StageRender    Stage = "render"
	StagePersist   Stage = "persist"
)

// FinalFile is the name of the published video inside a work directory
const FinalFile = "final.mp4"

// ErrWorkDirBusy is returned when another run holds the work directory
var ErrWorkDirBusy = apperrors.NewConflictError("work directory is in use by another run", nil)

type ScriptWriter interface {
	Write(ctx context.Context, prompt string) (string, error)
}

type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, outPath string) error
}

type AudioTranscoder interface {
	Transcode(ctx context.Context, src, dst string) error
}

type CaptionExtractor interface {
	Extract(ctx context.Context, wavPath, outDir string) ([]types.CaptionToken, string, error)
}

type ScenePlanner interface {
	Plan(ctx context.Context, script, audioPath, outDir string) ([]types.SceneAllocation, error)
}

type VideoComposer interface {
	Compose(ctx context.Context, allocs []types.SceneAllocation, workDir, outPath string) error
}

type FinalRenderer interface {
	Render(ctx context.Context, in video.RenderInput) error
}

type VideoStore interface {
	SaveVideo(ctx context.Context, rec *types.VideoRecord) error
	// FindVideoByPath returns a not-found AppError when no record points at filePath
	FindVideoByPath(ctx context.Context, filePath string) (*types.VideoRecord, error)
}

// Uploader publishes the final video somewhere and returns a link to it
type Uploader interface {
	Upload(ctx context.Context, path, name string) (string, error)
}

// Stages holds the collaborators of a run. Uploader may be nil.
type Stages struct {
	Script     ScriptWriter
	Speech     SpeechSynthesizer
	Transcoder AudioTranscoder
	Captions   CaptionExtractor
	Scenes     ScenePlanner
	Composer   VideoComposer
	Renderer   FinalRenderer
	Store      VideoStore
	Uploader   Uploader
}

// Options tunes caching and time limits
type Options struct {
	UseCache     bool
	StageTimeout time.Duration
	Upload       retry.Policy
}

// Request describes one video to produce
type Request struct {
	// Prompt defaults to Article.Description when empty
	Prompt  string
	Article types.Article
	WorkDir string
	OnStage func(Stage)
}

// Result lists every artifact of a run
type Result struct {
	Paths
	Scenes []types.SceneAllocation
	// Record is the stored record for Final. On a cache hit it is the one saved earlier.
	Record *types.VideoRecord
}

// Paths is the fixed artifact layout inside a work directory
type Paths struct {
	WorkDir  string `json:"work_dir"`
	Script   string `json:"script"`
	Audio    string `json:"audio"`
	Wav      string `json:"wav"`
	Captions string `json:"captions"`
	SceneDir string `json:"scene_dir"`
	Scenes   string `json:"scenes"`
	Composed string `json:"composed"`
	Final    string `json:"final"`
}

// PathsFor returns the artifact layout rooted at workDir
func PathsFor(workDir string) Paths {
	wav := filepath.Join(workDir, "audio.wav")
	sceneDir := filepath.Join(workDir, "video")
	return Paths{
		WorkDir:  workDir,
		Script:   filepath.Join(workDir, "script.txt"),
		Audio:    filepath.Join(workDir, "audio.mp3"),
		Wav:      wav,
		Captions: filepath.Join(workDir, "captions", strings.TrimSuffix(filepath.Base(wav), ".wav")+".json"),
		SceneDir: sceneDir,
		Scenes:   filepath.Join(sceneDir, scenes.ScenesFile),
		Composed: filepath.Join(sceneDir, "composed.mp4"),
		Final:    filepath.Join(workDir, FinalFile),
	}
}

// Orchestrator runs the stages in order, reusing artifacts when caching is on
type Orchestrator struct {
	stages Stages
	opts   Options

	mu     sync.Mutex
	active map[string]struct{}
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(stages Stages, opts Options) *Orchestrator {
	return &Orchestrator{
		stages: stages,
		opts:   opts,
		active: make(map[string]struct{}),
	}
}

// Run produces the final video for req. Any stage error aborts the run.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.WorkDir) == "" {
		return nil, apperrors.NewValidationError("work directory is required", nil)
	}

	release, err := o.lock(req.WorkDir)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := os.MkdirAll(req.WorkDir, 0755); err != nil {
		return nil, apperrors.NewIOError("create work directory", err)
	}

	prompt := req.Prompt
	if strings.TrimSpace(prompt) == "" {
		prompt = req.Article.Description
	}

	p := PathsFor(req.WorkDir)
	res := &Result{Paths: p}
	started := time.Now()
	log.Printf("[pipeline] Run started in %s (cache=%v)", req.WorkDir, o.opts.UseCache)

	var script string
	err = o.step(ctx, req, StageScript, p.Script, func(ctx context.Context) error {
		text, err := o.stages.Script.Write(ctx, prompt)
		if err != nil {
			return err
		}
		if err := os.WriteFile(p.Script, []byte(text), 0644); err != nil {
			return apperrors.NewIOError("write script", err)
		}
		script = text
		return nil
	})
	if err != nil {
		return nil, err
	}
	if script == "" {
		data, err := os.ReadFile(p.Script)
		if err != nil {
			return nil, apperrors.NewIOError("read cached script", err)
		}
		script = string(data)
	}

	err = o.step(ctx, req, StageSpeech, p.Audio, func(ctx context.Context) error {
		return o.stages.Speech.Synthesize(ctx, script, p.Audio)
	})
	if err != nil {
		return nil, err
	}

	err = o.step(ctx, req, StageTranscode, p.Wav, func(ctx context.Context) error {
		return o.stages.Transcoder.Transcode(ctx, p.Audio, p.Wav)
	})
	if err != nil {
		return nil, err
	}

	err = o.step(ctx, req, StageCaptions, p.Captions, func(ctx context.Context) error {
		_, path, err := o.stages.Captions.Extract(ctx, p.Wav, filepath.Dir(p.Captions))
		if err != nil {
			return err
		}
		if path != p.Captions {
			return apperrors.NewIOError(fmt.Sprintf("captions written to %s, expected %s", path, p.Captions), nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = o.step(ctx, req, StageScenes, p.Scenes, func(ctx context.Context) error {
		allocs, err := o.stages.Scenes.Plan(ctx, script, p.Audio, p.SceneDir)
		res.Scenes = allocs
		return err
	})
	if err != nil {
		return nil, err
	}
	if res.Scenes == nil {
		if res.Scenes, err = scenes.ReadScenes(p.Scenes); err != nil {
			return nil, err
		}
	}

	err = o.step(ctx, req, StageCompose, p.Composed, func(ctx context.Context) error {
		return o.stages.Composer.Compose(ctx, res.Scenes, p.SceneDir, p.Composed)
	})
	if err != nil {
		return nil, err
	}

	rendered := false
	err = o.step(ctx, req, StageRender, p.Final, func(ctx context.Context) error {
		rendered = true
		return o.stages.Renderer.Render(ctx, video.RenderInput{
			VideoPath:    p.Composed,
			AudioPath:    p.Audio,
			CaptionsPath: p.Captions,
			OutPath:      p.Final,
		})
	})
	if err != nil {
		return nil, err
	}

	if !rendered {
		rec, err := o.stages.Store.FindVideoByPath(ctx, p.Final)
		switch {
		case err == nil:
			log.Printf("[pipeline] Final video already recorded as %s: %s", rec.GlobalID, p.Final)
			res.Record = rec
			return res, nil
		case !apperrors.IsNotFoundError(err):
			return nil, fmt.Errorf("%s stage: %w", StagePersist, err)
		}
		log.Printf("[pipeline] Cached final video has no record yet, persisting: %s", p.Final)
	}

	o.notify(req, StagePersist)
	rec, err := o.persist(ctx, req, p.Final)
	if err != nil {
		return nil, fmt.Errorf("%s stage: %w", StagePersist, err)
	}
	res.Record = rec

	log.Printf("[pipeline] Run finished in %s: %s (%s)", time.Since(started).Round(time.Second), p.Final, rec.GlobalID)
	return res, nil
}

// step skips fn when output is cached, otherwise runs it under the stage timeout
func (o *Orchestrator) step(ctx context.Context, req Request, stage Stage, output string, fn func(ctx context.Context) error) error {
	if o.opts.UseCache && exists(output) {
		log.Printf("[pipeline] %s: using cached %s", stage, output)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return apperrors.NewTimeoutError(fmt.Sprintf("run cancelled before %s", stage), err)
	}

	o.notify(req, stage)
	log.Printf("[pipeline] %s: running", stage)

	stageCtx := ctx
	if o.opts.StageTimeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, o.opts.StageTimeout)
		defer cancel()
	}

	start := time.Now()
	if err := fn(stageCtx); err != nil {
		log.Printf("[pipeline] %s: failed after %s: %v", stage, time.Since(start).Round(time.Millisecond), err)
		// whatever is left at output is incomplete and must not count as cached
		if rmErr := os.Remove(output); rmErr == nil {
			log.Printf("[pipeline] %s: removed partial %s", stage, output)
		}
		return fmt.Errorf("%s stage: %w", stage, err)
	}
	log.Printf("[pipeline] %s: done in %s", stage, time.Since(start).Round(time.Millisecond))
	return nil
}

func (o *Orchestrator) persist(ctx context.Context, req Request, finalPath string) (*types.VideoRecord, error) {
	rec := &types.VideoRecord{
		GlobalID:    uuid.New().String(),
		FilePath:    finalPath,
		Title:       req.Article.Title,
		Description: req.Article.Description,
		Content:     req.Article.Content,
		SourceURL:   req.Article.URL,
		SourceName:  req.Article.SourceName,
		PublishedAt: req.Article.PublishedAt,
		CreatedAt:   time.Now().UTC(),
	}

	if o.stages.Uploader != nil {
		name := req.Article.Title
		if name == "" {
			name = rec.GlobalID
		}
		policy := o.opts.Upload
		policy.Name = "drive upload"
		link, err := retry.Do(ctx, policy, func(ctx context.Context, attempt int) (string, error) {
			return o.stages.Uploader.Upload(ctx, finalPath, name)
		})
		if err != nil {
			log.Printf("[pipeline] WARNING: upload failed, keeping local copy only: %v", err)
		} else {
			rec.DriveURL = link
		}
	}

	if err := o.stages.Store.SaveVideo(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (o *Orchestrator) notify(req Request, stage Stage) {
	if req.OnStage != nil {
		req.OnStage(stage)
	}
}

// InUse reports whether a run currently holds workDir
func (o *Orchestrator) InUse(workDir string) bool {
	key := lockKey(workDir)
	o.mu.Lock()
	defer o.mu.Unlock()
	_, busy := o.active[key]
	return busy
}

func lockKey(workDir string) string {
	key, err := filepath.Abs(workDir)
	if err != nil {
		return filepath.Clean(workDir)
	}
	return key
}

func (o *Orchestrator) lock(workDir string) (func(), error) {
	key := lockKey(workDir)

	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.active[key]; busy {
		return nil, ErrWorkDirBusy
	}
	o.active[key] = struct{}{}

	return func() {
		o.mu.Lock()
		delete(o.active, key)
		o.mu.Unlock()
	}, nil
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
