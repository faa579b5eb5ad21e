package pipeline

import (
	"time"

	"github.com/codebuildervaibhav/news-shorts/internal/config"
	"github.com/codebuildervaibhav/news-shorts/internal/llm"
	"github.com/codebuildervaibhav/news-shorts/internal/media"
	"github.com/codebuildervaibhav/news-shorts/internal/retry"
	"github.com/codebuildervaibhav/news-shorts/internal/scenes"
	"github.com/codebuildervaibhav/news-shorts/internal/script"
	"github.com/codebuildervaibhav/news-shorts/internal/speech"
	"github.com/codebuildervaibhav/news-shorts/internal/transcription"
	"github.com/codebuildervaibhav/news-shorts/internal/video"
)

// FromConfig wires the production stages. uploader may be nil.
func FromConfig(cfg *config.Config, runner media.Runner, store VideoStore, uploader Uploader) *Orchestrator {
	client := llm.New(cfg.LLM.APIKey, cfg.LLM.BaseURL)
	prober := media.NewProber(runner)

	stock := scenes.NewPexelsClient(cfg.Scenes.PexelsURL, cfg.Scenes.PexelsAPIKey,
		cfg.Scenes.PerPage, cfg.Scenes.MaxFactor, cfg.Video.Height)

	stages := Stages{
		Script:     script.NewWriter(client, cfg.Script.Model, cfg.Script.Language),
		Speech:     speech.NewSynthesizer(client, cfg.Speech.Model, cfg.Speech.Voice),
		Transcoder: transcription.NewTranscoder(runner),
		Captions:   transcription.NewWhisperTranscriber(cfg.Whisper.Command, cfg.Whisper.Model, cfg.Whisper.Language, runner, prober),
		Scenes: scenes.NewPlanner(client, cfg.Scenes.Model, stock, prober, scenes.Policy{
			MinScenes: cfg.Scenes.MinScenes,
			MaxScenes: cfg.Scenes.MaxScenes,
			Attempts:  cfg.Scenes.Attempts,
			Backoff:   cfg.SearchBackoff(),
		}),
		Composer: video.NewComposer(runner, cfg.Video.Width, cfg.Video.Height, cfg.Video.FPS),
		Renderer: video.NewRenderer(runner, video.CaptionStyle{
			Font:         cfg.Captions.Font,
			FontSize:     cfg.Captions.FontSize,
			MarginBottom: cfg.Captions.MarginBottom,
			MaxChars:     cfg.Captions.MaxCharsPerLine,
		}),
		Store:    store,
		Uploader: uploader,
	}

	return NewOrchestrator(stages, Options{
		UseCache:     cfg.Pipeline.UseCache,
		StageTimeout: cfg.StageTimeout(),
		Upload:       retry.Policy{Attempts: 3, Backoff: 2 * time.Second},
	})
}
