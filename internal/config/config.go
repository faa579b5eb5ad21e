package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	LLM struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"-"`
	} `yaml:"llm"`

	Script struct {
		Model    string `yaml:"model"`
		Language string `yaml:"language"`
	} `yaml:"script"`

	Speech struct {
		Model string `yaml:"model"`
		Voice string `yaml:"voice"`
	} `yaml:"speech"`

	Whisper struct {
		Model    string `yaml:"model"`
		Language string `yaml:"language"`
		Command  string `yaml:"command"`
	} `yaml:"whisper"`

	Scenes struct {
		Model        string  `yaml:"model"`
		MinScenes    int     `yaml:"min_scenes"`
		MaxScenes    int     `yaml:"max_scenes"`
		PerPage      int     `yaml:"per_page"`
		Attempts     int     `yaml:"attempts"`
		BackoffMs    int     `yaml:"backoff_ms"`
		PexelsURL    string  `yaml:"pexels_url"`
		PexelsAPIKey string  `yaml:"-"`
		MaxFactor    float64 `yaml:"max_duration_factor"`
	} `yaml:"scenes"`

	Video struct {
		Width  int `yaml:"width"`
		Height int `yaml:"height"`
		FPS    int `yaml:"fps"`
	} `yaml:"video"`

	Captions struct {
		Font            string `yaml:"font"`
		FontSize        int    `yaml:"font_size"`
		MarginBottom    int    `yaml:"margin_bottom"`
		MaxCharsPerLine int    `yaml:"max_chars_per_line"`
	} `yaml:"captions"`

	Pipeline struct {
		UseCache            bool `yaml:"use_cache"`
		StageTimeoutMinutes int  `yaml:"stage_timeout_minutes"`
	} `yaml:"pipeline"`

	Workers struct {
		Count int `yaml:"count"`
	} `yaml:"workers"`

	Storage struct {
		WorkDir  string `yaml:"work_dir"`
		Database string `yaml:"database"`
	} `yaml:"storage"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`

	GoogleDrive struct {
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
		FolderName      string `yaml:"folder_name"`
	} `yaml:"google_drive"`
}

// Load reads the YAML file at path, applies defaults and pulls secrets from the environment.
// A .env file next to the binary is loaded first if present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

// Default returns a config with every default filled in and secrets read from the environment
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg
}

func (c *Config) applyDefaults() {
	setString(&c.Server.Host, "0.0.0.0")
	setInt(&c.Server.Port, 8080)

	setString(&c.Script.Model, "gpt-4o-mini")
	setString(&c.Script.Language, "Brazilian Portuguese")

	setString(&c.Speech.Model, "gpt-4o-mini-tts")
	setString(&c.Speech.Voice, "alloy")

	setString(&c.Whisper.Model, "small")
	setString(&c.Whisper.Language, "pt")
	setString(&c.Whisper.Command, "python")

	setString(&c.Scenes.Model, "gpt-4o-mini")
	setInt(&c.Scenes.MinScenes, 6)
	setInt(&c.Scenes.MaxScenes, 10)
	setInt(&c.Scenes.PerPage, 5)
	setInt(&c.Scenes.Attempts, 3)
	setInt(&c.Scenes.BackoffMs, 1000)
	setString(&c.Scenes.PexelsURL, "https://api.pexels.com")
	if c.Scenes.MaxFactor <= 0 {
		c.Scenes.MaxFactor = 2
	}

	setInt(&c.Video.Width, 720)
	setInt(&c.Video.Height, 1280)
	setInt(&c.Video.FPS, 30)

	setString(&c.Captions.Font, "Barlow Condensed")
	setInt(&c.Captions.FontSize, 18)
	setInt(&c.Captions.MarginBottom, 70)
	setInt(&c.Captions.MaxCharsPerLine, 24)

	setInt(&c.Pipeline.StageTimeoutMinutes, 15)

	setInt(&c.Workers.Count, 1)

	setString(&c.Storage.WorkDir, "public/cache")
	setString(&c.Storage.Database, "public/sqlite/system.db")

	setInt(&c.Cleanup.IntervalMinutes, 60)
	setInt(&c.Cleanup.MaxAgeHours, 72)

	setString(&c.GoogleDrive.FolderName, "NewsShorts")
}

func (c *Config) applyEnv() {
	c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	c.Scenes.PexelsAPIKey = os.Getenv("PEXELS_API_KEY")
	if os.Getenv("USE_CACHE") == "true" {
		c.Pipeline.UseCache = true
	}
}

// Validate checks the settings a pipeline run cannot work without
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set")
	}
	if c.Scenes.PexelsAPIKey == "" {
		return fmt.Errorf("PEXELS_API_KEY is not set")
	}
	if c.Scenes.MinScenes < 1 || c.Scenes.MaxScenes < c.Scenes.MinScenes {
		return fmt.Errorf("invalid scene bounds %d..%d", c.Scenes.MinScenes, c.Scenes.MaxScenes)
	}
	if c.Workers.Count < 1 {
		return fmt.Errorf("workers.count must be at least 1")
	}
	return nil
}

// StageTimeout is the deadline given to every pipeline stage
func (c *Config) StageTimeout() time.Duration {
	return time.Duration(c.Pipeline.StageTimeoutMinutes) * time.Minute
}

// SearchBackoff is the pause between stock footage search attempts
func (c *Config) SearchBackoff() time.Duration {
	return time.Duration(c.Scenes.BackoffMs) * time.Millisecond
}

func setString(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

func setInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}
