package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config stores runtime configuration for the interview engine.
type Config struct {
	Env     string `envconfig:"PREPMIC_ENV" default:"production"`
	DataDir string `envconfig:"PREPMIC_DATA_DIR"`

	Gemini   GeminiConfig
	Audio    AudioConfig
	Playback PlaybackConfig
	Session  SessionConfig
}

// GeminiConfig selects the models behind each external collaborator.
type GeminiConfig struct {
	APIKey          string        `envconfig:"GEMINI_API_KEY"`
	APIBaseURL      string        `envconfig:"GEMINI_API_BASE" default:"https://generativelanguage.googleapis.com/v1beta"`
	QuestionModel   string        `envconfig:"PREPMIC_QUESTION_MODEL" default:"gemini-2.5-pro"`
	TTSModel        string        `envconfig:"PREPMIC_TTS_MODEL" default:"gemini-2.5-flash-preview-tts"`
	TranscribeModel string        `envconfig:"PREPMIC_TRANSCRIBE_MODEL" default:"gemini-2.5-flash"`
	AnalysisModel   string        `envconfig:"PREPMIC_ANALYSIS_MODEL" default:"gemini-2.5-pro"`
	Timeout         time.Duration `envconfig:"PREPMIC_GEMINI_TIMEOUT" default:"120s"`
}

type AudioConfig struct {
	RecorderCommand string `envconfig:"PREPMIC_FFMPEG_COMMAND" default:"ffmpeg"`
	InputFormat     string `envconfig:"PREPMIC_AUDIO_INPUT_FORMAT" default:"pulse"`
	InputDevice     string `envconfig:"PREPMIC_AUDIO_INPUT_DEVICE" default:"default"`
	SampleRate      int    `envconfig:"PREPMIC_SAMPLE_RATE" default:"16000"`
	Channels        int    `envconfig:"PREPMIC_CHANNELS" default:"1"`
}

type PlaybackConfig struct {
	PlayerCommand string `envconfig:"PREPMIC_FFPLAY_COMMAND" default:"ffplay"`
	SampleRate    int    `envconfig:"PREPMIC_TTS_SAMPLE_RATE" default:"24000"`
	Channels      int    `envconfig:"PREPMIC_TTS_CHANNELS" default:"1"`
}

type SessionConfig struct {
	ChunkSize            int           `envconfig:"PREPMIC_AUDIO_CHUNK_SIZE" default:"4096"`
	Lookahead            int           `envconfig:"PREPMIC_PREFETCH_LOOKAHEAD" default:"3"`
	FirstQuestionTimeout time.Duration `envconfig:"PREPMIC_FIRST_QUESTION_TIMEOUT" default:"20s"`
}

// Load resolves configuration from environment variables and defaults.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("could not determine home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".local", "share", "prepmic")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("capture sample rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Audio.Channels <= 0 {
		return fmt.Errorf("capture channel count must be positive, got %d", c.Audio.Channels)
	}
	if c.Playback.SampleRate <= 0 {
		return fmt.Errorf("playback sample rate must be positive, got %d", c.Playback.SampleRate)
	}
	if c.Session.ChunkSize < 256 {
		return fmt.Errorf("audio chunk size must be at least 256 bytes, got %d", c.Session.ChunkSize)
	}
	if c.Session.Lookahead < 1 {
		return fmt.Errorf("prefetch lookahead must be at least 1, got %d", c.Session.Lookahead)
	}
	if c.Session.FirstQuestionTimeout <= 0 {
		return fmt.Errorf("first question timeout must be positive, got %s", c.Session.FirstQuestionTimeout)
	}
	return nil
}

func (c Config) IsDev() bool {
	return c.Env == "dev"
}
