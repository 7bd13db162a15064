package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the voice bot widget
type Config struct {
	// Backend endpoints (treated as black boxes)
	BackendURL     string `envconfig:"BACKEND_URL" default:"http://localhost:5000"`
	ChatPath       string `envconfig:"CHAT_PATH" default:"/api/chat"`
	SpeakPath      string `envconfig:"SPEAK_PATH" default:"/api/speak"`
	RequestTimeout int    `envconfig:"REQUEST_TIMEOUT" default:"0"` // seconds, 0 disables the client timeout

	// Widget behaviour
	PresetQuestions    []string `envconfig:"PRESET_QUESTIONS"`                  // comma separated, overrides the built-in list
	SpeakErrorsVisible bool     `envconfig:"SPEAK_ERRORS_VISIBLE" default:"false"` // show speech failures in the response area

	// Deepgram speech recognition
	DeepgramAPIKey   string `envconfig:"DEEPGRAM_API_KEY"` // optional; recording is unavailable without it
	DeepgramModel    string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"`
	DeepgramLanguage string `envconfig:"DEEPGRAM_LANGUAGE" default:"en-US"`

	// Microphone input fed to the recognizer (file, FIFO or device node)
	AudioInput           string `envconfig:"AUDIO_INPUT" default:""`
	AudioInputEncoding   string `envconfig:"AUDIO_INPUT_ENCODING" default:"linear16"` // linear16, mulaw, ...
	AudioInputSampleRate int    `envconfig:"AUDIO_INPUT_SAMPLE_RATE" default:"16000"`
	AudioChunkSize       int    `envconfig:"AUDIO_CHUNK_SIZE" default:"3200"` // bytes per write (100ms of 16kHz linear16)

	// Audio playback
	PlayerCommand string `envconfig:"PLAYER_COMMAND" default:"aplay -q"` // the WAV file path is appended

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`        // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`      // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"false"` // Serve /metrics, /health and /ready
	MetricsPort    string `envconfig:"METRICS_PORT" default:"9090"`
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values envconfig cannot check on its own
func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_URL must be an absolute URL, got %q", c.BackendURL)
	}
	if !strings.HasPrefix(c.ChatPath, "/") {
		return fmt.Errorf("CHAT_PATH must start with '/', got %q", c.ChatPath)
	}
	if !strings.HasPrefix(c.SpeakPath, "/") {
		return fmt.Errorf("SPEAK_PATH must start with '/', got %q", c.SpeakPath)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must not be negative")
	}
	if c.AudioInputSampleRate <= 0 {
		return fmt.Errorf("AUDIO_INPUT_SAMPLE_RATE must be positive")
	}
	if c.AudioChunkSize <= 0 {
		return fmt.Errorf("AUDIO_CHUNK_SIZE must be positive")
	}
	if strings.TrimSpace(c.PlayerCommand) == "" {
		return fmt.Errorf("PLAYER_COMMAND is required")
	}
	return nil
}

// ChatURL is the absolute chat endpoint
func (c *Config) ChatURL() string {
	return strings.TrimRight(c.BackendURL, "/") + c.ChatPath
}

// SpeakURL is the absolute speech synthesis endpoint
func (c *Config) SpeakURL() string {
	return strings.TrimRight(c.BackendURL, "/") + c.SpeakPath
}

// Timeout returns the HTTP client timeout; zero means none.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// RecognitionEnabled reports whether the recognizer has what it needs to start.
func (c *Config) RecognitionEnabled() bool {
	return c.DeepgramAPIKey != "" && c.AudioInput != ""
}
