package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("BACKEND_URL")
	os.Unsetenv("LOG_LEVEL")
	os.Unsetenv("PRESET_QUESTIONS")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.BackendURL != "http://localhost:5000" {
		t.Errorf("Expected default BackendURL 'http://localhost:5000', got '%s'", cfg.BackendURL)
	}

	if cfg.ChatURL() != "http://localhost:5000/api/chat" {
		t.Errorf("Expected chat URL 'http://localhost:5000/api/chat', got '%s'", cfg.ChatURL())
	}

	if cfg.SpeakURL() != "http://localhost:5000/api/speak" {
		t.Errorf("Expected speak URL 'http://localhost:5000/api/speak', got '%s'", cfg.SpeakURL())
	}

	if cfg.Timeout() != 0 {
		t.Errorf("Expected no request timeout by default, got %v", cfg.Timeout())
	}

	if cfg.SpeakErrorsVisible {
		t.Error("Expected default SpeakErrorsVisible false, got true")
	}

	if len(cfg.PresetQuestions) != 0 {
		t.Errorf("Expected no preset override, got %v", cfg.PresetQuestions)
	}

	if cfg.DeepgramModel != "nova-2" {
		t.Errorf("Expected default DeepgramModel 'nova-2', got '%s'", cfg.DeepgramModel)
	}

	if cfg.AudioInputSampleRate != 16000 {
		t.Errorf("Expected default AudioInputSampleRate 16000, got %d", cfg.AudioInputSampleRate)
	}

	if cfg.PlayerCommand != "aplay -q" {
		t.Errorf("Expected default PlayerCommand 'aplay -q', got '%s'", cfg.PlayerCommand)
	}
}

func TestLoad_Overrides(t *testing.T) {
	os.Setenv("BACKEND_URL", "https://bot.example.com/")
	os.Setenv("REQUEST_TIMEOUT", "12")
	os.Setenv("PRESET_QUESTIONS", "Who are you?,What do you do?")
	defer os.Unsetenv("BACKEND_URL")
	defer os.Unsetenv("REQUEST_TIMEOUT")
	defer os.Unsetenv("PRESET_QUESTIONS")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.ChatURL() != "https://bot.example.com/api/chat" {
		t.Errorf("Expected trailing slash to be trimmed, got '%s'", cfg.ChatURL())
	}

	if cfg.Timeout() != 12*time.Second {
		t.Errorf("Expected timeout 12s, got %v", cfg.Timeout())
	}

	if len(cfg.PresetQuestions) != 2 || cfg.PresetQuestions[1] != "What do you do?" {
		t.Errorf("Expected two preset questions, got %v", cfg.PresetQuestions)
	}
}

func TestLoad_InvalidBackendURL(t *testing.T) {
	os.Setenv("BACKEND_URL", "not a url")
	defer os.Unsetenv("BACKEND_URL")

	_, err := LoadFromEnv()
	if err == nil {
		t.Error("Expected error for relative backend URL")
	}
}

func TestLoad_InvalidChatPath(t *testing.T) {
	os.Setenv("CHAT_PATH", "api/chat")
	defer os.Unsetenv("CHAT_PATH")

	_, err := LoadFromEnv()
	if err == nil {
		t.Error("Expected error when CHAT_PATH lacks a leading slash")
	}
}

func TestRecognitionEnabled(t *testing.T) {
	cfg := &Config{DeepgramAPIKey: "key"}
	if cfg.RecognitionEnabled() {
		t.Error("Expected recognition disabled without an audio input")
	}

	cfg.AudioInput = "/dev/stdin"
	if !cfg.RecognitionEnabled() {
		t.Error("Expected recognition enabled with key and audio input")
	}
}

func TestConfig_ObservabilityDefaults(t *testing.T) {
	os.Unsetenv("LOG_LEVEL")
	os.Unsetenv("METRICS_ENABLED")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Expected default LogLevel 'info', got '%s'", cfg.LogLevel)
	}

	if cfg.LogPretty {
		t.Error("Expected default LogPretty false, got true")
	}

	if cfg.MetricsEnabled {
		t.Error("Expected default MetricsEnabled false, got true")
	}

	if cfg.CircuitBreakerMaxFailures != 5 {
		t.Errorf("Expected default CircuitBreakerMaxFailures 5, got %d", cfg.CircuitBreakerMaxFailures)
	}
}
