package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/lexiqai/voicebot-widget/internal/backend"
	"github.com/lexiqai/voicebot-widget/internal/config"
	"github.com/lexiqai/voicebot-widget/internal/console"
	"github.com/lexiqai/voicebot-widget/internal/observability"
	"github.com/lexiqai/voicebot-widget/internal/playback"
	"github.com/lexiqai/voicebot-widget/internal/stt"
	"github.com/lexiqai/voicebot-widget/internal/widget"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("backend_url", cfg.BackendURL).
		Bool("recognition_enabled", cfg.RecognitionEnabled()).
		Str("player", cfg.PlayerCommand).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Voice bot starting")

	client := backend.NewClient(cfg)

	player, err := playback.NewCommandPlayer(cfg.PlayerCommand)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create audio player")
	}

	var recognizer stt.Recognizer
	if cfg.RecognitionEnabled() {
		recognizer = stt.NewDeepgramRecognizer(cfg)
	} else {
		logger.Warn().Msg("Speech recognition disabled: set DEEPGRAM_API_KEY and AUDIO_INPUT to enable dictation")
	}

	view := console.NewView(os.Stdout)
	w, err := widget.New(view, client, recognizer, player, widget.Options{
		Presets:            cfg.PresetQuestions,
		SpeakErrorsVisible: cfg.SpeakErrorsVisible,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create widget")
	}
	view.Printf("Type 'help' for commands.")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	shell := console.NewShell(w, view, os.Stdin)
	g.Go(func() error {
		defer stop()
		return shell.Run(gctx)
	})

	if cfg.MetricsEnabled {
		server := newMetricsServer(cfg, client)
		g.Go(func() error {
			logger.Info().Str("port", cfg.MetricsPort).Msg("Metrics listening")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()

			// Graceful shutdown with timeout
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	logger.Info().Msg("Shutting down...")
	w.Shutdown()
	if recognizer != nil {
		if cerr := recognizer.Close(); cerr != nil {
			logger.Warn().Err(cerr).Msg("Error closing recognizer")
		}
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("Voice bot exited with error")
	}
	logger.Info().Msg("Voice bot exited")
}

func newMetricsServer(cfg *config.Config, client *backend.Client) *http.Server {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", observability.HealthCheckHandler())

	// Readiness: the backend answers and, if dictation is configured, Deepgram has a key
	checks := map[string]observability.HealthCheckFunc{
		"backend": client.Ping,
	}
	if cfg.AudioInput != "" {
		checks["deepgram"] = func(ctx context.Context) (bool, error) {
			if !cfg.RecognitionEnabled() {
				return false, stt.ErrNotConfigured
			}
			return true, nil
		}
	}
	mux.HandleFunc("/ready", observability.ReadinessHandler(checks))

	// Metrics endpoint (Prometheus)
	mux.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.MetricsPort),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
