package widget

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/voicebot-widget/internal/audio"
	"github.com/lexiqai/voicebot-widget/internal/backend"
	"github.com/lexiqai/voicebot-widget/internal/observability"
	"github.com/lexiqai/voicebot-widget/internal/playback"
	"github.com/lexiqai/voicebot-widget/internal/stt"
)

// Response area texts
const (
	ThinkingText       = "Thinking..."
	ChatFailureText    = "Error: Could not get response"
	SpeakFailureText   = "Error: Could not play audio"
	endpointErrorTitle = "Error: "
)

// Backend is the pair of remote endpoints the widget talks to
type Backend interface {
	Chat(ctx context.Context, question string) (string, error)
	Speak(ctx context.Context, text string) (*audio.Clip, error)
}

// Options configures a Widget
type Options struct {
	// Presets overrides DefaultPresets when non-empty
	Presets []string

	// SpeakErrorsVisible shows speak failures in the response area
	SpeakErrorsVisible bool
}

// Widget is the voice bot controller. All state lives in one UIState guarded by mu;
// network calls run outside the lock and their results re-enter under it.
type Widget struct {
	view       View
	backend    Backend
	recognizer stt.Recognizer
	player     playback.Player
	presets    []string
	speakErrs  bool
	log        zerolog.Logger

	mu    sync.Mutex
	state UIState

	// chat request generation; only the latest one may write the response
	generation uint64
	cancelChat context.CancelFunc

	track   playback.Track
	trackID uint64
}

// New wires the widget to its collaborators and renders the presets. recognizer may be
// nil when speech recognition is not configured.
func New(view View, client Backend, recognizer stt.Recognizer, player playback.Player, opts Options) (*Widget, error) {
	if view == nil {
		return nil, fmt.Errorf("view is required")
	}
	if client == nil {
		return nil, fmt.Errorf("backend client is required")
	}
	if player == nil {
		return nil, fmt.Errorf("audio player is required")
	}

	presets := DefaultPresets
	if len(opts.Presets) > 0 {
		presets = opts.Presets
	}

	w := &Widget{
		view:       view,
		backend:    client,
		recognizer: recognizer,
		player:     player,
		presets:    append([]string(nil), presets...),
		speakErrs:  opts.SpeakErrorsVisible,
		log:        observability.Component("widget"),
		state: UIState{
			SpeakLabel: LabelSpeak,
		},
	}

	if recognizer != nil {
		recognizer.SetHandlers(w.onRecognitionResult, w.onRecognitionError)
	}

	w.mu.Lock()
	w.view.RenderPresets(w.Presets())
	w.view.SetModalVisible(false)
	w.view.SetRecording(false)
	w.view.SetSpeakVisible(false)
	w.view.SetSpeakLabel(LabelSpeak)
	w.mu.Unlock()

	return w, nil
}

// Presets returns the preset questions in display order
func (w *Widget) Presets() []string {
	return append([]string(nil), w.presets...)
}

// State returns a copy of the current UI state
func (w *Widget) State() UIState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Open shows the modal
func (w *Widget) Open() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.ModalOpen = true
	w.view.SetModalVisible(true)
}

// Close hides the modal and clears the question and response
func (w *Widget) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.ModalOpen = false
	w.view.SetModalVisible(false)
	w.setQuestionLocked("")
	w.setResponseLocked("")
}

// ClickPreset overwrites the question with preset i
func (w *Widget) ClickPreset(i int) error {
	if i < 0 || i >= len(w.presets) {
		return fmt.Errorf("%w: %d", ErrUnknownPreset, i)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.setQuestionLocked(w.presets[i])
	return nil
}

// SetQuestion is the user typing into the question input
func (w *Widget) SetQuestion(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.setQuestionLocked(text)
}

func (w *Widget) setQuestionLocked(text string) {
	w.state.Question = text
	w.view.SetQuestion(text)
}

func (w *Widget) setResponseLocked(text string) {
	w.state.Response = text
	w.view.SetResponse(text)
}

func (w *Widget) setSpeakVisibleLocked(visible bool) {
	w.state.SpeakVisible = visible
	w.view.SetSpeakVisible(visible)
}

func (w *Widget) setPlaybackLocked(ev playbackEvent) {
	w.state.Playback = w.state.Playback.next(ev)
	w.state.SpeakLabel = SpeakLabel(w.state.Playback)
	w.view.SetSpeakLabel(w.state.SpeakLabel)
	observability.SetPlaying(w.state.Playback == PlaybackPlaying)
}

func (w *Widget) setRecordingLocked(ev recordingEvent) {
	w.state.Recording = w.state.Recording.next(ev)
	active := w.state.Recording == RecordingActive
	w.view.SetRecording(active)
	observability.SetRecording(active)
}

// StartRecording begins dictation. On failure the error is logged and returned and
// the state is left untouched.
func (w *Widget) StartRecording() error {
	if w.recognizer == nil {
		w.log.Error().Err(stt.ErrNotConfigured).Msg("Failed to start recording")
		return stt.ErrNotConfigured
	}
	if err := w.recognizer.Start(); err != nil {
		w.log.Error().Err(err).Msg("Failed to start recording")
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.setRecordingLocked(recordingStarted)
	w.log.Info().Msg("Recording started")
	return nil
}

// StopRecording ends dictation; safe when not recording
func (w *Widget) StopRecording() {
	w.stopRecording(recordingStopped)
}

func (w *Widget) stopRecording(ev recordingEvent) {
	if w.recognizer != nil {
		if err := w.recognizer.Stop(); err != nil {
			w.log.Warn().Err(err).Msg("Error stopping recognizer")
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	wasRecording := w.state.Recording == RecordingActive
	w.setRecordingLocked(ev)
	if wasRecording {
		w.log.Info().Msg("Recording stopped")
	}
}

// onRecognitionResult overwrites the question with the whole transcript so far
func (w *Widget) onRecognitionResult(results []stt.Segment) {
	observability.RecordRecognitionEvent("result")
	transcript := stt.Transcript(results)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.setQuestionLocked(transcript)
}

func (w *Widget) onRecognitionError(code string) {
	observability.RecordRecognitionEvent("error")
	w.log.Error().Str("code", code).Msg("Speech recognition error")
	w.stopRecording(recordingFailed)
}

// Send posts the trimmed question to the chat endpoint and shows the outcome. An
// empty question does nothing. A newer Send cancels this one and its result is dropped.
func (w *Widget) Send(ctx context.Context) {
	w.mu.Lock()
	question := strings.TrimSpace(w.state.Question)
	if question == "" {
		w.mu.Unlock()
		return
	}

	if w.cancelChat != nil {
		w.cancelChat()
	}
	w.generation++
	generation := w.generation
	reqCtx, cancel := context.WithCancel(ctx)
	w.cancelChat = cancel

	w.setResponseLocked(ThinkingText)
	w.setSpeakVisibleLocked(false)
	w.mu.Unlock()

	start := time.Now()
	answer, err := w.backend.Chat(reqCtx, question)
	elapsed := time.Since(start)

	w.mu.Lock()
	defer w.mu.Unlock()

	if generation != w.generation {
		cancel()
		w.log.Debug().Uint64("generation", generation).Msg("Discarding superseded chat response")
		observability.RecordChat(observability.OutcomeSuperseded, elapsed)
		return
	}
	w.cancelChat = nil
	cancel()

	var endpointErr *backend.EndpointError
	switch {
	case errors.As(err, &endpointErr):
		w.log.Warn().Str("error", endpointErr.Message).Msg("Chat endpoint returned an error")
		observability.RecordChat(observability.OutcomeEndpointError, elapsed)
		w.setResponseLocked(endpointErrorTitle + endpointErr.Message)

	case err != nil:
		w.log.Error().Err(err).Msg("Chat request failed")
		observability.RecordChat(observability.OutcomeFailure, elapsed)
		w.setResponseLocked(ChatFailureText)

	default:
		observability.RecordChat(observability.OutcomeOK, elapsed)
		w.setResponseLocked(answer)
		w.state.SpeakText = answer
		w.setSpeakVisibleLocked(true)
	}
}

// ToggleSpeak is a click on the speak control: stop if playing, otherwise fetch the
// bound response as audio and play it.
func (w *Widget) ToggleSpeak(ctx context.Context) error {
	w.mu.Lock()
	action := speakActionFor(w.state.SpeakVisible, w.state.SpeakText, w.state.Playback)
	text := w.state.SpeakText
	switch action {
	case speakStop:
		if w.track != nil {
			w.track.Stop()
		}
		w.setPlaybackLocked(playbackStopped)
		w.mu.Unlock()
		w.log.Debug().Msg("Playback stopped")
		return nil
	case speakIgnore:
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	start := time.Now()
	clip, err := w.backend.Speak(ctx, text)
	if err != nil {
		return w.speakFailed(err, time.Since(start))
	}
	w.log.Debug().
		Uint32("sample_rate", clip.SampleRate).
		Uint16("channels", clip.Channels).
		Dur("duration", clip.Duration()).
		Msg("Speech audio received")

	track, err := w.player.Load(clip)
	if err != nil {
		return w.speakFailed(err, time.Since(start))
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.discardTrackLocked()
	w.trackID++
	id := w.trackID
	w.track = track
	track.OnEnded(func() { w.onTrackEnded(id) })

	if err := track.Play(); err != nil {
		w.discardTrackLocked()
		if w.state.Playback == PlaybackPlaying {
			w.setPlaybackLocked(playbackStopped)
		}
		return w.speakFailedLocked(err, time.Since(start))
	}
	w.setPlaybackLocked(playbackStarted)
	observability.RecordSpeak(observability.OutcomeOK, time.Since(start))
	return nil
}

func (w *Widget) discardTrackLocked() {
	if w.track == nil {
		return
	}
	w.track.Stop()
	if err := w.track.Close(); err != nil {
		w.log.Warn().Err(err).Msg("Failed to release audio track")
	}
	w.track = nil
}

// onTrackEnded handles natural end of playback; events from replaced tracks are ignored
func (w *Widget) onTrackEnded(id uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if id != w.trackID || w.state.Playback != PlaybackPlaying {
		return
	}
	w.setPlaybackLocked(playbackEnded)
	w.log.Debug().Msg("Playback ended")
}

func (w *Widget) speakFailed(err error, elapsed time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.speakFailedLocked(err, elapsed)
}

func (w *Widget) speakFailedLocked(err error, elapsed time.Duration) error {
	outcome := observability.OutcomeFailure
	var endpointErr *backend.EndpointError
	if errors.As(err, &endpointErr) {
		outcome = observability.OutcomeEndpointError
	}
	observability.RecordSpeak(outcome, elapsed)
	w.log.Error().Err(err).Msg("Speak failed")

	if w.speakErrs {
		w.setResponseLocked(SpeakFailureText)
	}
	return err
}

// Shutdown cancels any chat request, stops recording and releases the audio track
func (w *Widget) Shutdown() {
	w.StopRecording()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancelChat != nil {
		w.cancelChat()
		w.cancelChat = nil
	}
	w.discardTrackLocked()
	if w.state.Playback == PlaybackPlaying {
		w.setPlaybackLocked(playbackStopped)
	}
}
