package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	websocketv1api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket"
	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog"

	"github.com/lexiqai/voicebot-widget/internal/config"
	"github.com/lexiqai/voicebot-widget/internal/observability"
	"github.com/lexiqai/voicebot-widget/internal/resilience"
)

// messageCallbackHandler implements the LiveMessageCallback interface
// It embeds the default handler and overrides only the methods we need to customize
type messageCallbackHandler struct {
	*websocketv1api.DefaultCallbackHandler
	handler      func(*msginterfaces.MessageResponse)
	errorHandler func(*msginterfaces.ErrorResponse)
}

// Message forwards transcription results
func (m *messageCallbackHandler) Message(message *msginterfaces.MessageResponse) error {
	m.handler(message)
	return nil
}

// Error forwards socket and API errors
func (m *messageCallbackHandler) Error(errorResponse *msginterfaces.ErrorResponse) error {
	m.errorHandler(errorResponse)
	return nil
}

// AudioSource opens the microphone stream for one session
type AudioSource func() (io.ReadCloser, error)

// FileSource opens path (a file, FIFO or device node) for each session
func FileSource(path string) AudioSource {
	return func() (io.ReadCloser, error) {
		return os.Open(path)
	}
}

// DeepgramRecognizer implements Recognizer over Deepgram's live transcription socket
type DeepgramRecognizer struct {
	config *config.Config
	source AudioSource
	log    zerolog.Logger

	// guards session setup; an open circuit fails Start without dialing
	breaker *resilience.CircuitBreaker

	mu       sync.Mutex
	client   *listenClient.WSCallback
	input    io.ReadCloser
	cancel   context.CancelFunc
	isActive bool
	session  uint64
	results  ResultList
	onResult ResultHandler
	onError  ErrorHandler
}

// NewDeepgramRecognizer creates the single recognizer used by the widget
func NewDeepgramRecognizer(cfg *config.Config) *DeepgramRecognizer {
	var source AudioSource
	if cfg.AudioInput != "" {
		source = FileSource(cfg.AudioInput)
	}
	breaker := resilience.NewCircuitBreaker(
		"deepgram",
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	)
	breaker.SetObserver(func(name string, state resilience.CircuitState, failed bool) {
		observability.UpdateCircuitBreakerState(name, int(state))
		if failed {
			observability.IncrementCircuitBreakerFailures(name)
		}
	})

	return &DeepgramRecognizer{
		config:  cfg,
		source:  source,
		log:     observability.Component("stt"),
		breaker: breaker,
	}
}

// SetHandlers installs the result and error callbacks
func (d *DeepgramRecognizer) SetHandlers(onResult ResultHandler, onError ErrorHandler) {
	d.mu.Lock()
	d.onResult = onResult
	d.onError = onError
	d.mu.Unlock()
}

// Start opens the audio source and a Deepgram streaming session
func (d *DeepgramRecognizer) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.config.DeepgramAPIKey == "" || d.source == nil {
		return ErrNotConfigured
	}
	if d.isActive {
		return ErrAlreadyActive
	}

	input, err := d.source()
	if err != nil {
		return fmt.Errorf("failed to open audio input: %w", err)
	}

	tOptions := &interfaces.LiveTranscriptionOptions{
		Model:          d.config.DeepgramModel,
		Language:       d.config.DeepgramLanguage,
		Punctuate:      true,
		InterimResults: true,
		Encoding:       d.config.AudioInputEncoding,
		Channels:       1,
		SampleRate:     d.config.AudioInputSampleRate,
	}

	d.session++
	session := d.session
	callback := &messageCallbackHandler{
		DefaultCallbackHandler: websocketv1api.NewDefaultCallbackHandler(),
		handler: func(msg *msginterfaces.MessageResponse) {
			d.handleDeepgramMessage(session, msg)
		},
		errorHandler: func(errorResponse *msginterfaces.ErrorResponse) {
			d.log.Error().Interface("error", errorResponse).Msg("Deepgram error")
			code := errorResponse.ErrCode
			if code == "" {
				code = ErrorNetwork
			}
			// the error handler stops the session, which must not run on the socket's goroutine
			go d.fail(session, code)
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	var client *listenClient.WSCallback
	err = d.breaker.Call(func() error {
		var err error
		client, err = listenClient.NewWSUsingCallback(
			ctx,
			d.config.DeepgramAPIKey,
			nil, // ClientOptions - nil uses defaults
			tOptions,
			callback,
		)
		if err != nil {
			return fmt.Errorf("failed to create Deepgram client: %w", err)
		}
		if !client.Connect() {
			return fmt.Errorf("failed to connect to Deepgram")
		}
		return nil
	})
	if err != nil {
		cancel()
		input.Close()
		return err
	}

	d.client = client
	d.input = input
	d.cancel = cancel
	d.isActive = true
	d.results.Reset()

	go d.pump(ctx, session, client, input)

	d.log.Info().
		Str("model", d.config.DeepgramModel).
		Str("language", d.config.DeepgramLanguage).
		Msg("Deepgram streaming session started")
	return nil
}

// pump copies microphone audio into the socket until the session ends
func (d *DeepgramRecognizer) pump(ctx context.Context, session uint64, client *listenClient.WSCallback, input io.Reader) {
	buf := make([]byte, d.config.AudioChunkSize)
	for {
		n, err := input.Read(buf)
		if n > 0 {
			if _, werr := client.Write(buf[:n]); werr != nil {
				if ctx.Err() == nil {
					d.log.Error().Err(werr).Msg("Failed to send audio to Deepgram")
					d.fail(session, ErrorNetwork)
				}
				return
			}
			observability.RecordAudioBytes("in", int64(n))
		}
		if err != nil {
			switch {
			case ctx.Err() != nil:
			case errors.Is(err, io.EOF):
				d.log.Info().Msg("Audio input ended")
			default:
				d.log.Error().Err(err).Msg("Audio input failed")
				d.fail(session, ErrorAudioCapture)
			}
			return
		}
	}
}

// handleDeepgramMessage turns a Results message into a segment for the session
func (d *DeepgramRecognizer) handleDeepgramMessage(session uint64, msg *msginterfaces.MessageResponse) {
	if msg == nil || len(msg.Channel.Alternatives) == 0 {
		return
	}
	alt := msg.Channel.Alternatives[0]
	if alt.Transcript == "" {
		return
	}

	d.deliver(session, Segment{
		Text:       alt.Transcript,
		IsFinal:    msg.IsFinal,
		Confidence: alt.Confidence,
	})
}

func (d *DeepgramRecognizer) deliver(session uint64, seg Segment) {
	d.mu.Lock()
	if !d.isActive || session != d.session {
		d.mu.Unlock()
		return
	}
	// Deepgram transcripts carry no leading space; every segment after the first
	// gets one so the joined transcript reads as words
	if d.results.Index() > 0 && !startsWithSpace(seg.Text) {
		seg.Text = " " + seg.Text
	}
	results := d.results.Apply(seg)
	onResult := d.onResult
	d.mu.Unlock()

	d.log.Debug().
		Bool("final", seg.IsFinal).
		Float64("confidence", seg.Confidence).
		Str("text", seg.Text).
		Msg("Transcription")

	if onResult != nil {
		onResult(results)
	}
}

func startsWithSpace(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsSpace(r)
}

// fail reports an error once per session; the handler is expected to call Stop
func (d *DeepgramRecognizer) fail(session uint64, code string) {
	d.mu.Lock()
	if !d.isActive || session != d.session {
		d.mu.Unlock()
		return
	}
	onError := d.onError
	d.mu.Unlock()

	if onError != nil {
		onError(code)
	}
}

// Stop finishes the Deepgram session and closes the audio input
func (d *DeepgramRecognizer) Stop() error {
	d.mu.Lock()
	if !d.isActive {
		d.mu.Unlock()
		return nil // Already stopped
	}
	client, input, cancel := d.client, d.input, d.cancel
	d.client = nil
	d.input = nil
	d.cancel = nil
	d.isActive = false
	d.session++
	d.mu.Unlock()

	// Finish may wait on the callback goroutine, which takes d.mu
	cancel()
	client.Finish()
	err := input.Close()

	d.log.Info().Msg("Deepgram streaming session stopped")
	return err
}

// Close stops any session
func (d *DeepgramRecognizer) Close() error {
	return d.Stop()
}

// IsActive returns whether a session is running
func (d *DeepgramRecognizer) IsActive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isActive
}
