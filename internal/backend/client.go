package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/lexiqai/voicebot-widget/internal/audio"
	"github.com/lexiqai/voicebot-widget/internal/config"
	"github.com/lexiqai/voicebot-widget/internal/observability"
	"github.com/lexiqai/voicebot-widget/internal/resilience"
)

// maxBodyBytes bounds a response body; synthesized WAV is the largest payload.
const maxBodyBytes = 64 << 20

// ErrCircuitOpen is returned while an endpoint's circuit breaker is open.
var ErrCircuitOpen = resilience.ErrOpen

// Client talks to the chat and speech endpoints. Both are opaque: the client only
// knows their JSON shapes. Nothing is retried.
type Client struct {
	baseURL      string
	chatURL      string
	speakURL     string
	httpClient   *http.Client
	chatBreaker  *resilience.CircuitBreaker
	speakBreaker *resilience.CircuitBreaker
	sf           singleflight.Group
	log          zerolog.Logger
}

// NewClient creates a backend client from configuration
func NewClient(cfg *config.Config) *Client {
	reset := time.Duration(cfg.CircuitBreakerResetTimeout) * time.Second

	c := &Client{
		baseURL:      cfg.BackendURL,
		chatURL:      cfg.ChatURL(),
		speakURL:     cfg.SpeakURL(),
		httpClient:   &http.Client{Timeout: cfg.Timeout()},
		chatBreaker:  resilience.NewCircuitBreaker("chat", cfg.CircuitBreakerMaxFailures, reset),
		speakBreaker: resilience.NewCircuitBreaker("speak", cfg.CircuitBreakerMaxFailures, reset),
		log:          observability.Component("backend"),
	}
	c.chatBreaker.SetObserver(publishBreakerState)
	c.speakBreaker.SetObserver(publishBreakerState)
	return c
}

func publishBreakerState(name string, state resilience.CircuitState, failed bool) {
	observability.UpdateCircuitBreakerState(name, int(state))
	if failed {
		observability.IncrementCircuitBreakerFailures(name)
	}
}

// Chat posts the question and returns the answer text. An error reported by the
// endpoint comes back as *EndpointError; anything else is a transport or parse failure.
func (c *Client) Chat(ctx context.Context, question string) (string, error) {
	var out ChatResponse
	if err := c.call(ctx, c.chatBreaker, c.chatURL, ChatRequest{Question: question}, &out); err != nil {
		return "", err
	}
	if out.Error != "" {
		return "", &EndpointError{Endpoint: "chat", Message: out.Error}
	}
	return out.Response, nil
}

// Speak requests synthesized audio for text and returns the decoded WAV clip.
// Identical texts requested concurrently share one round trip.
func (c *Client) Speak(ctx context.Context, text string) (*audio.Clip, error) {
	v, err, shared := c.sf.Do(text, func() (any, error) {
		var out SpeakResponse
		if err := c.call(ctx, c.speakBreaker, c.speakURL, SpeakRequest{Text: text}, &out); err != nil {
			return nil, err
		}
		if out.Error != "" {
			return nil, &EndpointError{Endpoint: "speak", Message: out.Error}
		}
		clip, err := audio.DecodeBase64WAV(out.Audio)
		if err != nil {
			return nil, fmt.Errorf("invalid speak audio: %w", err)
		}
		return clip, nil
	})
	if shared {
		c.log.Debug().Int("text_len", len(text)).Msg("Speak request coalesced")
	}
	if err != nil {
		return nil, err
	}
	return v.(*audio.Clip), nil
}

// Ping reports whether the backend answers HTTP at all.
func (c *Client) Ping(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	resp.Body.Close()
	return true, nil
}

func (c *Client) call(ctx context.Context, breaker *resilience.CircuitBreaker, url string, in, out any) error {
	requestID := observability.NewCorrelationID()
	logger := observability.WithCorrelationID(c.log, requestID).With().Str("endpoint", breaker.Name()).Logger()

	// a cancelled or superseded request is not a backend failure
	err := breaker.CallContext(ctx, func() error {
		return c.postJSON(ctx, url, requestID, in, out)
	})
	if errors.Is(err, ErrCircuitOpen) {
		logger.Warn().Msg("Endpoint circuit open, failing fast")
		return fmt.Errorf("%s endpoint unavailable: %w", breaker.Name(), err)
	}
	if err != nil {
		logger.Debug().Err(err).Msg("Endpoint request failed")
		return err
	}
	logger.Debug().Msg("Endpoint request completed")
	return nil
}

// postJSON sends in as JSON and decodes the reply into out whatever the status code:
// the endpoints answer errors as JSON bodies with 4xx/5xx statuses.
func (c *Client) postJSON(ctx context.Context, url, requestID string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}
