package stt

import (
	"errors"
	"strings"
)

// ErrNotConfigured is returned by Start when the recognizer lacks credentials or input.
var ErrNotConfigured = errors.New("speech recognition is not configured")

// ErrAlreadyActive is returned by Start while a session is running.
var ErrAlreadyActive = errors.New("speech recognition is already active")

// Error codes passed to the error handler
const (
	ErrorNetwork      = "network"
	ErrorAudioCapture = "audio-capture"
)

// Segment is one recognition result: the best alternative for a stretch of speech
type Segment struct {
	// Text is the transcribed text
	Text string

	// IsFinal indicates if this is a final transcription (true) or interim (false)
	IsFinal bool

	// Confidence is the confidence score (0.0 to 1.0) if available
	Confidence float64
}

// ResultHandler receives every segment of the session so far, in arrival order
type ResultHandler func(results []Segment)

// ErrorHandler receives a recognition error code
type ErrorHandler func(code string)

// Recognizer is a continuous, interim-results speech recognition session
type Recognizer interface {
	// Start begins a new session; results from a previous session are dropped
	Start() error

	// Stop ends the session; safe to call when not started
	Stop() error

	// SetHandlers installs the result and error callbacks
	SetHandlers(onResult ResultHandler, onError ErrorHandler)

	// Close stops the session and releases the recognizer
	Close() error
}

// Transcript joins the best transcript of every result, in order, with no separator.
func Transcript(results []Segment) string {
	var b strings.Builder
	for _, r := range results {
		b.WriteString(r.Text)
	}
	return b.String()
}

// ResultList keeps a session's results the way a browser SpeechRecognition does:
// final segments accumulate and the trailing interim segment is replaced until it
// is finalized.
type ResultList struct {
	segments []Segment
}

// Apply adds seg and returns a snapshot of the whole list.
func (l *ResultList) Apply(seg Segment) []Segment {
	if i := l.Index(); i < len(l.segments) {
		l.segments[i] = seg
	} else {
		l.segments = append(l.segments, seg)
	}
	return l.Snapshot()
}

// Index is the position the next applied segment will take
func (l *ResultList) Index() int {
	if n := len(l.segments); n > 0 && !l.segments[n-1].IsFinal {
		return n - 1
	}
	return len(l.segments)
}

// Snapshot returns a copy of the current list
func (l *ResultList) Snapshot() []Segment {
	out := make([]Segment, len(l.segments))
	copy(out, l.segments)
	return out
}

// Reset drops every result
func (l *ResultList) Reset() {
	l.segments = l.segments[:0]
}
