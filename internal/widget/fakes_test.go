package widget

import (
	"context"
	"sync"

	"github.com/lexiqai/voicebot-widget/internal/audio"
	"github.com/lexiqai/voicebot-widget/internal/playback"
	"github.com/lexiqai/voicebot-widget/internal/stt"
)

type fakeView struct {
	mu           sync.Mutex
	presets      []string
	modalVisible bool
	question     string
	response     string
	recording    bool
	speakVisible bool
	speakLabel   string
	responses    []string
}

func (v *fakeView) RenderPresets(presets []string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.presets = append(v.presets, presets...)
}

func (v *fakeView) SetModalVisible(visible bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.modalVisible = visible
}

func (v *fakeView) SetQuestion(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.question = text
}

func (v *fakeView) SetResponse(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.response = text
	v.responses = append(v.responses, text)
}

func (v *fakeView) SetRecording(recording bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.recording = recording
}

func (v *fakeView) SetSpeakVisible(visible bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.speakVisible = visible
}

func (v *fakeView) SetSpeakLabel(label string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.speakLabel = label
}

type fakeRecognizer struct {
	startErr error
	starts   int
	stops    int
	onResult stt.ResultHandler
	onError  stt.ErrorHandler
	results  stt.ResultList
}

func (r *fakeRecognizer) Start() error {
	if r.startErr != nil {
		return r.startErr
	}
	r.starts++
	r.results.Reset()
	return nil
}

func (r *fakeRecognizer) Stop() error {
	r.stops++
	return nil
}

func (r *fakeRecognizer) SetHandlers(onResult stt.ResultHandler, onError stt.ErrorHandler) {
	r.onResult = onResult
	r.onError = onError
}

func (r *fakeRecognizer) Close() error { return r.Stop() }

func (r *fakeRecognizer) emit(text string, final bool) {
	r.onResult(r.results.Apply(stt.Segment{Text: text, IsFinal: final}))
}

type fakeTrack struct {
	mu      sync.Mutex
	plays   int
	stops   int
	closed  bool
	playErr error
	onEnded func()
}

func (t *fakeTrack) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.playErr != nil {
		return t.playErr
	}
	t.plays++
	return nil
}

func (t *fakeTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stops++
}

func (t *fakeTrack) OnEnded(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onEnded = fn
}

func (t *fakeTrack) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// end simulates playback reaching the end of the clip
func (t *fakeTrack) end() {
	t.mu.Lock()
	fn := t.onEnded
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

type fakePlayer struct {
	mu      sync.Mutex
	tracks  []*fakeTrack
	playErr error
}

func (p *fakePlayer) Load(clip *audio.Clip) (playback.Track, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := &fakeTrack{playErr: p.playErr}
	p.tracks = append(p.tracks, t)
	return t, nil
}

func (p *fakePlayer) track(i int) *fakeTrack {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tracks[i]
}

// gatedBackend answers each chat question only when the test releases it
type gatedBackend struct {
	mu      sync.Mutex
	calls   map[string]int
	gates   map[string]chan string
	started chan string
}

func newGatedBackend(questions ...string) *gatedBackend {
	b := &gatedBackend{
		calls:   make(map[string]int),
		gates:   make(map[string]chan string),
		started: make(chan string, len(questions)),
	}
	for _, q := range questions {
		b.gates[q] = make(chan string, 1)
	}
	return b
}

func (b *gatedBackend) Chat(ctx context.Context, question string) (string, error) {
	b.mu.Lock()
	b.calls[question]++
	gate := b.gates[question]
	b.mu.Unlock()

	b.started <- question
	answer := <-gate
	return answer, nil
}

func (b *gatedBackend) Speak(ctx context.Context, text string) (*audio.Clip, error) {
	return nil, context.Canceled
}

func (b *gatedBackend) release(question, answer string) {
	b.gates[question] <- answer
}
