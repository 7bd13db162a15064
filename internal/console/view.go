package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/lexiqai/voicebot-widget/internal/widget"
)

// View renders widget changes as lines of text. Only changes are printed.
type View struct {
	mu  sync.Mutex
	out io.Writer

	modalVisible bool
	question     string
	response     string
	recording    bool
	speakVisible bool
	speakLabel   string
}

// NewView creates a view writing to out
func NewView(out io.Writer) *View {
	return &View{out: out, speakLabel: widget.LabelSpeak}
}

// Printf writes a line to the view's output, serialized with rendering
func (v *View) Printf(format string, args ...any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, format+"\n", args...)
}

func (v *View) RenderPresets(presets []string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintln(v.out, "Preset questions:")
	for i, p := range presets {
		fmt.Fprintf(v.out, "  %d. %s\n", i+1, p)
	}
}

func (v *View) SetModalVisible(visible bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.modalVisible == visible {
		return
	}
	v.modalVisible = visible
	if visible {
		fmt.Fprintln(v.out, "[voice bot opened]")
	} else {
		fmt.Fprintln(v.out, "[voice bot closed]")
	}
}

func (v *View) SetQuestion(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.question == text {
		return
	}
	v.question = text
	fmt.Fprintf(v.out, "Question: %s\n", text)
}

func (v *View) SetResponse(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.response == text {
		return
	}
	v.response = text
	fmt.Fprintf(v.out, "Response: %s\n", text)
}

func (v *View) SetRecording(recording bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.recording == recording {
		return
	}
	v.recording = recording
	if recording {
		fmt.Fprintln(v.out, "[recording] start disabled, stop enabled")
	} else {
		fmt.Fprintln(v.out, "[not recording] start enabled, stop disabled")
	}
}

func (v *View) SetSpeakVisible(visible bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.speakVisible == visible {
		return
	}
	v.speakVisible = visible
	if visible {
		fmt.Fprintf(v.out, "[%s] available, type 'speak'\n", v.speakLabel)
	}
}

func (v *View) SetSpeakLabel(label string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.speakLabel == label {
		return
	}
	v.speakLabel = label
	fmt.Fprintf(v.out, "[%s]\n", label)
}
