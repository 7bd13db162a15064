package console

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lexiqai/voicebot-widget/internal/observability"
	"github.com/lexiqai/voicebot-widget/internal/widget"
)

// Widget is the part of the widget controller the shell drives
type Widget interface {
	Open()
	Close()
	Presets() []string
	ClickPreset(i int) error
	SetQuestion(text string)
	Send(ctx context.Context)
	StartRecording() error
	StopRecording()
	ToggleSpeak(ctx context.Context) error
	State() widget.UIState
}

const helpText = `Commands:
  open          show the voice bot
  close         hide it and clear the question and response
  presets       list preset questions
  preset N      fill the question with preset N
  ask TEXT      type TEXT into the question input
  send          send the question
  start         start dictation
  stop          stop dictation
  speak         speak the response, or stop speaking
  state         show the current state
  help          show this help
  quit          exit`

// Shell reads commands line by line and drives the widget. send and speak run on
// their own goroutines so input keeps flowing while requests are outstanding.
type Shell struct {
	widget Widget
	view   *View
	in     io.Reader
	log    zerolog.Logger

	wg sync.WaitGroup
}

// NewShell creates a shell reading commands from in and printing through view
func NewShell(w Widget, view *View, in io.Reader) *Shell {
	return &Shell{
		widget: w,
		view:   view,
		in:     in,
		log:    observability.Component("console"),
	}
}

// Run processes commands until quit, end of input or ctx cancellation. On quit or
// cancellation outstanding sends and speaks are cancelled; at end of input they are
// allowed to finish.
func (s *Shell) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		s.wg.Wait()
	}()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(s.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			// piped input: let the last commands finish
			s.wg.Wait()
			return err
		case line := <-lines:
			if !s.Execute(ctx, line) {
				return nil
			}
		}
	}
}

// Execute runs one command line. It returns false when the shell should exit.
func (s *Shell) Execute(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)
	if cmd != "" {
		s.log.Debug().Str("command", cmd).Msg("Console command")
	}

	switch strings.ToLower(cmd) {
	case "":
	case "open":
		s.widget.Open()
	case "close":
		s.widget.Close()
	case "presets":
		for i, p := range s.widget.Presets() {
			s.view.Printf("  %d. %s", i+1, p)
		}
	case "preset":
		n, err := strconv.Atoi(arg)
		if err != nil {
			s.view.Printf("usage: preset N")
			break
		}
		if err := s.widget.ClickPreset(n - 1); err != nil {
			s.view.Printf("no preset %d", n)
		}
	case "ask":
		s.widget.SetQuestion(arg)
	case "send":
		s.async(func() { s.widget.Send(ctx) })
	case "start":
		if err := s.widget.StartRecording(); err != nil {
			s.view.Printf("could not start recording: %v", err)
		}
	case "stop":
		s.widget.StopRecording()
	case "speak":
		s.async(func() {
			// failures are logged by the widget
			_ = s.widget.ToggleSpeak(ctx)
		})
	case "state":
		s.printState()
	case "help", "?":
		s.view.Printf("%s", helpText)
	case "quit", "exit":
		return false
	default:
		s.view.Printf("unknown command %q, type 'help'", cmd)
	}
	return true
}

func (s *Shell) async(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

func (s *Shell) printState() {
	st := s.widget.State()
	s.view.Printf("modal open: %t", st.ModalOpen)
	s.view.Printf("question:   %q", st.Question)
	s.view.Printf("response:   %q", st.Response)
	s.view.Printf("recording:  %s", st.Recording)
	s.view.Printf("playback:   %s", st.Playback)
	if st.SpeakVisible {
		s.view.Printf("speak:      [%s]", st.SpeakLabel)
	} else {
		s.view.Printf("speak:      hidden")
	}
}
