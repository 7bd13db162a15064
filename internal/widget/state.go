package widget

// RecordingState is the speech-to-text session state
type RecordingState int

const (
	RecordingIdle RecordingState = iota
	RecordingActive
)

func (s RecordingState) String() string {
	if s == RecordingActive {
		return "recording"
	}
	return "idle"
}

// PlaybackState is the synthesized-audio session state
type PlaybackState int

const (
	PlaybackIdle PlaybackState = iota
	PlaybackPlaying
)

func (s PlaybackState) String() string {
	if s == PlaybackPlaying {
		return "playing"
	}
	return "idle"
}

type recordingEvent int

const (
	recordingStarted recordingEvent = iota
	recordingStopped
	recordingFailed
)

// recordingTransitions lists every allowed move; anything missing keeps the state.
//
//	Idle      --started--> Recording
//	Recording --stopped--> Idle
//	Recording --failed---> Idle
//	Idle      --stopped--> Idle
var recordingTransitions = map[RecordingState]map[recordingEvent]RecordingState{
	RecordingIdle: {
		recordingStarted: RecordingActive,
		recordingStopped: RecordingIdle,
		recordingFailed:  RecordingIdle,
	},
	RecordingActive: {
		recordingStopped: RecordingIdle,
		recordingFailed:  RecordingIdle,
	},
}

func (s RecordingState) next(ev recordingEvent) RecordingState {
	if to, ok := recordingTransitions[s][ev]; ok {
		return to
	}
	return s
}

type playbackEvent int

const (
	playbackStarted playbackEvent = iota
	playbackStopped
	playbackEnded
)

// playbackTransitions lists every allowed move; anything missing keeps the state.
//
//	Idle    --started--> Playing
//	Playing --started--> Playing (prior track discarded first)
//	Playing --stopped--> Idle
//	Playing --ended----> Idle
var playbackTransitions = map[PlaybackState]map[playbackEvent]PlaybackState{
	PlaybackIdle: {
		playbackStarted: PlaybackPlaying,
	},
	PlaybackPlaying: {
		playbackStarted: PlaybackPlaying,
		playbackStopped: PlaybackIdle,
		playbackEnded:   PlaybackIdle,
	},
}

func (s PlaybackState) next(ev playbackEvent) PlaybackState {
	if to, ok := playbackTransitions[s][ev]; ok {
		return to
	}
	return s
}

// Speak control labels
const (
	LabelSpeak = "Speak"
	LabelStop  = "Stop"
)

// SpeakLabel is the speak control's label for a playback state
func SpeakLabel(s PlaybackState) string {
	if s == PlaybackPlaying {
		return LabelStop
	}
	return LabelSpeak
}

type speakAction int

const (
	speakIgnore speakAction = iota
	speakStop
	speakRequest
)

// speakActionFor decides what a click on the speak control does.
func speakActionFor(visible bool, text string, playback PlaybackState) speakAction {
	switch {
	case playback == PlaybackPlaying:
		return speakStop
	case !visible || text == "":
		return speakIgnore
	default:
		return speakRequest
	}
}

// UIState is everything the widget shows
type UIState struct {
	ModalOpen bool
	Question  string
	Response  string

	Recording RecordingState
	Playback  PlaybackState

	SpeakVisible bool
	SpeakLabel   string
	// SpeakText is the response the speak control is bound to
	SpeakText string
}

// StartEnabled reports whether the start-recording control is enabled
func (s UIState) StartEnabled() bool { return s.Recording == RecordingIdle }

// StopEnabled reports whether the stop-recording control is enabled
func (s UIState) StopEnabled() bool { return s.Recording == RecordingActive }
