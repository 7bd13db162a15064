package widget

// View renders widget state. Methods are called with the widget lock held, in the
// order the state changed, and must not call back into the Widget.
type View interface {
	// RenderPresets draws one button per preset, in order, ahead of the question input
	RenderPresets(presets []string)

	SetModalVisible(visible bool)
	SetQuestion(text string)
	SetResponse(text string)

	// SetRecording toggles the start/stop controls and the recording indicator
	SetRecording(recording bool)

	SetSpeakVisible(visible bool)
	SetSpeakLabel(label string)
}
