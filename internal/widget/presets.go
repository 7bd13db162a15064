package widget

import "errors"

// ErrUnknownPreset is returned for a preset index outside the list.
var ErrUnknownPreset = errors.New("unknown preset question")

// DefaultPresets are the quick-fill questions shown when none are configured
var DefaultPresets = []string{
	"What should we know about your life story in a few sentences?",
	"What's your #1 superpower?",
	"What are the top 3 areas you'd like to grow in?",
	"What misconception do your coworkers have about you?",
	"How do you push your boundaries and limits?",
}
