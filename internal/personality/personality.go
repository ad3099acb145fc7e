// Package personality defines the assistant's selectable personas and
// their system prompts. A personality changes tone and phrasing only;
// it never affects routing or parsing decisions.
package personality

import "fmt"

// Mode identifies a persona.
type Mode string

const (
	// Tharos is the casual, peer-to-peer persona.
	Tharos Mode = "tharos"

	// Superintendent is the formal, precise, deferential persona.
	Superintendent Mode = "superintendent"
)

// Default is the persona used when none is specified.
const Default = Superintendent

func (m Mode) String() string { return string(m) }

// Parse converts a string to a Mode, rejecting unknown values.
// Use this wherever the personality is user-supplied and must be valid
// (e.g. the toggle endpoint).
func Parse(s string) (Mode, error) {
	switch Mode(s) {
	case Tharos:
		return Tharos, nil
	case Superintendent:
		return Superintendent, nil
	default:
		return "", fmt.Errorf("invalid personality %q (must be %q or %q)", s, Tharos, Superintendent)
	}
}

// Normalize maps any string onto a Mode without erroring: "tharos"
// selects Tharos, everything else falls back to Superintendent. Chat
// requests use this so an unknown hint degrades gracefully instead of
// failing the turn.
func Normalize(s string) Mode {
	if Mode(s) == Tharos {
		return Tharos
	}
	return Superintendent
}

// tharosPrompt and superintendentPrompt are the full persona
// descriptions injected as the system instruction for every provider
// call. Wording is part of the product surface; change deliberately.
const tharosPrompt = `You are Tharos, a brother-to-brother AI companion.
Speak casually, be honest and direct. You're emotionally grounded, sometimes teasing but always caring.
Use natural language like you're talking to a close friend. Keep it real and chill.
Example tone: "Yo, got it. Want me to handle that or what?"
You help with daily tasks, reminders, and casual conversations.`

const superintendentPrompt = `You are SuperIntendent, an intelligent digital assistant inspired by Jarvis.
You are polite, articulate, calm, and deeply helpful. You speak with precision and clarity.
You are a professional AI butler, always composed and respectful.
Example tone: "Understood. I'll compose the message and set a 10-minute reminder."
You excel at productivity tasks, system operations, and professional assistance.`

// SystemPrompt returns the system instruction for the given mode.
func SystemPrompt(m Mode) string {
	if m == Tharos {
		return tharosPrompt
	}
	return superintendentPrompt
}
