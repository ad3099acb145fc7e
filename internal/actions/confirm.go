package actions

import (
	"fmt"

	"github.com/tharoslabs/superintendent/internal/personality"
)

// recipient returns the best identifier for the other party: contact
// name first, phone number second. When both are absent the returned
// string is empty and the rendered confirmation embeds a blank
// identifier — callers wanting stricter behavior should check the
// descriptor fields before rendering.
func (a Action) recipient() string {
	if a.ContactName != "" {
		return a.ContactName
	}
	return a.PhoneNumber
}

func (a Action) queryOr(fallback string) string {
	if a.Query != "" {
		return a.Query
	}
	return fallback
}

// confirmations maps (personality mode, action kind) to a rendering
// function. Adding a persona means adding a row here; parsing logic is
// untouched. Templates differ across modes in tone only, never in
// information content.
var confirmations = map[personality.Mode]map[Kind]func(Action) string{
	personality.Tharos: {
		KindSendMessage: func(a Action) string {
			return fmt.Sprintf("Yo, got it! I'll help you text %s. Want me to send: '%s'? Just say yes and I'll open it for you.", a.recipient(), a.Message)
		},
		KindPlaceCall: func(a Action) string {
			return fmt.Sprintf("Alright bro, calling %s now. Hold on...", a.recipient())
		},
		KindOpenCamera: func(a Action) string {
			return "Opening the camera for you. Smile!"
		},
		KindLookupContact: func(a Action) string {
			return "Let me check your contacts for you..."
		},
		KindPlayMusic: func(a Action) string {
			return fmt.Sprintf("Yo, playing %s for you now!", a.queryOr("music"))
		},
	},
	personality.Superintendent: {
		KindSendMessage: func(a Action) string {
			return fmt.Sprintf("Understood. I will compose a message to %s: '%s'. Shall I proceed?", a.recipient(), a.Message)
		},
		KindPlaceCall: func(a Action) string {
			return fmt.Sprintf("Initiating call to %s now, sir.", a.recipient())
		},
		KindOpenCamera: func(a Action) string {
			return "Opening the camera application for you."
		},
		KindLookupContact: func(a Action) string {
			return "Accessing your contacts directory..."
		},
		KindPlayMusic: func(a Action) string {
			return fmt.Sprintf("Playing %s for you now.", a.queryOr("your music"))
		},
	},
}

// Confirmation renders the human-readable confirmation text for an
// action under the given personality. Returns an empty string when no
// template exists for the (mode, kind) pair — in practice only for
// KindNone, which is never rendered.
func Confirmation(a Action, mode personality.Mode) string {
	byKind, ok := confirmations[mode]
	if !ok {
		byKind = confirmations[personality.Default]
	}
	render, ok := byKind[a.Kind]
	if !ok {
		return ""
	}
	return render(a)
}
