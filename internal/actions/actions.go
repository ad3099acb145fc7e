// Package actions detects device-control intents in free-form user text.
//
// Parsing is a fixed-priority list of keyword-gated rules evaluated in
// order, first match wins. The result is a structured Action descriptor
// consumed by a client-side executor; this package never performs the
// action itself. Confirmation wording is advisory text, not an enforced
// gate.
package actions

// Kind identifies the detected device action.
type Kind string

const (
	KindNone          Kind = "none"
	KindSendMessage   Kind = "sms"
	KindPlaceCall     Kind = "call"
	KindOpenCamera    Kind = "camera"
	KindLookupContact Kind = "contacts"
	KindPlayMusic     Kind = "music"
)

// Action is the structured result of parsing a message. Extracted
// fields are best-effort; absent fields are empty strings. Actions are
// constructed fresh per message, never persisted, and never mutated.
type Action struct {
	Kind              Kind   `json:"action"`
	PhoneNumber       string `json:"phone_number,omitempty"`
	ContactName       string `json:"contact_name,omitempty"`
	Message           string `json:"message,omitempty"`
	Query             string `json:"query,omitempty"`
	NeedsConfirmation bool   `json:"needs_confirmation"`
}

// None is the descriptor returned when no device action was detected.
var None = Action{Kind: KindNone}
