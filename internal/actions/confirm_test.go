package actions

import (
	"strings"
	"testing"

	"github.com/tharoslabs/superintendent/internal/personality"
)

func TestConfirmationSendMessage(t *testing.T) {
	a := Action{
		Kind:              KindSendMessage,
		ContactName:       "John",
		Message:           "call me back",
		NeedsConfirmation: true,
	}

	tharos := Confirmation(a, personality.Tharos)
	if !strings.Contains(tharos, "John") || !strings.Contains(tharos, "call me back") {
		t.Errorf("tharos confirmation missing fields: %q", tharos)
	}

	super := Confirmation(a, personality.Superintendent)
	if !strings.Contains(super, "John") || !strings.Contains(super, "call me back") {
		t.Errorf("superintendent confirmation missing fields: %q", super)
	}

	if tharos == super {
		t.Error("expected persona-specific wording")
	}
}

func TestConfirmationRecipientFallback(t *testing.T) {
	// Name absent: the phone number stands in.
	a := Action{Kind: KindPlaceCall, PhoneNumber: "4155550100999", NeedsConfirmation: true}
	got := Confirmation(a, personality.Superintendent)
	if !strings.Contains(got, "4155550100999") {
		t.Errorf("expected phone number in confirmation, got %q", got)
	}

	// Both absent: the message embeds an empty identifier. Carried
	// over from the original behavior; no extra guarding.
	a = Action{Kind: KindPlaceCall, NeedsConfirmation: true}
	got = Confirmation(a, personality.Superintendent)
	if got != "Initiating call to  now, sir." {
		t.Errorf("unexpected rendering: %q", got)
	}
}

func TestConfirmationMusicQueryFallback(t *testing.T) {
	a := Action{Kind: KindPlayMusic}

	if got := Confirmation(a, personality.Tharos); !strings.Contains(got, "music") {
		t.Errorf("tharos fallback: %q", got)
	}
	if got := Confirmation(a, personality.Superintendent); !strings.Contains(got, "your music") {
		t.Errorf("superintendent fallback: %q", got)
	}
}

func TestConfirmationNoneIsEmpty(t *testing.T) {
	if got := Confirmation(None, personality.Tharos); got != "" {
		t.Errorf("expected empty confirmation for none, got %q", got)
	}
	if got := Confirmation(None, personality.Superintendent); got != "" {
		t.Errorf("expected empty confirmation for none, got %q", got)
	}
}

func TestConfirmationEveryRenderableKindHasBothModes(t *testing.T) {
	kinds := []Kind{KindSendMessage, KindPlaceCall, KindOpenCamera, KindLookupContact, KindPlayMusic}
	for _, mode := range []personality.Mode{personality.Tharos, personality.Superintendent} {
		for _, k := range kinds {
			if got := Confirmation(Action{Kind: k}, mode); got == "" {
				t.Errorf("no template for (%s, %s)", mode, k)
			}
		}
	}
}
