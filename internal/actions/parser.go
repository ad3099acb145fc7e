package actions

import (
	"regexp"
	"strings"
)

// Extraction patterns. Name extraction reuses one shape everywhere:
// one or two whitespace-separated capitalized words (uppercase first
// letter, lowercase rest) anchored after a trigger word.
var (
	phoneRe = regexp.MustCompile(`\d{10,}`)

	smsNameRe     = regexp.MustCompile(`(?:text|message|sms)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`)
	callNameRe    = regexp.MustCompile(`call\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`)
	contactNameRe = regexp.MustCompile(`(?:for|of|find)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`)

	quotedRe       = regexp.MustCompile(`["'](.+?)["']`)
	afterKeywordRe = regexp.MustCompile(`(?i)(?:saying|say|tell them|tell him|tell her)\s+(.+)`)

	musicQueryRe = regexp.MustCompile(`(?i)play\s+(.+?)(?:\s+on|\s+from|$)`)
)

// rule gates on the lowercased text and, when it matches, builds an
// Action from the raw text. build may decline (ok=false) to let parsing
// fall through to the next rule.
type rule struct {
	name  string
	match func(lower string) bool
	build func(raw, lower string) (Action, bool)
}

// rules is the fixed priority order. Earlier rules win even when later
// keyword sets would also match.
var rules = []rule{
	{
		name:  "send_message",
		match: containsAny("text", "message", "sms", "send"),
		build: buildSendMessage,
	},
	{
		// Substring check: "called" (and so "recalled", "recall" via
		// "call"+"called" interplay) suppresses this rule. Known quirk,
		// kept deliberately.
		name: "place_call",
		match: func(lower string) bool {
			return strings.Contains(lower, "call") && !strings.Contains(lower, "called")
		},
		build: buildPlaceCall,
	},
	{
		name:  "open_camera",
		match: containsAny("camera", "photo", "picture", "take a pic"),
		build: func(raw, lower string) (Action, bool) {
			return Action{Kind: KindOpenCamera}, true
		},
	},
	{
		name:  "lookup_contact",
		match: containsAny("contact", "phone number"),
		build: buildLookupContact,
	},
	{
		name:  "play_music",
		match: containsAny("play music", "play song", "spotify", "youtube music"),
		build: buildPlayMusic,
	},
}

// Parse maps raw message text to an Action descriptor. Deterministic
// and side-effect free; returns None when no rule matches.
func Parse(text string) Action {
	lower := strings.ToLower(text)
	for _, r := range rules {
		if !r.match(lower) {
			continue
		}
		if a, ok := r.build(text, lower); ok {
			return a
		}
	}
	return None
}

func containsAny(keywords ...string) func(string) bool {
	return func(lower string) bool {
		for _, k := range keywords {
			if strings.Contains(lower, k) {
				return true
			}
		}
		return false
	}
}

// buildSendMessage extracts the recipient and body for an SMS intent.
// The rule only fires when a phone number or contact name was found;
// otherwise parsing falls through (e.g. "send me a joke" is not an SMS).
func buildSendMessage(raw, lower string) (Action, bool) {
	phone := phoneRe.FindString(raw)
	name := submatch(smsNameRe, raw)

	if phone == "" && name == "" {
		return None, false
	}

	return Action{
		Kind:              KindSendMessage,
		PhoneNumber:       phone,
		ContactName:       name,
		Message:           extractMessageContent(raw),
		NeedsConfirmation: true,
	}, true
}

func buildPlaceCall(raw, lower string) (Action, bool) {
	phone := phoneRe.FindString(raw)
	name := submatch(callNameRe, raw)

	if phone == "" && name == "" {
		return None, false
	}

	return Action{
		Kind:              KindPlaceCall,
		PhoneNumber:       phone,
		ContactName:       name,
		NeedsConfirmation: true,
	}, true
}

// buildLookupContact always produces a result once the keywords match;
// the name is optional.
func buildLookupContact(raw, lower string) (Action, bool) {
	return Action{
		Kind:        KindLookupContact,
		ContactName: submatch(contactNameRe, raw),
	}, true
}

// buildPlayMusic extracts the query between "play" and the next
// " on"/" from" (or end of string). Case is preserved from the raw text.
func buildPlayMusic(raw, lower string) (Action, bool) {
	return Action{
		Kind:  KindPlayMusic,
		Query: submatch(musicQueryRe, raw),
	}, true
}

// extractMessageContent pulls the message body from quotes, or failing
// that, from the text after a "saying"-style keyword.
func extractMessageContent(raw string) string {
	if m := submatch(quotedRe, raw); m != "" {
		return m
	}
	return submatch(afterKeywordRe, raw)
}

func submatch(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}
