package memory

import (
	"strings"
	"unicode/utf8"
)

// skipPhrases are greetings and backchannels that never benefit from memory
// retrieval. Matched against the whole cleaned message or individual words.
var skipPhrases = map[string]struct{}{
	"hello": {}, "hi": {}, "hey": {}, "howdy": {}, "sup": {}, "yo": {},
	"bye": {}, "goodbye": {}, "see you": {}, "goodnight": {}, "good night": {},
	"yeah": {}, "yes": {}, "yep": {}, "yup": {}, "no": {}, "nah": {}, "nope": {},
	"okay": {}, "ok": {}, "alright": {}, "sure": {}, "right": {},
	"mm": {}, "hmm": {}, "mmm": {}, "mhm": {}, "mm-hmm": {}, "uh-huh": {}, "uh huh": {},
	"ah": {}, "oh": {}, "huh": {}, "uh": {}, "um": {},
	"cool": {}, "nice": {}, "wow": {},
	"thanks": {}, "thank you": {}, "ty": {},
}

// memoryCues force retrieval regardless of message length; they are explicit
// callbacks to earlier conversation.
var memoryCues = []string{
	"remember",
	"told you",
	"you said",
	"last time",
	"we talked",
	"we discussed",
}

// ShouldRetrieve decides whether a message warrants searching memory at all.
// It runs before any index or model I/O and has no side effects.
//
// Greetings, backchannels, and trivially short messages skip retrieval.
// Explicit memory cues force it. Everything else retrieves: a wasted search
// costs latency, a wrongly skipped one costs context.
func ShouldRetrieve(message string) bool {
	cleaned := strings.TrimRight(strings.TrimSpace(strings.ToLower(message)), ".,!?")

	if utf8.RuneCountInString(cleaned) < 3 {
		return false
	}

	for _, cue := range memoryCues {
		if strings.Contains(cleaned, cue) {
			return true
		}
	}

	words := strings.Fields(cleaned)

	if len(words) <= 2 {
		if _, ok := skipPhrases[cleaned]; ok {
			return false
		}
	}

	if len(words) <= 3 {
		allSkip := true
		for _, w := range words {
			if _, ok := skipPhrases[w]; !ok {
				allSkip = false
				break
			}
		}
		if allSkip {
			return false
		}
	}

	return true
}
