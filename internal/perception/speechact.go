// Package perception classifies parsed utterances into speech acts and decides
// whether an utterance is addressed to the agent.
package perception

import (
	"fmt"
	"strings"
)

// SpeechAct is the communicative function of an utterance. The integer values
// are the published tags.
type SpeechAct int

const (
	Huh SpeechAct = iota
	Hail
	Greet
	Farewell
	UnkWord
	Fact
	Command
	Question
	ReviseOp
	NewRule
	NewOp
)

var actNames = [...]string{
	Huh:      "huh",
	Hail:     "hail",
	Greet:    "greet",
	Farewell: "farewell",
	UnkWord:  "unk-word",
	Fact:     "fact",
	Command:  "command",
	Question: "question",
	ReviseOp: "revise-op",
	NewRule:  "new-rule",
	NewOp:    "new-op",
}

// AllSpeechActs lists every act in tag order.
func AllSpeechActs() []SpeechAct {
	out := make([]SpeechAct, len(actNames))
	for i := range actNames {
		out[i] = SpeechAct(i)
	}
	return out
}

func (a SpeechAct) String() string {
	if a < 0 || int(a) >= len(actNames) {
		return fmt.Sprintf("act(%d)", int(a))
	}
	return actNames[a]
}

// MarshalText writes the act name.
func (a SpeechAct) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText accepts an act name.
func (a *SpeechAct) UnmarshalText(b []byte) error {
	v, err := ParseSpeechAct(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// ParseSpeechAct maps a name ("unk-word", "unk_word" or "UnkWord" style) to its act.
func ParseSpeechAct(s string) (SpeechAct, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(s, "/"), "_", "-"))
	for i, name := range actNames {
		if norm == name || norm == strings.ReplaceAll(name, "-", "") {
			return SpeechAct(i), nil
		}
	}
	return Huh, fmt.Errorf("unknown speech act %q", s)
}
