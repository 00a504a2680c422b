package perception

import (
	"fmt"
	"strings"

	"hearsay/internal/tokenizer"
)

// AttentionMode decides when an utterance wakes the reasoner.
type AttentionMode int

const (
	AttendAlways AttentionMode = iota
	AttendAnywhere
	AttendStart
	AttendOnly
)

func (m AttentionMode) String() string {
	switch m {
	case AttendAlways:
		return "always"
	case AttendAnywhere:
		return "anywhere"
	case AttendStart:
		return "start"
	case AttendOnly:
		return "only"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseAttentionMode maps a config value to a mode.
func ParseAttentionMode(s string) (AttentionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "always", "":
		return AttendAlways, nil
	case "anywhere":
		return AttendAnywhere, nil
	case "start":
		return AttendStart, nil
	case "only":
		return AttendOnly, nil
	}
	return AttendAlways, fmt.Errorf("unknown attention mode %q", s)
}

// Sections is the grammar lookup the start mode needs.
type Sections interface {
	InSection(head, phrase string) bool
}

var yesNo = map[string]bool{"yes": true, "no": true, "yeah": true, "nope": true, "ok": true, "okay": true}

// Attention holds the alert phrases of the current grammar.
type Attention struct {
	Mode     AttentionMode
	alerts   [][]string
	sections Sections
}

// NewAttention builds a policy. Alerts are the ATTN expansions; sections may
// be nil when mode is not AttendStart.
func NewAttention(mode AttentionMode, alerts []string, sections Sections) *Attention {
	a := &Attention{Mode: mode, sections: sections}
	for _, phrase := range alerts {
		if words := strings.Fields(strings.ToLower(phrase)); len(words) > 0 {
			a.alerts = append(a.alerts, words)
		}
	}
	return a
}

// Wake reports whether the utterance should reach the reasoner.
func (a *Attention) Wake(words []string) bool {
	ws := bare(words)
	switch a.Mode {
	case AttendAlways:
		return true
	case AttendAnywhere:
		for i := range ws {
			if a.alertAt(ws, i) > 0 {
				return true
			}
		}
		return false
	case AttendStart:
		i := 0
		if i < len(ws) && (yesNo[ws[i]] || a.in("HQ", ws[i])) {
			i++
		}
		if i < len(ws) && a.alertAt(ws, i) == 0 && a.in("AKO", ws[i]) {
			i++
		}
		return a.alertAt(ws, i) > 0
	case AttendOnly:
		return a.only(ws)
	}
	return false
}

// Only reports whether the words are exactly one alert phrase.
func (a *Attention) Only(words []string) bool {
	return a.only(bare(words))
}

func (a *Attention) only(ws []string) bool {
	return len(ws) > 0 && a.alertAt(ws, 0) == len(ws)
}

func (a *Attention) in(head, w string) bool {
	return a.sections != nil && a.sections.InSection(head, w)
}

// alertAt returns the length of the longest alert phrase starting at ws[i].
func (a *Attention) alertAt(ws []string, i int) int {
	best := 0
	for _, alert := range a.alerts {
		if len(alert) <= best || i+len(alert) > len(ws) {
			continue
		}
		match := true
		for j, w := range alert {
			if ws[i+j] != w {
				match = false
				break
			}
		}
		if match {
			best = len(alert)
		}
	}
	return best
}

// AttentionOnly reports whether words, ignoring punctuation, equal one of the
// alert phrases.
func AttentionOnly(words []string, alerts []string) bool {
	return NewAttention(AttendOnly, alerts, nil).Only(words)
}

func bare(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w == "" || tokenizer.IsPunctuation(w) {
			continue
		}
		out = append(out, strings.ToLower(w))
	}
	return out
}
