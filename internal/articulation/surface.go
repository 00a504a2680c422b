package articulation

import (
	"fmt"
	"strings"

	"hearsay/internal/perception"
)

// DefaultTemplates are the replies used when the configuration names none.
// Placeholders: {unknown} (first unknown word), {raw}, {normalized} and any
// {SLOT} of the association list.
var DefaultTemplates = map[perception.SpeechAct]string{
	perception.Huh:      "Sorry, I don't understand.",
	perception.Hail:     "Yes?",
	perception.Greet:    "Hello {NAME}.",
	perception.Farewell: "Goodbye.",
	perception.UnkWord:  `What does "{unknown}" mean?`,
	perception.Fact:     "Got it.",
	perception.Command:  "OK.",
	perception.Question: "Let me think.",
	perception.ReviseOp: "OK, I'll change how I do that.",
	perception.NewRule:  "OK, I'll remember that rule.",
	perception.NewOp:    "OK, I'll learn how to do that.",
}

// Templates maps speech acts to reply templates.
type Templates map[perception.SpeechAct]string

// NewTemplates merges overrides keyed by act name into the defaults.
func NewTemplates(overrides map[string]string) (Templates, error) {
	t := make(Templates, len(DefaultTemplates))
	for act, tmpl := range DefaultTemplates {
		t[act] = tmpl
	}
	for name, tmpl := range overrides {
		act, err := perception.ParseSpeechAct(name)
		if err != nil {
			return nil, fmt.Errorf("bad template key: %w", err)
		}
		t[act] = tmpl
	}
	return t, nil
}

// Render fills the template for e.Act.
func (t Templates) Render(e *Envelope) string {
	tmpl, ok := t[e.Act]
	if !ok {
		tmpl = DefaultTemplates[e.Act]
	}

	var out strings.Builder
	for {
		open := strings.IndexByte(tmpl, '{')
		if open < 0 {
			out.WriteString(tmpl)
			break
		}
		end := strings.IndexByte(tmpl[open:], '}')
		if end < 0 {
			out.WriteString(tmpl)
			break
		}
		out.WriteString(tmpl[:open])
		out.WriteString(e.value(tmpl[open+1 : open+end]))
		tmpl = tmpl[open+end+1:]
	}
	return tidy(out.String())
}

func (e *Envelope) value(key string) string {
	switch key {
	case "unknown":
		if len(e.Unknown) > 0 {
			return e.Unknown[0]
		}
		return ""
	case "raw":
		return e.Raw
	case "normalized":
		return e.Normalized
	}
	return e.Slots[key]
}

// tidy collapses the gaps left by empty placeholders.
func tidy(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	for _, p := range []string{".", ",", "?", "!"} {
		s = strings.ReplaceAll(s, " "+p, p)
	}
	return strings.ReplaceAll(s, `""`, "it")
}
