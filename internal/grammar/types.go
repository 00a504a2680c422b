package grammar

import (
	"fmt"
	"strings"
	"unicode"
)

// StepKind distinguishes the three step forms of a concrete production.
type StepKind uint8

const (
	Terminal StepKind = iota
	NonTerminal
	Wildcard
)

// WildcardText is the source spelling of a one-word wildcard.
const WildcardText = "#"

// Step is one element of a production's right-hand side.
type Step struct {
	Kind StepKind
	Text string
}

func (s Step) String() string {
	switch s.Kind {
	case NonTerminal:
		return "<" + s.Text + ">"
	case Wildcard:
		return WildcardText
	}
	return s.Text
}

// Status is the tri-state activation flag of a production.
type Status uint8

const (
	Disabled Status = iota
	Enabled         // usable as a sub-rule only
	TopLevel        // may span a whole utterance
)

func (s Status) String() string {
	switch s {
	case Disabled:
		return "disabled"
	case Enabled:
		return "enabled"
	case TopLevel:
		return "top-level"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// ParseStatus reads the String form of a status.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "disabled":
		return Disabled, nil
	case "enabled":
		return Enabled, nil
	case "top-level", "toplevel":
		return TopLevel, nil
	}
	return Disabled, fmt.Errorf("unknown rule status %q", s)
}

// Production is a head non-terminal with an ordered sequence of steps.
type Production struct {
	ID     int
	Head   string
	Steps  []Step
	Status Status
	File   string
	Line   int
}

// Expansion renders the steps in grammar-file syntax.
func (p *Production) Expansion() string {
	return renderSteps(p.Steps)
}

func (p *Production) String() string {
	return fmt.Sprintf("%s -> %s", p.Head, p.Expansion())
}

func renderSteps(steps []Step) string {
	parts := make([]string, len(steps))
	for i, s := range steps {
		parts[i] = s.String()
	}
	return strings.Join(parts, " ")
}

// structuralKey identifies a production for duplicate rejection. Terminals
// compare case-insensitively, as the parser matches them.
func structuralKey(head string, steps []Step) string {
	var sb strings.Builder
	sb.WriteString(head)
	for _, s := range steps {
		sb.WriteByte(0x1f)
		sb.WriteByte(byte('0' + s.Kind))
		if s.Kind == Terminal {
			sb.WriteString(strings.ToLower(s.Text))
		} else {
			sb.WriteString(s.Text)
		}
	}
	return sb.String()
}

// DiagKind names a recoverable load problem.
type DiagKind string

const (
	DiagSyntax         DiagKind = "load-syntax"
	DiagRecursion      DiagKind = "load-recursion"
	DiagIncludeMissing DiagKind = "load-include-missing"
	DiagOutOfSpace     DiagKind = "out-of-space"
	DiagUndefined      DiagKind = "undefined-head"
)

// Diagnostic is one recoverable problem found while loading.
type Diagnostic struct {
	Kind DiagKind
	File string
	Line int
	Msg  string
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("%s:%d: %s: %s", d.File, d.Line, d.Kind, d.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", d.File, d.Kind, d.Msg)
}

// Reserved head names.
const (
	AttentionHead = "ATTN"
	morphPrefix   = "XXX"
	maxAlerts     = 10
)

// IsSlot reports whether a label is entirely uppercase (ignoring a leading ^
// and non-letters) and therefore yields SLOT=value entries.
func IsSlot(label string) bool {
	label = strings.TrimPrefix(label, "^")
	letters := 0
	for _, r := range label {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters > 0
}

// IsMarker reports whether a label is a phrase marker (!verb, $arg, %prop).
func IsMarker(label string) bool {
	return label != "" && strings.ContainsRune("!$%", rune(label[0]))
}

// SlotName strips the verbatim prefix from a slot label.
func SlotName(label string) string {
	return strings.TrimPrefix(label, "^")
}
