package articulation

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"hearsay/internal/logging"
)

// Emitter writes envelopes as JSON or as readable text.
type Emitter struct {
	w io.Writer

	// Output settings
	JSON        bool
	PrettyPrint bool
	Verbose     bool // text mode: include fixes, guesses and rank
}

// NewEmitter creates an emitter writing text to w.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

// Emit writes one envelope.
func (e *Emitter) Emit(env *Envelope) error {
	logging.Articulation("emit %s act=%s json=%v", env.ID, env.Act, e.JSON)
	if e.JSON {
		data, err := e.MarshalEnvelope(env)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(e.w, string(data))
		return err
	}
	_, err := io.WriteString(e.w, e.Text(env))
	return err
}

// MarshalEnvelope converts an envelope to JSON bytes.
func (e *Emitter) MarshalEnvelope(env *Envelope) ([]byte, error) {
	if e.PrettyPrint {
		return json.MarshalIndent(env, "", "  ")
	}
	return json.Marshal(env)
}

// Text renders env for a terminal.
func (e *Emitter) Text(env *Envelope) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "act:     %s (%d)\n", env.Act, env.Tag)
	fmt.Fprintf(&sb, "assoc:   %s\n", strings.TrimPrefix(strings.ReplaceAll(env.Assoc, "\t", "  "), "  "))
	fmt.Fprintf(&sb, "raw:     %s\n", env.Raw)
	if env.Marked != "" {
		fmt.Fprintf(&sb, "marked:  %s\n", env.Marked)
	}
	fmt.Fprintf(&sb, "surface: %s\n", env.Surface)
	if !e.Verbose {
		return sb.String()
	}
	if env.Normalized != "" {
		fmt.Fprintf(&sb, "normal:  %s\n", env.Normalized)
	}
	if env.Rank != "" {
		amb := ""
		if env.Ambiguous {
			amb = " (ambiguous)"
		}
		fmt.Fprintf(&sb, "rank:    %s%s\n", env.Rank, amb)
	}
	for _, f := range env.Fixes {
		fmt.Fprintf(&sb, "fix:     %s\n", f)
	}
	for _, g := range env.Guesses {
		taught := ""
		if g.Taught {
			taught = " taught"
		}
		fmt.Fprintf(&sb, "guess:   %s %s (%s, base %s)%s\n", g.Word, g.Tag, g.Pattern, g.Base, taught)
	}
	fmt.Fprintf(&sb, "id:      %s\n", env.ID)
	return sb.String()
}

// ReadEnvelopes decodes a stream of JSON envelopes, as written by Emit in
// JSON mode.
func ReadEnvelopes(r io.Reader) ([]*Envelope, error) {
	dec := json.NewDecoder(r)
	var out []*Envelope
	for dec.More() {
		env := new(Envelope)
		if err := dec.Decode(env); err != nil {
			return out, fmt.Errorf("failed to decode envelope %d: %w", len(out)+1, err)
		}
		out = append(out, env)
	}
	return out, nil
}
