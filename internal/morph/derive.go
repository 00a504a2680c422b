package morph

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"hearsay/internal/logging"
)

// Section is a lexicon section of a base grammar: a class head and its words.
type Section struct {
	Head  string
	Words []string
}

// Class returns the base class named by the section head, or 0 when the head is
// not a lexicon class.
func (s Section) Class() Tag {
	t, err := ParseTag(s.Head)
	if err != nil {
		return 0
	}
	if t == TagMOD || t.IsBase() {
		return t
	}
	return 0
}

// Derive writes a grammar file holding the inflected sections of every lexicon
// section: AKO-S/AKO-P, HQ-ER/HQ-EST, ACT-S/ACT-G/ACT-D and NAME-P.
func (e *Engine) Derive(w io.Writer, source string, sections []Section) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "; derived from %s\n", source)

	for _, sec := range sections {
		for _, tag := range Derived(sec.Class()) {
			if len(sec.Words) == 0 {
				continue
			}
			fmt.Fprintf(bw, "\n=[%s]\n", tag)
			for _, word := range sec.Words {
				fmt.Fprintf(bw, "  %s\n", e.SurfaceOf(word, tag))
			}
		}
	}
	return bw.Flush()
}

// Mismatch is one inflected form whose recovered base differs from its source.
type Mismatch struct {
	Section   string
	Base      string
	Tag       Tag
	Surface   string
	Recovered string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("[%s] %s * %s = %s recovers %q", m.Section, m.Base, m.Tag, m.Surface, m.Recovered)
}

// Check re-inverts every generated surface form and reports the mismatches.
// Sections are checked in parallel.
func (e *Engine) Check(ctx context.Context, sections []Section) ([]Mismatch, error) {
	results := make([][]Mismatch, len(sections))
	g, ctx := errgroup.WithContext(ctx)

	for i, sec := range sections {
		g.Go(func() error {
			var found []Mismatch
			for _, word := range sec.Words {
				if err := ctx.Err(); err != nil {
					return err
				}
				for _, tag := range Derived(sec.Class()) {
					surface := e.SurfaceOf(word, tag)
					back := e.BaseOf(surface, tag)
					if !strings.EqualFold(back, word) {
						found = append(found, Mismatch{
							Section:   sec.Head,
							Base:      word,
							Tag:       tag,
							Surface:   surface,
							Recovered: back,
						})
					}
				}
			}
			results[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Mismatch
	for _, r := range results {
		out = append(out, r...)
	}
	logging.Morph("checked %d sections: %d mismatches", len(sections), len(out))
	for _, m := range out {
		logging.MorphWarn("%s", m)
	}
	return out, nil
}
