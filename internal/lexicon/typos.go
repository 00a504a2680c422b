package lexicon

import (
	"fmt"

	"hearsay/internal/logging"
	"hearsay/internal/tokenizer"
)

// FixStep names a typo repair, in the order they are attempted.
type FixStep string

const (
	HeadBorrow FixStep = "head-borrow"
	HeadShed   FixStep = "head-shed"
	TailBorrow FixStep = "tail-borrow"
	TailShed   FixStep = "tail-shed"
	Split      FixStep = "split"
	Swap       FixStep = "swap"
	Insert     FixStep = "insert"
	Substitute FixStep = "substitute"
)

// Fix records one repair applied by FixTypos.
type Fix struct {
	Step FixStep
	From []string
	To   []string
}

func (f Fix) String() string {
	return fmt.Sprintf("%s: %v -> %v", f.Step, f.From, f.To)
}

// Corrector repairs unknown words against a vocabulary.
type Corrector struct {
	vocab *Vocabulary

	// AllowSubstitution enables the last repair step, which can turn a
	// misspelling into a valid but unintended word.
	AllowSubstitution bool
}

// NewCorrector returns a corrector over v.
func NewCorrector(v *Vocabulary, allowSubstitution bool) *Corrector {
	return &Corrector{vocab: v, AllowSubstitution: allowSubstitution}
}

func (c *Corrector) unknown(w string) bool {
	return !tokenizer.IsPunctuation(w) && !c.vocab.Known(w)
}

func (c *Corrector) usable(w string) bool {
	return w != "" && !tokenizer.IsPunctuation(w)
}

// FixTypos repairs unknown words until nothing more can be fixed, so running it
// on its own output changes nothing. Punctuation entries are left alone and
// never lend or receive letters.
func (c *Corrector) FixTypos(words []string) ([]string, []Fix) {
	out := append([]string(nil), words...)
	var fixes []Fix
	for {
		changed := false
		for i := 0; i < len(out); i++ {
			if !c.unknown(out[i]) {
				continue
			}
			if next, fix, ok := c.fixAt(out, i); ok {
				out = next
				fixes = append(fixes, fix)
				changed = true
				logging.LexiconDebug("typo %s", fix)
			}
		}
		if !changed {
			return out, fixes
		}
	}
}

func (c *Corrector) fixAt(words []string, i int) ([]string, Fix, bool) {
	w := []rune(lower(words[i]))
	var prev, next []rune
	hasPrev := i > 0 && c.usable(words[i-1])
	hasNext := i+1 < len(words) && c.usable(words[i+1])
	if hasPrev {
		prev = []rune(lower(words[i-1]))
	}
	if hasNext {
		next = []rune(lower(words[i+1]))
	}
	known := func(rs []rune) bool { return len(rs) > 0 && c.vocab.Known(string(rs)) }

	replace := func(from, to int, step FixStep, repl ...[]rune) ([]string, Fix, bool) {
		strs := make([]string, len(repl))
		for k, r := range repl {
			strs[k] = string(r)
		}
		res := make([]string, 0, len(words)+1)
		res = append(res, words[:from]...)
		res = append(res, strs...)
		res = append(res, words[to:]...)
		return res, Fix{Step: step, From: append([]string(nil), words[from:to]...), To: strs}, true
	}

	if hasPrev && len(prev) > 1 {
		p, nw := prev[:len(prev)-1], append([]rune{prev[len(prev)-1]}, w...)
		if known(p) && known(nw) {
			return replace(i-1, i+1, HeadBorrow, p, nw)
		}
	}
	if hasPrev && len(w) > 1 {
		p, nw := append(append([]rune(nil), prev...), w[0]), w[1:]
		if known(p) && known(nw) {
			return replace(i-1, i+1, HeadShed, p, nw)
		}
	}
	if hasNext && len(next) > 1 {
		nw, q := append(append([]rune(nil), w...), next[0]), next[1:]
		if known(nw) && known(q) {
			return replace(i, i+2, TailBorrow, nw, q)
		}
	}
	if hasNext && len(w) > 1 {
		nw, q := w[:len(w)-1], append([]rune{w[len(w)-1]}, next...)
		if known(nw) && known(q) {
			return replace(i, i+2, TailShed, nw, q)
		}
	}
	for k := 1; k < len(w); k++ {
		if known(w[:k]) && known(w[k:]) {
			return replace(i, i+1, Split, w[:k], w[k:])
		}
	}
	for k := 0; k+1 < len(w); k++ {
		if w[k] == w[k+1] {
			continue
		}
		s := append([]rune(nil), w...)
		s[k], s[k+1] = s[k+1], s[k]
		if known(s) {
			return replace(i, i+1, Swap, s)
		}
	}
	for _, cand := range c.vocab.OfLength(len(w) + 1) {
		if oneInsertion(w, []rune(cand)) {
			return replace(i, i+1, Insert, []rune(cand))
		}
	}
	if c.AllowSubstitution {
		for _, cand := range c.vocab.OfLength(len(w)) {
			if oneSubstitution(w, []rune(cand)) {
				return replace(i, i+1, Substitute, []rune(cand))
			}
		}
	}
	return nil, Fix{}, false
}

// oneInsertion reports whether long is short with one extra rune.
func oneInsertion(short, long []rune) bool {
	if len(long) != len(short)+1 {
		return false
	}
	i := 0
	for i < len(short) && short[i] == long[i] {
		i++
	}
	for ; i < len(short); i++ {
		if short[i] != long[i+1] {
			return false
		}
	}
	return true
}

func oneSubstitution(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	diff := 0
	for i := range a {
		if a[i] != b[i] {
			diff++
		}
	}
	return diff == 1
}
