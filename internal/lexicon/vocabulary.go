// Package lexicon keeps the known-word set, repairs small typos against it and
// guesses the category of words it has never seen.
package lexicon

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"hearsay/internal/grammar"
	"hearsay/internal/logging"
	"hearsay/internal/morph"
)

const (
	DefaultBins      = 16
	DefaultBlockSize = 64
)

type entry struct {
	word string
	refs int
}

// Vocabulary stores lowercased words in per-length bins. Bin i holds words of
// i+1 runes; the last bin also holds every longer word. Bins grow by a fixed
// block and keep insertion order.
type Vocabulary struct {
	mu    sync.RWMutex
	bins  [][]entry
	block int
	size  int
}

// NewVocabulary returns an empty vocabulary.
func NewVocabulary(bins, block int) *Vocabulary {
	if bins <= 0 {
		bins = DefaultBins
	}
	if block <= 0 {
		block = DefaultBlockSize
	}
	return &Vocabulary{bins: make([][]entry, bins), block: block}
}

func (v *Vocabulary) bin(w string) int {
	n := utf8.RuneCountInString(w) - 1
	if n < 0 {
		n = 0
	}
	if n >= len(v.bins) {
		n = len(v.bins) - 1
	}
	return n
}

func (v *Vocabulary) find(b int, w string) int {
	for i, e := range v.bins[b] {
		if e.word == w {
			return i
		}
	}
	return -1
}

// Add inserts w, or bumps its reference count when present. It reports
// whether the word is new.
func (v *Vocabulary) Add(w string) bool {
	w = strings.ToLower(strings.TrimSpace(w))
	if w == "" {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	b := v.bin(w)
	if i := v.find(b, w); i >= 0 {
		v.bins[b][i].refs++
		return false
	}
	if len(v.bins[b]) == cap(v.bins[b]) {
		grown := make([]entry, len(v.bins[b]), cap(v.bins[b])+v.block)
		copy(grown, v.bins[b])
		v.bins[b] = grown
	}
	v.bins[b] = append(v.bins[b], entry{word: w, refs: 1})
	v.size++
	return true
}

// Remove undoes one Add. It reports whether the word left the vocabulary.
func (v *Vocabulary) Remove(w string) bool {
	w = strings.ToLower(strings.TrimSpace(w))
	v.mu.Lock()
	defer v.mu.Unlock()
	b := v.bin(w)
	i := v.find(b, w)
	if i < 0 {
		return false
	}
	if v.bins[b][i].refs > 1 {
		v.bins[b][i].refs--
		return false
	}
	v.bins[b] = append(v.bins[b][:i], v.bins[b][i+1:]...)
	v.size--
	return true
}

// Known reports whether w is in the vocabulary. Numbers are always known.
func (v *Vocabulary) Known(w string) bool {
	if IsNumeric(w) {
		return true
	}
	w = strings.ToLower(w)
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.find(v.bin(w), w) >= 0
}

// Len returns the number of distinct words.
func (v *Vocabulary) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.size
}

// Words lists every word, bin by bin, in insertion order.
func (v *Vocabulary) Words() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]string, 0, v.size)
	for _, bin := range v.bins {
		for _, e := range bin {
			out = append(out, e.word)
		}
	}
	return out
}

// OfLength lists the words of exactly n runes.
func (v *Vocabulary) OfLength(n int) []string {
	if n <= 0 {
		return nil
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	var out []string
	for _, e := range v.bins[v.bin(strings.Repeat("x", n))] {
		if utf8.RuneCountInString(e.word) == n {
			out = append(out, e.word)
		}
	}
	return out
}

// Harvest adds every terminal word of g plus the inflected forms of its
// lexicon sections. It returns how many words were new.
func (v *Vocabulary) Harvest(g *grammar.Grammar) int {
	added := 0
	add := func(phrase string) {
		for _, w := range strings.Fields(phrase) {
			if v.Add(w) {
				added++
			}
		}
	}
	for _, t := range g.Terminals() {
		add(t)
	}
	m := g.Morph()
	for _, sec := range g.Sections() {
		for _, w := range sec.Words {
			for _, tag := range morph.Derived(sec.Class()) {
				add(m.SurfaceOf(w, tag))
			}
		}
	}
	logging.Lexicon("harvested %d new words from grammar (%d total)", added, v.Len())
	return added
}

// IsNumeric reports whether w is a number such as 12, -3.5 or 1,000.
func IsNumeric(w string) bool {
	w = strings.TrimPrefix(strings.TrimPrefix(w, "-"), "+")
	digits := 0
	for _, r := range w {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '.' || r == ',':
		default:
			return false
		}
	}
	return digits > 0
}
