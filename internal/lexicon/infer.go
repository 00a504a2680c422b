package lexicon

import (
	"fmt"
	"strings"

	"hearsay/internal/logging"
	"hearsay/internal/morph"
	"hearsay/internal/tokenizer"
)

// window offsets relative to the unknown word
const (
	windowBefore = 2
	windowAfter  = 3
	windowSize   = windowBefore + 1 + windowAfter
)

type slot struct {
	sep   bool // utterance boundary or punctuation
	word  string
	class int
}

type matcher func(slot) bool

func sep(s slot) bool     { return s.sep }
func anyWord(s slot) bool { return !s.sep }
func det(s slot) bool     { return !s.sep && s.class == ClassDet }
func prep(s slot) bool    { return !s.sep && s.class == ClassPrep }
func aux(s slot) bool     { return !s.sep && s.class == ClassAux }

func lit(w string) matcher {
	return func(s slot) bool { return !s.sep && s.word == w }
}

// pattern matches the window around the unknown word; at is the index of the
// unknown word within seq.
type pattern struct {
	name  string
	seq   []matcher
	at    int
	class morph.Tag
}

var patterns = []pattern{
	{"[prep ? .]", []matcher{prep, nil, sep}, 1, morph.TagName},
	{`[. ? "is" x "name"]`, []matcher{sep, nil, lit("is"), anyWord, lit("name")}, 1, morph.TagName},
	{"[det ? .]", []matcher{det, nil, sep}, 1, morph.TagAKO},
	{"[det x ? .]", []matcher{det, anyWord, nil, sep}, 2, morph.TagAKO},
	{"[prep x ? .]", []matcher{prep, anyWord, nil, sep}, 2, morph.TagAKO},
	{"[det ? x .]", []matcher{det, nil, anyWord, sep}, 1, morph.TagHQ},
	{`[. ? "is" x "property"]`, []matcher{sep, nil, lit("is"), anyWord, lit("property")}, 1, morph.TagHQ},
	{"[aux ? .]", []matcher{aux, nil, sep}, 1, morph.TagHQ},
	{"[. ? det]", []matcher{sep, nil, det}, 1, morph.TagACT},
	{"[. ? prep]", []matcher{sep, nil, prep}, 1, morph.TagACT},
	{`[. ? "is" x "action"]`, []matcher{sep, nil, lit("is"), anyWord, lit("action")}, 1, morph.TagACT},
}

func (p pattern) match(win [windowSize]slot) bool {
	for j, m := range p.seq {
		if m == nil {
			continue
		}
		k := windowBefore + j - p.at
		if k < 0 || k >= windowSize || !m(win[k]) {
			return false
		}
	}
	return true
}

// Guess is a provisional category for an unknown word.
type Guess struct {
	Index   int // position in the input words
	Word    string
	Tag     morph.Tag
	Base    string
	Pattern string
}

func (g Guess) String() string {
	return fmt.Sprintf("%s=%s (%s)", g.Word, g.Tag, g.Pattern)
}

// Inferer guesses categories for unknown words from their neighbours.
type Inferer struct {
	vocab *Vocabulary
	morph *morph.Engine
}

// NewInferer returns an inferer; m is used to recover base forms and may be nil.
func NewInferer(v *Vocabulary, m *morph.Engine) *Inferer {
	if m == nil {
		m = morph.New(0)
	}
	return &Inferer{vocab: v, morph: m}
}

func (in *Inferer) window(words []string, i int) [windowSize]slot {
	var win [windowSize]slot
	for k := range win {
		pos := i - windowBefore + k
		if pos < 0 || pos >= len(words) || tokenizer.IsPunctuation(words[pos]) {
			win[k] = slot{sep: true, class: ClassUnknown}
			continue
		}
		w := lower(words[pos])
		win[k] = slot{word: w, class: GramClass(w, in.vocab.Known)}
	}
	return win
}

// Infer guesses a category for every unknown word in words. Words that match
// no pattern get no guess.
func (in *Inferer) Infer(words []string) []Guess {
	var out []Guess
	for i, w := range words {
		if tokenizer.IsPunctuation(w) || in.vocab.Known(w) {
			continue
		}
		if g, ok := in.guess(words, i); ok {
			out = append(out, g)
			logging.LexiconDebug("guessed %s", g)
		}
	}
	return out
}

func (in *Inferer) guess(words []string, i int) (Guess, bool) {
	w := words[i]
	lw := lower(w)
	win := in.window(words, i)
	for _, p := range patterns {
		if !p.match(win) {
			continue
		}
		tag := refine(p.class, lw)
		return Guess{Index: i, Word: w, Tag: tag, Base: in.morph.BaseOf(w, tag), Pattern: p.name}, true
	}
	if strings.HasSuffix(lw, "ly") && len(lw) > 3 {
		return Guess{Index: i, Word: w, Tag: morph.TagMOD, Base: w, Pattern: "-ly"}, true
	}
	return Guess{}, false
}

// refine picks the inflected tag from the word's suffix.
func refine(class morph.Tag, w string) morph.Tag {
	possessive := strings.HasSuffix(w, "'s") || strings.HasSuffix(w, "s'")
	switch class {
	case morph.TagName:
		if possessive {
			return morph.TagNameP
		}
	case morph.TagAKO:
		switch {
		case possessive:
			return morph.TagAKOP
		case strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss"):
			return morph.TagAKOS
		}
	case morph.TagHQ:
		switch {
		case strings.HasSuffix(w, "est"):
			return morph.TagHQEst
		case strings.HasSuffix(w, "er"):
			return morph.TagHQEr
		}
	case morph.TagACT:
		switch {
		case strings.HasSuffix(w, "ing"):
			return morph.TagACTG
		case strings.HasSuffix(w, "ed"):
			return morph.TagACTD
		case strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss"):
			return morph.TagACTS
		}
	}
	return class
}

// Marked renders words with each guessed word bracketed by its category, as in
// "Ken is [HQ tall]". Punctuation attaches to the preceding word.
func Marked(words []string, guesses []Guess) string {
	byIndex := make(map[int]Guess, len(guesses))
	for _, g := range guesses {
		byIndex[g.Index] = g
	}
	var sb strings.Builder
	for i, w := range words {
		if g, ok := byIndex[i]; ok {
			w = "[" + g.Tag.String() + " " + w + "]"
		}
		if i > 0 && !(tokenizer.IsPunctuation(w) && w != tokenizer.ParagraphText) {
			sb.WriteByte(' ')
		}
		sb.WriteString(w)
	}
	return sb.String()
}
