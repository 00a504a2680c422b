package lexicon

import "strings"

// Grammatical classes of known words, used by the category patterns.
const (
	ClassUnknown = -1
	ClassOpen    = 0
	ClassClosed  = 1
	ClassAux     = 2
	ClassPrep    = 3
	ClassDet     = 4
)

var determiners = wordSet("a an the my your")

var prepositions = wordSet(`in on at to from into onto with of left right front back
	behind near close between inside outside under underneath over above toward`)

var auxiliaries = wordSet("is am are was were do does did")

var closedWords = wordSet(`i me you he him she her it we us they them this that these those
	his its our their mine yours what who whom whose which where when why how
	and or but not nor so if then than because there here also too very`)

func wordSet(s string) map[string]bool {
	m := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		m[w] = true
	}
	return m
}

// GramClass classifies w from the closed word lists. Known words outside the
// lists are open class; numbers count as determiners.
func GramClass(w string, known func(string) bool) int {
	lw := lower(w)
	switch {
	case determiners[lw]:
		return ClassDet
	case IsNumeric(lw):
		return ClassDet
	case prepositions[lw]:
		return ClassPrep
	case auxiliaries[lw]:
		return ClassAux
	case closedWords[lw]:
		return ClassClosed
	case known != nil && known(lw):
		return ClassOpen
	}
	return ClassUnknown
}

func lower(s string) string { return strings.ToLower(s) }
