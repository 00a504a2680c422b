package grammar

import (
	"fmt"
	"strings"

	"hearsay/internal/tokenizer"
)

// maxVariants caps the concrete productions one source line may expand into.
const maxVariants = 4096

type elemKind uint8

const (
	eTerm elemKind = iota
	eRef
	eWild
	eOpt
	eStar
	ePlus
	eQuest
)

type elem struct {
	kind     elemKind
	text     string
	children []elem
}

// parseExpansion reads one expansion line into a tree of sugar elements.
func parseExpansion(line string) ([]elem, error) {
	stack := [][]elem{nil}
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == '(':
			stack = append(stack, nil)
			i++
		case c == ')':
			if len(stack) == 1 {
				return nil, fmt.Errorf("unmatched ')' at column %d", i+1)
			}
			group := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			stack[len(stack)-1] = append(stack[len(stack)-1], elem{kind: eOpt, children: group})
			i++
		case c == '<' || c == '[':
			closer := byte('>')
			if c == '[' {
				closer = ']'
			}
			end := strings.IndexByte(line[i+1:], closer)
			if end < 0 {
				return nil, fmt.Errorf("unmatched '%c' at column %d", c, i+1)
			}
			name := strings.TrimSpace(line[i+1 : i+1+end])
			if name == "" || strings.ContainsAny(name, " \t") {
				return nil, fmt.Errorf("bad rule reference %q at column %d", name, i+1)
			}
			stack[len(stack)-1] = append(stack[len(stack)-1], elem{kind: eRef, text: name})
			i += end + 2
		case c == '>' || c == ']':
			return nil, fmt.Errorf("unmatched '%c' at column %d", c, i+1)
		case c == '#':
			stack[len(stack)-1] = append(stack[len(stack)-1], elem{kind: eWild})
			i++
		case c == '*':
			stack[len(stack)-1] = append(stack[len(stack)-1], elem{kind: eStar})
			i++
		case c == '+':
			stack[len(stack)-1] = append(stack[len(stack)-1], elem{kind: ePlus})
			i++
		case c == '?':
			stack[len(stack)-1] = append(stack[len(stack)-1], elem{kind: eQuest})
			i++
		default:
			j := i
			for j < len(line) && !strings.ContainsRune(" \t\r()<>[]#*+?", rune(line[j])) {
				j++
			}
			word := line[i:j]
			// the parser only sees words, so punctuation literals cannot match
			if !tokenizer.IsPunctuation(word) {
				stack[len(stack)-1] = append(stack[len(stack)-1], elem{kind: eTerm, text: word})
			}
			i = j
		}
	}
	if len(stack) != 1 {
		return nil, fmt.Errorf("unmatched '('")
	}
	return stack[0], nil
}

// expand turns a sugar tree into concrete step sequences, absent variants first.
func expand(elems []elem, maxDictation int) ([][]Step, error) {
	result := [][]Step{{}}
	for _, e := range elems {
		variants, err := expandElem(e, maxDictation)
		if err != nil {
			return nil, err
		}
		if len(result)*len(variants) > maxVariants {
			return nil, fmt.Errorf("expansion exceeds %d variants", maxVariants)
		}
		next := make([][]Step, 0, len(result)*len(variants))
		for _, prefix := range result {
			for _, v := range variants {
				seq := make([]Step, 0, len(prefix)+len(v))
				seq = append(seq, prefix...)
				seq = append(seq, v...)
				next = append(next, seq)
			}
		}
		result = next
	}
	return result, nil
}

func expandElem(e elem, n int) ([][]Step, error) {
	wild := Step{Kind: Wildcard, Text: WildcardText}
	dictation := func(k int) []Step {
		seq := make([]Step, k)
		for i := range seq {
			seq[i] = wild
		}
		return seq
	}

	switch e.kind {
	case eTerm:
		return [][]Step{{{Kind: Terminal, Text: e.text}}}, nil
	case eRef:
		return [][]Step{{{Kind: NonTerminal, Text: e.text}}}, nil
	case eWild:
		return [][]Step{{wild}}, nil
	case eOpt:
		inner, err := expand(e.children, n)
		if err != nil {
			return nil, err
		}
		return append([][]Step{{}}, inner...), nil
	case eStar:
		out := [][]Step{{}}
		for k := 1; k <= n; k++ {
			out = append(out, dictation(k))
		}
		return out, nil
	case ePlus:
		out := make([][]Step, 0, n)
		for k := 1; k <= n; k++ {
			out = append(out, dictation(k))
		}
		return out, nil
	case eQuest:
		return [][]Step{{wild}, {}}, nil
	}
	return nil, fmt.Errorf("unknown sugar element %d", e.kind)
}
