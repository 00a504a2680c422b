package tokenizer

import "strings"

// Sentence is one terminator- or paragraph-delimited run of tokens.
type Sentence struct {
	Tokens     []Token
	Terminator string
}

// Words returns the word tokens of the sentence.
func (s Sentence) Words() []string {
	words := make([]string, 0, len(s.Tokens))
	for _, tok := range s.Tokens {
		if tok.Kind == Word {
			words = append(words, tok.Text)
		}
	}
	return words
}

// Text renders the sentence, terminator included, with single spaces between tokens.
func (s Sentence) Text() string {
	text := join(s.Tokens)
	if s.Terminator == "" {
		return text
	}
	return text + s.Terminator
}

// Split reads every token from t and groups them into sentences.
func Split(t *Tokenizer) []Sentence {
	var out []Sentence
	var cur Sentence
	flush := func() {
		if len(cur.Tokens) > 0 {
			out = append(out, cur)
		}
		cur = Sentence{}
	}
	t.Rewind()
	for {
		tok, ok := t.Next(false)
		if !ok {
			break
		}
		switch tok.Kind {
		case Terminator:
			cur.Terminator = tok.Text
			flush()
		case Paragraph:
			flush()
		default:
			cur.Tokens = append(cur.Tokens, tok)
		}
	}
	flush()
	return out
}

// Sentences splits text into sentences.
func Sentences(text string) []Sentence {
	return Split(NewString(text))
}

// Words returns the word tokens of text, dropping all punctuation.
func Words(text string) []string {
	t := NewString(text)
	var words []string
	for {
		tok, ok := t.Next(true)
		if !ok {
			return words
		}
		words = append(words, tok.Text)
	}
}

// TrailingTerminator returns the last sentence terminator in text, if any.
func TrailingTerminator(text string) string {
	t := NewString(text)
	last := ""
	for {
		tok, ok := t.Next(false)
		if !ok {
			return last
		}
		if tok.Kind == Terminator {
			last = tok.Text
		} else {
			last = ""
		}
	}
}

// Lower returns a lowercased copy of words.
func Lower(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = strings.ToLower(w)
	}
	return out
}
