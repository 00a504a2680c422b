// Package tokenizer splits a string or a file into words, sentence terminators,
// soft delimiters and paragraph breaks. Tokens are produced on demand and cached,
// so Span and Source can address any token by index.
package tokenizer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
)

// Kind classifies a token.
type Kind uint8

const (
	Word Kind = iota
	Terminator
	Delimiter
	Paragraph
)

func (k Kind) String() string {
	switch k {
	case Word:
		return "word"
	case Terminator:
		return "terminator"
	case Delimiter:
		return "delimiter"
	case Paragraph:
		return "paragraph"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Token is an immutable piece of input text.
type Token struct {
	Text string
	Kind Kind
}

// IsPunctuation reports whether the token is anything other than a word.
func (t Token) IsPunctuation() bool { return t.Kind != Word }

// ParagraphText is the text carried by paragraph-break tokens.
const ParagraphText = "\n\n"

const delimiters = `,;:"'()[]{}%=/<>+` + "“”‘"

// abbreviations take a trailing period without ending the sentence.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true,
	"fig": true, "figs": true, "ex": true, "eq": true, "eqn": true, "tab": true,
	"ie": true, "eg": true, "cf": true, "al": true, "cont": true,
	"i.e": true, "e.g": true,
}

// Tokenizer yields tokens from an owned string or a borrowed file.
type Tokenizer struct {
	text   string
	file   *os.File
	r      *bufio.Reader
	look   []rune
	tokens []Token
	pos    int
	eof    bool
}

// NewString returns a tokenizer over an in-memory string.
func NewString(s string) *Tokenizer {
	return &Tokenizer{text: s, r: bufio.NewReader(strings.NewReader(s))}
}

// Open returns a tokenizer reading the named file.
func Open(path string) (*Tokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &Tokenizer{file: f, r: bufio.NewReader(f)}, nil
}

// Close releases the file handle, if any, and drops cached tokens.
func (t *Tokenizer) Close() error {
	t.tokens = nil
	t.look = nil
	t.eof = true
	if t.file != nil {
		err := t.file.Close()
		t.file = nil
		return err
	}
	return nil
}

// Rewind moves the read position back to the first token.
func (t *Tokenizer) Rewind() {
	t.pos = 0
}

// Next returns the next token. With skipPunct set, non-word tokens are skipped.
func (t *Tokenizer) Next(skipPunct bool) (Token, bool) {
	for {
		if !t.fill(t.pos) {
			return Token{}, false
		}
		tok := t.tokens[t.pos]
		t.pos++
		if skipPunct && tok.IsPunctuation() {
			continue
		}
		return tok, true
	}
}

// Len reads the whole input and returns the number of tokens.
func (t *Tokenizer) Len() int {
	t.drain()
	return len(t.tokens)
}

// Tokens reads the whole input and returns a copy of every token.
func (t *Tokenizer) Tokens() []Token {
	t.drain()
	out := make([]Token, len(t.tokens))
	copy(out, t.tokens)
	return out
}

// Source concatenates every token separated by single spaces.
func (t *Tokenizer) Source() string {
	t.drain()
	return join(t.tokens)
}

// Span joins tokens i through j inclusive. Out of range indices are clamped.
func (t *Tokenizer) Span(i, j int) string {
	if i < 0 {
		i = 0
	}
	t.fill(j)
	if j >= len(t.tokens) {
		j = len(t.tokens) - 1
	}
	if i > j {
		return ""
	}
	return join(t.tokens[i : j+1])
}

func join(tokens []Token) string {
	var sb strings.Builder
	for i, tok := range tokens {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(tok.Text)
	}
	return sb.String()
}

// fill makes sure token index i is cached, reporting whether it exists.
func (t *Tokenizer) fill(i int) bool {
	for len(t.tokens) <= i && !t.eof {
		tok, ok := t.lex()
		if !ok {
			t.eof = true
			break
		}
		t.tokens = append(t.tokens, tok)
	}
	return i < len(t.tokens)
}

func (t *Tokenizer) drain() {
	for !t.eof {
		t.fill(len(t.tokens))
	}
}

// =============================================================================
// RUNE BUFFER - two characters of lookahead
// =============================================================================

func (t *Tokenizer) peek(n int) (rune, bool) {
	for len(t.look) <= n {
		if t.r == nil {
			return 0, false
		}
		c, _, err := t.r.ReadRune()
		if err != nil {
			if err != io.EOF {
				t.r = nil
			}
			return 0, false
		}
		t.look = append(t.look, c)
	}
	return t.look[n], true
}

func (t *Tokenizer) read() (rune, bool) {
	c, ok := t.peek(0)
	if ok {
		t.look = t.look[1:]
	}
	return c, ok
}

// =============================================================================
// LEXER
// =============================================================================

func (t *Tokenizer) lex() (Token, bool) {
	newlines := t.skipSpace()
	c, ok := t.peek(0)
	if !ok {
		return Token{}, false
	}
	// three newlines in one whitespace run means two blank lines
	if newlines >= 3 && len(t.tokens) > 0 && t.tokens[len(t.tokens)-1].Kind != Paragraph {
		return Token{Text: ParagraphText, Kind: Paragraph}, true
	}

	switch {
	case c == '.':
		if d, ok := t.peek(1); ok && isDigit(d) {
			return t.word(), true
		}
		if t.isEllipsis() {
			t.read()
			for {
				n, ok := t.peek(0)
				if !ok || n != '.' {
					break
				}
				t.read()
			}
			return Token{Text: "...", Kind: Delimiter}, true
		}
		return t.terminator(), true
	case c == '!' || c == '?':
		return t.terminator(), true
	case c == '-':
		t.read()
		return Token{Text: "-", Kind: Delimiter}, true
	case isWordRune(c):
		return t.word(), true
	}
	t.read()
	return Token{Text: string(c), Kind: Delimiter}, true
}

func (t *Tokenizer) skipSpace() int {
	newlines := 0
	for {
		c, ok := t.peek(0)
		if !ok || !unicode.IsSpace(c) {
			return newlines
		}
		if c == '\n' {
			newlines++
		}
		t.read()
	}
}

func (t *Tokenizer) isEllipsis() bool {
	a, ok1 := t.peek(1)
	b, ok2 := t.peek(2)
	return ok1 && ok2 && a == '.' && b == '.'
}

func (t *Tokenizer) terminator() Token {
	var sb strings.Builder
	for {
		c, ok := t.peek(0)
		if !ok || (c != '.' && c != '!' && c != '?') {
			break
		}
		if c == '.' && sb.Len() > 0 && t.isEllipsis() {
			break
		}
		sb.WriteRune(c)
		t.read()
	}
	return Token{Text: sb.String(), Kind: Terminator}
}

func (t *Tokenizer) word() Token {
	var buf []rune
	first, _ := t.read()
	buf = append(buf, first)

	for {
		c, ok := t.peek(0)
		if !ok {
			break
		}
		next, hasNext := t.peek(1)
		last := buf[len(buf)-1]

		switch {
		case isWordRune(c):
			t.read()
			buf = append(buf, c)
			continue
		case (c == '.' || c == ',') && hasNext && isDigit(next) && isDigit(last):
			t.read()
			buf = append(buf, c)
			continue
		case c == '-':
			if isDigit(last) {
				return wordToken(buf)
			}
			if hasNext && isWordRune(next) {
				t.read()
				buf = append(buf, c)
				continue
			}
			return wordToken(buf)
		case c == '\'' || c == '’':
			if hasNext && unicode.IsLetter(next) && unicode.IsLetter(last) {
				t.read()
				buf = append(buf, '\'')
				continue
			}
			if last == 's' || last == 'S' {
				t.read()
				buf = append(buf, '\'')
			}
			return wordToken(buf)
		case c == '.':
			if len(buf) == 1 && unicode.IsLetter(buf[0]) {
				t.read()
				buf = append(buf, '.')
				// chains such as e.g. or U.S.A.
				for {
					a, ok1 := t.peek(0)
					b, ok2 := t.peek(1)
					if !ok1 || !ok2 || !unicode.IsLetter(a) || b != '.' {
						break
					}
					t.read()
					t.read()
					buf = append(buf, a, '.')
				}
				return wordToken(buf)
			}
			if abbreviations[strings.ToLower(string(buf))] && !t.isEllipsis() {
				t.read()
				buf = append(buf, '.')
			}
			return wordToken(buf)
		}
		break
	}
	return wordToken(buf)
}

func wordToken(buf []rune) Token {
	return Token{Text: string(buf), Kind: Word}
}

func isDigit(c rune) bool { return c >= '0' && c <= '9' }

func isWordRune(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_'
}

// IsPunctuation reports whether s is a single punctuation token rather than a word.
func IsPunctuation(s string) bool {
	if s == "" {
		return false
	}
	if s == ParagraphText || s == "..." || s == "-" {
		return true
	}
	for _, c := range s {
		if c != '.' && c != '!' && c != '?' && !strings.ContainsRune(delimiters, c) {
			return false
		}
	}
	return true
}
