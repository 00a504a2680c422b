// Package core wires the front end together: one live grammar, its
// vocabulary, the parser, the speech-act classifier and the learned-lexicon
// journal.
package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"hearsay/internal/articulation"
	"hearsay/internal/assoc"
	"hearsay/internal/config"
	"hearsay/internal/earley"
	"hearsay/internal/grammar"
	"hearsay/internal/lexicon"
	"hearsay/internal/logging"
	"hearsay/internal/morph"
	"hearsay/internal/perception"
	"hearsay/internal/store"
	"hearsay/internal/tokenizer"
)

// ErrNoJournal is returned by journal operations when the store is disabled.
var ErrNoJournal = errors.New("learned-lexicon journal is disabled")

// Frontend turns sentences into envelopes. Process may be called from several
// goroutines; Reload and the grammar edits exclude them. Concurrent Process
// calls teach one word at a time.
type Frontend struct {
	cfg *config.Config

	// teachMu orders teach calls made under the read lock.
	teachMu    sync.Mutex
	mu         sync.RWMutex
	g          *grammar.Grammar
	vocab      *lexicon.Vocabulary
	corrector  *lexicon.Corrector
	inferer    *lexicon.Inferer
	attention  *perception.Attention
	classifier *perception.Classifier
	templates  articulation.Templates
	journal    *store.Journal
}

// NewFrontend builds an empty front end from cfg. Call Load (or Reload) to
// read the configured grammar.
func NewFrontend(cfg *config.Config) (*Frontend, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	classifier, err := perception.NewClassifier(cfg.Speech)
	if err != nil {
		return nil, err
	}
	templates, err := articulation.NewTemplates(cfg.Speech.Templates)
	if err != nil {
		return nil, err
	}
	f := &Frontend{cfg: cfg, classifier: classifier, templates: templates}
	if err := f.reset(); err != nil {
		return nil, err
	}
	return f, nil
}

// reset installs an empty grammar and vocabulary. Callers hold f.mu or own f.
func (f *Frontend) reset() error {
	f.g = grammar.New(grammar.Options{
		MaxDictation: f.cfg.Grammar.MaxDictation,
		Morph:        morph.New(f.cfg.Morph.MaxExceptions),
	})
	return f.rebuildLocked()
}

func (f *Frontend) rebuildLocked() error {
	f.vocab = lexicon.NewVocabulary(f.cfg.Lexicon.Bins, f.cfg.Lexicon.BlockSize)
	f.vocab.Harvest(f.g)
	f.corrector = lexicon.NewCorrector(f.vocab, f.cfg.Lexicon.AllowSubstitution)
	f.inferer = lexicon.NewInferer(f.vocab, f.g.Morph())
	mode, err := perception.ParseAttentionMode(f.cfg.Speech.AttentionMode)
	if err != nil {
		return err
	}
	f.attention = perception.NewAttention(mode, f.g.Alerts(), f.g)
	return nil
}

// AttachJournal makes taught words persistent. Accepted entries are replayed
// into the current grammar.
func (f *Frontend) AttachJournal(ctx context.Context, j *store.Journal) error {
	f.mu.Lock()
	f.journal = j
	f.mu.Unlock()
	_, err := f.Replay(ctx)
	return err
}

// Grammar returns the live grammar.
func (f *Frontend) Grammar() *grammar.Grammar {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.g
}

// Vocabulary returns the live vocabulary.
func (f *Frontend) Vocabulary() *lexicon.Vocabulary {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.vocab
}

// Config returns the configuration the front end was built with.
func (f *Frontend) Config() *config.Config { return f.cfg }

// Load adds a grammar file to the live grammar and re-harvests the vocabulary.
// Only failing to open path is an error.
func (f *Frontend) Load(path string) ([]grammar.Diagnostic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	diags, err := f.g.Load(path)
	if err != nil {
		return nil, err
	}
	return diags, f.rebuildLocked()
}

// Reload discards the grammar and reads path again (the configured grammar
// when path is empty), then replays accepted journal entries.
func (f *Frontend) Reload(ctx context.Context, path string) ([]grammar.Diagnostic, error) {
	if path == "" {
		path = f.Grammar().Path()
	}
	if path == "" {
		path = f.cfg.Grammar.Path
	}

	f.mu.Lock()
	old := f.g
	if err := f.reset(); err != nil {
		f.g = old
		f.mu.Unlock()
		return nil, err
	}
	diags, err := f.g.Load(path)
	if err != nil {
		f.g = old
		_ = f.rebuildLocked()
		f.mu.Unlock()
		return nil, err
	}
	err = f.rebuildLocked()
	f.mu.Unlock()
	if err != nil {
		return diags, err
	}

	if _, err := f.Replay(ctx); err != nil {
		return diags, err
	}
	logging.Grammar("reloaded %s: %d productions", path, f.Grammar().Len())
	return diags, nil
}

// HarvestLexicon rebuilds the vocabulary from the grammar and returns its size.
func (f *Frontend) HarvestLexicon() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.rebuildLocked(); err != nil {
		return 0, err
	}
	return f.vocab.Len(), nil
}

// Enable, Disable and the other grammar edits go through the front end so that
// the attention policy and vocabulary follow the grammar.

// Enable makes head top-level.
func (f *Frontend) Enable(head string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.g.Enable(head)
}

// Disable clears the top-level flag of head.
func (f *Frontend) Disable(head string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.g.Disable(head)
}

// ParseConfidence reads a space-separated list of 0..100 integers.
func ParseConfidence(s string) ([]int, error) {
	fields := strings.Fields(s)
	out := make([]int, 0, len(fields))
	for i, field := range fields {
		n, err := strconv.Atoi(field)
		if err != nil || n < 0 || n > 100 {
			return nil, fmt.Errorf("confidence %d: %q is not an integer in 0..100", i+1, field)
		}
		out = append(out, n)
	}
	return out, nil
}

// Request is one utterance to process.
type Request struct {
	Text       string
	Confidence []int // per word, optional
	ReadOnly   bool  // never teach the grammar
}

// Process runs the full pipeline on one utterance.
func (f *Frontend) Process(ctx context.Context, req Request) (*articulation.Envelope, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.processLocked(ctx, req)
}

func (f *Frontend) processLocked(ctx context.Context, req Request) (*articulation.Envelope, error) {
	timer := logging.StartTimer(logging.CategoryPerception, "process")
	defer timer.Stop()

	env := articulation.NewEnvelope(req.Text)
	tokens := allTokens(req.Text)
	conf := confidenceByWord(tokens, req.Confidence)

	fixed, fixes := f.corrector.FixTypos(tokens)
	for _, fix := range fixes {
		env.Fixes = append(env.Fixes, fix.String())
	}
	words := wordsOnly(fixed)
	parser := earley.New(f.g, earley.Options{MaxStates: f.cfg.Parser.MaxStates})

	forest, err := parser.Parse(words)
	if err != nil && !errors.Is(err, earley.ErrNoParse) {
		return nil, err
	}

	// Unknown words inside a successful parse were dictated; they are marked
	// but only taught when nothing parsed.
	unknown := f.unknown(words)
	if forest == nil || len(unknown) > 0 {
		learn := forest == nil && !req.ReadOnly
		guesses := f.inferer.Infer(fixed)
		taught := 0
		for _, gs := range guesses {
			g := articulation.Guess{Word: gs.Word, Tag: gs.Tag.String(), Base: gs.Base, Pattern: gs.Pattern}
			if learn && conf(gs.Word) >= f.cfg.Lexicon.MinConfidence {
				if err := f.teach(gs.Word, gs.Tag, gs.Base); err != nil {
					logging.Get(logging.CategoryLexicon).Warn("could not teach %s: %v", gs.Word, err)
				} else {
					g.Taught = true
					taught++
					f.record(ctx, env.ID, g)
				}
			}
			env.Guesses = append(env.Guesses, g)
		}
		if len(guesses) > 0 {
			env.Marked = lexicon.Marked(fixed, guesses)
		}
		if taught > 0 {
			if forest, err = parser.Parse(words); err != nil && !errors.Is(err, earley.ErrNoParse) {
				return nil, err
			}
			unknown = f.unknown(words)
		}
	}

	in := perception.Input{
		ID:            env.ID,
		Unknown:       unknown,
		AttentionOnly: f.attention.Only(words),
		Terminator:    tokenizer.TrailingTerminator(req.Text),
	}
	if forest != nil {
		in.List = assoc.Build(forest.Cursor(), assoc.Options{Closing: f.cfg.Grammar.ClosingMarkers})
		in.Labels = labels(forest.Selected())
		env.Normalized = forest.Normalize()
		env.Rank = forest.Rank(0).String()
		env.Ambiguous = forest.Ambiguous()
	}
	env.SetList(in.List)
	env.Unknown = unknown
	env.Attention = f.attention.Wake(words)

	act, err := f.classifier.Classify(in)
	if err != nil {
		return nil, err
	}
	env.SetAct(act)
	env.Surface = f.templates.Render(env)
	logging.Perception("%s %q -> %s%s", env.ID[:8], req.Text, act, env.Assoc)
	return env, nil
}

func (f *Frontend) unknown(words []string) []string {
	var out []string
	for _, w := range words {
		if !f.vocab.Known(w) {
			out = append(out, w)
		}
	}
	return out
}

// teachTarget names the production a guess becomes: the word itself under a
// head named after its exact tag when the grammar has one, else the base word
// under the class head.
func teachTarget(g *grammar.Grammar, word string, tag morph.Tag, base string) (head, expansion string) {
	if name := tag.String(); g.HasHead(name) {
		return name, word
	}
	return tag.Class().String(), base
}

// errNoSection is returned when the grammar has no section to put a word in.
var errNoSection = errors.New("grammar has no section for the category")

func (f *Frontend) teach(word string, tag morph.Tag, base string) error {
	f.teachMu.Lock()
	defer f.teachMu.Unlock()
	head, expansion := teachTarget(f.g, word, tag, base)
	if !f.g.HasHead(head) {
		return fmt.Errorf("%w: %s", errNoSection, head)
	}
	if _, err := f.g.Extend(head, expansion); err != nil {
		return err
	}
	f.g.Morph().AddBase(strings.ToLower(base), tag.Class())
	f.vocab.Add(word)
	if !strings.EqualFold(base, word) {
		f.vocab.Add(base)
	}
	return nil
}

func (f *Frontend) untaught(word string, tag morph.Tag, base string) {
	head, expansion := teachTarget(f.g, word, tag, base)
	if _, err := f.g.RemoveRule(head, expansion); err != nil {
		logging.Get(logging.CategoryLexicon).Warn("could not remove %s from %s: %v", expansion, head, err)
	}
	f.vocab.Remove(word)
	if !strings.EqualFold(base, word) {
		f.vocab.Remove(base)
	}
}

func (f *Frontend) record(ctx context.Context, utterance string, g articulation.Guess) {
	if f.journal == nil {
		return
	}
	_, err := f.journal.Record(ctx, store.Entry{
		Utterance: utterance, Word: g.Word, Tag: g.Tag, Base: g.Base, Pattern: g.Pattern,
	})
	if err != nil {
		logging.StoreError("%v", err)
	}
}

// Accept keeps the provisional productions taught for word.
func (f *Frontend) Accept(ctx context.Context, word string) ([]store.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.journal == nil {
		return nil, ErrNoJournal
	}
	return f.journal.Accept(ctx, word)
}

// Reject removes the provisional productions and vocabulary entries taught
// for word.
func (f *Frontend) Reject(ctx context.Context, word string) ([]store.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.journal == nil {
		return nil, ErrNoJournal
	}
	entries, err := f.journal.Reject(ctx, word)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		tag, err := morph.ParseTag(e.Tag)
		if err != nil {
			continue
		}
		f.untaught(e.Word, tag, e.Base)
	}
	return entries, nil
}

// Journal lists journal entries with status st (all when empty).
func (f *Frontend) Journal(ctx context.Context, st store.Status) ([]store.Entry, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.journal == nil {
		return nil, ErrNoJournal
	}
	return f.journal.List(ctx, st)
}

// Replay teaches every accepted journal entry to the current grammar and
// returns how many were applied.
func (f *Frontend) Replay(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.journal == nil {
		return 0, nil
	}
	entries, err := f.journal.List(ctx, store.Accepted)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		tag, err := morph.ParseTag(e.Tag)
		if err != nil {
			logging.StoreError("journal entry %d: %v", e.ID, err)
			continue
		}
		if err := f.teach(e.Word, tag, e.Base); err != nil {
			logging.StoreError("journal entry %d: %v", e.ID, err)
			continue
		}
		n++
	}
	if n > 0 {
		logging.Store("replayed %d accepted words", n)
	}
	return n, nil
}

func allTokens(text string) []string {
	t := tokenizer.NewString(text)
	var out []string
	for {
		tok, ok := t.Next(false)
		if !ok {
			return out
		}
		out = append(out, tok.Text)
	}
}

func wordsOnly(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, w := range tokens {
		if !tokenizer.IsPunctuation(w) {
			out = append(out, w)
		}
	}
	return out
}

// confidenceByWord pairs confidences with the words of tokens. Words without
// a score, including words made by typo correction, count as certain.
func confidenceByWord(tokens []string, scores []int) func(string) int {
	byWord := make(map[string]int)
	i := 0
	for _, w := range tokens {
		if tokenizer.IsPunctuation(w) {
			continue
		}
		if i < len(scores) {
			if old, ok := byWord[w]; !ok || scores[i] < old {
				byWord[w] = scores[i]
			}
		}
		i++
	}
	return func(w string) int {
		if c, ok := byWord[w]; ok {
			return c
		}
		return 100
	}
}

// labels lists the node labels of a derivation, root first, depth first.
func labels(n *earley.Node) []string {
	if n == nil {
		return nil
	}
	out := []string{n.Label}
	for _, c := range n.Children() {
		out = append(out, labels(c)...)
	}
	return out
}
