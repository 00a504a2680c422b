// Package grammar loads command-and-control grammars, expands their sugar into
// concrete productions and keeps the production list that the parser reads.
package grammar

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"hearsay/internal/logging"
	"hearsay/internal/morph"
)

// DefaultMaxDictation is N for * and + when no value is configured.
const DefaultMaxDictation = 5

// ErrNoHead is returned when a rule operation names a head that does not exist.
var ErrNoHead = errors.New("no such rule head")

// Options configures a Grammar.
type Options struct {
	MaxDictation int
	Morph        *morph.Engine
}

// Grammar is the production store. Productions keep insertion order; a
// production's id is its index in that order and is never reused.
type Grammar struct {
	mu sync.RWMutex

	path     string
	files    []string
	prods    []*Production // nil entries are removed productions
	byHead   map[string][]int
	heads    []string
	seen     map[string]int
	alerts   []string
	morph    *morph.Engine
	diags    []Diagnostic
	maxDict  int
	version  uint64
	snapshot *Snapshot
}

// New returns an empty grammar.
func New(opts Options) *Grammar {
	if opts.MaxDictation <= 0 {
		opts.MaxDictation = DefaultMaxDictation
	}
	if opts.Morph == nil {
		opts.Morph = morph.New(0)
	}
	return &Grammar{
		byHead:  make(map[string][]int),
		seen:    make(map[string]int),
		morph:   opts.Morph,
		maxDict: opts.MaxDictation,
	}
}

// Path returns the file most recently passed to Load.
func (g *Grammar) Path() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.path
}

// Files lists every file read by Load, includes included.
func (g *Grammar) Files() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.files...)
}

// Morph returns the morphology engine fed by XXX sections.
func (g *Grammar) Morph() *morph.Engine { return g.morph }

// MaxDictation returns N used for * and + expansion.
func (g *Grammar) MaxDictation() int { return g.maxDict }

// Version changes whenever the production list or a status flag changes.
func (g *Grammar) Version() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.version
}

// Diagnostics returns every diagnostic recorded since the last Clear.
func (g *Grammar) Diagnostics() []Diagnostic {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]Diagnostic(nil), g.diags...)
}

// Len returns the number of live productions.
func (g *Grammar) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, p := range g.prods {
		if p != nil {
			n++
		}
	}
	return n
}

// Productions returns copies of the live productions in insertion order.
func (g *Grammar) Productions() []Production {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Production, 0, len(g.prods))
	for _, p := range g.prods {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}

// Heads returns head names in first-seen order.
func (g *Grammar) Heads() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.heads...)
}

// HasHead reports whether head has at least one production.
func (g *Grammar) HasHead(head string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.byHead[head]) > 0
}

// HeadStatus returns the status of head's first production.
func (g *Grammar) HeadStatus(head string) (Status, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := g.byHead[head]
	if len(ids) == 0 {
		return Disabled, false
	}
	return g.prods[ids[0]].Status, true
}

// Alerts returns the attention phrases: the first ten expansions of ATTN.
func (g *Grammar) Alerts() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.alerts...)
}

// Terminals returns every distinct terminal word, lowercased, in first-seen order.
func (g *Grammar) Terminals() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, p := range g.prods {
		if p == nil {
			continue
		}
		for _, s := range p.Steps {
			if s.Kind != Terminal {
				continue
			}
			w := strings.ToLower(s.Text)
			if !seen[w] {
				seen[w] = true
				out = append(out, w)
			}
		}
	}
	return out
}

// InSection reports whether phrase is an all-terminal expansion of head.
func (g *Grammar) InSection(head, phrase string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	want := strings.ToLower(strings.Join(strings.Fields(phrase), " "))
	for _, id := range g.byHead[head] {
		if text, ok := literal(g.prods[id].Steps); ok && strings.ToLower(text) == want {
			return true
		}
	}
	return false
}

// Sections returns the lexicon sections (AKO, HQ, ACT, NAME, MOD) with the
// words of their all-terminal expansions.
func (g *Grammar) Sections() []morph.Section {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sectionsLocked()
}

func literal(steps []Step) (string, bool) {
	if len(steps) == 0 {
		return "", false
	}
	words := make([]string, len(steps))
	for i, s := range steps {
		if s.Kind != Terminal {
			return "", false
		}
		words[i] = s.Text
	}
	return strings.Join(words, " "), true
}

// =============================================================================
// MUTATION
// =============================================================================

// Clear drops all productions, alert phrases and diagnostics.
func (g *Grammar) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prods = nil
	g.byHead = make(map[string][]int)
	g.heads = nil
	g.seen = make(map[string]int)
	g.alerts = nil
	g.diags = nil
	g.files = nil
	g.touch()
	logging.Grammar("grammar cleared")
}

func (g *Grammar) touch() {
	g.version++
	g.snapshot = nil
}

// Enable makes head top-level; an empty name enables every head.
// It returns the number of productions affected.
func (g *Grammar) Enable(head string) int {
	return g.SetStatus(head, TopLevel)
}

// Disable clears the top-level flag of head (or every head when name is empty).
// The rule stays usable as a sub-rule.
func (g *Grammar) Disable(head string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, p := range g.match(head) {
		if p.Status == TopLevel {
			p.Status = Enabled
			n++
		}
	}
	if n > 0 {
		g.touch()
	}
	logging.GrammarDebug("disable %q: %d productions", head, n)
	return n
}

// SetStatus sets the status of every production of head (all heads when empty).
func (g *Grammar) SetStatus(head string, st Status) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, p := range g.match(head) {
		if p.Status != st {
			p.Status = st
			n++
		}
	}
	if n > 0 {
		g.touch()
	}
	logging.GrammarDebug("status %q -> %s: %d productions", head, st, n)
	return n
}

func (g *Grammar) match(head string) []*Production {
	var out []*Production
	if head == "" {
		for _, p := range g.prods {
			if p != nil {
				out = append(out, p)
			}
		}
		return out
	}
	for _, id := range g.byHead[head] {
		out = append(out, g.prods[id])
	}
	return out
}

// AddRule expands one expansion line and appends its productions to head.
// It returns how many new productions were added; duplicates are skipped.
func (g *Grammar) AddRule(head, expansion string) (int, error) {
	head = strings.TrimSpace(head)
	if head == "" || strings.ContainsAny(head, " \t") {
		return 0, fmt.Errorf("bad rule head %q", head)
	}
	elems, err := parseExpansion(expansion)
	if err != nil {
		return 0, fmt.Errorf("failed to parse expansion %q: %w", expansion, err)
	}
	variants, err := expand(elems, g.maxDict)
	if err != nil {
		return 0, fmt.Errorf("failed to expand %q: %w", expansion, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	isNew := len(g.byHead[head]) == 0
	added := 0
	var recErr error
	for _, steps := range variants {
		if leftRecursive(head, steps) {
			recErr = fmt.Errorf("%s: left-recursive expansion %q dropped", head, renderSteps(steps))
			continue
		}
		if _, ok := g.addLocked(head, steps, "", 0); ok {
			added++
		}
	}
	if isNew && added > 0 && !isReserved(head) && !g.referencedLocked(head) {
		for _, id := range g.byHead[head] {
			g.prods[id].Status = TopLevel
		}
	}
	if added > 0 {
		g.touch()
	}
	return added, recErr
}

func leftRecursive(head string, steps []Step) bool {
	return len(steps) > 0 && steps[0].Kind == NonTerminal && steps[0].Text == head
}

// Extend teaches a new phrase at run time. It is idempotent.
func (g *Grammar) Extend(head, expansion string) (int, error) {
	n, err := g.AddRule(head, expansion)
	if err != nil {
		return n, err
	}
	if n > 0 {
		logging.Grammar("extended %s with %q (%d productions)", head, expansion, n)
	}
	return n, nil
}

// RemoveRule removes the productions of head that expansion expands to.
func (g *Grammar) RemoveRule(head, expansion string) (int, error) {
	elems, err := parseExpansion(expansion)
	if err != nil {
		return 0, fmt.Errorf("failed to parse expansion %q: %w", expansion, err)
	}
	variants, err := expand(elems, g.maxDict)
	if err != nil {
		return 0, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.byHead[head]) == 0 {
		return 0, fmt.Errorf("%s: %w", head, ErrNoHead)
	}
	removed := 0
	for _, steps := range variants {
		k := structuralKey(head, steps)
		id, ok := g.seen[k]
		if !ok {
			continue
		}
		delete(g.seen, k)
		g.prods[id] = nil
		ids := g.byHead[head]
		for i, x := range ids {
			if x == id {
				g.byHead[head] = append(ids[:i:i], ids[i+1:]...)
				break
			}
		}
		removed++
	}
	if len(g.byHead[head]) == 0 {
		delete(g.byHead, head)
		for i, h := range g.heads {
			if h == head {
				g.heads = append(g.heads[:i:i], g.heads[i+1:]...)
				break
			}
		}
	}
	if removed > 0 {
		g.touch()
		logging.Grammar("removed %d productions from %s", removed, head)
	}
	return removed, nil
}

// addLocked appends one concrete production unless it is a duplicate.
func (g *Grammar) addLocked(head string, steps []Step, file string, line int) (*Production, bool) {
	k := structuralKey(head, steps)
	if _, dup := g.seen[k]; dup {
		return nil, false
	}
	status := Enabled
	if ids := g.byHead[head]; len(ids) > 0 {
		status = g.prods[ids[0]].Status
	} else {
		g.heads = append(g.heads, head)
	}
	p := &Production{
		ID:     len(g.prods),
		Head:   head,
		Steps:  steps,
		Status: status,
		File:   file,
		Line:   line,
	}
	g.prods = append(g.prods, p)
	g.byHead[head] = append(g.byHead[head], p.ID)
	g.seen[k] = p.ID

	if head == AttentionHead && len(g.alerts) < maxAlerts {
		if text, ok := literal(steps); ok {
			g.alerts = append(g.alerts, strings.ToLower(text))
		}
	}
	return p, true
}

func (g *Grammar) referencedLocked(head string) bool {
	for _, p := range g.prods {
		if p == nil || p.Head == head {
			continue
		}
		for _, s := range p.Steps {
			if s.Kind == NonTerminal && s.Text == head {
				return true
			}
		}
	}
	return false
}

func isReserved(head string) bool {
	return head == AttentionHead || strings.HasPrefix(head, morphPrefix)
}

// undefinedLocked lists referenced heads without productions, sorted.
func (g *Grammar) undefinedLocked() []string {
	missing := make(map[string]bool)
	for _, p := range g.prods {
		if p == nil {
			continue
		}
		for _, s := range p.Steps {
			if s.Kind == NonTerminal && len(g.byHead[s.Text]) == 0 {
				missing[s.Text] = true
			}
		}
	}
	out := make([]string, 0, len(missing))
	for h := range missing {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}
