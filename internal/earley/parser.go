// Package earley implements the chart parser over a grammar snapshot. A parse
// produces a packed forest; candidates spanning the whole input are ranked and
// the best one is exposed through a navigable cursor.
package earley

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"hearsay/internal/grammar"
	"hearsay/internal/logging"
	"hearsay/internal/tokenizer"
)

// DefaultMaxStates bounds the chart when no limit is configured.
const DefaultMaxStates = 200000

var (
	// ErrNoParse means no top-level production spans the whole input.
	ErrNoParse = errors.New("no derivation spans the input")
	// ErrChartFull means the parse was abandoned at the state limit.
	ErrChartFull = errors.New("chart state limit reached")
)

// Options configures a Parser.
type Options struct {
	MaxStates int
}

// Parser parses word sequences against a grammar. A Parser is not safe for
// concurrent use; create one per goroutine. Forests stay valid after the next
// Parse call.
type Parser struct {
	g         *grammar.Grammar
	maxStates int
}

// New returns a parser over g.
func New(g *grammar.Grammar, opts Options) *Parser {
	if opts.MaxStates <= 0 {
		opts.MaxStates = DefaultMaxStates
	}
	return &Parser{g: g, maxStates: opts.MaxStates}
}

// Grammar returns the grammar the parser reads.
func (p *Parser) Grammar() *grammar.Grammar { return p.g }

// ParseText tokenizes text and parses its words, ignoring punctuation.
func (p *Parser) ParseText(text string) (*Forest, error) {
	return p.Parse(tokenizer.Words(text))
}

// Parse runs the chart over words. Status changes made while Parse runs are not
// observed; the grammar is read once, at entry.
func (p *Parser) Parse(words []string) (*Forest, error) {
	timer := logging.StartTimer(logging.CategoryParser, "parse")
	snap := p.g.Snapshot()

	c := newChart(snap, words, p.maxStates)
	err := c.run()
	timer.StopWithThreshold(50 * time.Millisecond)
	if err != nil {
		logging.Parser("parse of %d words abandoned after %d states: %v", len(words), len(c.states), err)
		return nil, err
	}

	res := c.result()
	logging.ParserDebug("parsed %q: %d states, %d candidates", strings.Join(words, " "), len(c.states), len(res.cands))
	if len(res.cands) == 0 {
		return nil, fmt.Errorf("%w (%d words, %d states)", ErrNoParse, len(words), len(c.states))
	}
	return res, nil
}

type stateKey struct {
	rule, dot, start int
}

// link is one way a state was reached: from pred (the same production with
// the dot one step back) by matching child.
type link struct {
	pred  int
	child int
}

const (
	childTerminal = -1
	childWildcard = -2
)

type state struct {
	rule, dot, start, end int
	links                 []link
}

type chart struct {
	snap  *grammar.Snapshot
	words []string
	lower []string
	max   int

	states    []state
	sets      [][]int
	index     []map[stateKey]int
	predicted []map[string]bool
	waiting   []map[string][]int
	emptyDone []map[string][]int
	top       map[int]bool
}

func newChart(snap *grammar.Snapshot, words []string, max int) *chart {
	n := len(words)
	c := &chart{
		snap:      snap,
		words:     words,
		lower:     make([]string, n),
		max:       max,
		sets:      make([][]int, n+1),
		index:     make([]map[stateKey]int, n+1),
		predicted: make([]map[string]bool, n+1),
		waiting:   make([]map[string][]int, n+1),
		emptyDone: make([]map[string][]int, n+1),
		top:       make(map[int]bool),
	}
	for i, w := range words {
		c.lower[i] = strings.ToLower(w)
	}
	for k := 0; k <= n; k++ {
		c.index[k] = make(map[stateKey]int)
		c.predicted[k] = make(map[string]bool)
		c.waiting[k] = make(map[string][]int)
		c.emptyDone[k] = make(map[string][]int)
	}
	for _, ri := range snap.Top() {
		c.top[ri] = true
	}
	return c
}

func (c *chart) complete(id int) bool {
	s := &c.states[id]
	return s.dot == len(c.snap.Rules[s.rule].Steps)
}

// viable is the one-symbol lookahead applied to predictions.
func (c *chart) viable(ri, k int) bool {
	steps := c.snap.Rules[ri].Steps
	if len(steps) == 0 {
		return true
	}
	switch steps[0].Kind {
	case grammar.NonTerminal:
		return true
	case grammar.Wildcard:
		return k < len(c.words)
	}
	return k < len(c.words) && strings.EqualFold(steps[0].Text, c.lower[k])
}

// add returns the id of state (rule, dot, start) in set end, creating it.
func (c *chart) add(rule, dot, start, end int) (int, bool, error) {
	key := stateKey{rule, dot, start}
	if id, ok := c.index[end][key]; ok {
		return id, false, nil
	}
	if len(c.states) >= c.max {
		return 0, false, ErrChartFull
	}
	id := len(c.states)
	c.states = append(c.states, state{rule: rule, dot: dot, start: start, end: end})
	c.index[end][key] = id
	c.sets[end] = append(c.sets[end], id)
	return id, true, nil
}

func (c *chart) advance(pred, child, end int) error {
	s := c.states[pred]
	id, _, err := c.add(s.rule, s.dot+1, s.start, end)
	if err != nil {
		return err
	}
	c.states[id].links = append(c.states[id].links, link{pred: pred, child: child})
	return nil
}

func (c *chart) predict(head string, k int) error {
	if c.predicted[k][head] {
		return nil
	}
	c.predicted[k][head] = true
	for _, ri := range c.snap.Alternatives(head) {
		if !c.viable(ri, k) {
			continue
		}
		if _, _, err := c.add(ri, 0, k, k); err != nil {
			return err
		}
	}
	return nil
}

func (c *chart) run() error {
	// seed in insertion order so discovery order follows the grammar
	for _, ri := range c.snap.Top() {
		if !c.viable(ri, 0) {
			continue
		}
		if _, _, err := c.add(ri, 0, 0, 0); err != nil {
			return err
		}
	}

	n := len(c.words)
	for k := 0; k <= n; k++ {
		for i := 0; i < len(c.sets[k]); i++ {
			if err := c.process(c.sets[k][i], k); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *chart) process(id, k int) error {
	s := c.states[id]
	steps := c.snap.Rules[s.rule].Steps

	if s.dot == len(steps) {
		head := c.snap.Rules[s.rule].Head
		if s.start == k {
			c.emptyDone[k][head] = append(c.emptyDone[k][head], id)
		}
		for _, w := range c.waiting[s.start][head] {
			if err := c.advance(w, id, k); err != nil {
				return err
			}
		}
		return nil
	}

	step := steps[s.dot]
	switch step.Kind {
	case grammar.NonTerminal:
		c.waiting[k][step.Text] = append(c.waiting[k][step.Text], id)
		if err := c.predict(step.Text, k); err != nil {
			return err
		}
		for _, e := range c.emptyDone[k][step.Text] {
			if err := c.advance(id, e, k); err != nil {
				return err
			}
		}
	case grammar.Wildcard:
		if k < len(c.words) {
			return c.advance(id, childWildcard, k+1)
		}
	case grammar.Terminal:
		if k < len(c.words) && strings.EqualFold(step.Text, c.lower[k]) {
			return c.advance(id, childTerminal, k+1)
		}
	}
	return nil
}

func (c *chart) result() *Forest {
	n := len(c.words)
	rk := newRanker(c)
	res := &Forest{chart: c, ranker: rk}
	for _, id := range c.sets[n] {
		s := &c.states[id]
		if s.start != 0 || !c.top[s.rule] || !c.complete(id) {
			continue
		}
		cand, ok := rk.root(id)
		if !ok {
			continue
		}
		res.cands = append(res.cands, cand)
	}
	sort.SliceStable(res.cands, func(i, j int) bool {
		return res.cands[i].rank.Less(res.cands[j].rank)
	})
	return res
}
