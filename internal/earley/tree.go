package earley

import (
	"fmt"
	"strings"

	"hearsay/internal/grammar"
)

// Node is one production instance of a materialized derivation.
type Node struct {
	Label      string
	Production int // grammar production id
	Start, End int // word span [Start, End)
	Items      []Item
}

// Item is a matched step of a Node. Terminal items carry the literal as
// written in the grammar, wildcard items the raw input word.
type Item struct {
	Kind       grammar.StepKind
	Text       string
	Start, End int
	Node       *Node
}

// Children returns the non-terminal children in order.
func (n *Node) Children() []*Node {
	var out []*Node
	for _, it := range n.Items {
		if it.Node != nil {
			out = append(out, it.Node)
		}
	}
	return out
}

// String renders the derivation as a bracketed tree.
func (n *Node) String() string {
	var sb strings.Builder
	n.write(&sb)
	return sb.String()
}

func (n *Node) write(sb *strings.Builder) {
	sb.WriteByte('(')
	sb.WriteString(n.Label)
	for _, it := range n.Items {
		sb.WriteByte(' ')
		switch it.Kind {
		case grammar.NonTerminal:
			it.Node.write(sb)
		case grammar.Wildcard:
			sb.WriteString(grammar.WildcardText + it.Text)
		default:
			sb.WriteString(it.Text)
		}
	}
	sb.WriteByte(')')
}

type candidate struct {
	id    int
	rank  Rank
	class int
	tie   bool
}

// Forest holds the ranked candidate derivations of one parse. Candidate 0 is
// the selected derivation.
type Forest struct {
	chart  *chart
	ranker *ranker
	cands  []candidate
	trees  []*Node
}

// Words returns the parsed input.
func (f *Forest) Words() []string { return f.chart.words }

// Len returns the number of candidate derivations.
func (f *Forest) Len() int { return len(f.cands) }

// States returns the chart size.
func (f *Forest) States() int { return len(f.chart.states) }

// Rank returns the rank of candidate i.
func (f *Forest) Rank(i int) Rank { return f.cands[i].rank }

// Ambiguous reports whether another derivation ranks the same as the
// selection, either as a separate candidate or packed inside it.
func (f *Forest) Ambiguous() bool {
	if len(f.cands) == 0 {
		return false
	}
	return f.cands[0].tie || (len(f.cands) > 1 && !f.cands[0].rank.Less(f.cands[1].rank))
}

// Span returns the raw words [i, j) joined by single spaces.
func (f *Forest) Span(i, j int) string {
	if i < 0 {
		i = 0
	}
	if j > len(f.chart.words) {
		j = len(f.chart.words)
	}
	if i >= j {
		return ""
	}
	return strings.Join(f.chart.words[i:j], " ")
}

// Candidate summarizes one top-level derivation.
type Candidate struct {
	Index int
	Label string
	Rank  Rank
}

// Candidates lists every candidate in rank order.
func (f *Forest) Candidates() []Candidate {
	out := make([]Candidate, len(f.cands))
	for i, c := range f.cands {
		st := &f.chart.states[c.id]
		out[i] = Candidate{Index: i, Label: f.chart.snap.Rules[st.rule].Head, Rank: c.rank}
	}
	return out
}

// Tree materializes candidate i.
func (f *Forest) Tree(i int) *Node {
	if i < 0 || i >= len(f.cands) {
		return nil
	}
	if f.trees == nil {
		f.trees = make([]*Node, len(f.cands))
	}
	if f.trees[i] == nil {
		f.trees[i] = f.build(f.cands[i].id, f.cands[i].class)
	}
	return f.trees[i]
}

// Selected returns the best derivation.
func (f *Forest) Selected() *Node { return f.Tree(0) }

func (f *Forest) build(id, class int) *Node {
	st := &f.chart.states[id]
	rule := &f.chart.snap.Rules[st.rule]
	n := &Node{Label: rule.Head, Production: rule.ID, Start: st.start, End: st.end}
	f.collect(id, class, n)
	return n
}

func (f *Forest) collect(id, class int, n *Node) {
	st := &f.chart.states[id]
	if st.dot == 0 {
		return
	}
	via := f.ranker.memo[id][class].via
	l := st.links[via.link]
	f.collect(l.pred, via.pred, n)

	start := f.chart.states[l.pred].end
	step := f.chart.snap.Rules[st.rule].Steps[st.dot-1]
	it := Item{Kind: step.Kind, Text: step.Text, Start: start, End: st.end}
	switch l.child {
	case childTerminal:
	case childWildcard:
		it.Text = f.chart.words[start]
	default:
		it.Node = f.build(l.child, via.child)
	}
	n.Items = append(n.Items, it)
}

// Normalize renders the selected derivation as a clean sentence: grammar
// literals for terminals and the raw words matched by wildcards.
func (f *Forest) Normalize() string {
	var words []string
	var walk func(*Node)
	walk = func(n *Node) {
		for _, it := range n.Items {
			if it.Node != nil {
				walk(it.Node)
				continue
			}
			words = append(words, it.Text)
		}
	}
	if root := f.Selected(); root != nil {
		walk(root)
	}
	return strings.Join(words, " ")
}

// Cursor navigates the non-terminal structure of a derivation.
type Cursor struct {
	res   *Forest
	stack []level
}

type level struct {
	nodes []*Node
	i     int
}

// Cursor returns a cursor at the root of the selected derivation.
func (f *Forest) Cursor() *Cursor {
	c := &Cursor{res: f}
	_ = c.Reset(0)
	return c
}

// Reset moves the cursor to the root of candidate n.
func (c *Cursor) Reset(n int) error {
	root := c.res.Tree(n)
	if root == nil {
		return fmt.Errorf("no candidate %d (have %d)", n, c.res.Len())
	}
	c.stack = append(c.stack[:0], level{nodes: []*Node{root}})
	return nil
}

// Node returns the focus.
func (c *Cursor) Node() *Node {
	top := c.stack[len(c.stack)-1]
	return top.nodes[top.i]
}

// Label returns the head name of the focus.
func (c *Cursor) Label() string { return c.Node().Label }

// Span returns the word span of the focus.
func (c *Cursor) Span() (int, int) {
	n := c.Node()
	return n.Start, n.End
}

// Text returns the raw words covered by the focus.
func (c *Cursor) Text() string {
	n := c.Node()
	return c.res.Span(n.Start, n.End)
}

// Depth is 0 at the root.
func (c *Cursor) Depth() int { return len(c.stack) - 1 }

// Descend moves to the first non-terminal child. It reports false, leaving the
// cursor unchanged, when there is none.
func (c *Cursor) Descend() bool {
	kids := c.Node().Children()
	if len(kids) == 0 {
		return false
	}
	c.stack = append(c.stack, level{nodes: kids})
	return true
}

// Next moves to the next non-terminal sibling.
func (c *Cursor) Next() bool {
	top := &c.stack[len(c.stack)-1]
	if top.i+1 >= len(top.nodes) {
		return false
	}
	top.i++
	return true
}

// Ascend returns to the parent of the focus.
func (c *Cursor) Ascend() bool {
	if len(c.stack) == 1 {
		return false
	}
	c.stack = c.stack[:len(c.stack)-1]
	return true
}
