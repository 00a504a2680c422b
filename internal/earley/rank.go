package earley

import "fmt"

// Rank orders candidate derivations: fewer wildcard words first, then fewer
// dictation runs, then fewer non-terminal nodes.
type Rank struct {
	Wild  int
	Dict  int
	Nodes int
}

// Less reports whether r ranks strictly better than o.
func (r Rank) Less(o Rank) bool {
	if r.Wild != o.Wild {
		return r.Wild < o.Wild
	}
	if r.Dict != o.Dict {
		return r.Dict < o.Dict
	}
	return r.Nodes < o.Nodes
}

func (r Rank) String() string {
	return fmt.Sprintf("wild=%d dict=%d nodes=%d", r.Wild, r.Dict, r.Nodes)
}

// A derivation's leaf sequence is summarized by whether it starts and ends
// with a wildcard, so that runs joining across a boundary count once.
// classEmpty covers derivations of zero words.
const (
	classEmpty = iota
	classPlain
	classTrail
	classLead
	classBoth
	numClasses
)

func classOf(lead, trail bool) int {
	c := classPlain
	if lead {
		c += 2
	}
	if trail {
		c++
	}
	return c
}

func leads(class int) bool  { return class == classLead || class == classBoth }
func trails(class int) bool { return class == classTrail || class == classBoth }

func join(a, b int) int {
	switch {
	case a == classEmpty:
		return b
	case b == classEmpty:
		return a
	}
	return classOf(leads(a), trails(b))
}

type choice struct {
	link        int
	pred, child int // classes used on each side
}

type score struct {
	ok   bool
	tie  bool // an equally ranked alternative exists somewhere below
	rank Rank
	via  choice
}

type scores [numClasses]score

const (
	unvisited = iota
	busy
	done
)

// ranker computes, for every state reachable from a candidate, the best
// derivation of its prefix in each boundary class.
type ranker struct {
	c     *chart
	memo  []scores
	stage []uint8
}

func newRanker(c *chart) *ranker {
	return &ranker{
		c:     c,
		memo:  make([]scores, len(c.states)),
		stage: make([]uint8, len(c.states)),
	}
}

func leafScores(child int) scores {
	var s scores
	switch child {
	case childTerminal:
		s[classPlain] = score{ok: true}
	case childWildcard:
		s[classBoth] = score{ok: true, rank: Rank{Wild: 1, Dict: 1}}
	}
	return s
}

// subtree is the value of a completed state used as a child: its prefix plus
// its own node.
func (r *ranker) subtree(id int) (scores, bool) {
	s, ok := r.prefix(id)
	if !ok {
		return s, false
	}
	for i := range s {
		s[i].rank.Nodes++
	}
	return s, true
}

// prefix returns the per-class scores of state id. A state met again while its
// own value is being computed lies on a cycle and contributes nothing.
func (r *ranker) prefix(id int) (scores, bool) {
	switch r.stage[id] {
	case done:
		return r.memo[id], true
	case busy:
		return scores{}, false
	}
	r.stage[id] = busy

	var out scores
	st := &r.c.states[id]
	if st.dot == 0 {
		out[classEmpty] = score{ok: true}
	}
	for li, l := range st.links {
		ps, ok := r.prefix(l.pred)
		if !ok {
			continue
		}
		var cs scores
		if l.child < 0 {
			cs = leafScores(l.child)
		} else if cs, ok = r.subtree(l.child); !ok {
			continue
		}
		for pc := 0; pc < numClasses; pc++ {
			if !ps[pc].ok {
				continue
			}
			for cc := 0; cc < numClasses; cc++ {
				if !cs[cc].ok {
					continue
				}
				rank := Rank{
					Wild:  ps[pc].rank.Wild + cs[cc].rank.Wild,
					Dict:  ps[pc].rank.Dict + cs[cc].rank.Dict,
					Nodes: ps[pc].rank.Nodes + cs[cc].rank.Nodes,
				}
				if trails(pc) && leads(cc) {
					rank.Dict--
				}
				class := join(pc, cc)
				cur := out[class]
				switch {
				case !cur.ok || rank.Less(cur.rank):
					out[class] = score{
						ok:   true,
						tie:  ps[pc].tie || cs[cc].tie,
						rank: rank,
						via:  choice{link: li, pred: pc, child: cc},
					}
				case !cur.rank.Less(rank):
					out[class].tie = true
				}
			}
		}
	}

	r.memo[id] = out
	r.stage[id] = done
	return out, true
}

// root ranks a candidate and picks the class its best derivation falls in.
func (r *ranker) root(id int) (candidate, bool) {
	s, ok := r.subtree(id)
	if !ok {
		return candidate{}, false
	}
	best := -1
	tie := false
	for cl := 0; cl < numClasses; cl++ {
		if !s[cl].ok {
			continue
		}
		switch {
		case best < 0 || s[cl].rank.Less(s[best].rank):
			best, tie = cl, false
		case !s[best].rank.Less(s[cl].rank):
			tie = true
		}
	}
	if best < 0 {
		return candidate{}, false
	}
	return candidate{id: id, rank: s[best].rank, class: best, tie: tie || s[best].tie}, true
}
