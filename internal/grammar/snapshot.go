package grammar

// Rule is an active production as seen by the parser.
type Rule struct {
	ID    int
	Head  string
	Steps []Step
}

// Snapshot is an immutable view of the active productions. A parse works from
// one snapshot, so concurrent Extend or Enable calls never affect a parse in
// progress.
type Snapshot struct {
	Version uint64
	Rules   []Rule

	byHead map[string][]int
	top    []int
}

// Alternatives returns the indexes into Rules of head's active productions.
func (s *Snapshot) Alternatives(head string) []int { return s.byHead[head] }

// Top returns the indexes of top-level productions in insertion order.
func (s *Snapshot) Top() []int { return s.top }

// Snapshot returns the current view, rebuilding it only after a change.
func (g *Grammar) Snapshot() *Snapshot {
	g.mu.RLock()
	s := g.snapshot
	g.mu.RUnlock()
	if s != nil {
		return s
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.snapshot != nil {
		return g.snapshot
	}
	s = &Snapshot{Version: g.version, byHead: make(map[string][]int)}
	for _, p := range g.prods {
		if p == nil || p.Status == Disabled {
			continue
		}
		idx := len(s.Rules)
		s.Rules = append(s.Rules, Rule{ID: p.ID, Head: p.Head, Steps: p.Steps})
		s.byHead[p.Head] = append(s.byHead[p.Head], idx)
		if p.Status == TopLevel {
			s.top = append(s.top, idx)
		}
	}
	g.snapshot = s
	return s
}
