// Package mangle runs small Datalog policies on the Google Mangle engine. A
// Program is compiled once from source; each Run evaluates it over a fresh
// set of facts and returns them in a Result of its own.
package mangle

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	"github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	"hearsay/internal/logging"
)

// ErrNoProgram is returned by Run before any source has been loaded.
var ErrNoProgram = errors.New("no policy loaded")

// DefaultFactLimit bounds the facts one run may derive.
const DefaultFactLimit = 10000

// Program is a compiled set of declarations and rules.
type Program struct {
	mu        sync.RWMutex
	units     []parse.SourceUnit
	names     []string
	info      *analysis.ProgramInfo
	preds     map[string]ast.PredicateSym
	types     map[string][]ast.ConstantType
	factLimit int
}

// NewProgram returns an empty program. A non-positive factLimit uses
// DefaultFactLimit.
func NewProgram(factLimit int) *Program {
	if factLimit <= 0 {
		factLimit = DefaultFactLimit
	}
	return &Program{factLimit: factLimit}
}

// LoadFile adds the source in path.
func (p *Program) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open policy %s: %w", path, err)
	}
	defer f.Close()
	return p.Load(path, f)
}

// Load parses source and recompiles the program with it. Units are analysed
// together, so later units may use and extend predicates of earlier ones. On
// error the program is left as it was.
func (p *Program) Load(name string, r io.Reader) error {
	unit, err := parse.Unit(r)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	units := append(append([]parse.SourceUnit(nil), p.units...), unit)
	var merged parse.SourceUnit
	for _, u := range units {
		merged.Decls = append(merged.Decls, u.Decls...)
		merged.Clauses = append(merged.Clauses, u.Clauses...)
	}
	info, err := analysis.AnalyzeOneUnit(merged, nil)
	if err != nil {
		return fmt.Errorf("failed to analyze %s: %w", name, err)
	}

	p.units = units
	p.names = append(p.names, name)
	p.info = info
	p.preds = make(map[string]ast.PredicateSym, len(info.Decls))
	p.types = make(map[string][]ast.ConstantType, len(info.Decls))
	for sym, decl := range info.Decls {
		p.preds[sym.Symbol] = sym
		p.types[sym.Symbol] = argTypes(decl, sym.Arity)
	}
	logging.PerceptionDebug("policy %s: %d decls, %d rules", name, len(info.Decls), len(info.Rules))
	return nil
}

// argTypes reads the first bound declaration of decl. Unbound arguments are
// -1.
func argTypes(decl *ast.Decl, arity int) []ast.ConstantType {
	out := make([]ast.ConstantType, arity)
	for i := range out {
		out[i] = -1
	}
	if decl == nil || len(decl.Bounds) == 0 {
		return out
	}
	for i, b := range decl.Bounds[0].Bounds {
		c, ok := b.(ast.Constant)
		if !ok || i >= arity {
			continue
		}
		switch c.Symbol {
		case "/name":
			out[i] = ast.NameType
		case "/string":
			out[i] = ast.StringType
		case "/number":
			out[i] = ast.NumberType
		}
	}
	return out
}

// Sources lists the names of the loaded units in load order.
func (p *Program) Sources() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.names...)
}

// Predicates lists the declared predicate names.
func (p *Program) Predicates() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.preds))
	for name := range p.preds {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Run evaluates the program to a fixpoint over facts. Runs are serialized.
func (p *Program) Run(facts []Fact) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.info == nil {
		return nil, ErrNoProgram
	}

	store := factstore.NewSimpleInMemoryStore()
	for _, f := range facts {
		atom, err := p.atom(f)
		if err != nil {
			return nil, err
		}
		store.Add(atom)
	}

	stats, err := engine.EvalProgramWithStats(p.info, store, engine.WithCreatedFactLimit(p.factLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate policy: %w", err)
	}
	logging.PerceptionDebug("policy run: %d input facts, %d strata", len(facts), len(stats.Strata))
	return &Result{store: store, preds: p.preds}, nil
}

func (p *Program) atom(f Fact) (ast.Atom, error) {
	sym, ok := p.preds[f.Predicate]
	if !ok {
		return ast.Atom{}, fmt.Errorf("undeclared predicate %s", f.Predicate)
	}
	if len(f.Args) != sym.Arity {
		return ast.Atom{}, fmt.Errorf("%s takes %d arguments, got %d", f.Predicate, sym.Arity, len(f.Args))
	}
	types := p.types[f.Predicate]
	args := make([]ast.BaseTerm, len(f.Args))
	for i, v := range f.Args {
		term, err := toTerm(v, types[i])
		if err != nil {
			return ast.Atom{}, fmt.Errorf("%s argument %d: %w", f.Predicate, i+1, err)
		}
		args[i] = term
	}
	return ast.Atom{Predicate: sym, Args: args}, nil
}

// Result holds the facts of one run, given and derived.
type Result struct {
	store factstore.FactStore
	preds map[string]ast.PredicateSym
}

// Query returns every fact of predicate.
func (r *Result) Query(predicate string) ([]Fact, error) {
	sym, ok := r.preds[predicate]
	if !ok {
		return nil, fmt.Errorf("undeclared predicate %s", predicate)
	}
	var out []Fact
	err := r.store.GetFacts(ast.NewQuery(sym), func(a ast.Atom) error {
		f := Fact{Predicate: predicate, Args: make([]any, len(a.Args))}
		for i, t := range a.Args {
			f.Args[i] = fromTerm(t)
		}
		out = append(out, f)
		return nil
	})
	return out, err
}

// Has reports whether predicate holds for args, compared by their printed form.
func (r *Result) Has(predicate string, args ...any) bool {
	facts, err := r.Query(predicate)
	if err != nil {
		return false
	}
	want := Fact{Predicate: predicate, Args: args}.String()
	for _, f := range facts {
		if f.String() == want {
			return true
		}
	}
	return false
}

// Len is the number of facts in the store.
func (r *Result) Len() int {
	n := 0
	for _, sym := range r.store.ListPredicates() {
		_ = r.store.GetFacts(ast.NewQuery(sym), func(ast.Atom) error {
			n++
			return nil
		})
	}
	return n
}
