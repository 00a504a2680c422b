package grammar

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"hearsay/internal/logging"
	"hearsay/internal/morph"
)

type loadState struct {
	g       *Grammar
	stack   map[string]bool
	created map[string]bool
	order   []string
	status  map[string]Status
	diags   []Diagnostic
}

// Load reads a grammar file, following #include directives. Only failure to open
// path itself is an error; every other problem becomes a diagnostic and loading
// continues with the next line.
func (g *Grammar) Load(path string) ([]Diagnostic, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open grammar %s: %w", path, err)
	}
	defer f.Close()
	return g.load(f, path, true)
}

// LoadReader reads grammar text from r. name is used for diagnostics and to
// resolve relative includes.
func (g *Grammar) LoadReader(r io.Reader, name string) ([]Diagnostic, error) {
	return g.load(r, name, false)
}

func (g *Grammar) load(r io.Reader, name string, isFile bool) ([]Diagnostic, error) {
	timer := logging.StartTimer(logging.CategoryGrammar, "load "+name)

	g.mu.Lock()
	if isFile {
		g.path = name
	}
	ls := &loadState{
		g:       g,
		stack:   make(map[string]bool),
		created: make(map[string]bool),
		status:  make(map[string]Status),
	}
	if abs, err := filepath.Abs(name); err == nil {
		ls.stack[abs] = true
	}
	g.files = append(g.files, name)
	ls.read(r, name)
	ls.finish(name)
	total := 0
	for _, p := range g.prods {
		if p != nil {
			total++
		}
	}
	g.mu.Unlock()

	timer.Stop()
	logging.Grammar("loaded %s: %d productions, %d alerts, %d diagnostics", name, total, len(g.Alerts()), len(ls.diags))
	for _, d := range ls.diags {
		logging.GrammarWarn("%s", d)
	}
	return ls.diags, nil
}

func (ls *loadState) diag(kind DiagKind, file string, line int, format string, args ...interface{}) {
	ls.diags = append(ls.diags, Diagnostic{Kind: kind, File: file, Line: line, Msg: fmt.Sprintf(format, args...)})
}

func (ls *loadState) read(r io.Reader, file string) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	head := ""
	inMorph := false
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(stripComment(sc.Text()))
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#include") {
			ls.include(line, file, lineNo)
			continue
		}
		if line[0] == '=' {
			name, rest, err := parseHead(line)
			if err != nil {
				ls.diag(DiagSyntax, file, lineNo, "%v", err)
				head = ""
				continue
			}
			head = name
			inMorph = strings.HasPrefix(name, morphPrefix)
			if !inMorph && len(ls.g.byHead[name]) == 0 && !ls.created[name] {
				ls.created[name] = true
				ls.order = append(ls.order, name)
			}
			if strings.HasPrefix(rest, statusMark) {
				word, tail := rest, ""
				if i := strings.IndexAny(rest, " \t"); i >= 0 {
					word, tail = rest[:i], rest[i:]
				}
				if st, err := ParseStatus(word[len(statusMark):]); err != nil {
					ls.diag(DiagSyntax, file, lineNo, "%v", err)
				} else if !inMorph {
					ls.status[name] = st
				}
				rest = strings.TrimSpace(tail)
			}
			if rest != "" {
				ls.expansion(head, inMorph, rest, file, lineNo)
			}
			continue
		}
		ls.expansion(head, inMorph, line, file, lineNo)
	}
	if err := sc.Err(); err != nil {
		ls.diag(DiagSyntax, file, lineNo, "read error: %v", err)
	}
}

func (ls *loadState) expansion(head string, inMorph bool, line, file string, lineNo int) {
	if head == "" {
		ls.diag(DiagSyntax, file, lineNo, "expansion %q outside of a rule", line)
		return
	}
	if inMorph {
		if err := ls.g.morph.ParseLine(line); err != nil {
			kind := DiagSyntax
			if errors.Is(err, morph.ErrOutOfSpace) {
				kind = DiagOutOfSpace
			}
			ls.diag(kind, file, lineNo, "%v", err)
		}
		return
	}
	elems, err := parseExpansion(line)
	if err != nil {
		ls.diag(DiagSyntax, file, lineNo, "%v", err)
		return
	}
	variants, err := expand(elems, ls.g.maxDict)
	if err != nil {
		ls.diag(DiagSyntax, file, lineNo, "%v", err)
		return
	}
	for _, steps := range variants {
		if leftRecursive(head, steps) {
			ls.diag(DiagRecursion, file, lineNo, "%s references itself first in %q; expansion dropped", head, renderSteps(steps))
			continue
		}
		ls.g.addLocked(head, steps, file, lineNo)
	}
}

func (ls *loadState) include(line, file string, lineNo int) {
	name := strings.Trim(strings.TrimSpace(strings.TrimPrefix(line, "#include")), `"'<>`)
	if name == "" {
		ls.diag(DiagSyntax, file, lineNo, "#include without a file name")
		return
	}
	target := name
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(file), name)
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		abs = target
	}
	if ls.stack[abs] {
		ls.diag(DiagRecursion, file, lineNo, "include cycle through %s", name)
		return
	}
	f, err := os.Open(target)
	if err != nil {
		ls.diag(DiagIncludeMissing, file, lineNo, "cannot open %s: %v", name, err)
		return
	}
	defer f.Close()

	ls.stack[abs] = true
	ls.g.files = append(ls.g.files, target)
	ls.read(f, target)
	delete(ls.stack, abs)
}

// finish assigns top-level status to the unreferenced heads created by this
// load, reports undefined references and registers lexicon words with morph.
func (ls *loadState) finish(file string) {
	g := ls.g
	referenced := make(map[string]bool)
	for _, p := range g.prods {
		if p == nil {
			continue
		}
		for _, s := range p.Steps {
			if s.Kind == NonTerminal && s.Text != p.Head {
				referenced[s.Text] = true
			}
		}
	}
	for _, head := range ls.order {
		if isReserved(head) || referenced[head] {
			continue
		}
		for _, id := range g.byHead[head] {
			g.prods[id].Status = TopLevel
		}
	}
	// explicit @status on a head line overrides the default
	for head, st := range ls.status {
		for _, id := range g.byHead[head] {
			g.prods[id].Status = st
		}
	}

	for _, h := range g.undefinedLocked() {
		ls.diag(DiagUndefined, file, 0, "rule <%s> is referenced but never defined", h)
	}

	for _, sec := range g.sectionsLocked() {
		for _, w := range sec.Words {
			g.morph.AddBase(w, sec.Class())
		}
	}

	g.diags = append(g.diags, ls.diags...)
	g.touch()
}

func (g *Grammar) sectionsLocked() []morph.Section {
	var out []morph.Section
	for _, head := range g.heads {
		sec := morph.Section{Head: head}
		if sec.Class() == 0 {
			continue
		}
		for _, id := range g.byHead[head] {
			if text, ok := literal(g.prods[id].Steps); ok {
				sec.Words = append(sec.Words, text)
			}
		}
		out = append(out, sec)
	}
	return out
}

func stripComment(line string) string {
	cut := len(line)
	if i := strings.IndexByte(line, ';'); i >= 0 {
		cut = i
	}
	if i := strings.Index(line, "//"); i >= 0 && i < cut {
		cut = i
	}
	return line[:cut]
}

// statusMark introduces an explicit status after a rule head: "=[NAME] @disabled".
const statusMark = "@"

// parseHead reads "=[NAME] rest" or "=<NAME> rest".
func parseHead(line string) (name, rest string, err error) {
	body := strings.TrimSpace(line[1:])
	if body == "" {
		return "", "", fmt.Errorf("rule head missing after '='")
	}
	var closer byte
	switch body[0] {
	case '[':
		closer = ']'
	case '<':
		closer = '>'
	default:
		return "", "", fmt.Errorf("rule head must be written =[NAME] or =<NAME>: %q", line)
	}
	end := strings.IndexByte(body, closer)
	if end < 0 {
		return "", "", fmt.Errorf("unmatched '%c' in rule head %q", body[0], line)
	}
	name = strings.TrimSpace(body[1:end])
	if name == "" || strings.ContainsAny(name, " \t") {
		return "", "", fmt.Errorf("bad rule name %q", name)
	}
	return name, strings.TrimSpace(body[end+1:]), nil
}
