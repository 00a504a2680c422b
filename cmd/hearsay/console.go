package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"hearsay/internal/articulation"
	"hearsay/internal/core"
	"hearsay/internal/grammar"
	"hearsay/internal/lexicon"
	"hearsay/internal/morph"
	"hearsay/internal/store"
)

// errQuit ends a console session.
var errQuit = errors.New("quit")

// console runs line verbs against one live front end. The one-shot
// subcommands and the interactive session share it.
type console struct {
	ctx    context.Context
	f      *core.Frontend
	out    io.Writer
	errOut io.Writer
	emit   *articulation.Emitter

	watcher *core.GrammarWatcher
}

func newConsole(ctx context.Context, f *core.Frontend, out io.Writer) *console {
	return &console{ctx: ctx, f: f, out: out, errOut: os.Stderr, emit: articulation.NewEmitter(out)}
}

const consoleHelp = `verbs:
  load-grammar PATH      add a grammar file to the live grammar
  reload                 discard the grammar and read it again
  enable [RULE]          make RULE (all when omitted) top-level
  disable [RULE]         clear the top-level flag of RULE
  parse SENTENCE         parse a sentence (a line with no verb does the same)
  dump-rules PATH        save the live grammar (- for stdout)
  harvest-lex BASE       write the inflected sections of BASE
  check-morph BASE       check that inflections of BASE invert
  journal [STATUS]       list learned words
  accept WORD            keep a learned word
  reject WORD            forget a learned word
  status                 grammar, vocabulary and watcher summary
  quit
`

// exec runs one console line.
func (c *console) exec(line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch verb {
	case "quit", "exit":
		return errQuit
	case "help", "?":
		_, err := io.WriteString(c.out, consoleHelp)
		return err
	case "load-grammar":
		if rest == "" {
			return fmt.Errorf("usage: load-grammar PATH")
		}
		return c.loadGrammar(rest)
	case "reload":
		return c.reload(rest)
	case "enable":
		c.setTop(rest, true)
		return nil
	case "disable":
		c.setTop(rest, false)
		return nil
	case "parse":
		return c.parse(rest, nil)
	case "dump-rules":
		if rest == "" {
			rest = "-"
		}
		return c.dumpRules(rest)
	case "harvest-lex":
		if rest == "" {
			return fmt.Errorf("usage: harvest-lex BASE")
		}
		return c.harvestLex(rest, "")
	case "check-morph":
		if rest == "" {
			return fmt.Errorf("usage: check-morph BASE")
		}
		_, err := c.checkMorph(rest)
		return err
	case "journal":
		return c.journal(rest)
	case "accept":
		return c.accept(rest)
	case "reject":
		return c.reject(rest)
	case "status":
		c.status()
		return nil
	}
	return c.parse(line, nil)
}

func (c *console) printDiagnostics(diags []grammar.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(c.errOut, d)
	}
}

func (c *console) loadGrammar(path string) error {
	diags, err := c.f.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load grammar: %w", err)
	}
	c.printDiagnostics(diags)
	g := c.f.Grammar()
	fmt.Fprintf(c.out, "loaded %s: %d productions, %d heads, %d words\n",
		path, g.Len(), len(g.Heads()), c.f.Vocabulary().Len())
	if c.watcher != nil && c.watcher.IsWatching() {
		return c.watcher.Refresh()
	}
	return nil
}

func (c *console) reload(path string) error {
	diags, err := c.f.Reload(c.ctx, path)
	c.printDiagnostics(diags)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "reloaded: %d productions\n", c.f.Grammar().Len())
	return nil
}

func (c *console) setTop(head string, top bool) {
	verb := "disabled"
	var n int
	if top {
		verb = "enabled"
		n = c.f.Enable(head)
	} else {
		n = c.f.Disable(head)
	}
	if head == "" {
		head = "all heads"
	}
	fmt.Fprintf(c.out, "%s %s: %d productions\n", verb, head, n)
}

func (c *console) parse(text string, confidence []int) error {
	if text == "" {
		return fmt.Errorf("usage: parse SENTENCE")
	}
	env, err := c.f.Process(c.ctx, core.Request{Text: text, Confidence: confidence})
	if err != nil {
		return err
	}
	return c.emit.Emit(env)
}

func (c *console) dumpRules(path string) error {
	g := c.f.Grammar()
	if path == "-" {
		return g.Dump(c.out)
	}
	if err := g.Save(path); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "wrote %d productions to %s\n", g.Len(), path)
	return nil
}

// loadBase reads a base grammar into a grammar of its own so that deriving
// or checking it never touches the live one.
func (c *console) loadBase(base string) (*grammar.Grammar, error) {
	g := grammar.New(grammar.Options{
		MaxDictation: cfg.Grammar.MaxDictation,
		Morph:        morph.New(cfg.Morph.MaxExceptions),
	})
	diags, err := g.Load(base)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", base, err)
	}
	c.printDiagnostics(diags)
	return g, nil
}

// derivedPath names the inflection file written next to base.
func derivedPath(base string) string {
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + ".derived" + ext
}

func (c *console) harvestLex(base, out string) error {
	g, err := c.loadBase(base)
	if err != nil {
		return err
	}
	if out == "" {
		out = derivedPath(base)
	}
	var w io.Writer = c.out
	if out != "-" {
		file, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", out, err)
		}
		defer file.Close()
		w = file
	}
	sections := g.Sections()
	if err := g.Morph().Derive(w, base, sections); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	vocab := lexicon.NewVocabulary(cfg.Lexicon.Bins, cfg.Lexicon.BlockSize)
	vocab.Harvest(g)
	if out != "-" {
		fmt.Fprintf(c.out, "wrote %s: %d sections, %d words\n", out, len(sections), vocab.Len())
	}
	return nil
}

func (c *console) checkMorph(base string) (int, error) {
	g, err := c.loadBase(base)
	if err != nil {
		return 0, err
	}
	mismatches, err := g.Morph().Check(c.ctx, g.Sections())
	if err != nil {
		return 0, err
	}
	for _, m := range mismatches {
		fmt.Fprintln(c.out, m)
	}
	fmt.Fprintf(c.out, "%d mismatches\n", len(mismatches))
	return len(mismatches), nil
}

func (c *console) journal(status string) error {
	st, err := store.ParseStatus(status)
	if err != nil {
		return err
	}
	entries, err := c.f.Journal(c.ctx, st)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintln(c.out, e)
	}
	if len(entries) == 0 {
		fmt.Fprintln(c.out, "no entries")
	}
	return nil
}

func (c *console) accept(word string) error {
	if word == "" {
		return fmt.Errorf("usage: accept WORD")
	}
	entries, err := c.f.Accept(c.ctx, word)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "accepted %s (%d entries)\n", word, len(entries))
	return nil
}

func (c *console) reject(word string) error {
	if word == "" {
		return fmt.Errorf("usage: reject WORD")
	}
	entries, err := c.f.Reject(c.ctx, word)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "rejected %s (%d entries)\n", word, len(entries))
	return nil
}

func (c *console) status() {
	g := c.f.Grammar()
	fmt.Fprintf(c.out, "grammar:  %s (%d files)\n", g.Path(), len(g.Files()))
	fmt.Fprintf(c.out, "rules:    %d productions, %d heads\n", g.Len(), len(g.Heads()))
	var top []string
	for _, h := range g.Heads() {
		if st, ok := g.HeadStatus(h); ok && st == grammar.TopLevel {
			top = append(top, h)
		}
	}
	sort.Strings(top)
	fmt.Fprintf(c.out, "top:      %s\n", strings.Join(top, " "))
	fmt.Fprintf(c.out, "words:    %d\n", c.f.Vocabulary().Len())
	if alerts := g.Alerts(); len(alerts) > 0 {
		fmt.Fprintf(c.out, "alerts:   %s\n", strings.Join(alerts, ", "))
	}
	if c.watcher != nil {
		s := c.watcher.GetStats()
		fmt.Fprintf(c.out, "watcher:  %d events, %d reloads, %d errors\n", s.Events, s.Reloads, s.Errors)
	}
}
