package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hearsay/internal/articulation"
	"hearsay/internal/core"
)

var (
	jsonOutput   bool
	prettyOutput bool
	confidence   string
	saveTo       string
	derivedOut   string
	workers      int
)

// loadGrammarCmd reads a grammar file and reports what it holds
var loadGrammarCmd = &cobra.Command{
	Use:   "load-grammar PATH",
	Short: "Load a grammar file and report its diagnostics",
	Long: `Loads PATH on top of the configured grammar (none when --grammar is
empty) and prints every recoverable load problem to stderr.

Only a grammar file that cannot be opened is an error.`,
	Args: cobra.ExactArgs(1),
	RunE: runLoadGrammar,
}

// enableCmd makes a rule top-level
var enableCmd = &cobra.Command{
	Use:   "enable [RULE]",
	Short: "Make a rule top-level (all rules when omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSetTop(true),
}

// disableCmd clears the top-level flag of a rule
var disableCmd = &cobra.Command{
	Use:   "disable [RULE]",
	Short: "Stop a rule from spanning a whole utterance",
	Long: `Clears the top-level flag of RULE. The rule stays usable inside other
rules. Use --save to write the edited grammar back out.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSetTop(false),
}

// parseCmd parses one sentence
var parseCmd = &cobra.Command{
	Use:   "parse SENTENCE",
	Short: "Parse a sentence into a speech act and association list",
	Long: `Parses SENTENCE against the configured grammar.

Example:
  hearsay parse "drink some coke"
  hearsay parse --confidence "90 80 40" "Ken is tall" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

// parseFileCmd parses every sentence of a text file
var parseFileCmd = &cobra.Command{
	Use:   "parse-file PATH",
	Short: "Parse every sentence of a text file in parallel",
	Long: `Splits PATH into sentences and parses them with --workers parsers.
The grammar is never taught during a batch. With --json the output is one
envelope per line.`,
	Args: cobra.ExactArgs(1),
	RunE: runParseFile,
}

// dumpRulesCmd writes the grammar in loadable form
var dumpRulesCmd = &cobra.Command{
	Use:   "dump-rules PATH",
	Short: "Write the grammar in loadable form (- for stdout)",
	Args:  cobra.ExactArgs(1),
	RunE:  runDumpRules,
}

// harvestLexCmd writes the inflected sections of a base grammar
var harvestLexCmd = &cobra.Command{
	Use:   "harvest-lex BASE",
	Short: "Write the inflected forms of a base grammar's lexicon",
	Long: `Reads BASE and writes, for every lexicon section, the sections of its
inflected forms (plurals, comparatives, verb tenses, possessives).

The output goes next to BASE as NAME.derived.sgm unless --out is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runHarvestLex,
}

// checkMorphCmd checks that every inflection inverts to its base
var checkMorphCmd = &cobra.Command{
	Use:   "check-morph BASE",
	Short: "Check that inflections of a base grammar's lexicon invert",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckMorph,
}

// journalCmd lists learned words
var journalCmd = &cobra.Command{
	Use:   "journal [provisional|accepted|rejected]",
	Short: "List, accept or reject learned words",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runJournal,
}

var journalAcceptCmd = &cobra.Command{
	Use:   "accept WORD",
	Short: "Keep the category learned for WORD",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConsole(cmd, true, func(c *console) error { return c.accept(args[0]) })
	},
}

var journalRejectCmd = &cobra.Command{
	Use:   "reject WORD",
	Short: "Forget the category learned for WORD",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConsole(cmd, true, func(c *console) error { return c.reject(args[0]) })
	},
}

func init() {
	for _, c := range []*cobra.Command{parseCmd, parseFileCmd} {
		c.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON envelopes")
		c.Flags().BoolVar(&prettyOutput, "pretty", false, "Indent JSON output")
	}
	parseCmd.Flags().StringVar(&confidence, "confidence", "", "Per-word confidence, space-separated 0..100")
	parseFileCmd.Flags().IntVarP(&workers, "workers", "w", 0, "Parallel parsers (default batch.workers)")
	enableCmd.Flags().StringVar(&saveTo, "save", "", "Write the edited grammar to this path")
	disableCmd.Flags().StringVar(&saveTo, "save", "", "Write the edited grammar to this path")
	harvestLexCmd.Flags().StringVarP(&derivedOut, "out", "o", "", "Output file (- for stdout)")

	journalCmd.AddCommand(journalAcceptCmd, journalRejectCmd)
}

// withConsole opens the configured front end, runs fn on a console writing
// to the command's output, and closes everything.
func withConsole(cmd *cobra.Command, withJournal bool, fn func(*console) error) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	f, closeFn, err := openFrontend(ctx, cmd, withJournal)
	if err != nil {
		return err
	}
	defer closeFn()

	c := newConsole(ctx, f, cmd.OutOrStdout())
	c.errOut = cmd.ErrOrStderr()
	c.emit.JSON = jsonOutput
	c.emit.PrettyPrint = prettyOutput
	c.emit.Verbose = verbose
	return fn(c)
}

func runLoadGrammar(cmd *cobra.Command, args []string) error {
	cfg.Grammar.Path = ""
	return withConsole(cmd, false, func(c *console) error {
		return c.loadGrammar(args[0])
	})
}

func runSetTop(top bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		head := ""
		if len(args) > 0 {
			head = args[0]
		}
		return withConsole(cmd, false, func(c *console) error {
			c.setTop(head, top)
			if saveTo == "" {
				return nil
			}
			return c.dumpRules(saveTo)
		})
	}
}

func runParse(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	scores, err := core.ParseConfidence(confidence)
	if err != nil {
		return err
	}
	logger.Debug("parsing", zap.String("text", text), zap.Ints("confidence", scores))
	return withConsole(cmd, true, func(c *console) error {
		return c.parse(text, scores)
	})
}

func runParseFile(cmd *cobra.Command, args []string) error {
	sentences, err := core.ReadSentences(args[0])
	if err != nil {
		return err
	}
	n := workers
	if n <= 0 {
		n = cfg.Batch.Workers
	}
	logger.Info("parsing file", zap.String("path", args[0]), zap.Int("sentences", len(sentences)), zap.Int("workers", n))

	return withConsole(cmd, false, func(c *console) error {
		envs, err := c.f.ProcessBatch(c.ctx, sentences, n)
		if err != nil {
			return err
		}
		return emitAll(c.out, c.emit, envs, !jsonOutput)
	})
}

func emitAll(w io.Writer, e *articulation.Emitter, envs []*articulation.Envelope, separate bool) error {
	for i, env := range envs {
		if separate && i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := e.Emit(env); err != nil {
			return err
		}
	}
	return nil
}

func runDumpRules(cmd *cobra.Command, args []string) error {
	return withConsole(cmd, false, func(c *console) error {
		return c.dumpRules(args[0])
	})
}

// harvest-lex and check-morph read their own base grammar; the live one is
// not loaded.

func runHarvestLex(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	c := newConsole(ctx, nil, cmd.OutOrStdout())
	c.errOut = cmd.ErrOrStderr()
	return c.harvestLex(args[0], derivedOut)
}

func runCheckMorph(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	c := newConsole(ctx, nil, cmd.OutOrStdout())
	c.errOut = cmd.ErrOrStderr()
	_, err := c.checkMorph(args[0])
	return err
}

func runJournal(cmd *cobra.Command, args []string) error {
	status := ""
	if len(args) > 0 {
		status = args[0]
	}
	return withConsole(cmd, true, func(c *console) error {
		return c.journal(status)
	})
}
