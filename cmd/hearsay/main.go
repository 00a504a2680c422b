// Command hearsay is the command line front end: it loads grammars, parses
// sentences into speech acts and association lists, and runs an interactive
// console over one live grammar.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hearsay/internal/config"
	"hearsay/internal/core"
	"hearsay/internal/logging"
	"hearsay/internal/store"
)

var (
	// Global flags
	verbose     bool
	configPath  string
	grammarPath string
	timeout     time.Duration

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "hearsay",
	Short: "Grammar-driven natural language front end",
	Long: `hearsay parses sentences against a hand-written context-free grammar and
reports, for each one, a speech act and an association list of slots and
phrase markers.

Unknown words are repaired when they look like typos, otherwise given a guessed
category that can be accepted or rejected later.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if grammarPath != "" {
			cfg.Grammar.Path = grammarPath
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", configPath, err)
		}
		logger, err = logging.Initialize(cfg.Logging, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger.Debug("configuration loaded", zap.String("path", configPath), zap.String("grammar", cfg.Grammar.Path))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "Config file")
	rootCmd.PersistentFlags().StringVarP(&grammarPath, "grammar", "g", "", "Grammar file (overrides grammar.path)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")

	rootCmd.AddCommand(
		loadGrammarCmd,
		enableCmd,
		disableCmd,
		parseCmd,
		parseFileCmd,
		dumpRulesCmd,
		harvestLexCmd,
		checkMorphCmd,
		journalCmd,
		sessionCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openFrontend builds a front end over the configured grammar, if any. Load
// diagnostics go to stderr; only an unreadable grammar file is an error. The
// returned function closes the journal, if one was opened.
func openFrontend(ctx context.Context, cmd *cobra.Command, withJournal bool) (*core.Frontend, func(), error) {
	f, err := core.NewFrontend(cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Grammar.Path != "" {
		diags, err := f.Load(cfg.Grammar.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load grammar: %w", err)
		}
		for _, d := range diags {
			fmt.Fprintln(cmd.ErrOrStderr(), d)
		}
	}

	closer := func() {}
	if withJournal && cfg.Store.Enabled {
		j, err := store.OpenJournal(cfg.Store.JournalPath)
		if err != nil {
			return nil, nil, err
		}
		if err := f.AttachJournal(ctx, j); err != nil {
			j.Close()
			return nil, nil, err
		}
		closer = func() { j.Close() }
	}
	return f, closer, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}
