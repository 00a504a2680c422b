package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hearsay/cmd/hearsay/ui"
	"hearsay/internal/core"
	"hearsay/internal/grammar"
	"hearsay/internal/logging"
)

var (
	watchGrammar bool
	useTUI       bool
)

// sessionCmd runs the console over one live grammar
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Run an interactive console over one live grammar",
	Long: `Reads console lines from stdin. Each line is a verb (type help for the
list) or a sentence to parse. Grammar edits, learned words and enable/disable
all apply to the same live grammar.

With --watch the grammar file and its includes are reloaded when they change.`,
	Args: cobra.NoArgs,
	RunE: runSession,
}

func init() {
	sessionCmd.Flags().BoolVar(&watchGrammar, "watch", false, "Reload the grammar when its files change (default grammar.watch)")
	sessionCmd.Flags().BoolVar(&useTUI, "tui", false, "Use the full-screen console")
}

func runSession(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	f, closeFn, err := openFrontend(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer closeFn()

	var out bytes.Buffer
	var w io.Writer = cmd.OutOrStdout()
	if useTUI {
		w = &out
	}
	c := newConsole(ctx, f, w)
	c.errOut = cmd.ErrOrStderr()
	if useTUI {
		c.errOut = &out
	}
	c.emit.Verbose = verbose

	if watchGrammar || cfg.Grammar.Watch {
		gw, err := core.NewGrammarWatcher(f, cfg.GetDebounce())
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		gw.OnReload(func(diags []grammar.Diagnostic, err error) {
			if err != nil {
				logger.Warn("grammar reload failed", zap.Error(err))
				return
			}
			logger.Info("grammar reloaded", zap.Int("diagnostics", len(diags)))
		})
		if err := gw.Start(c.ctx); err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		defer gw.Stop()
		c.watcher = gw
	}

	if useTUI {
		title := fmt.Sprintf("hearsay  %s", f.Grammar().Path())
		exec := func(line string) (string, bool, error) {
			out.Reset()
			err := c.exec(line)
			if errors.Is(err, errQuit) {
				return out.String(), true, nil
			}
			return out.String(), false, err
		}
		_, err := tea.NewProgram(ui.New(title, exec), tea.WithAltScreen()).Run()
		return err
	}
	return c.run(cmd.InOrStdin())
}

// run reads lines from r until EOF or quit. Errors from a line are printed
// and the session continues.
func (c *console) run(r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		err := c.exec(sc.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			logging.Get(logging.CategoryCLI).Warn("%v", err)
			fmt.Fprintf(c.errOut, "error: %v\n", err)
		}
	}
	return sc.Err()
}
