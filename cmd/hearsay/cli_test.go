package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hearsay/internal/articulation"
	"hearsay/internal/config"
	"hearsay/internal/core"
	"hearsay/internal/grammar"
	"hearsay/internal/perception"
)

const testGrammar = `; kitchen robot
=[top]
  <!ingest>
  <fact>

=[!ingest]
  drink <BEV>
=[BEV]
  (some) <soda>
=[soda]
  soda
  Coke

=[fact]
  <NAME> is <HQ>
=[NAME]
  Ken
=[HQ]
  big
  red
=[AKO]
  apple
  box

=[ATTN]
  (hey) robot
`

// setup writes the test grammar and points config, journal and logging at a
// temporary directory.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "kitchen.sgm")
	require.NoError(t, os.WriteFile(path, []byte(testGrammar), 0o644))

	t.Setenv("HEARSAY_JOURNAL", filepath.Join(dir, "journal.db"))
	t.Setenv("HEARSAY_LOG_LEVEL", "error")
	t.Setenv("HEARSAY_GRAMMAR", "")

	verbose, jsonOutput, prettyOutput = false, false, false
	confidence, saveTo, derivedOut, grammarPath = "", "", "", ""
	workers = 0
	configPath = filepath.Join(dir, "config.yaml")
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func TestParseCommand(t *testing.T) {
	path := setup(t)

	out, _, err := execute(t, "--grammar", path, "parse", "drink", "some", "Coke")
	require.NoError(t, err)
	assert.Contains(t, out, "act:     command (6)")
	assert.Contains(t, out, "BEV=soda")
	assert.Contains(t, out, "surface: OK.")
}

func TestParseCommandJSON(t *testing.T) {
	path := setup(t)

	out, _, err := execute(t, "--grammar", path, "parse", "--json", "Ken is red")
	require.NoError(t, err)

	envs, err := articulation.ReadEnvelopes(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, envs, 1)
	assert.Equal(t, perception.Fact, envs[0].Act)
	assert.Equal(t, "Ken", envs[0].Slots["NAME"])
}

func TestParseCommandBadConfidence(t *testing.T) {
	path := setup(t)

	_, _, err := execute(t, "--grammar", path, "parse", "--confidence", "90 abc", "Ken is red")
	assert.Error(t, err)
}

func TestMissingGrammarIsAnError(t *testing.T) {
	setup(t)

	_, _, err := execute(t, "--grammar", filepath.Join(t.TempDir(), "nope.sgm"), "parse", "hello")
	assert.Error(t, err)
}

func TestLoadGrammarReportsDiagnostics(t *testing.T) {
	setup(t)
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.sgm")
	require.NoError(t, os.WriteFile(bad, []byte("=[top]\n  <nowhere>\n#include \"missing.sgm\"\n"), 0o644))

	out, errOut, err := execute(t, "load-grammar", bad)
	require.NoError(t, err)
	assert.Contains(t, out, "loaded "+bad)
	assert.Contains(t, errOut, "load-include-missing")
}

func TestDumpRulesRoundTrips(t *testing.T) {
	path := setup(t)
	dumped := filepath.Join(t.TempDir(), "dump.sgm")

	_, _, err := execute(t, "--grammar", path, "dump-rules", dumped)
	require.NoError(t, err)

	out, _, err := execute(t, "--grammar", dumped, "parse", "drink some soda")
	require.NoError(t, err)
	assert.Contains(t, out, "command")
}

func TestDisableSave(t *testing.T) {
	path := setup(t)
	saved := filepath.Join(t.TempDir(), "edited.sgm")

	out, _, err := execute(t, "--grammar", path, "disable", "top", "--save", saved)
	require.NoError(t, err)
	assert.Contains(t, out, "disabled top")

	data, err := os.ReadFile(saved)
	require.NoError(t, err)
	assert.Contains(t, string(data), "=[top] @enabled\n")
	assert.Contains(t, string(data), "=[AKO] @top-level\n")

	g := grammar.New(grammar.Options{})
	diags, err := g.Load(saved)
	require.NoError(t, err)
	assert.Empty(t, diags)
	st, ok := g.HeadStatus("top")
	require.True(t, ok)
	assert.Equal(t, grammar.Enabled, st)
}

func TestHarvestLex(t *testing.T) {
	path := setup(t)

	out, _, err := execute(t, "harvest-lex", path)
	require.NoError(t, err)

	derived := filepath.Join(filepath.Dir(path), "kitchen.derived.sgm")
	assert.Contains(t, out, "wrote "+derived)
	data, err := os.ReadFile(derived)
	require.NoError(t, err)
	assert.Contains(t, string(data), "=[AKO-P]")
	assert.Contains(t, string(data), "boxes")
	assert.Contains(t, string(data), "bigger")
}

func TestHarvestLexMissingBase(t *testing.T) {
	setup(t)

	_, _, err := execute(t, "harvest-lex", filepath.Join(t.TempDir(), "nope.sgm"))
	assert.Error(t, err)
}

func TestCheckMorph(t *testing.T) {
	path := setup(t)

	out, _, err := execute(t, "check-morph", path)
	require.NoError(t, err)
	assert.Contains(t, out, "mismatches")
}

func TestParseFile(t *testing.T) {
	path := setup(t)
	text := filepath.Join(t.TempDir(), "talk.txt")
	require.NoError(t, os.WriteFile(text, []byte("Hey robot. Drink some Coke! Ken is big."), 0o644))

	out, _, err := execute(t, "--grammar", path, "parse-file", "--json", "--workers", "2", text)
	require.NoError(t, err)

	envs, err := articulation.ReadEnvelopes(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, envs, 3)
	assert.Equal(t, perception.Hail, envs[0].Act)
	assert.Equal(t, perception.Command, envs[1].Act)
	assert.Equal(t, perception.Fact, envs[2].Act)
}

func TestConsole(t *testing.T) {
	path := setup(t)
	c := config.DefaultConfig()
	c.Store.Enabled = false
	cfg = c

	f, err := core.NewFrontend(cfg)
	require.NoError(t, err)

	var out, errOut bytes.Buffer
	con := newConsole(context.Background(), f, &out)
	con.errOut = &errOut

	script := strings.Join([]string{
		"load-grammar " + path,
		"drink some Coke",
		"disable top",
		"parse drink some Coke",
		"enable top",
		"status",
		"accept tall",
		"quit",
		"Ken is red",
	}, "\n")
	require.NoError(t, con.run(strings.NewReader(script)))

	got := out.String()
	assert.Contains(t, got, "loaded "+path)
	assert.Contains(t, got, "act:     command (6)")
	assert.Contains(t, got, "disabled top")
	assert.Contains(t, got, "act:     huh (0)")
	assert.Contains(t, got, "enabled top")
	assert.Contains(t, got, "rules:")
	assert.NotContains(t, got, "fact (5)", "lines after quit are not run")
	assert.Contains(t, errOut.String(), core.ErrNoJournal.Error())
}

func TestConsoleHelp(t *testing.T) {
	setup(t)
	var out bytes.Buffer
	con := newConsole(context.Background(), nil, &out)
	require.NoError(t, con.exec("help"))
	assert.Contains(t, out.String(), "load-grammar PATH")
	assert.ErrorIs(t, con.exec("quit"), errQuit)
	assert.NoError(t, con.exec("# comment"))
}
