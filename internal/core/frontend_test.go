package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hearsay/internal/config"
	"hearsay/internal/morph"
	"hearsay/internal/perception"
	"hearsay/internal/store"
)

const kitchenGrammar = `; kitchen robot
=[top]
  <!ingest>
  <fact>

=[!ingest]
  eat <^FOOD>
  drink <BEV>
=[BEV]
  (some) <soda>
  a glass of milk
=[soda]
  soda
  pop
  Coke
=[^FOOD]
  (<quant>) +
=[quant]
  a lot of
  a piece of

=[fact]
  <NAME> is <HQ>
=[NAME]
  Ken
=[HQ]
  big
  red

=[ATTN]
  (hey) robot
`

func writeGrammar(t *testing.T, dir, text string) string {
	t.Helper()
	path := filepath.Join(dir, "kitchen.sgm")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func newTestFrontend(t *testing.T) *Frontend {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Grammar.Path = writeGrammar(t, t.TempDir(), kitchenGrammar)
	f, err := NewFrontend(cfg)
	require.NoError(t, err)
	diags, err := f.Load(cfg.Grammar.Path)
	require.NoError(t, err)
	require.Empty(t, diags)
	return f
}

func TestScenarios(t *testing.T) {
	f := newTestFrontend(t)
	ctx := context.Background()

	tests := []struct {
		text  string
		act   perception.SpeechAct
		assoc string
	}{
		{"drink some Coke", perception.Command, "\t!ingest\tBEV=soda"},
		{"drink a glass of milk", perception.Command, "\t!ingest\tBEV=a glass of milk"},
		{"eat a piece of apple pie", perception.Command, "\t!ingest\tFOOD=a piece of apple pie"},
		{"Hey robot.", perception.Hail, ""},
		{"drink some Coke?", perception.Question, "\t!ingest\tBEV=soda"},
		{"Ken is red?", perception.Fact, "\tNAME=Ken\tHQ=red"},
		{"frobnicate", perception.UnkWord, ""},
		{"red red red", perception.Huh, ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			env, err := f.Process(ctx, Request{Text: tt.text})
			require.NoError(t, err)
			assert.Equal(t, tt.act, env.Act)
			assert.Equal(t, int(tt.act), env.Tag)
			assert.Equal(t, tt.assoc, env.Assoc)
			assert.Equal(t, tt.text, env.Raw)
			assert.NotEmpty(t, env.Surface)
		})
	}
}

func TestUnknownWordIsInferredAndTaught(t *testing.T) {
	f := newTestFrontend(t)
	ctx := context.Background()

	env, err := f.Process(ctx, Request{Text: "Ken is tall"})
	require.NoError(t, err)
	assert.Equal(t, perception.Fact, env.Act)
	assert.Equal(t, "\tNAME=Ken\tHQ=tall", env.Assoc)
	assert.Equal(t, "Ken is [HQ tall]", env.Marked)
	require.Len(t, env.Guesses, 1)
	assert.True(t, env.Guesses[0].Taught)
	assert.Empty(t, env.Unknown)

	assert.True(t, f.Grammar().InSection("HQ", "tall"))
	assert.True(t, f.Vocabulary().Known("tall"))

	env, err = f.Process(ctx, Request{Text: "Ken is tall."})
	require.NoError(t, err)
	assert.Equal(t, perception.Fact, env.Act)
	assert.Empty(t, env.Guesses)
}

func TestConcurrentProcessTeaches(t *testing.T) {
	f := newTestFrontend(t)
	ctx := context.Background()
	words := []string{
		"tall", "small", "green", "blue", "warm", "soft", "loud", "sad",
		"fast", "slow", "wet", "calm", "brave", "kind", "proud", "bold",
	}

	var wg sync.WaitGroup
	for _, w := range words {
		wg.Add(1)
		go func(w string) {
			defer wg.Done()
			env, err := f.Process(ctx, Request{Text: "Ken is " + w})
			if assert.NoError(t, err, w) {
				assert.Equal(t, perception.Fact, env.Act, w)
			}
		}(w)
	}
	wg.Wait()

	for _, w := range words {
		assert.True(t, f.Grammar().InSection("HQ", w), w)
		assert.True(t, f.Vocabulary().Known(w), w)
		assert.True(t, f.Grammar().Morph().IsBase(w, morph.TagHQ), w)
	}
}

func TestLowConfidenceIsNotTaught(t *testing.T) {
	f := newTestFrontend(t)
	f.cfg.Lexicon.MinConfidence = 50

	env, err := f.Process(context.Background(), Request{Text: "Ken is tall", Confidence: []int{90, 90, 20}})
	require.NoError(t, err)
	require.Len(t, env.Guesses, 1)
	assert.False(t, env.Guesses[0].Taught)
	assert.Equal(t, perception.UnkWord, env.Act)
	assert.Equal(t, []string{"tall"}, env.Unknown)
	assert.False(t, f.Vocabulary().Known("tall"))
}

func TestReadOnlyRequestDoesNotTeach(t *testing.T) {
	f := newTestFrontend(t)
	env, err := f.Process(context.Background(), Request{Text: "Ken is tall", ReadOnly: true})
	require.NoError(t, err)
	require.Len(t, env.Guesses, 1)
	assert.False(t, env.Guesses[0].Taught)
	assert.False(t, f.Grammar().InSection("HQ", "tall"))
}

func TestTypoFixesAreReported(t *testing.T) {
	f := newTestFrontend(t)
	env, err := f.Process(context.Background(), Request{Text: "drink some Coek"})
	require.NoError(t, err)
	assert.Equal(t, perception.Command, env.Act)
	assert.Equal(t, "\t!ingest\tBEV=soda", env.Assoc)
	assert.NotEmpty(t, env.Fixes)
}

func TestJournalAcceptRejectReplay(t *testing.T) {
	ctx := context.Background()
	f := newTestFrontend(t)

	_, err := f.Accept(ctx, "tall")
	assert.True(t, errors.Is(err, ErrNoJournal))

	j, err := store.OpenJournal(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()
	require.NoError(t, f.AttachJournal(ctx, j))

	_, err = f.Process(ctx, Request{Text: "Ken is tall"})
	require.NoError(t, err)
	_, err = f.Process(ctx, Request{Text: "Ken is pink"})
	require.NoError(t, err)

	pending, err := f.Journal(ctx, store.Provisional)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	_, err = f.Accept(ctx, "tall")
	require.NoError(t, err)
	_, err = f.Reject(ctx, "pink")
	require.NoError(t, err)
	assert.False(t, f.Grammar().InSection("HQ", "pink"))
	assert.False(t, f.Vocabulary().Known("pink"))

	diags, err := f.Reload(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.True(t, f.Grammar().InSection("HQ", "tall"), "accepted words are replayed")
	assert.False(t, f.Grammar().InSection("HQ", "pink"))
}

func TestReloadMissingFileKeepsGrammar(t *testing.T) {
	f := newTestFrontend(t)
	before := f.Grammar().Len()
	_, err := f.Reload(context.Background(), filepath.Join(t.TempDir(), "missing.sgm"))
	assert.Error(t, err)
	assert.Equal(t, before, f.Grammar().Len())
}

func TestEnableDisableThroughFrontend(t *testing.T) {
	f := newTestFrontend(t)
	ctx := context.Background()

	require.Positive(t, f.Disable("top"))
	env, err := f.Process(ctx, Request{Text: "drink some Coke"})
	require.NoError(t, err)
	assert.Equal(t, perception.Huh, env.Act)

	require.Positive(t, f.Enable("top"))
	env, err = f.Process(ctx, Request{Text: "drink some Coke"})
	require.NoError(t, err)
	assert.Equal(t, perception.Command, env.Act)
}

func TestHarvestLexicon(t *testing.T) {
	f := newTestFrontend(t)
	n, err := f.HarvestLexicon()
	require.NoError(t, err)
	assert.Equal(t, f.Vocabulary().Len(), n)
	assert.True(t, f.Vocabulary().Known("coke"))
	assert.True(t, f.Vocabulary().Known("bigger"), "derived forms of HQ words")
}

func TestParseConfidence(t *testing.T) {
	got, err := ParseConfidence(" 90 10  100 ")
	require.NoError(t, err)
	assert.Equal(t, []int{90, 10, 100}, got)

	for _, bad := range []string{"101", "-1", "x"} {
		_, err := ParseConfidence(bad)
		assert.Error(t, err, bad)
	}
}
