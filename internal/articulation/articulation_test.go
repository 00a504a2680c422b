package articulation

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"hearsay/internal/assoc"
	"hearsay/internal/config"
	"hearsay/internal/logging"
	"hearsay/internal/perception"
)

func sample() *Envelope {
	env := NewEnvelope("drink some Coke")
	env.SetAct(perception.Command)
	env.SetList(assoc.Parse("\t!ingest\tBEV=soda\tBEV=pop"))
	env.Rank = "wild=0 dict=0 nodes=4"
	env.Fixes = []string{"swap: bolck -> block"}
	env.Guesses = []Guess{{Word: "tall", Tag: "HQ", Base: "tall", Pattern: "[aux ? .]", Taught: true}}
	return env
}

func TestNewEnvelope(t *testing.T) {
	env := sample()
	_, err := uuid.Parse(env.ID)
	require.NoError(t, err)
	assert.NotEqual(t, env.ID, NewEnvelope("x").ID)
	assert.Equal(t, 6, env.Tag)
	assert.Equal(t, "\t!ingest\tBEV=soda\tBEV=pop", env.Assoc)
	assert.Equal(t, map[string]string{"BEV": "soda"}, env.Slots)
}

func TestRender(t *testing.T) {
	tmpl, err := NewTemplates(map[string]string{"command": "Drinking {BEV}."})
	require.NoError(t, err)

	tests := []struct {
		act     perception.SpeechAct
		list    string
		unknown []string
		want    string
	}{
		{perception.Command, "\t!ingest\tBEV=soda", nil, "Drinking soda."},
		{perception.Greet, "\t$intro\tNAME=Ken", nil, "Hello Ken."},
		{perception.Greet, "\tHELLO=hi", nil, "Hello."},
		{perception.UnkWord, "", []string{"tall"}, `What does "tall" mean?`},
		{perception.UnkWord, "", nil, "What does it mean?"},
		{perception.Huh, "", nil, "Sorry, I don't understand."},
	}
	for _, tt := range tests {
		env := NewEnvelope("x")
		env.SetAct(tt.act)
		env.SetList(assoc.Parse(tt.list))
		env.Unknown = tt.unknown
		assert.Equal(t, tt.want, tmpl.Render(env), "%s", tt.act)
	}

	_, err = NewTemplates(map[string]string{"shrug": "?"})
	assert.Error(t, err)
}

func TestEmitJSONRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	em := NewEmitter(&buf)
	em.JSON = true

	first, second := sample(), NewEnvelope("hey robot")
	second.SetAct(perception.Hail)
	require.NoError(t, em.Emit(first))
	require.NoError(t, em.Emit(second))
	assert.Contains(t, buf.String(), `"act":"command"`)
	assert.Equal(t, 2, strings.Count(buf.String(), "\n"))

	got, err := ReadEnvelopes(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	if diff := cmp.Diff(first.Guesses, got[0].Guesses); diff != "" {
		t.Errorf("guesses mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, perception.Command, got[0].Act)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, perception.Hail, got[1].Act)
}

func TestEmitText(t *testing.T) {
	var buf bytes.Buffer
	em := NewEmitter(&buf)
	require.NoError(t, em.Emit(sample()))
	out := buf.String()
	assert.Contains(t, out, "act:     command (6)\n")
	assert.Contains(t, out, "assoc:   !ingest  BEV=soda  BEV=pop\n")
	assert.NotContains(t, out, "guess:")

	buf.Reset()
	em.Verbose = true
	require.NoError(t, em.Emit(sample()))
	assert.Contains(t, buf.String(), "guess:   tall HQ ([aux ? .], base tall) taught\n")
	assert.Contains(t, buf.String(), "fix:     swap: bolck -> block\n")
}

func TestEmitIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logging.Install(zap.New(core), config.LoggingConfig{DebugMode: true})
	t.Cleanup(func() { logging.Install(zap.NewNop(), config.LoggingConfig{}) })

	env := sample()
	em := NewEmitter(&bytes.Buffer{})
	em.JSON = true
	require.NoError(t, em.Emit(env))

	entries := logs.FilterLoggerName("articulation").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Message, env.ID)
	assert.Contains(t, entries[0].Message, "act=command")
}
