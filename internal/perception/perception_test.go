package perception

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hearsay/internal/assoc"
	"hearsay/internal/config"
)

func newClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier(config.DefaultConfig().Speech)
	require.NoError(t, err)
	return c
}

func TestClassify(t *testing.T) {
	c := newClassifier(t)

	tests := []struct {
		name string
		in   Input
		want SpeechAct
	}{
		{"nothing", Input{}, Huh},
		{"unknown word", Input{Unknown: []string{"tall"}}, UnkWord},
		{"attention only", Input{AttentionOnly: true}, Hail},
		{"unknown beats hail", Input{Unknown: []string{"zork"}, AttentionOnly: true}, UnkWord},
		{"hello", Input{List: assoc.Parse("\tHELLO=hi\tATTN=robot")}, Greet},
		{"bye", Input{List: assoc.Parse("\tBYE=bye")}, Farewell},
		{"attn slot alone", Input{List: assoc.Parse("\tATTN=robot")}, Hail},
		{"attn with more", Input{List: assoc.Parse("\tATTN=robot\tCOLOR=red"), Labels: []string{"top"}}, Huh},
		{"intro", Input{List: assoc.Parse("\t$intro\tNAME=Ken")}, Greet},
		{"marker command", Input{List: assoc.Parse("\t!ingest\tBEV=soda"), Labels: []string{"top", "!ingest", "BEV", "soda"}}, Command},
		{"marker fact", Input{List: assoc.Parse("\t%loc\tAKO=block")}, Fact},
		{"question mark", Input{List: assoc.Parse("\tCOLOR=red"), Terminator: "?"}, Question},
		{"question beats marker", Input{List: assoc.Parse("\t!ingest\tBEV=soda"), Terminator: "?"}, Question},
		{"fact head", Input{List: assoc.Parse("\tNAME=Ken\tHQ=tall"), Labels: []string{"top", "fact", "NAME", "HQ"}}, Fact},
		{"head overrides marker", Input{List: assoc.Parse("\t!ingest\tBEV=soda"), Labels: []string{"question", "!ingest"}}, Question},
		{"revise beats new op", Input{List: assoc.Parse("\tACT=stack"), Labels: []string{"revise-op", "new-op"}}, ReviseOp},
		{"new rule", Input{List: assoc.Parse("\tAKO=block"), Labels: []string{"rule"}}, NewRule},
		{"new op", Input{List: assoc.Parse("\tACT=stack"), Labels: []string{"teach"}}, NewOp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.ID = tt.name
			got, err := c.Classify(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyForgetsPreviousUtterance(t *testing.T) {
	c := newClassifier(t)
	act, err := c.Classify(Input{ID: "u1", List: assoc.Parse("\tBYE=bye")})
	require.NoError(t, err)
	require.Equal(t, Farewell, act)

	act, err = c.Classify(Input{ID: "u1", List: assoc.Parse("\tCOLOR=red")})
	require.NoError(t, err)
	assert.Equal(t, Huh, act)
}

func TestPolicyFileExtendsRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extra.mg")
	require.NoError(t, os.WriteFile(path, []byte(`speech_act_candidate(U, /farewell, 0) :- assoc_slot(U, "CIAO").`+"\n"), 0o644))

	sc := config.DefaultConfig().Speech
	sc.PolicyFile = path
	c, err := NewClassifier(sc)
	require.NoError(t, err)

	act, err := c.Classify(Input{ID: "u", List: assoc.Parse("\tCIAO=ciao\tHELLO=hi")})
	require.NoError(t, err)
	assert.Equal(t, Farewell, act)

	sc.PolicyFile = filepath.Join(t.TempDir(), "missing.mg")
	_, err = NewClassifier(sc)
	assert.Error(t, err)
}

func TestSpeechActNames(t *testing.T) {
	for _, act := range AllSpeechActs() {
		got, err := ParseSpeechAct(act.String())
		require.NoError(t, err)
		assert.Equal(t, act, got)
	}
	got, err := ParseSpeechAct("/unk_word")
	require.NoError(t, err)
	assert.Equal(t, UnkWord, got)
	assert.Equal(t, 4, int(UnkWord))

	_, err = ParseSpeechAct("shrug")
	assert.Error(t, err)
}

type sections map[string][]string

func (s sections) InSection(head, phrase string) bool {
	for _, w := range s[head] {
		if w == phrase {
			return true
		}
	}
	return false
}

func TestAttention(t *testing.T) {
	alerts := []string{"robot", "hey robot"}
	secs := sections{"HQ": {"big"}, "AKO": {"block"}}

	tests := []struct {
		mode  AttentionMode
		words []string
		want  bool
	}{
		{AttendAlways, []string{"pick", "it", "up"}, true},
		{AttendAnywhere, []string{"pick", "it", "up", ",", "robot"}, true},
		{AttendAnywhere, []string{"pick", "it", "up"}, false},
		{AttendStart, []string{"Robot", ",", "pick", "it", "up"}, true},
		{AttendStart, []string{"hey", "robot", "pick", "it", "up"}, true},
		{AttendStart, []string{"yes", "robot"}, true},
		{AttendStart, []string{"big", "block", "robot"}, true},
		{AttendStart, []string{"block", "robot"}, true},
		{AttendStart, []string{"pick", "it", "up", "robot"}, false},
		{AttendStart, []string{"yes", "no", "robot"}, false},
		{AttendOnly, []string{"Hey", "robot", "."}, true},
		{AttendOnly, []string{"robot", "pick"}, false},
		{AttendOnly, nil, false},
	}
	for _, tt := range tests {
		a := NewAttention(tt.mode, alerts, secs)
		assert.Equal(t, tt.want, a.Wake(tt.words), "%s %v", tt.mode, tt.words)
	}
}

func TestAttentionOnly(t *testing.T) {
	assert.True(t, AttentionOnly([]string{"hey", "robot", "."}, []string{"robot", "hey robot"}))
	assert.False(t, AttentionOnly([]string{"hey"}, []string{"robot", "hey robot"}))
	assert.False(t, AttentionOnly([]string{"robot"}, nil))
}

func TestParseAttentionMode(t *testing.T) {
	for _, name := range config.ValidAttentionModes {
		m, err := ParseAttentionMode(name)
		require.NoError(t, err)
		assert.Equal(t, name, m.String())
	}
	_, err := ParseAttentionMode("sometimes")
	assert.Error(t, err)
}
