package assoc

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hearsay/internal/earley"
	"hearsay/internal/grammar"
)

const ingestGrammar = `
=[top]
  <!ingest>
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
`

const grabGrammar = `
=[cmd]
  <GRAB> the <SIZE> <COLOR> block
=[GRAB]
  grab
  pick up
=[SIZE]
  big
  small
=[COLOR]
  red
  green
`

func build(t *testing.T, text, input string, opts Options) List {
	t.Helper()
	g := grammar.New(grammar.Options{})
	diags, err := g.LoadReader(strings.NewReader(text), "test.sgm")
	require.NoError(t, err)
	require.Empty(t, diags)
	res, err := earley.New(g, earley.Options{}).ParseText(input)
	require.NoError(t, err)
	return Build(res.Cursor(), opts)
}

func TestBuild(t *testing.T) {
	tests := []struct {
		grammar string
		input   string
		want    string
	}{
		{ingestGrammar, "drink some Coke", "\t!ingest\tBEV=soda"},
		{ingestGrammar, "drink a glass of milk", "\t!ingest\tBEV=a glass of milk"},
		{ingestGrammar, "eat a piece of apple pie", "\t!ingest\tFOOD=a piece of apple pie"},
		{grabGrammar, "grab the big red block", "\tGRAB=grab\tSIZE=big\tCOLOR=red"},
		{grabGrammar, "pick up the small green block", "\tGRAB=pick up\tSIZE=small\tCOLOR=green"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := build(t, tt.grammar, tt.input, Options{})
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestBuildClosing(t *testing.T) {
	got := build(t, ingestGrammar, "drink pop", Options{Closing: true})
	assert.Equal(t, "\t!ingest\tBEV=soda\t!", got.String())
	assert.Equal(t, []string{"!ingest"}, got.Fragments())
}

func TestNestedMarkers(t *testing.T) {
	text := `
=[top]
  <!give> <$obj> to <NAME>
=[!give]
  give
=[$obj]
  the <AKO>
=[AKO]
  ball
=[NAME]
  Ken
`
	got := build(t, text, "give the ball to Ken", Options{Closing: true})
	want := []Entry{
		{Kind: Marker, Name: "!give"},
		{Kind: Closer, Name: "!"},
		{Kind: Marker, Name: "$obj"},
		{Kind: Slot, Name: "AKO", Value: "ball"},
		{Kind: Closer, Name: "$"},
		{Kind: Slot, Name: "NAME", Value: "Ken"},
	}
	if diff := cmp.Diff(want, got.Entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	first := build(t, ingestGrammar, "eat a lot of cake", Options{})
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, build(t, ingestGrammar, "eat a lot of cake", Options{}))
	}
}

func TestListAccessors(t *testing.T) {
	l := Parse("\t!ingest\tBEV=soda\tBEV=pop\t!\tjunk")
	assert.Equal(t, "\t!ingest\tBEV=soda\tBEV=pop\t!", l.String())
	v, ok := l.Slot("BEV")
	assert.True(t, ok)
	assert.Equal(t, "soda", v)
	_, ok = l.Slot("FOOD")
	assert.False(t, ok)
	assert.Equal(t, []string{"BEV", "BEV"}, l.Slots())
	assert.False(t, l.Empty())
	assert.True(t, Parse("").Empty())
}
