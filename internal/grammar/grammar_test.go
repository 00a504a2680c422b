package grammar

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hearsay/internal/morph"
)

const ingestGrammar = `
; drinks and food
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

func loadString(t *testing.T, g *Grammar, text string) []Diagnostic {
	t.Helper()
	diags, err := g.LoadReader(strings.NewReader(text), "test.sgm")
	require.NoError(t, err)
	return diags
}

func expansions(g *Grammar, head string) []string {
	var out []string
	for _, p := range g.Productions() {
		if p.Head == head {
			out = append(out, p.Expansion())
		}
	}
	return out
}

func TestLoadExpandsSugar(t *testing.T) {
	g := New(Options{MaxDictation: 3})
	diags := loadString(t, g, ingestGrammar)
	assert.Empty(t, diags)

	assert.Equal(t, []string{"<soda>", "some <soda>", "a glass of milk"}, expansions(g, "BEV"))
	assert.Equal(t, []string{
		"#", "# #", "# # #",
		"<quant> #", "<quant> # #", "<quant> # # #",
	}, expansions(g, "^FOOD"))

	st, ok := g.HeadStatus("top")
	require.True(t, ok)
	assert.Equal(t, TopLevel, st)
	st, _ = g.HeadStatus("!ingest")
	assert.Equal(t, Enabled, st, "referenced heads are sub-rules")
}

func TestSugarForms(t *testing.T) {
	tests := []struct {
		name string
		exp  string
		want [][]string
	}{
		{"optional", "a (b) c", [][]string{{"a", "c"}, {"a", "b", "c"}}},
		{"nested optional", "(a (b))", [][]string{{}, {"a"}, {"a", "b"}}},
		{"question", "x ?", [][]string{{"x", "#"}, {"x"}}},
		{"plus", "+", [][]string{{"#"}, {"#", "#"}}},
		{"star", "*", [][]string{{}, {"#"}, {"#", "#"}}},
		{"refs", "<a> [B]", [][]string{{"<a>", "<B>"}}},
		{"punctuation dropped", "thing ? , thing", [][]string{{"thing", "#", "thing"}, {"thing", "thing"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			elems, err := parseExpansion(tt.exp)
			require.NoError(t, err)
			variants, err := expand(elems, 2)
			require.NoError(t, err)
			got := make([][]string, len(variants))
			for i, v := range variants {
				got[i] = []string{}
				for _, s := range v {
					got[i] = append(got[i], s.String())
				}
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("expand(%q) mismatch (-want +got):\n%s", tt.exp, diff)
			}
		})
	}
}

func TestLoadDiagnostics(t *testing.T) {
	g := New(Options{})
	diags := loadString(t, g, `
stray expansion
=[A]
  <A> b
  b (c
  ok
=bad
=[B]
  <missing>
#include "nowhere.sgm"
`)
	kinds := make(map[DiagKind]int)
	for _, d := range diags {
		kinds[d.Kind]++
		assert.Equal(t, "test.sgm", d.File)
	}
	assert.Equal(t, 3, kinds[DiagSyntax])
	assert.Equal(t, 1, kinds[DiagRecursion])
	assert.Equal(t, 1, kinds[DiagIncludeMissing])
	assert.Equal(t, 1, kinds[DiagUndefined])

	assert.Equal(t, []string{"ok"}, expansions(g, "A"))
	assert.Len(t, g.Diagnostics(), len(diags))
}

func TestLoadIncludeAndMorph(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.sgm"), []byte(`
=[cmd]
  grab <AKO>
#include "lex.sgm"
=[XXX-morph]
  man * npl = men   ; irregular
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lex.sgm"), []byte(`
=[AKO]
  block
  man
#include "main.sgm"
`), 0644))

	g := New(Options{})
	diags, err := g.Load(filepath.Join(dir, "main.sgm"))
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, DiagRecursion, diags[0].Kind)

	assert.Equal(t, []string{"block", "man"}, expansions(g, "AKO"))
	assert.False(t, g.HasHead("XXX-morph"))
	assert.Equal(t, "men", g.Morph().SurfaceOf("man", morph.NPL))
	assert.True(t, g.Morph().IsBase("block", morph.TagAKO))
	assert.Len(t, g.Files(), 2)
	assert.Equal(t, filepath.Join(dir, "main.sgm"), g.Path())

	_, err = g.Load(filepath.Join(dir, "absent.sgm"))
	assert.Error(t, err)
}

func TestMorphOutOfSpace(t *testing.T) {
	g := New(Options{Morph: morph.New(1)})
	diags := loadString(t, g, "=[XXX]\n man * npl = men\n mouse * npl = mice\n")
	require.Len(t, diags, 1)
	assert.Equal(t, DiagOutOfSpace, diags[0].Kind)
	assert.Equal(t, 3, diags[0].Line)
}

func TestAttentionAlerts(t *testing.T) {
	g := New(Options{})
	loadString(t, g, "=[ATTN]\n (hey) Robot\n <name>\n=[name]\n bob\n")
	assert.Equal(t, []string{"robot", "hey robot"}, g.Alerts())

	st, _ := g.HeadStatus(AttentionHead)
	assert.Equal(t, Enabled, st, "ATTN never becomes top-level on its own")
}

func TestDuplicatesDiscarded(t *testing.T) {
	g := New(Options{})
	loadString(t, g, "=[x]\n go home\n Go Home\n (go) home\n")
	assert.Equal(t, []string{"go home", "home"}, expansions(g, "x"))
}

func TestEnableDisable(t *testing.T) {
	g := New(Options{})
	loadString(t, g, ingestGrammar)

	assert.Equal(t, 1, g.Disable("top"))
	st, _ := g.HeadStatus("top")
	assert.Equal(t, Enabled, st)
	assert.Equal(t, 0, g.Disable("top"))

	n := g.Enable("")
	assert.Greater(t, n, 1)
	st, _ = g.HeadStatus("soda")
	assert.Equal(t, TopLevel, st)

	g.SetStatus("soda", Disabled)
	for _, r := range g.Snapshot().Rules {
		assert.NotEqual(t, "soda", r.Head)
	}
}

func TestExtendIsIdempotent(t *testing.T) {
	g := New(Options{})
	loadString(t, g, ingestGrammar)
	before := g.Len()

	n, err := g.Extend("soda", "root beer")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = g.Extend("soda", "root beer")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, before+1, g.Len())

	n, err = g.Extend("greeting", "hello (there)")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	st, _ := g.HeadStatus("greeting")
	assert.Equal(t, TopLevel, st)

	_, err = g.AddRule("loop", "<loop> again")
	assert.Error(t, err)
	assert.False(t, g.HasHead("loop"))

	removed, err := g.RemoveRule("soda", "root beer")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, before+2, g.Len())

	_, err = g.RemoveRule("nope", "x")
	assert.ErrorIs(t, err, ErrNoHead)
}

func TestSnapshotFollowsVersion(t *testing.T) {
	g := New(Options{})
	loadString(t, g, ingestGrammar)

	s1 := g.Snapshot()
	assert.Same(t, s1, g.Snapshot())
	require.Len(t, s1.Top(), 1)
	assert.Equal(t, "top", s1.Rules[s1.Top()[0]].Head)
	assert.Len(t, s1.Alternatives("soda"), 3)

	_, err := g.Extend("soda", "cola")
	require.NoError(t, err)
	s2 := g.Snapshot()
	assert.NotSame(t, s1, s2)
	assert.Greater(t, s2.Version, s1.Version)
	assert.Len(t, s1.Alternatives("soda"), 3, "old snapshots are immutable")
	assert.Len(t, s2.Alternatives("soda"), 4)
}

func TestDumpRoundTrip(t *testing.T) {
	g := New(Options{MaxDictation: 2})
	loadString(t, g, ingestGrammar+"\n=[XXX-morph]\n good * acomp = better\n=[empty]\n ()\n")

	path := filepath.Join(t.TempDir(), "out", "dump.sgm")
	require.NoError(t, g.Save(path))

	g2 := New(Options{MaxDictation: 2})
	diags, err := g2.Load(path)
	require.NoError(t, err)
	assert.Empty(t, diags)

	want := g.Productions()
	got := g2.Productions()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Head, got[i].Head)
		assert.Equal(t, want[i].Expansion(), got[i].Expansion())
	}
	assert.Equal(t, "better", g2.Morph().SurfaceOf("good", morph.ACOMP))

	var buf bytes.Buffer
	require.NoError(t, g2.Dump(&buf))
	assert.Contains(t, buf.String(), "=[top] @top-level")
}

func TestDumpPreservesStatus(t *testing.T) {
	g := New(Options{MaxDictation: 2})
	loadString(t, g, ingestGrammar+"\n=[spare]\n nothing here\n")
	require.Equal(t, TopLevel, headStatus(g, "spare"))
	require.Positive(t, g.Disable("top"))
	require.Positive(t, g.SetStatus("spare", Enabled))
	require.Positive(t, g.SetStatus("soda", Disabled))

	path := filepath.Join(t.TempDir(), "status.sgm")
	require.NoError(t, g.Save(path))

	g2 := New(Options{MaxDictation: 2})
	diags, err := g2.Load(path)
	require.NoError(t, err)
	assert.Empty(t, diags)
	for _, head := range g.Heads() {
		assert.Equal(t, headStatus(g, head), headStatus(g2, head), head)
	}
	assert.Equal(t, Enabled, headStatus(g2, "top"))
	assert.Equal(t, Enabled, headStatus(g2, "spare"))
	assert.Equal(t, Disabled, headStatus(g2, "soda"))
}

func headStatus(g *Grammar, head string) Status {
	st, _ := g.HeadStatus(head)
	return st
}

func TestHeadStatusMark(t *testing.T) {
	g := New(Options{})
	diags := loadString(t, g, "=[a] @disabled grab <b>\n=[b] @top-level\n block\n=[c] @sideways\n cup\n")
	require.Len(t, diags, 1)
	assert.Equal(t, DiagSyntax, diags[0].Kind)
	assert.Equal(t, Disabled, headStatus(g, "a"))
	assert.Equal(t, TopLevel, headStatus(g, "b"))
	assert.Equal(t, TopLevel, headStatus(g, "c"))
	assert.Len(t, g.Productions(), 3)
}

func TestSectionsAndInSection(t *testing.T) {
	g := New(Options{})
	loadString(t, g, "=[HQ]\n big\n bright red\n=[AKO]\n block\n=[cmd]\n grab <AKO>\n")

	secs := g.Sections()
	require.Len(t, secs, 2)
	assert.Equal(t, "HQ", secs[0].Head)
	assert.Equal(t, []string{"big", "bright red"}, secs[0].Words)
	assert.True(t, g.InSection("HQ", "Bright  Red"))
	assert.False(t, g.InSection("HQ", "block"))
	assert.Contains(t, g.Terminals(), "grab")
}

func TestSlotAndMarkerNames(t *testing.T) {
	assert.True(t, IsSlot("BEV"))
	assert.True(t, IsSlot("^FOOD"))
	assert.True(t, IsSlot("NAME-P"))
	assert.False(t, IsSlot("soda"))
	assert.False(t, IsSlot("!ingest"))
	assert.True(t, IsMarker("$intro"))
	assert.Equal(t, "FOOD", SlotName("^FOOD"))
}
