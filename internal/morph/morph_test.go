package morph

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"hearsay/internal/config"
	"hearsay/internal/logging"
)

func newEngine(t *testing.T, lines ...string) *Engine {
	t.Helper()
	e := New(0)
	for _, l := range lines {
		require.NoError(t, e.ParseLine(l))
	}
	return e
}

func TestSurfaceOfExceptionsAndRules(t *testing.T) {
	e := newEngine(t, "man * npl = men", "good * acomp= better")

	assert.Equal(t, "men", e.SurfaceOf("man", NPL))
	assert.Equal(t, "childs", e.SurfaceOf("child", NPL))
	assert.Equal(t, "better", e.SurfaceOf("good", ACOMP))
	assert.Equal(t, "bigger", e.SurfaceOf("big", ACOMP))
	assert.Equal(t, "easiest", e.SurfaceOf("easy", ASUP))
	assert.Equal(t, "happily", e.SurfaceOf("happy", ADV))
}

func TestSurfaceRules(t *testing.T) {
	e := New(0)
	tests := []struct {
		base string
		tag  Tag
		want string
	}{
		{"city", NPL, "cities"},
		{"day", NPL, "days"},
		{"church", NPL, "churches"},
		{"box", NPL, "boxes"},
		{"block", NPL, "blocks"},
		{"block", NPOS, "block's"},
		{"James", TagNameP, "James'"},
		{"Ken", TagNameP, "Ken's"},
		{"carry", VPRES, "carries"},
		{"stop", VPAST, "stopped"},
		{"run", VPROG, "running"},
		{"make", VPROG, "making"},
		{"bake", VPAST, "baked"},
		{"see", VPROG, "seeing"},
		{"die", VPROG, "dying"},
		{"carry", VPAST, "carried"},
		{"carry", VPROG, "carrying"},
		{"visit", VPAST, "visited"},
		{"fix", VPAST, "fixed"},
		{"fill", VPAST, "filled"},
		{"large", ACOMP, "larger"},
		{"free", ACOMP, "freer"},
		{"high-tech", ACOMP, "high-tech-er"},
		{"full", ADV, "fully"},
		{"dull", ADV, "dully"},
		{"chill", ADV, "chilly"},
		{"formal", ADV, "formally"},
		{"true", ADV, "truly"},
		{"quick", ADV, "quickly"},
		{"tuck in", VPAST, "tucked in"},
		{"apple pie", NPL, "apple pies"},
		{"block", TagAKO, "block"},
	}
	for _, tc := range tests {
		t.Run(tc.base+"*"+tc.tag.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, e.SurfaceOf(tc.base, tc.tag))
		})
	}
}

func TestBaseOf(t *testing.T) {
	e := newEngine(t, "man * npl = men")
	tests := []struct {
		surface string
		tag     Tag
		want    string
	}{
		{"men", NPL, "man"},
		{"cities", NPL, "city"},
		{"boxes", NPL, "box"},
		{"faces", NPL, "face"},
		{"prizes", NPL, "prize"},
		{"kisses", NPL, "kiss"},
		{"block's", NPOS, "block"},
		{"bigger", ACOMP, "big"},
		{"easiest", ASUP, "easy"},
		{"happily", ADV, "happy"},
		{"fully", ADV, "full"},
		{"dully", ADV, "dull"},
		{"chilly", ADV, "chill"},
		{"formally", ADV, "formal"},
		{"really", ADV, "real"},
		{"truly", ADV, "true"},
		{"stopped", VPAST, "stop"},
		{"making", VPROG, "make"},
		{"baked", VPAST, "bake"},
		{"hoped", VPAST, "hope"},
		{"hopped", VPAST, "hop"},
		{"filled", VPAST, "fill"},
		{"dying", VPROG, "die"},
		{"carried", VPAST, "carry"},
		{"freer", ACOMP, "free"},
		{"tucked in", VPAST, "tuck in"},
		{"high-tech-er", ACOMP, "high-tech"},
	}
	for _, tc := range tests {
		t.Run(tc.surface, func(t *testing.T) {
			assert.Equal(t, tc.want, e.BaseOf(tc.surface, tc.tag))
		})
	}
}

func TestBaseOfUsesLexiconForSilentE(t *testing.T) {
	e := New(0)
	// without a lexicon the silent-e form is ambiguous
	assert.Equal(t, "larg", e.BaseOf("larger", ACOMP))

	e.AddBase("large", TagHQ)
	assert.Equal(t, "large", e.BaseOf("larger", ACOMP))

	e2 := New(0)
	e2.Known = func(w string) bool { return w == "die" }
	assert.Equal(t, "die", e2.BaseOf("dies", VPRES))
}

func TestRoundTrip(t *testing.T) {
	e := New(0)
	words := map[Tag][]string{
		TagAKO:  {"block", "city", "box", "church", "apple pie", "glass"},
		TagHQ:   {"big", "red", "easy", "happy", "large", "tall", "full", "dull", "chill"},
		TagACT:  {"grab", "stop", "make", "carry", "tuck in", "see", "drink"},
		TagName: {"Ken", "James"},
	}
	for class, ws := range words {
		for _, w := range ws {
			e.AddBase(w, class)
		}
	}
	for class, ws := range words {
		for _, w := range ws {
			for _, tag := range Derived(class) {
				s := e.SurfaceOf(w, tag)
				assert.Equal(t, w, e.BaseOf(s, tag), "%s * %s = %s", w, tag, s)
			}
		}
	}
}

func TestConcurrentAddAndLookup(t *testing.T) {
	e := New(0)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := fmt.Sprintf("zq%dx", i)
			e.AddBase(w, TagHQ)
			assert.NoError(t, e.AddException(w, NPL, w+"en"))
			assert.Equal(t, w, e.BaseOf(w+"er", ACOMP))
			assert.Equal(t, w+"en", e.SurfaceOf(w, NPL))
			assert.True(t, e.IsBase(w, TagHQ))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 16, e.Len())
	assert.Len(t, e.Exceptions(), 16)
}

func TestExceptionOverwriteAndCapacity(t *testing.T) {
	e := New(2)
	require.NoError(t, e.AddException("man", NPL, "mans"))
	require.NoError(t, e.AddException("man", NPL, "men"))
	assert.Equal(t, 1, e.Len())
	assert.Equal(t, "men", e.SurfaceOf("man", NPL))
	assert.Equal(t, "man", e.BaseOf("mans", NPL))

	require.NoError(t, e.AddException("mouse", NPL, "mice"))
	err := e.AddException("goose", NPL, "geese")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfSpace))
	assert.Equal(t, "gooses", e.SurfaceOf("goose", NPL))
}

func TestTableProblemsAreLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logging.Install(zap.New(core), config.LoggingConfig{DebugMode: true})
	t.Cleanup(func() { logging.Install(zap.NewNop(), config.LoggingConfig{}) })

	e := New(1)
	require.NoError(t, e.AddException("man", NPL, "men"))
	require.ErrorIs(t, e.AddException("goose", NPL, "geese"), ErrOutOfSpace)
	require.Error(t, e.ParseLine("mouse npl mice"))

	warned := logs.FilterLoggerName("morph").FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warned, 2)
	assert.Contains(t, warned[0].Message, "goose")
	assert.Contains(t, warned[1].Message, "mouse npl mice")

	e.AddBase("block", TagAKO)
	_, err := e.Check(context.Background(), []Section{{Head: "AKO", Words: []string{"block"}}})
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("checked 1 sections: 0 mismatches").Len())
}

func TestParseLineErrors(t *testing.T) {
	e := New(0)
	assert.Error(t, e.ParseLine("man npl men"))
	assert.Error(t, e.ParseLine("man * plural-ish = men"))
	assert.Error(t, e.ParseLine(" * npl = men"))
}

func TestParseTag(t *testing.T) {
	for name, want := range map[string]Tag{
		"AKO-S": TagAKOS, "ako-s": TagAKOS, "npl": NPL, "acomp": ACOMP,
		"ASUP": ASUP, "adv": ADV, "vpast": VPAST, "NAME-P": TagNameP, "MOD": TagMOD,
	} {
		got, err := ParseTag(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	assert.Equal(t, "HQ-EST", ASUP.String())
	assert.Equal(t, TagHQ, TagMOD.Class())
}

func TestDerive(t *testing.T) {
	e := newEngine(t, "man * npl = men")
	sections := []Section{
		{Head: "AKO", Words: []string{"block", "man"}},
		{Head: "HQ", Words: []string{"big"}},
		{Head: "ACT", Words: []string{"grab"}},
		{Head: "NAME", Words: []string{"Ken"}},
		{Head: "MOD", Words: []string{"slowly"}},
		{Head: "soda", Words: []string{"pop"}},
	}

	var buf bytes.Buffer
	require.NoError(t, e.Derive(&buf, "base.sgm", sections))
	out := buf.String()

	assert.Contains(t, out, "; derived from base.sgm")
	assert.Contains(t, out, "=[AKO-S]\n  blocks\n  men\n")
	assert.Contains(t, out, "=[AKO-P]\n  block's\n  man's\n")
	assert.Contains(t, out, "=[HQ-ER]\n  bigger\n")
	assert.Contains(t, out, "=[HQ-EST]\n  biggest\n")
	assert.Contains(t, out, "=[ACT-S]\n  grabs\n")
	assert.Contains(t, out, "=[ACT-G]\n  grabbing\n")
	assert.Contains(t, out, "=[ACT-D]\n  grabbed\n")
	assert.Contains(t, out, "=[NAME-P]\n  Ken's\n")
	assert.NotContains(t, out, "pops")
}

func TestCheck(t *testing.T) {
	e := New(0)
	sections := []Section{
		{Head: "AKO", Words: []string{"block", "city"}},
		{Head: "ACT", Words: []string{"die"}},
	}

	// "dies" and "died" can come from dy or die; without a lexicon the first rule wins
	mismatches, err := e.Check(context.Background(), sections)
	require.NoError(t, err)
	require.Len(t, mismatches, 2)
	assert.Equal(t, "die", mismatches[0].Base)
	assert.Equal(t, VPRES, mismatches[0].Tag)
	assert.Equal(t, "dy", mismatches[0].Recovered)
	assert.Contains(t, mismatches[0].String(), "dies")
	assert.Equal(t, VPAST, mismatches[1].Tag)

	e.AddBase("die", TagACT)
	mismatches, err = e.Check(context.Background(), sections)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
}

func TestCheckCancelled(t *testing.T) {
	e := New(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Check(ctx, []Section{{Head: "AKO", Words: []string{"block"}}})
	assert.ErrorIs(t, err, context.Canceled)
}
