package heuristics

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisualScore(t *testing.T) {
	s := MustDefault()

	tests := []struct {
		name string
		text string
		want float64
	}{
		{
			name: "short text scores zero",
			text: "Table 1 shows results",
			want: 0,
		},
		{
			name: "plain prose",
			text: "The committee met on Tuesday to discuss the upcoming budget and staffing plans for next year.",
			want: 0,
		},
		{
			name: "keyword only",
			text: "The data we gathered over the quarter was reviewed in detail by the committee members.",
			want: 0.1,
		},
		{
			name: "keyword and pattern",
			text: "Table 3 lists the participants recruited at each site over the course of the year.",
			want: 0.3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.VisualScore(tt.text), 1e-9)
		})
	}
}

func TestVisualScore_Caps(t *testing.T) {
	s := MustDefault()
	text := "Table 1 and Figure 2 (see table 4) as shown in figure 5, illustrated in Fig. 3 and depicted in the " +
		"appendix: data, results, method, analysis, comparison, summary, chart, graph, diagram, supplementary."

	assert.InDelta(t, 1.0, s.VisualScore(text), 1e-9)
}

func TestShouldCaption(t *testing.T) {
	s := MustDefault()
	assert.True(t, s.ShouldCaption(""), "no context always captions")
	assert.True(t, s.ShouldCaption("A flowchart of the process"))
	assert.True(t, s.ShouldCaption("Company logo"), "default policy captions everything")

	tables := Default()
	tables.CaptionOnlyOnKeywords = true
	strict, err := tables.Compile()
	require.NoError(t, err)
	assert.False(t, strict.ShouldCaption("Company logo"))
	assert.True(t, strict.ShouldCaption("Quarterly revenue chart"))
	assert.True(t, strict.ShouldCaption("   "))
}

func TestGeneralPrefixAndReferences(t *testing.T) {
	s := MustDefault()
	assert.True(t, s.HasGeneralPrefix("What is a neural network?"))
	assert.True(t, s.HasGeneralPrefix("  define entropy"))
	assert.False(t, s.HasGeneralPrefix("Summarize the findings"))

	assert.True(t, s.ReferencesDocument("What is the value in row 5?"))
	assert.False(t, s.ReferencesDocument("What is a neural network?"))
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	tables, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().PageThreshold, tables.PageThreshold)
}

func TestLoad_OverridesSelectedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heuristics.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
page_threshold: 0.5
caption_only_on_keywords: true
general_prefixes:
  - "tell me about "
`), 0o644))

	tables, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, tables.PageThreshold)
	assert.True(t, tables.CaptionOnlyOnKeywords)
	assert.Equal(t, []string{"tell me about "}, tables.GeneralPrefixes)
	assert.Equal(t, Default().VisualKeywords, tables.VisualKeywords)
}

func TestCompile_InvalidPattern(t *testing.T) {
	tables := Default()
	tables.VisualPatterns = map[string]float64{`table(`: 0.2}
	_, err := tables.Compile()
	assert.Error(t, err)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "heuristics.yaml")
	require.NoError(t, os.WriteFile(path, []byte("page_threshold: 0.3\n"), 0o644))

	h, err := LoadHolder(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, Watch(ctx, path, h, nil))

	require.NoError(t, os.WriteFile(path, []byte("page_threshold: 0.7\n"), 0o644))

	assert.Eventually(t, func() bool {
		return h.Get().PageThreshold() == 0.7
	}, 2*time.Second, 20*time.Millisecond)
}
