// Package heuristics holds the keyword and pattern tables behind the
// extraction and routing heuristics. Tables are plain data so they can be
// tuned from a YAML file without touching control flow.
package heuristics

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tables is the serialisable form of every heuristic table.
type Tables struct {
	// VisualKeywords maps a lower-case keyword to the score it adds to a page.
	VisualKeywords map[string]float64 `yaml:"visual_keywords"`
	// VisualPatterns maps a regular expression to the score it adds to a page.
	VisualPatterns map[string]float64 `yaml:"visual_patterns"`
	KeywordCap     float64            `yaml:"keyword_cap"`
	PatternCap     float64            `yaml:"pattern_cap"`
	PageThreshold  float64            `yaml:"page_threshold"`
	// MinScoringChars is the text length below which an element scores zero.
	MinScoringChars int `yaml:"min_scoring_chars"`

	CaptionKeywords []string `yaml:"caption_keywords"`
	// CaptionOnlyOnKeywords disables the caption-by-default policy.
	CaptionOnlyOnKeywords bool `yaml:"caption_only_on_keywords"`

	GeneralPrefixes        []string `yaml:"general_prefixes"`
	DocumentReferenceTerms []string `yaml:"document_reference_terms"`
}

// Default returns the built-in tables.
func Default() Tables {
	keywords := map[string]float64{}
	for _, k := range []string{
		"table", "figure", "fig.", "chart", "graph", "diagram",
		"appendix", "supplementary", "data", "results", "method",
		"analysis", "comparison", "summary",
	} {
		keywords[k] = 0.1
	}

	patterns := map[string]float64{}
	for _, p := range []string{
		`table\s+\d+`,
		`figure\s+\d+`,
		`fig\.\s*\d+`,
		`\(see\s+(table|figure|fig\.)`,
		`as\s+shown\s+in\s+(table|figure)`,
		`illustrated\s+in`,
		`depicted\s+in`,
	} {
		patterns[p] = 0.2
	}

	return Tables{
		VisualKeywords:  keywords,
		VisualPatterns:  patterns,
		KeywordCap:      0.4,
		PatternCap:      0.6,
		PageThreshold:   0.3,
		MinScoringChars: 50,
		CaptionKeywords: []string{
			"graph", "plot", "chart", "diagram", "figure",
			"illustration", "flowchart", "timeline", "map",
		},
		GeneralPrefixes: []string{
			"what is ", "what are ", "who is ", "who are ",
			"when did ", "when was ", "where is ", "where are ",
			"how does ", "how do ", "how can ", "how would ",
			"why does ", "why do ", "why is ",
			"define ", "explain ", "describe ",
		},
		DocumentReferenceTerms: []string{
			"document", "pdf", "paper", "report", "file", "page",
			"table", "row", "column", "figure", "chart", "graph",
			"image", "diagram", "section", "chapter", "appendix",
			"author", "this ", "these ", "above", "below", "according to",
		},
	}
}

// Load reads tables from a YAML file. Fields absent from the file keep their
// default values. A missing file yields the defaults.
func Load(path string) (Tables, error) {
	t := Default()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return t, nil
		}
		return Tables{}, fmt.Errorf("read heuristics file: %w", err)
	}

	var override Tables
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Tables{}, fmt.Errorf("parse heuristics file: %w", err)
	}
	t.merge(override)
	return t, nil
}

func (t *Tables) merge(o Tables) {
	if len(o.VisualKeywords) > 0 {
		t.VisualKeywords = o.VisualKeywords
	}
	if len(o.VisualPatterns) > 0 {
		t.VisualPatterns = o.VisualPatterns
	}
	if o.KeywordCap > 0 {
		t.KeywordCap = o.KeywordCap
	}
	if o.PatternCap > 0 {
		t.PatternCap = o.PatternCap
	}
	if o.PageThreshold > 0 {
		t.PageThreshold = o.PageThreshold
	}
	if o.MinScoringChars > 0 {
		t.MinScoringChars = o.MinScoringChars
	}
	if len(o.CaptionKeywords) > 0 {
		t.CaptionKeywords = o.CaptionKeywords
	}
	t.CaptionOnlyOnKeywords = o.CaptionOnlyOnKeywords
	if len(o.GeneralPrefixes) > 0 {
		t.GeneralPrefixes = o.GeneralPrefixes
	}
	if len(o.DocumentReferenceTerms) > 0 {
		t.DocumentReferenceTerms = o.DocumentReferenceTerms
	}
}

type weightedPattern struct {
	re     *regexp.Regexp
	weight float64
}

// Set is a compiled, read-only view of Tables.
type Set struct {
	tables   Tables
	patterns []weightedPattern
}

// Compile validates the regular expressions and returns a Set.
func (t Tables) Compile() (*Set, error) {
	s := &Set{tables: t}
	for expr, weight := range t.VisualPatterns {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", expr, err)
		}
		s.patterns = append(s.patterns, weightedPattern{re: re, weight: weight})
	}
	return s, nil
}

// MustDefault compiles the default tables. The built-in patterns always compile.
func MustDefault() *Set {
	s, err := Default().Compile()
	if err != nil {
		panic(err)
	}
	return s
}

// Tables returns the source tables of the set.
func (s *Set) Tables() Tables {
	return s.tables
}

// PageThreshold is the minimum page score that qualifies a page for
// high-fidelity reprocessing.
func (s *Set) PageThreshold() float64 {
	return s.tables.PageThreshold
}

// VisualScore rates how likely text refers to tables or figures, in [0,1].
func (s *Set) VisualScore(text string) float64 {
	if len(strings.TrimSpace(text)) < s.tables.MinScoringChars {
		return 0
	}
	lower := strings.ToLower(text)

	var keywordScore float64
	for kw, weight := range s.tables.VisualKeywords {
		if strings.Contains(lower, kw) {
			keywordScore += weight
		}
	}

	var patternScore float64
	for _, p := range s.patterns {
		if p.re.MatchString(lower) {
			patternScore += p.weight
		}
	}

	score := min(keywordScore, s.tables.KeywordCap) + min(patternScore, s.tables.PatternCap)
	return min(score, 1.0)
}

// ShouldCaption decides whether an image with the given surrounding text
// goes to the vision model at upload time.
func (s *Set) ShouldCaption(context string) bool {
	if strings.TrimSpace(context) == "" {
		return true
	}
	lower := strings.ToLower(context)
	for _, kw := range s.tables.CaptionKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return !s.tables.CaptionOnlyOnKeywords
}

// HasGeneralPrefix reports whether the query opens like a world-knowledge question.
func (s *Set) HasGeneralPrefix(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	for _, p := range s.tables.GeneralPrefixes {
		if strings.HasPrefix(q, p) {
			return true
		}
	}
	return false
}

// ReferencesDocument reports whether the query points at document content.
func (s *Set) ReferencesDocument(query string) bool {
	q := strings.ToLower(query)
	for _, term := range s.tables.DocumentReferenceTerms {
		if strings.Contains(q, term) {
			return true
		}
	}
	return false
}
