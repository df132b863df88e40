package enrich

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchKeyword_WordBoundaries(t *testing.T) {
	tests := []struct {
		text    string
		keyword string
		want    bool
	}{
		{"we need js engineers", "js", true},
		{"parse the json payload", "js", false},
		{"java and javascript", "java", true},
		{"javascript only", "java", false},
		{"qa engineer", "qa", true},
		{"qatar office", "qa", false},
		{"strong problem-solving skills", "problem-solving", true},
		{"data analyst, senior", "analyst", true},
	}
	for _, tt := range tests {
		got := MatchKeyword(tt.text, tt.keyword)
		assert.Equal(t, tt.want, got, "text=%q keyword=%q", tt.text, tt.keyword)
	}
}

func TestMatchKeyword_MultiWordSubstring(t *testing.T) {
	assert.True(t, MatchKeyword("a software engineer position", "software engineer"))
	assert.True(t, MatchKeyword("tests for knowledge & skills roles", "knowledge & skills"))
	assert.False(t, MatchKeyword("software development", "software engineer"))
}

func TestInferCategories(t *testing.T) {
	lex := DefaultLexicons()

	t.Run("synonyms map to canonical tags", func(t *testing.T) {
		tags := lex.InferCategories("hiring developers with numerical reasoning")
		assert.Equal(t, []string{"Coding Simulations", "Ability & Aptitude"}, tags)
	})

	t.Run("deduplicated across synonyms", func(t *testing.T) {
		tags := lex.InferCategories("coding and programming and developers")
		assert.Equal(t, []string{"Coding Simulations"}, tags)
	})

	t.Run("no matches", func(t *testing.T) {
		assert.Empty(t, lex.InferCategories("an unrelated request"))
	})
}

func TestInferSkills(t *testing.T) {
	lex := DefaultLexicons()

	skills := lex.InferSkills("java developer with sql and java experience")
	assert.Equal(t, []string{"sql", "java"}, skills, "lexicon order, deduplicated")
}

func TestLoadLexicons(t *testing.T) {
	t.Run("overrides one section, defaults the other", func(t *testing.T) {
		raw := `skills:
  - golang
  - terraform
`
		path := filepath.Join(t.TempDir(), "lexicons.yaml")
		require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

		lex, err := LoadLexicons(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"golang", "terraform"}, lex.Skills)
		assert.Equal(t, DefaultLexicons().Categories, lex.Categories)
	})

	t.Run("full file", func(t *testing.T) {
		raw := `categories:
  - keyword: kubernetes
    tag: Infrastructure
skills:
  - helm
`
		path := filepath.Join(t.TempDir(), "lexicons.yaml")
		require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

		lex, err := LoadLexicons(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"Infrastructure"}, lex.InferCategories("a kubernetes platform team"))
		assert.Equal(t, []string{"helm"}, lex.InferSkills("helm charts"))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadLexicons(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid YAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("categories: {broken"), 0o644))
		_, err := LoadLexicons(path)
		assert.Error(t, err)
	})
}

func TestExtractMaxDuration(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"complete in at most 40 minutes", 40},
		{"a 1-2 hour session", 120},
		{"takes 2 hours", 120},
		{"90 mins max", 90},
		{"45 minute assessment", 45},
		{"no time constraint here", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractMaxDuration(tt.text), "text=%q", tt.text)
	}
}
