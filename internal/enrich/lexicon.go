package enrich

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// CategoryEntry maps a query keyword to the canonical catalog category
// tag it implies. Several keywords may map to the same tag.
type CategoryEntry struct {
	Keyword string `yaml:"keyword"`
	Tag     string `yaml:"tag"`
}

// Lexicons hold the keyword tables used for query enrichment. Entries are
// ordered; matching walks them in order so inference is deterministic.
type Lexicons struct {
	Categories []CategoryEntry `yaml:"categories"`
	Skills     []string        `yaml:"skills"`
}

// DefaultLexicons returns the built-in keyword tables. They cover the
// catalog's test-type taxonomy plus the common technology and role terms
// that show up in job descriptions.
func DefaultLexicons() *Lexicons {
	return &Lexicons{
		Categories: []CategoryEntry{
			// Literal taxonomy names
			{Keyword: "ability & aptitude", Tag: "Ability & Aptitude"},
			{Keyword: "biodata & situational judgement", Tag: "Biodata & Situational Judgement"},
			{Keyword: "competencies", Tag: "Competencies"},
			{Keyword: "development & 360", Tag: "Development & 360"},
			{Keyword: "assessment exercises", Tag: "Assessment Exercises"},
			{Keyword: "knowledge & skills", Tag: "Knowledge & Skills"},
			{Keyword: "personality & behavior", Tag: "Personality & Behaviour"},
			{Keyword: "personality & behaviour", Tag: "Personality & Behaviour"},
			{Keyword: "simulations", Tag: "Coding Simulations"},

			// Synonym families
			{Keyword: "developer", Tag: "Coding Simulations"},
			{Keyword: "developers", Tag: "Coding Simulations"},
			{Keyword: "programming", Tag: "Coding Simulations"},
			{Keyword: "coding", Tag: "Coding Simulations"},
			{Keyword: "software engineer", Tag: "Coding Simulations"},
			{Keyword: "reasoning", Tag: "Ability & Aptitude"},
			{Keyword: "aptitude", Tag: "Ability & Aptitude"},
			{Keyword: "numerical", Tag: "Ability & Aptitude"},
			{Keyword: "verbal", Tag: "Ability & Aptitude"},
			{Keyword: "logical", Tag: "Ability & Aptitude"},
			{Keyword: "problem-solving", Tag: "Ability & Aptitude"},
			{Keyword: "problem solving", Tag: "Ability & Aptitude"},
			{Keyword: "personality", Tag: "Personality & Behaviour"},
			{Keyword: "behavioral", Tag: "Personality & Behaviour"},
			{Keyword: "behavioural", Tag: "Personality & Behaviour"},
			{Keyword: "situational judgement", Tag: "Biodata & Situational Judgement"},
			{Keyword: "situational judgment", Tag: "Biodata & Situational Judgement"},
		},
		Skills: []string{
			"sql",
			"python",
			"excel",
			"java",
			"javascript",
			"js",
			"html",
			"css",
			"selenium",
			"qa",
			"quality assurance",
			"marketing",
			"sales",
			"analyst",
			"data analyst",
			"consultant",
			"manager",
			"coo",
			"graduate",
			"admin",
			"communication",
			"leadership",
			"teamwork",
			"problem-solving",
		},
	}
}

// LoadLexicons reads keyword tables from a YAML file. Missing sections
// fall back to the defaults so a file can override just one table.
func LoadLexicons(path string) (*Lexicons, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read lexicon file %s: %w", path, err)
	}
	var lex Lexicons
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("invalid lexicon YAML %s: %w", path, err)
	}
	defaults := DefaultLexicons()
	if len(lex.Categories) == 0 {
		lex.Categories = defaults.Categories
	}
	if len(lex.Skills) == 0 {
		lex.Skills = defaults.Skills
	}
	return &lex, nil
}

// InferCategories scans lowercased text for category keywords and returns
// canonical tags, deduplicated, in lexicon order.
func (l *Lexicons) InferCategories(lowered string) []string {
	var tags []string
	seen := make(map[string]struct{})
	for _, e := range l.Categories {
		if _, ok := seen[e.Tag]; ok {
			continue
		}
		if MatchKeyword(lowered, e.Keyword) {
			seen[e.Tag] = struct{}{}
			tags = append(tags, e.Tag)
		}
	}
	return tags
}

// InferSkills scans lowercased text for skill keywords, deduplicated, in
// lexicon order.
func (l *Lexicons) InferSkills(lowered string) []string {
	var skills []string
	seen := make(map[string]struct{})
	for _, kw := range l.Skills {
		if _, ok := seen[kw]; ok {
			continue
		}
		if MatchKeyword(lowered, kw) {
			seen[kw] = struct{}{}
			skills = append(skills, kw)
		}
	}
	return skills
}

// MatchKeyword reports whether the keyword occurs in the lowercased
// text. Multi-word keywords match as substrings; single tokens require
// word boundaries so "js" never matches inside "json".
func MatchKeyword(lowered, keyword string) bool {
	keyword = strings.ToLower(keyword)
	if strings.ContainsAny(keyword, " &") {
		return strings.Contains(lowered, keyword)
	}

	for start := 0; ; {
		i := strings.Index(lowered[start:], keyword)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(keyword)
		if boundaryBefore(lowered, i) && boundaryAfter(lowered, end) {
			return true
		}
		start = i + 1
	}
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	return !isWordRune(rune(s[i-1]))
}

func boundaryAfter(s string, end int) bool {
	if end >= len(s) {
		return true
	}
	return !isWordRune(rune(s[end]))
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
