// Package reranker combines vector similarity with categorical and
// keyword overlap into one score per candidate, applies a soft diversity
// adjustment, and produces the final top-k ordering.
package reranker

import (
	"sort"
	"strings"

	"github.com/assesskit/recommender/internal/catalog"
	"github.com/assesskit/recommender/internal/enrich"
)

// Weights are the fixed scoring configuration. They are not trained.
type Weights struct {
	// Sim scales the raw vector similarity score.
	Sim float64

	// Type is added once when candidate and query share a category tag.
	Type float64

	// Skill is added per matching skill keyword, rewarding multiple hits.
	Skill float64

	// DurationPenalty is subtracted when an item exceeds the query's
	// extracted duration cap.
	DurationPenalty float64
}

// DefaultWeights returns the hand-tuned scoring defaults.
func DefaultWeights() Weights {
	return Weights{Sim: 1.0, Type: 0.5, Skill: 0.1, DurationPenalty: 0.15}
}

// DiversityConfig controls the soft diversity adjustment. The thresholds
// are heuristics, exposed as configuration rather than baked in.
type DiversityConfig struct {
	// Enabled turns the adjustment on.
	Enabled bool

	// MaxShare is the fraction of the k selected slots one category may
	// occupy before lower-ranked alternatives are considered.
	MaxShare float64

	// Tolerance is the score band within which a lower-ranked candidate
	// from an underrepresented category may be swapped forward. A gap
	// larger than this is never overridden.
	Tolerance float64
}

// DefaultDiversity returns the default diversity configuration.
func DefaultDiversity() DiversityConfig {
	return DiversityConfig{Enabled: true, MaxShare: 0.5, Tolerance: 0.05}
}

// Candidate is one catalog item being scored during a single request.
// Candidates exist only for the duration of one Rerank call.
type Candidate struct {
	Ordinal         int
	Item            catalog.Item
	RawScore        float32
	CategoryOverlap bool
	SkillOverlap    int
	FinalScore      float64
}

// Reranker scores and reorders retrieval candidates.
type Reranker struct {
	weights   Weights
	diversity DiversityConfig
}

// New creates a Reranker with the given configuration.
func New(weights Weights, diversity DiversityConfig) *Reranker {
	return &Reranker{weights: weights, diversity: diversity}
}

// Rerank scores candidates against the query context and returns the top
// k in final rank order. Input candidates must be in vector-index order
// (descending raw score, ties by ascending ordinal); that order is the
// tie-break for equal final scores, keeping results deterministic.
func (r *Reranker) Rerank(candidates []Candidate, qc *enrich.QueryContext, k int) []Candidate {
	if len(candidates) == 0 || k <= 0 {
		return nil
	}

	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)
	for i := range ranked {
		r.score(&ranked[i], qc)
	}

	// Stable sort preserves index order among equal final scores.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FinalScore > ranked[j].FinalScore
	})

	if r.diversity.Enabled {
		r.diversify(ranked, k)
	}

	if k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked
}

// score fills in the overlap signals and composite score for one candidate.
func (r *Reranker) score(c *Candidate, qc *enrich.QueryContext) {
	c.CategoryOverlap = categoryOverlap(c.Item.TestTypes, qc.Categories)
	c.SkillOverlap = countSkillMatches(c.Item, qc.Skills)

	c.FinalScore = r.weights.Sim * float64(c.RawScore)
	if c.CategoryOverlap {
		c.FinalScore += r.weights.Type
	}
	c.FinalScore += r.weights.Skill * float64(c.SkillOverlap)

	if qc.MaxDurationMinutes > 0 && c.Item.DurationMinutes > qc.MaxDurationMinutes {
		c.FinalScore -= r.weights.DurationPenalty
	}
}

// diversify walks the top-k window of the sorted list and swaps forward
// near-tie candidates from underrepresented categories when one category
// would otherwise dominate. It never promotes across a score gap larger
// than the tolerance, so a strictly better candidate is never dropped.
func (r *Reranker) diversify(ranked []Candidate, k int) {
	if len(ranked) < k {
		// Every candidate is returned anyway; nothing to diversify among.
		return
	}
	if k > len(ranked) {
		k = len(ranked)
	}

	counts := make(map[string]int)
	for i := 0; i < k; i++ {
		if r.overCap(&ranked[i], counts, k) {
			for j := i + 1; j < len(ranked); j++ {
				if ranked[i].FinalScore-ranked[j].FinalScore > r.diversity.Tolerance {
					break
				}
				if r.bringsUnderrepresented(&ranked[j], counts, k) {
					promote(ranked, i, j)
					break
				}
			}
		}
		for _, tag := range ranked[i].Item.TestTypes {
			counts[tag]++
		}
	}
}

// overCap reports whether selecting the candidate would push every one of
// its categories past the share limit. A candidate carrying any
// still-underrepresented tag is kept in place.
func (r *Reranker) overCap(c *Candidate, counts map[string]int, k int) bool {
	if len(c.Item.TestTypes) == 0 {
		return false
	}
	limit := r.diversity.MaxShare * float64(k)
	for _, tag := range c.Item.TestTypes {
		if float64(counts[tag]+1) <= limit {
			return false
		}
	}
	return true
}

// bringsUnderrepresented reports whether the candidate carries at least
// one category still under the share limit.
func (r *Reranker) bringsUnderrepresented(c *Candidate, counts map[string]int, k int) bool {
	limit := r.diversity.MaxShare * float64(k)
	for _, tag := range c.Item.TestTypes {
		if float64(counts[tag]+1) <= limit {
			return true
		}
	}
	return false
}

// promote moves ranked[j] up to position i, shifting the intervening
// candidates down one slot so their relative order is preserved.
func promote(ranked []Candidate, i, j int) {
	c := ranked[j]
	copy(ranked[i+1:j+1], ranked[i:j])
	ranked[i] = c
}

// categoryOverlap reports whether the item shares any tag with the
// inferred query categories, case-insensitively.
func categoryOverlap(itemTags, queryTags []string) bool {
	if len(itemTags) == 0 || len(queryTags) == 0 {
		return false
	}
	for _, qt := range queryTags {
		for _, it := range itemTags {
			if strings.EqualFold(qt, it) {
				return true
			}
		}
	}
	return false
}

// countSkillMatches counts how many inferred skills appear in the item's
// name or description.
func countSkillMatches(item catalog.Item, skills []string) int {
	if len(skills) == 0 {
		return 0
	}
	text := strings.ToLower(item.Name + " " + item.Description)
	count := 0
	for _, skill := range skills {
		if enrich.MatchKeyword(text, skill) {
			count++
		}
	}
	return count
}
