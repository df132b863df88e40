package recommender

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assesskit/recommender/internal/catalog"
	"github.com/assesskit/recommender/internal/enrich"
	"github.com/assesskit/recommender/internal/reranker"
	"github.com/assesskit/recommender/internal/vecindex"
)

// keywordEmbedder produces one dimension per keyword so tests can steer
// similarity scores without a real model.
type keywordEmbedder struct {
	keywords []string
	err      error
}

func (k *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if k.err != nil {
		return nil, k.err
	}
	lowered := strings.ToLower(text)
	v := make([]float32, len(k.keywords))
	for i, kw := range k.keywords {
		if strings.Contains(lowered, kw) {
			v[i] = 1
		}
	}
	return v, nil
}

func (k *keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := k.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (k *keywordEmbedder) Dimension() int    { return len(k.keywords) }
func (k *keywordEmbedder) ModelName() string { return "keyword-test" }

func testCatalog() *catalog.Store {
	return catalog.NewStore([]catalog.Item{
		{
			Name:            "Core Java (Advanced)",
			URL:             "https://example.com/catalog/core-java-advanced/",
			Description:     "Multi-choice test measuring advanced knowledge of java programming",
			DurationMinutes: 30,
			Remote:          true,
			TestTypes:       []string{"Knowledge & Skills", "Coding Simulations"},
		},
		{
			Name:            "Verify Numerical Reasoning",
			URL:             "https://example.com/catalog/verify-numerical/",
			Description:     "Measures numerical reasoning ability",
			DurationMinutes: 18,
			Adaptive:        true,
			Remote:          true,
			TestTypes:       []string{"Ability & Aptitude"},
		},
		{
			Name:            "Sales Profile",
			URL:             "https://example.com/catalog/sales-profile/",
			Description:     "Personality profile for sales roles",
			DurationMinutes: 25,
			TestTypes:       []string{"Personality & Behaviour"},
		},
	})
}

func newTestRecommender(t *testing.T, embed *keywordEmbedder) *Recommender {
	t.Helper()

	store := testCatalog()
	vectors := make([][]float32, store.Len())
	for i, it := range store.Items() {
		v, err := embed.Embed(context.Background(), catalog.EmbeddingText(it))
		require.NoError(t, err)
		vectors[i] = v
	}
	index, err := vecindex.Build(vectors)
	require.NoError(t, err)

	rec := New(embed, enrich.New(), reranker.New(reranker.DefaultWeights(), reranker.DefaultDiversity()))
	rec.Swap(&Snapshot{Catalog: store, Index: index})
	return rec
}

func TestRecommend_JavaQuery(t *testing.T) {
	embed := &keywordEmbedder{keywords: []string{"java", "numerical", "sales"}}
	rec := newTestRecommender(t, embed)

	results, err := rec.Recommend(context.Background(), "Hiring Java developers with strong problem-solving", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "Core Java (Advanced)", results[0].Name)
	assert.Equal(t, "https://example.com/catalog/core-java-advanced/", results[0].URL)
	assert.Equal(t, 30, results[0].Duration)
	assert.Equal(t, "No", results[0].AdaptiveSupport)
	assert.Equal(t, "Yes", results[0].RemoteSupport)
	assert.Equal(t, []string{"Knowledge & Skills", "Coding Simulations"}, results[0].TestType)
}

func TestRecommend_TopKLargerThanCatalog(t *testing.T) {
	embed := &keywordEmbedder{keywords: []string{"java", "numerical", "sales"}}
	rec := newTestRecommender(t, embed)

	results, err := rec.Recommend(context.Background(), "numerical reasoning test", 10)
	require.NoError(t, err)
	// All three catalog items, no padding, no duplicates.
	require.Len(t, results, 3)
	assert.Equal(t, "Verify Numerical Reasoning", results[0].Name)

	seen := make(map[string]struct{})
	for _, r := range results {
		_, dup := seen[r.URL]
		assert.False(t, dup, "duplicate %s", r.URL)
		seen[r.URL] = struct{}{}
	}
}

func TestRecommend_Deterministic(t *testing.T) {
	embed := &keywordEmbedder{keywords: []string{"java", "numerical", "sales"}}
	rec := newTestRecommender(t, embed)
	ctx := context.Background()

	a, err := rec.Recommend(ctx, "graduate sales role", 3)
	require.NoError(t, err)
	b, err := rec.Recommend(ctx, "graduate sales role", 3)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRecommend_ValidationErrors(t *testing.T) {
	embed := &keywordEmbedder{keywords: []string{"java"}}
	rec := newTestRecommender(t, embed)
	ctx := context.Background()

	t.Run("empty query", func(t *testing.T) {
		_, err := rec.Recommend(ctx, "   ", 3)
		assert.ErrorIs(t, err, ErrEmptyQuery)
	})

	t.Run("zero top_k", func(t *testing.T) {
		_, err := rec.Recommend(ctx, "java", 0)
		assert.ErrorIs(t, err, ErrInvalidTopK)
	})

	t.Run("negative top_k", func(t *testing.T) {
		_, err := rec.Recommend(ctx, "java", -5)
		assert.ErrorIs(t, err, ErrInvalidTopK)
	})
}

func TestRecommend_InvalidTopKCheckedFirst(t *testing.T) {
	// top_k validation must fire before any other work, even for input
	// that would also fail enrichment.
	embed := &keywordEmbedder{keywords: []string{"java"}, err: errors.New("down")}
	rec := newTestRecommender(t, &keywordEmbedder{keywords: []string{"java"}})
	rec.embedder = embed

	_, err := rec.Recommend(context.Background(), "", 0)
	assert.ErrorIs(t, err, ErrInvalidTopK)
}

func TestRecommend_NotReady(t *testing.T) {
	embed := &keywordEmbedder{keywords: []string{"java"}}
	rec := New(embed, enrich.New(), reranker.New(reranker.DefaultWeights(), reranker.DefaultDiversity()))

	assert.False(t, rec.Ready())
	_, err := rec.Recommend(context.Background(), "java", 3)
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestRecommend_EmbeddingFailure(t *testing.T) {
	embed := &keywordEmbedder{keywords: []string{"java"}}
	rec := newTestRecommender(t, embed)
	embed.err = errors.New("ollama unreachable")

	_, err := rec.Recommend(context.Background(), "java test", 3)
	assert.ErrorIs(t, err, ErrEmbeddingService)
}

func TestRecommend_SnapshotSwap(t *testing.T) {
	embed := &keywordEmbedder{keywords: []string{"java"}}
	rec := newTestRecommender(t, embed)
	ctx := context.Background()

	before, err := rec.Recommend(ctx, "java test", 3)
	require.NoError(t, err)
	require.Len(t, before, 3)

	// Swap in a one-item snapshot; subsequent requests see only it.
	store := catalog.NewStore([]catalog.Item{{
		Name: "Only Item",
		URL:  "https://example.com/catalog/only/",
	}})
	v, err := embed.Embed(ctx, catalog.EmbeddingText(store.Items()[0]))
	require.NoError(t, err)
	index, err := vecindex.Build([][]float32{v})
	require.NoError(t, err)
	rec.Swap(&Snapshot{Catalog: store, Index: index})

	after, err := rec.Recommend(ctx, "java test", 3)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "Only Item", after[0].Name)
}
