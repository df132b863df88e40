package enrich

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrich_EmptyQuery(t *testing.T) {
	e := New()
	ctx := context.Background()

	for _, raw := range []string{"", "   ", "\t\n  "} {
		_, err := e.Enrich(ctx, raw)
		assert.ErrorIs(t, err, ErrEmptyQuery, "input %q", raw)
	}
}

func TestEnrich_PlainText(t *testing.T) {
	e := New()

	qc, err := e.Enrich(context.Background(), "  Hiring   Java developers with strong problem-solving  ")
	require.NoError(t, err)

	assert.Equal(t, "Hiring Java developers with strong problem-solving", qc.Resolved)
	assert.Contains(t, qc.Categories, "Coding Simulations")
	assert.Contains(t, qc.Categories, "Ability & Aptitude")
	assert.Contains(t, qc.Skills, "java")
	assert.Contains(t, qc.Skills, "problem-solving")
	assert.Equal(t, 0, qc.MaxDurationMinutes)
	assert.Contains(t, qc.Enriched, "Inferred types: ")
	assert.Contains(t, qc.Enriched, "Inferred skills: ")
}

func TestEnrich_Deterministic(t *testing.T) {
	e := New()
	ctx := context.Background()

	a, err := e.Enrich(ctx, "graduate sales role with communication focus")
	require.NoError(t, err)
	b, err := e.Enrich(ctx, "graduate sales role with communication focus")
	require.NoError(t, err)

	assert.Equal(t, a.Enriched, b.Enriched)
	assert.Equal(t, a.Categories, b.Categories)
	assert.Equal(t, a.Skills, b.Skills)
}

func TestEnrich_NoInference(t *testing.T) {
	e := New()

	qc, err := e.Enrich(context.Background(), "looking for something suitable")
	require.NoError(t, err)

	assert.Empty(t, qc.Categories)
	assert.Empty(t, qc.Skills)
	// No inference clauses when nothing matched.
	assert.Equal(t, qc.Resolved, qc.Enriched)
}

func TestEnrich_URLFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>t</title><style>p{}</style></head>
			<body><h1>Java Developer</h1><p>Strong coding and SQL skills required.</p>
			<script>var x = 1;</script></body></html>`)
	}))
	defer srv.Close()

	e := New()
	qc, err := e.Enrich(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Java Developer Strong coding and SQL skills required.", qc.Resolved)
	assert.Contains(t, qc.Categories, "Coding Simulations")
	assert.Contains(t, qc.Skills, "java")
	assert.Contains(t, qc.Skills, "sql")
}

func TestEnrich_URLFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	t.Run("hard failure by default", func(t *testing.T) {
		e := New()
		_, err := e.Enrich(context.Background(), srv.URL)
		assert.ErrorIs(t, err, ErrUpstreamFetch)
	})

	t.Run("fallback treats URL as text", func(t *testing.T) {
		e := New(WithFetchFallback(true))
		qc, err := e.Enrich(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, srv.URL, qc.Resolved)
	})
}

func TestEnrich_URLWithEmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><script>x()</script></head><body></body></html>`)
	}))
	defer srv.Close()

	e := New()
	_, err := e.Enrich(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrUpstreamFetch)
}

type fakeFetcher struct {
	text string
	err  error
}

func (f *fakeFetcher) FetchText(ctx context.Context, url string) (string, error) {
	return f.text, f.err
}

func TestEnrich_CustomFetcher(t *testing.T) {
	e := New(WithFetcher(&fakeFetcher{text: "Python analyst role"}))

	qc, err := e.Enrich(context.Background(), "https://jobs.example.com/123")
	require.NoError(t, err)
	assert.Equal(t, "Python analyst role", qc.Resolved)
	assert.Contains(t, qc.Skills, "python")
	assert.Contains(t, qc.Skills, "analyst")
}

func TestEnrich_FetcherErrorWrapped(t *testing.T) {
	cause := errors.New("connection refused")
	e := New(WithFetcher(&fakeFetcher{err: cause}))

	_, err := e.Enrich(context.Background(), "https://jobs.example.com/123")
	assert.ErrorIs(t, err, ErrUpstreamFetch)
}

func TestAsURL(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"https://example.com/catalog/java/", true},
		{"http://example.com", true},
		{"example.com/catalog", false},
		{"hire a java developer https://example.com", false},
		{"ftp://example.com", false},
	}
	for _, tt := range tests {
		_, ok := asURL(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
	}
}
