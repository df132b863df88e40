// Package enrich turns raw query input into an enriched representation:
// resolved plain text plus inferred category tags and skill keywords.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrEmptyQuery indicates empty or whitespace-only input. Detected
	// before any network or embedding work.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrUpstreamFetch indicates a URL query could not be dereferenced.
	ErrUpstreamFetch = errors.New("upstream fetch failed")
)

// QueryContext is the enriched form of one recommendation request. It is
// constructed per request and holds no cross-request state.
type QueryContext struct {
	// Raw is the original input string.
	Raw string

	// Resolved is the plain-text form: fetched page text for URL input,
	// otherwise the raw input, whitespace-normalized either way.
	Resolved string

	// Categories are canonical catalog tags inferred from the text.
	Categories []string

	// Skills are lexicon keywords inferred from the text, first-occurrence
	// order, deduplicated.
	Skills []string

	// MaxDurationMinutes caps acceptable assessment length (0 = no cap).
	MaxDurationMinutes int

	// Enriched is the text handed to the embedding model. Deterministic:
	// identical resolved text and lexicons produce identical bytes.
	Enriched string
}

// Enricher normalizes and augments raw query input.
type Enricher struct {
	lexicons     *Lexicons
	fetcher      Fetcher
	fetchFallbck bool
	logger       *slog.Logger
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithLexicons replaces the built-in keyword tables.
func WithLexicons(lex *Lexicons) Option {
	return func(e *Enricher) {
		if lex != nil {
			e.lexicons = lex
		}
	}
}

// WithFetcher replaces the URL fetcher.
func WithFetcher(f Fetcher) Option {
	return func(e *Enricher) {
		if f != nil {
			e.fetcher = f
		}
	}
}

// WithFetchFallback controls the URL-failure policy. When enabled, a
// failed fetch logs a warning and falls back to treating the raw URL
// string as plain text; when disabled (the default) it fails the request
// with ErrUpstreamFetch.
func WithFetchFallback(enabled bool) Option {
	return func(e *Enricher) {
		e.fetchFallbck = enabled
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Enricher) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Enricher with default lexicons and a plain HTTP fetcher.
func New(opts ...Option) *Enricher {
	e := &Enricher{
		lexicons: DefaultLexicons(),
		fetcher:  NewHTTPFetcher(10 * time.Second),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich resolves raw input into a QueryContext.
func (e *Enricher) Enrich(ctx context.Context, raw string) (*QueryContext, error) {
	resolved := normalizeWhitespace(raw)
	if resolved == "" {
		return nil, ErrEmptyQuery
	}

	if target, ok := asURL(resolved); ok {
		text, err := e.fetcher.FetchText(ctx, target)
		if err != nil {
			if !e.fetchFallbck {
				return nil, fmt.Errorf("%w: %v", ErrUpstreamFetch, err)
			}
			e.logger.Warn("URL fetch failed, falling back to raw text",
				"url", target,
				"error", err,
			)
		} else {
			resolved = normalizeWhitespace(text)
			if resolved == "" {
				return nil, fmt.Errorf("%w: page has no visible text", ErrUpstreamFetch)
			}
		}
	}

	lowered := strings.ToLower(resolved)
	qc := &QueryContext{
		Raw:                raw,
		Resolved:           resolved,
		Categories:         e.lexicons.InferCategories(lowered),
		Skills:             e.lexicons.InferSkills(lowered),
		MaxDurationMinutes: extractMaxDuration(lowered),
	}
	qc.Enriched = buildEnrichedText(qc)
	return qc, nil
}

// buildEnrichedText concatenates the resolved text with inferred tag and
// skill clauses. Empty clauses are omitted entirely.
func buildEnrichedText(qc *QueryContext) string {
	var sb strings.Builder
	sb.WriteString(qc.Resolved)
	if len(qc.Categories) > 0 {
		sb.WriteString(". Inferred types: ")
		sb.WriteString(strings.Join(qc.Categories, ", "))
	}
	if len(qc.Skills) > 0 {
		sb.WriteString(". Inferred skills: ")
		sb.WriteString(strings.Join(qc.Skills, ", "))
	}
	return sb.String()
}

// asURL reports whether the input is a single http(s) URL.
func asURL(s string) (string, bool) {
	if strings.ContainsAny(s, " \t") {
		return "", false
	}
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return "", false
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return "", false
	}
	return s, true
}

// normalizeWhitespace collapses runs of whitespace and trims the ends.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
