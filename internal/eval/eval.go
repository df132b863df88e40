// Package eval computes offline retrieval quality (Recall@K) over a
// labeled query set, driving the same Recommend function used in serving.
package eval

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/assesskit/recommender/internal/recommender"
)

// LabeledQuery is one query with the catalog URLs known to be relevant.
type LabeledQuery struct {
	Query        string   `json:"query"`
	RelevantURLs []string `json:"relevant_urls"`
}

// QueryResult is the outcome for one evaluated query.
type QueryResult struct {
	Query         string   `json:"query"`
	RelevantURLs  []string `json:"relevant_urls"`
	PredictedURLs []string `json:"predicted_urls"`
	Recall        float64  `json:"recall"`
}

// Report is the result of one evaluation run.
type Report struct {
	K          int           `json:"k"`
	MeanRecall float64       `json:"mean_recall"`
	Results    []QueryResult `json:"results"`
}

// LoadQuerySet reads a labeled query set from a CSV file with columns
// "Query" and "Assessment_url", one relevant URL per row. Rows sharing a
// query are grouped, preserving first-appearance order.
func LoadQuerySet(path string) ([]LabeledQuery, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open query set %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("cannot read CSV header: %w", err)
	}

	queryCol, urlCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "Query":
			queryCol = i
		case "Assessment_url":
			urlCol = i
		}
	}
	if queryCol < 0 || urlCol < 0 {
		return nil, fmt.Errorf("CSV must have columns 'Query' and 'Assessment_url', found: %v", header)
	}

	var order []string
	grouped := make(map[string][]string)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cannot read CSV row: %w", err)
		}
		if queryCol >= len(row) || urlCol >= len(row) {
			continue
		}
		q := strings.TrimSpace(row[queryCol])
		u := strings.TrimSpace(row[urlCol])
		if q == "" || u == "" {
			continue
		}
		if _, ok := grouped[q]; !ok {
			order = append(order, q)
		}
		grouped[q] = append(grouped[q], u)
	}

	queries := make([]LabeledQuery, len(order))
	for i, q := range order {
		queries[i] = LabeledQuery{Query: q, RelevantURLs: grouped[q]}
	}
	return queries, nil
}

// RecallAtK computes |relevant ∩ predicted[:k]| / |relevant|.
func RecallAtK(relevant, predicted []string, k int) float64 {
	if len(relevant) == 0 {
		return 0
	}
	if k < len(predicted) {
		predicted = predicted[:k]
	}
	predictedSet := make(map[string]struct{}, len(predicted))
	for _, u := range predicted {
		predictedSet[u] = struct{}{}
	}
	hits := 0
	for _, u := range relevant {
		if _, ok := predictedSet[u]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(relevant))
}

// Evaluate runs every labeled query through the recommender and reports
// per-query and mean Recall@K. Query failures score 0 rather than
// aborting the run.
func Evaluate(ctx context.Context, rec *recommender.Recommender, queries []LabeledQuery, k int, logger *slog.Logger) (*Report, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", recommender.ErrInvalidTopK, k)
	}
	if logger == nil {
		logger = slog.Default()
	}

	report := &Report{K: k, Results: make([]QueryResult, 0, len(queries))}
	var sum float64

	for i, lq := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var predicted []string
		results, err := rec.Recommend(ctx, lq.Query, k)
		if err != nil {
			logger.Warn("query failed during evaluation", "query", lq.Query, "error", err)
		} else {
			predicted = make([]string, len(results))
			for j, r := range results {
				predicted[j] = r.URL
			}
		}

		recall := RecallAtK(lq.RelevantURLs, predicted, k)
		sum += recall

		logger.Info("evaluated query",
			"index", i+1,
			"total", len(queries),
			"recall", recall,
		)

		report.Results = append(report.Results, QueryResult{
			Query:         lq.Query,
			RelevantURLs:  lq.RelevantURLs,
			PredictedURLs: predicted,
			Recall:        recall,
		})
	}

	if len(report.Results) > 0 {
		report.MeanRecall = sum / float64(len(report.Results))
	}
	return report, nil
}
