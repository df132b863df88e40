// Package catalog holds the immutable collection of recommendable assessments.
//
// A Store and its vector index are built together and always share ordinal
// positions: item i in the store corresponds to vector i in the index.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Item is one recommendable assessment with its descriptive metadata.
type Item struct {
	Name            string   `json:"name"`
	URL             string   `json:"url"`
	Description     string   `json:"description"`
	DurationMinutes int      `json:"duration"` // 0 = unknown
	Adaptive        bool     `json:"-"`
	Remote          bool     `json:"-"`
	TestTypes       []string `json:"test_type"`
}

// itemRecord is the on-disk JSON shape produced by the catalog crawler.
// Adaptive/remote support are serialized as "Yes"/"No" strings.
type itemRecord struct {
	Name            string   `json:"name"`
	URL             string   `json:"url"`
	Description     string   `json:"description"`
	DurationMinutes int      `json:"duration"`
	AdaptiveSupport string   `json:"adaptive_support"`
	RemoteSupport   string   `json:"remote_support"`
	TestTypes       []string `json:"test_type"`
}

// Store is an immutable, in-memory catalog. Safe for concurrent readers.
type Store struct {
	items []Item
}

// NewStore builds a store from a slice of items. Tags are deduplicated
// preserving first occurrence; the slice is not retained by the caller.
func NewStore(items []Item) *Store {
	out := make([]Item, len(items))
	for i, it := range items {
		it.TestTypes = dedupTags(it.TestTypes)
		out[i] = it
	}
	return &Store{items: out}
}

// LoadFile reads a catalog from a JSON array file.
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read catalog %s: %w", path, err)
	}
	var records []itemRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("invalid catalog JSON %s: %w", path, err)
	}

	items := make([]Item, len(records))
	for i, r := range records {
		items[i] = Item{
			Name:            r.Name,
			URL:             r.URL,
			Description:     r.Description,
			DurationMinutes: r.DurationMinutes,
			Adaptive:        yesNoToBool(r.AdaptiveSupport),
			Remote:          yesNoToBool(r.RemoteSupport),
			TestTypes:       r.TestTypes,
		}
	}
	return NewStore(items), nil
}

// Len returns the number of items in the catalog.
func (s *Store) Len() int {
	return len(s.items)
}

// At returns the item at the given ordinal position.
func (s *Store) At(ordinal int) (Item, bool) {
	if ordinal < 0 || ordinal >= len(s.items) {
		return Item{}, false
	}
	return s.items[ordinal], true
}

// Items returns the underlying item slice. Callers must not modify it.
func (s *Store) Items() []Item {
	return s.items
}

// EmbeddingText renders the rich text representation of an item that is
// fed to the embedding model during index builds. The rendering is
// deterministic: identical items always produce identical text.
func EmbeddingText(it Item) string {
	parts := []string{
		"Assessment Name: " + it.Name,
		"Description: " + it.Description,
	}
	if len(it.TestTypes) > 0 {
		parts = append(parts, "Test Types: "+strings.Join(it.TestTypes, ", "))
	}
	if it.Adaptive {
		parts = append(parts, "Adaptive Test: Yes")
	}
	if it.Remote {
		parts = append(parts, "Remote / Online: Yes")
	}
	if it.DurationMinutes > 0 {
		parts = append(parts, fmt.Sprintf("Duration: %d minutes", it.DurationMinutes))
	}
	return strings.Join(parts, ". ")
}

// BoolToYesNo renders a support flag in the wire format used by the API.
func BoolToYesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func yesNoToBool(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "yes")
}

func dedupTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
