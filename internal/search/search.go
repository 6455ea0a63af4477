// Package search ranks documents against a free-text query.
package search

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mmcdole/awsync/internal/domain"
)

// Result is a ranked document match
type Result struct {
	Index    int // Position in the input slice
	Document domain.Document
	Field    string // Attribute that matched best; "$id" for the document ID
	Value    string // Lowercased text that matched
	Score    int    // Lower is better
}

// Service ranks documents by their ID and string attributes
type Service struct {
	logger *slog.Logger
}

// NewService creates a new search service
func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// Rank returns the documents matching query, best first. Every document is
// tried against its ID and each string attribute; the best field wins.
func (s *Service) Rank(query string, docs []domain.Document) []Result {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	var results []Result
	for i := range docs {
		if r, ok := bestMatch(query, i, docs[i]); ok {
			results = append(results, r)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score < results[j].Score
		}
		return results[i].Document.ID < results[j].Document.ID
	})

	s.logger.Debug("ranked documents", "query", query, "candidates", len(docs), "results", len(results))
	return results
}

// Filter narrows a listing to the documents matching query, best first.
// Total keeps the server-side count.
func (s *Service) Filter(query string, list domain.DocumentList) domain.DocumentList {
	if strings.TrimSpace(query) == "" {
		return list
	}
	ranked := s.Rank(query, list.Documents)
	out := domain.DocumentList{Total: list.Total, Documents: make([]domain.Document, len(ranked))}
	for i, r := range ranked {
		out.Documents[i] = r.Document
	}
	return out
}

func bestMatch(query string, index int, doc domain.Document) (Result, bool) {
	best := Result{Index: index, Document: doc, Score: -1}

	try := func(field, value string) {
		value = strings.ToLower(value)
		score := matchScore(value, query)
		if score < 0 {
			return
		}
		if best.Score < 0 || score < best.Score {
			best.Field, best.Value, best.Score = field, value, score
		}
	}

	try("$id", doc.ID)
	for _, key := range doc.AttributeKeys() {
		for _, v := range searchable(doc.Data[key]) {
			try(key, v)
		}
	}

	return best, best.Score >= 0
}

// matchScore scores a lowercased value against a lowercased query.
// Lower is better; -1 means no match.
func matchScore(value, query string) int {
	switch {
	case value == query:
		return 0
	case strings.HasPrefix(value, query):
		return 10
	case strings.Contains(value, query):
		return 50
	case fuzzy.Match(query, value):
		return 100 + fuzzy.LevenshteinDistance(query, value)
	default:
		return -1
	}
}

// searchable returns the text forms of an attribute value. Arrays
// contribute each string element; numbers and bools are skipped.
func searchable(v any) []string {
	switch val := v.(type) {
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	case []any:
		var out []string
		for _, item := range val {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
