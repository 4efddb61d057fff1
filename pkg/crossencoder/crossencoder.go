// Package crossencoder provides reranking of candidate passages by relevance
// to a query. The OpenAI implementation runs a boolean classifier prompt per
// passage with bounded concurrency and ranks by the resulting scores.
package crossencoder

import (
	"context"
)

// RankedPassage is a passage with its relevance score.
type RankedPassage struct {
	Passage string  `json:"passage"`
	Score   float64 `json:"score"`
}

// Client is the interface all cross-encoder clients implement.
type Client interface {
	// Rank orders passages by relevance to the query, highest score first.
	Rank(ctx context.Context, query string, passages []string) ([]RankedPassage, error)

	// Close releases any resources held by the client.
	Close() error
}

// Config holds configuration for cross-encoder clients.
type Config struct {
	Model          string
	MaxConcurrency int
}
