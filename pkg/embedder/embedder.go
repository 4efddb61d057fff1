// Package embedder provides embedding generation clients. Only OpenAI offers
// the embedding capability this service needs, so the embedding credential is
// always an OpenAI key regardless of the chosen language model vendor.
package embedder

import (
	"context"
)

// Client is the interface all embedding clients implement.
type Client interface {
	// Embed generates embeddings for the given texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle generates an embedding for a single text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the dimensionality of produced embeddings.
	Dimensions() int

	// Close releases any resources held by the client.
	Close() error
}

// Config holds configuration for embedding clients.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	Dimensions int
}
