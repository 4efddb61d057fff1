package types

import (
	"errors"
	"time"
)

// Validation errors
var (
	ErrEmptyContent = errors.New("content cannot be empty")
	ErrEmptyGroupID = errors.New("group_id cannot be empty")
	ErrEmptyUUID    = errors.New("uuid cannot be empty")
)

// Node represents an entity node in the knowledge graph.
type Node struct {
	Uuid      string    `json:"uuid"`
	Name      string    `json:"name"`
	GroupID   string    `json:"group_id"`
	CreatedAt time.Time `json:"created_at"`

	// Labels carries every label attached to the node in the store. The
	// first label is always the generic entity marker; any further labels
	// are classification labels produced by extraction.
	Labels []string `json:"labels,omitempty"`

	Summary string `json:"summary,omitempty"`

	NameEmbedding []float32 `json:"name_embedding,omitempty"`
}

// Validate checks if the Node has all required fields set.
func (n *Node) Validate() error {
	if n.Uuid == "" {
		return ErrEmptyUUID
	}
	if n.GroupID == "" {
		return ErrEmptyGroupID
	}
	return nil
}

// Edge represents a directed fact between two entity nodes.
type Edge struct {
	Uuid         string    `json:"uuid"`
	SourceNodeID string    `json:"source_node_uuid"`
	TargetNodeID string    `json:"target_node_uuid"`
	GroupID      string    `json:"group_id"`
	CreatedAt    time.Time `json:"created_at"`

	// Name is the relationship label produced by extraction (e.g. WORKS_AT).
	Name string `json:"name,omitempty"`
	// Fact is the natural-language statement the edge was extracted from.
	Fact string `json:"fact,omitempty"`

	// Temporal validity bounds. A nil ValidAt means the start of validity
	// is unknown; a nil InvalidAt means the fact has not been superseded.
	ValidAt   *time.Time `json:"valid_at,omitempty"`
	InvalidAt *time.Time `json:"invalid_at,omitempty"`

	FactEmbedding []float32 `json:"fact_embedding,omitempty"`
}

// Validate checks if the Edge has all required fields set.
func (e *Edge) Validate() error {
	if e.Uuid == "" {
		return ErrEmptyUUID
	}
	if e.GroupID == "" {
		return ErrEmptyGroupID
	}
	return nil
}

// Episode represents one unit of text submitted for extraction.
type Episode struct {
	Name              string
	Content           string
	SourceDescription string
	Reference         time.Time
	GroupID           string
}

// Validate checks if the Episode has all required fields set.
func (e *Episode) Validate() error {
	if e.Content == "" {
		return ErrEmptyContent
	}
	if e.GroupID == "" {
		return ErrEmptyGroupID
	}
	return nil
}

// AddEpisodeResults represents the outcome of processing a single episode.
type AddEpisodeResults struct {
	// Nodes are the entity nodes that were extracted or updated.
	Nodes []*Node `json:"nodes"`
	// Edges are the entity relationships that were extracted or updated.
	Edges []*Edge `json:"edges"`
}

// Message represents a chat message exchanged with a language model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response holds a language model completion.
type Response struct {
	Content      string      `json:"content"`
	Model        string      `json:"model,omitempty"`
	FinishReason string      `json:"finish_reason,omitempty"`
	TokensUsed   *TokenUsage `json:"tokens_used,omitempty"`
}

// TokenUsage tracks token consumption for a completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
