// Package dto defines the request and response bodies of the HTTP API.
package dto

import (
	"errors"
	"strings"
)

// Validation errors
var (
	ErrEmptySessionID = errors.New("session_id cannot be empty")
	ErrEmptyText      = errors.New("text cannot be empty")
	ErrEmptyQuery     = errors.New("query cannot be empty")
	ErrMissingAPIKey  = errors.New("llm_api_key is required")
	ErrTextTooLong    = errors.New("text exceeds maximum length (1MB)")
)

// MaxTextLength bounds a single transcript chunk to prevent abuse
const MaxTextLength = 1024 * 1024

// IngestRequest represents a request to ingest one chunk of transcript text.
// Credentials ride on the request body; the server never stores them.
type IngestRequest struct {
	SessionID    string `json:"session_id" binding:"required"`
	Text         string `json:"text"`
	LLMProvider  string `json:"llm_provider"`
	LLMAPIKey    string `json:"llm_api_key"`
	OpenAIAPIKey string `json:"openai_api_key,omitempty"`
	Timestamp    string `json:"timestamp,omitempty"`
}

// Validate performs validation on IngestRequest
func (r *IngestRequest) Validate() error {
	if strings.TrimSpace(r.SessionID) == "" {
		return ErrEmptySessionID
	}
	if strings.TrimSpace(r.Text) == "" {
		return ErrEmptyText
	}
	if len(r.Text) > MaxTextLength {
		return ErrTextTooLong
	}
	if strings.TrimSpace(r.LLMAPIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// SearchRequest represents a request to search one session's facts.
type SearchRequest struct {
	SessionID    string `json:"session_id" binding:"required"`
	Query        string `json:"query"`
	LLMProvider  string `json:"llm_provider"`
	LLMAPIKey    string `json:"llm_api_key"`
	OpenAIAPIKey string `json:"openai_api_key,omitempty"`
}

// Validate performs validation on SearchRequest
func (r *SearchRequest) Validate() error {
	if strings.TrimSpace(r.SessionID) == "" {
		return ErrEmptySessionID
	}
	if strings.TrimSpace(r.Query) == "" {
		return ErrEmptyQuery
	}
	if strings.TrimSpace(r.LLMAPIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}
