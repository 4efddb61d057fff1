package llm

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mindflow-live/mindflow/pkg/types"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Client is the interface all language model clients implement.
type Client interface {
	// Chat sends messages to the model and returns the completion.
	Chat(ctx context.Context, messages []types.Message) (*types.Response, error)

	// ChatWithStructuredOutput requests a completion constrained to the
	// JSON shape of schema.
	ChatWithStructuredOutput(ctx context.Context, messages []types.Message, schema interface{}) (*types.Response, error)

	// Close releases any resources held by the client.
	Close() error
}

// Config holds configuration for language model clients.
type Config struct {
	APIKey      string
	Model       string
	SmallModel  string
	BaseURL     string
	Temperature float32
	MaxTokens   int
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) types.Message {
	return types.Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) types.Message {
	return types.Message{Role: RoleUser, Content: content}
}

// validateBaseURL checks that a custom endpoint is a usable http(s) URL.
func validateBaseURL(baseURL string) error {
	if baseURL == "" {
		return nil
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" {
		return fmt.Errorf("baseURL must include scheme: %s", baseURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("baseURL must use http:// or https:// scheme: %s", baseURL)
	}
	return nil
}

// cleanInput strips invisible unicode and control characters that some
// providers reject.
func cleanInput(input string) string {
	zeroWidthChars := []string{"\u200b", "\u200c", "\u200d", "\ufeff", "\u2060"}
	cleaned := input
	for _, char := range zeroWidthChars {
		cleaned = strings.ReplaceAll(cleaned, char, "")
	}

	var builder strings.Builder
	for _, r := range cleaned {
		if r >= 32 || r == '\n' || r == '\r' || r == '\t' {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}
