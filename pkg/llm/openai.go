package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/mindflow-live/mindflow/pkg/types"
)

const defaultOpenAIModel = "gpt-4.1-mini"

// OpenAIClient implements the Client interface for OpenAI and
// OpenAI-compatible endpoints.
type OpenAIClient struct {
	client *openai.Client
	config Config
}

// NewOpenAIClient creates a new OpenAI client. An empty BaseURL targets the
// public OpenAI API.
func NewOpenAIClient(apiKey string, config Config) (*OpenAIClient, error) {
	if err := validateBaseURL(config.BaseURL); err != nil {
		return nil, err
	}
	if config.Model == "" {
		config.Model = defaultOpenAIModel
	}
	config.APIKey = apiKey

	clientConfig := openai.DefaultConfig(apiKey)
	if config.BaseURL != "" {
		baseURL := strings.TrimSuffix(config.BaseURL, "/")
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL += "/v1"
		}
		clientConfig.BaseURL = baseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Chat sends messages to the model and returns the completion. Failures are
// terminal; no retry is attempted here.
func (c *OpenAIClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Messages:    c.convertMessages(messages),
		Temperature: c.config.Temperature,
	}
	if c.config.MaxTokens > 0 {
		req.MaxTokens = c.config.MaxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned from API")
	}

	response := &types.Response{
		Content:      resp.Choices[0].Message.Content,
		Model:        resp.Model,
		FinishReason: string(resp.Choices[0].FinishReason),
	}
	if resp.Usage.TotalTokens > 0 {
		response.TokensUsed = &types.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return response, nil
}

// ChatWithStructuredOutput appends the serialized schema to the last message
// and requests a JSON object response.
func (c *OpenAIClient) ChatWithStructuredOutput(ctx context.Context, messages []types.Message, schema interface{}) (*types.Response, error) {
	prepared, err := prepareStructuredMessages(messages, schema)
	if err != nil {
		return nil, err
	}

	req := openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Messages:    c.convertMessages(prepared),
		Temperature: c.config.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	if c.config.MaxTokens > 0 {
		req.MaxTokens = c.config.MaxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned from API")
	}

	return &types.Response{
		Content:      resp.Choices[0].Message.Content,
		Model:        resp.Model,
		FinishReason: string(resp.Choices[0].FinishReason),
	}, nil
}

// Close releases any resources held by the client.
func (c *OpenAIClient) Close() error {
	return nil
}

func (c *OpenAIClient) convertMessages(messages []types.Message) []openai.ChatCompletionMessage {
	converted := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		content := cleanInput(m.Content)
		switch m.Role {
		case RoleUser:
			converted = append(converted, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: content})
		case RoleSystem:
			converted = append(converted, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: content})
		case RoleAssistant:
			converted = append(converted, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content})
		}
	}
	return converted
}

func prepareStructuredMessages(messages []types.Message, schema interface{}) ([]types.Message, error) {
	prepared := make([]types.Message, len(messages))
	copy(prepared, messages)

	if schema != nil && len(prepared) > 0 {
		schemaBytes, err := json.Marshal(schema)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize response model: %w", err)
		}
		lastIdx := len(prepared) - 1
		prepared[lastIdx].Content += fmt.Sprintf(
			"\n\nRespond with a JSON object in the following format:\n\n%s",
			string(schemaBytes),
		)
	}

	return prepared, nil
}
