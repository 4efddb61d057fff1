package mindflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mindflow-live/mindflow/pkg/crossencoder"
	"github.com/mindflow-live/mindflow/pkg/embedder"
	"github.com/mindflow-live/mindflow/pkg/llm"
)

// Provider identifies an LLM vendor a caller can bring a key for.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Fixed model assignments per provider. Callers choose a vendor, not a model.
const (
	openAIModel      = "gpt-4.1-mini"
	openAISmallModel = "gpt-4.1-nano"
	anthropicModel   = "claude-haiku-4-5-20251001"
)

// ErrProviderUnavailable marks a provider whose client support is not built
// into this binary. Distinct from a missing credential: the caller picked a
// vendor this deployment cannot serve.
var ErrProviderUnavailable = errors.New("provider support not built in")

// normalizeProvider maps the caller's provider string to a known Provider.
// Anything that is not "anthropic" is treated as OpenAI, so typos degrade to
// the default vendor instead of failing the request.
func normalizeProvider(provider string) Provider {
	if strings.EqualFold(strings.TrimSpace(provider), string(ProviderAnthropic)) {
		return ProviderAnthropic
	}
	return ProviderOpenAI
}

// clientSet bundles the per-request model clients the engine needs.
type clientSet struct {
	llm      llm.Client
	embedder embedder.Client
	reranker crossencoder.Client
}

// llmFactory constructs a provider's chat client from a caller credential.
type llmFactory func(apiKey string, cfg llm.Config) (llm.Client, error)

// llmFactories is the capability table: a provider missing here yields
// ErrProviderUnavailable rather than a credential error.
var llmFactories = map[Provider]llmFactory{
	ProviderOpenAI: func(apiKey string, cfg llm.Config) (llm.Client, error) {
		cfg.Model = openAIModel
		cfg.SmallModel = openAISmallModel
		return llm.NewOpenAIClient(apiKey, cfg)
	},
	ProviderAnthropic: func(apiKey string, cfg llm.Config) (llm.Client, error) {
		cfg.Model = anthropicModel
		return llm.NewAnthropicClient(apiKey, cfg)
	},
}

// resolveEmbedderKey picks the OpenAI credential used for embeddings and
// reranking. Order: an OpenAI LLM key is reused directly, then the caller's
// explicit embedding key, then the server-side fallback key.
func (s *Service) resolveEmbedderKey(provider Provider, llmKey, embedderKey string) (string, error) {
	if provider == ProviderOpenAI && llmKey != "" {
		return llmKey, nil
	}
	if embedderKey != "" {
		return embedderKey, nil
	}
	if s.fallbackEmbedderKey != "" {
		return s.fallbackEmbedderKey, nil
	}
	return "", NewClientError("no embedding credential available: provide an OpenAI embedding key or configure a server fallback", nil)
}

// buildClients assembles the per-request model clients from the caller's
// credentials. The LLM key selects and authenticates the chat vendor; the
// resolved embedding key always drives embeddings and reranking. All
// credentials are resolved before any client is constructed, so a
// configuration error never leaves a half-built client set behind.
func (s *Service) buildClients(providerName, llmKey, embedderKey string) (*clientSet, error) {
	if llmKey == "" {
		return nil, NewClientError("api_key is required", nil)
	}
	provider := normalizeProvider(providerName)

	factory, ok := llmFactories[provider]
	if !ok {
		return nil, NewClientError(fmt.Sprintf("provider %q cannot be served", provider), ErrProviderUnavailable)
	}

	embedderKeyResolved, err := s.resolveEmbedderKey(provider, llmKey, embedderKey)
	if err != nil {
		return nil, err
	}

	llmClient, err := factory(llmKey, llm.Config{Temperature: 0})
	if err != nil {
		return nil, NewClientError("invalid LLM configuration", err)
	}
	if cb := s.breakers[provider]; cb != nil {
		llmClient = llm.NewCircuitBreakerClient(llmClient, cb)
	}
	embedderClient := embedder.NewOpenAIClient(embedderKeyResolved, embedder.Config{Model: s.embedderModel})

	rerankerLLM, err := llm.NewOpenAIClient(embedderKeyResolved, llm.Config{Model: openAISmallModel, Temperature: 0})
	if err != nil {
		return nil, NewClientError("invalid reranker configuration", err)
	}
	reranker := crossencoder.NewOpenAIRerankerClient(rerankerLLM, crossencoder.Config{Model: openAISmallModel})

	return &clientSet{llm: llmClient, embedder: embedderClient, reranker: reranker}, nil
}
