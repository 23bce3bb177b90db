package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kbchat/pkg/config"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const dimensionProbeText = "dimension probe"

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint. Query and
// document texts get their configured prefixes, which instruction-tuned
// models (nomic, e5, bge) expect.
type OpenAIEmbedder struct {
	client         *openai.Client
	model          string
	queryPrefix    string
	documentPrefix string
	timeout        time.Duration
	dimension      int
	logger         *zap.Logger
}

func NewOpenAIEmbedder(cfg *config.EmbeddingConfig, logger *zap.Logger) *OpenAIEmbedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return &OpenAIEmbedder{
		client:         openai.NewClientWithConfig(clientCfg),
		model:          cfg.Model,
		queryPrefix:    cfg.QueryPrefix,
		documentPrefix: cfg.DocumentPrefix,
		timeout:        cfg.Timeout,
		logger:         logger,
	}
}

// NewOpenAIEmbedderFactory returns a factory that builds the embedder and
// probes the model once to pin the vector dimension for the process.
func NewOpenAIEmbedderFactory(cfg *config.EmbeddingConfig, logger *zap.Logger) EmbedderFactory {
	return func(ctx context.Context) (Embedder, error) {
		embedder := NewOpenAIEmbedder(cfg, logger)
		if err := embedder.Probe(ctx); err != nil {
			return nil, err
		}
		return embedder, nil
	}
}

// Probe embeds a fixed text and records the returned dimension. Later
// vectors of a different length are rejected.
func (e *OpenAIEmbedder) Probe(ctx context.Context) error {
	vec, err := e.Embed(ctx, dimensionProbeText, PurposeDocument)
	if err != nil {
		return fmt.Errorf("failed to probe embedding model: %w", err)
	}
	e.dimension = len(vec)
	e.logger.Info("Embedding model ready",
		zap.String("model", e.model),
		zap.Int("dimension", e.dimension),
	)
	return nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string, purpose EmbeddingPurpose) ([]float32, error) {
	var prefix string
	switch purpose {
	case PurposeQuery:
		prefix = e.queryPrefix
	case PurposeDocument:
		prefix = e.documentPrefix
	default:
		return nil, fmt.Errorf("unknown embedding purpose %q", purpose)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{prefix + text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding in response")
	}

	vec := resp.Data[0].Embedding
	if e.dimension > 0 && len(vec) != e.dimension {
		return nil, fmt.Errorf("embedding dimension %d does not match model dimension %d", len(vec), e.dimension)
	}
	return vec, nil
}

// OpenAICompleter sends a single user message to an OpenAI-compatible chat
// completions endpoint.
type OpenAICompleter struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	logger      *zap.Logger
}

func NewOpenAICompleter(cfg *config.LLMConfig, logger *zap.Logger) *OpenAICompleter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.APIKey == "" {
		logger.Warn("LLM API key is empty; completion requests will likely be rejected")
	}

	return &OpenAICompleter{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		logger:      logger,
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.logger.Debug("Calling completion API", zap.String("model", c.model))
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from LLM")
	}

	return resp.Choices[0].Message.Content, nil
}
