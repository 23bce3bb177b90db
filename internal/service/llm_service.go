package service

import (
	"context"
	"fmt"
	"time"

	"kbchat/pkg/config"

	"github.com/Role1776/gigago"
	"go.uber.org/zap"
)

// gigaChatTemperature is kept low so answers stay close to the context.
const gigaChatTemperature = 0.1

type gigaChatModel interface {
	Generate(ctx context.Context, messages []gigago.Message) (*gigago.CompletionResponse, error)
}

// GigaChatCompleter is the completion collaborator backed by Sber GigaChat.
type GigaChatCompleter struct {
	client  *gigago.Client
	model   gigaChatModel
	timeout time.Duration
	logger  *zap.Logger
}

func NewGigaChatCompleter(ctx context.Context, cfg *config.GigaChatConfig, logger *zap.Logger) (*GigaChatCompleter, error) {
	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.Scope),
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.Temperature = gigaChatTemperature

	logger.Info("Using GigaChat model", zap.String("model", cfg.Model))

	return &GigaChatCompleter{
		client:  client,
		model:   model,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

func (g *GigaChatCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	messages := []gigago.Message{
		{Role: gigago.RoleUser, Content: prompt},
	}

	resp, err := g.model.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from LLM")
	}

	return resp.Choices[0].Message.Content, nil
}

func (g *GigaChatCompleter) Close() error {
	if g.client != nil {
		g.client.Close()
	}
	return nil
}
