package model

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/harunnryd/polaris/internal/config"
	polarisErrors "github.com/harunnryd/polaris/internal/errors"
	"github.com/harunnryd/polaris/internal/logger"
	"github.com/harunnryd/polaris/internal/model/contract"
	anthropicProvider "github.com/harunnryd/polaris/internal/model/providers/anthropic"
	geminiProvider "github.com/harunnryd/polaris/internal/model/providers/gemini"
	openaiProvider "github.com/harunnryd/polaris/internal/model/providers/openai"
)

// NewProvider builds the completion backend selected by llm.provider.
func NewProvider(ctx context.Context, cfg config.LLMConfig) (Provider, error) {
	timeout, err := config.DurationOrDefault(cfg.RequestTimeout, config.DefaultLLMRequestTimeout)
	if err != nil {
		return nil, polarisErrors.Wrap(err, "llm.request_timeout")
	}

	var provider Provider
	switch cfg.Provider {
	case "", config.ProviderOpenAI:
		provider = openaiProvider.New(cfg.APIKey, cfg.BaseURL, timeout)
	case config.ProviderAnthropic:
		provider = anthropicProvider.New(cfg.APIKey, cfg.BaseURL, timeout)
	case config.ProviderGemini:
		p, err := geminiProvider.New(ctx, cfg.APIKey, cfg.BaseURL, timeout)
		if err != nil {
			return nil, polarisErrors.Wrap(err, "create gemini client")
		}
		provider = p
	default:
		return nil, polarisErrors.Configuration(fmt.Sprintf("Unsupported LLM provider: %s.", cfg.Provider))
	}

	slog.Info("LLM provider initialized", "provider", provider.Name(), "model", cfg.Model)
	return &loggingProvider{next: provider}, nil
}

// loggingProvider records latency and outcome of every completion call.
type loggingProvider struct {
	next Provider
}

func (p *loggingProvider) Name() string {
	return p.next.Name()
}

func (p *loggingProvider) Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	start := time.Now()
	attrs := append(logger.Attrs(ctx), "provider", p.next.Name(), "model", req.Model, "messages", len(req.Messages))

	resp, err := p.next.Generate(ctx, req)
	if err != nil {
		slog.Error("Completion request failed", append(attrs, "duration", time.Since(start), "error", err)...)
		return nil, err
	}

	slog.Debug("Completion request completed", append(attrs, "duration", time.Since(start), "tool_calls", len(resp.ToolCalls))...)
	return resp, nil
}
