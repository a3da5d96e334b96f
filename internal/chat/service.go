// Package chat runs one assistant turn: the bounded tool-calling loop, the
// summary pass and the commit of the turn to the session transcript.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/harunnryd/polaris/internal/activity"
	"github.com/harunnryd/polaris/internal/concurrency"
	"github.com/harunnryd/polaris/internal/config"
	polarisErrors "github.com/harunnryd/polaris/internal/errors"
	"github.com/harunnryd/polaris/internal/logger"
	"github.com/harunnryd/polaris/internal/model"
	"github.com/harunnryd/polaris/internal/model/contract"
	"github.com/harunnryd/polaris/internal/session"

	"golang.org/x/sync/semaphore"
)

type Request struct {
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message"`
}

type Response struct {
	SessionID string   `json:"sessionId"`
	Reply     string   `json:"reply"`
	Summary   string   `json:"summary"`
	ToolsUsed []string `json:"toolsUsed"`
	Truncated bool     `json:"truncated"`
}

// ToolRunner executes model tool calls against the registry.
type ToolRunner interface {
	Definitions() []contract.ToolDef
	Execute(ctx context.Context, call *contract.ToolCall) (string, error)
}

// Recorder receives a feed entry for every completed turn.
type Recorder interface {
	Record(ctx context.Context, entry activity.Entry) error
}

type Options struct {
	Model              string
	SummaryModel       string
	Temperature        float64
	MaxIterations      int
	MaxConcurrentTurns int
	FallbackReply      string
	SystemPrompt       string
	SummaryPrompt      string
	SummaryEnabled     bool
	Credentials        []config.Credential
}

// OptionsFromConfig maps the loaded configuration onto service options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Model:              cfg.LLM.Model,
		SummaryModel:       cfg.LLM.SummaryModel,
		Temperature:        cfg.LLM.Temperature,
		MaxIterations:      cfg.Chat.MaxIterations,
		MaxConcurrentTurns: cfg.Chat.MaxConcurrentTurns,
		FallbackReply:      cfg.Chat.FallbackReply,
		SystemPrompt:       cfg.Prompts.System,
		SummaryPrompt:      cfg.Prompts.Summary,
		SummaryEnabled:     cfg.Chat.SummaryEnabled,
		Credentials:        cfg.Credentials(),
	}
}

type Service struct {
	provider model.Provider
	tools    ToolRunner
	store    session.Store
	recorder Recorder
	opts     Options

	locks *concurrency.SessionLockManager
	turns *semaphore.Weighted
}

// NewService wires the loop. recorder may be nil.
func NewService(provider model.Provider, tools ToolRunner, store session.Store, recorder Recorder, opts Options) *Service {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = config.DefaultChatMaxIterations
	}
	if opts.MaxConcurrentTurns <= 0 {
		opts.MaxConcurrentTurns = config.DefaultChatMaxConcurrent
	}
	if opts.FallbackReply == "" {
		opts.FallbackReply = config.DefaultChatFallbackReply
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = config.DefaultSystemPrompt
	}
	if opts.SummaryPrompt == "" {
		opts.SummaryPrompt = config.DefaultSummaryPrompt
	}
	if opts.SummaryModel == "" {
		opts.SummaryModel = opts.Model
	}

	return &Service{
		provider: provider,
		tools:    tools,
		store:    store,
		recorder: recorder,
		opts:     opts,
		locks:    concurrency.NewSessionLockManager(),
		turns:    semaphore.NewWeighted(int64(opts.MaxConcurrentTurns)),
	}
}

// HandleTurn runs one user turn. The transcript is only updated when the turn
// succeeds, so a failed turn leaves the session exactly as it was.
func (s *Service) HandleTurn(ctx context.Context, req Request) (*Response, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, polarisErrors.InvalidInput("Message is required.")
	}

	sessionID, err := session.ResolveID(req.SessionID)
	if err != nil {
		return nil, err
	}
	ctx = logger.WithSessionID(ctx, sessionID)

	if err := config.ValidateCredentials(s.opts.Credentials); err != nil {
		slog.Error("Chat turn rejected", append(logger.Attrs(ctx), "error", err)...)
		return nil, err
	}

	if err := s.turns.Acquire(ctx, 1); err != nil {
		return nil, polarisErrors.Wrap(err, "wait for turn slot")
	}
	defer s.turns.Release(1)

	if err := s.locks.Lock(ctx, sessionID); err != nil {
		return nil, polarisErrors.Wrap(err, "wait for session")
	}
	defer s.locks.Unlock(sessionID)

	start := time.Now()
	slog.Info("Chat turn started", logger.Attrs(ctx)...)

	transcript, _, err := session.GetOrCreate(ctx, s.store, sessionID, s.opts.SystemPrompt)
	if err != nil {
		return nil, polarisErrors.Wrap(err, "load session")
	}

	transcript = append(transcript, contract.Message{Role: contract.RoleUser, Content: message})

	result, err := s.runLoop(ctx, transcript)
	if err != nil {
		slog.Error("Chat turn failed", append(logger.Attrs(ctx), "error", err, "category", polarisErrors.Category(err), "duration", time.Since(start))...)
		return nil, err
	}

	// The whole transcript is written back so an entry evicted or expired
	// during the turn is restored with its system prompt.
	if err := s.store.Replace(ctx, sessionID, result.transcript...); err != nil {
		return nil, polarisErrors.Wrap(err, "save session")
	}

	reply := result.reply
	if strings.TrimSpace(reply) == "" {
		reply = s.opts.FallbackReply
	}

	summary := s.summarize(ctx, message, reply, result.toolsUsed)

	resp := &Response{
		SessionID: sessionID,
		Reply:     reply,
		Summary:   summary,
		ToolsUsed: result.toolsUsed,
		Truncated: result.truncated,
	}
	s.record(ctx, resp)

	slog.Info("Chat turn completed", append(logger.Attrs(ctx),
		"iterations", result.iterations,
		"tools_used", len(result.toolsUsed),
		"truncated", result.truncated,
		"duration", time.Since(start),
	)...)
	return resp, nil
}

// Clear drops a session transcript. It waits for an in-flight turn on the
// same session so the turn cannot write back over the reset.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if err := s.locks.Lock(ctx, sessionID); err != nil {
		return polarisErrors.Wrap(err, "wait for session")
	}
	defer s.locks.Unlock(sessionID)

	return s.store.Clear(ctx, sessionID)
}

type loopResult struct {
	transcript []contract.Message
	reply      string
	toolsUsed  []string
	iterations int
	truncated  bool
}

// runLoop calls the model until it answers without tool calls or the
// iteration cap is reached. Tool calls run sequentially in model order.
func (s *Service) runLoop(ctx context.Context, transcript []contract.Message) (*loopResult, error) {
	result := &loopResult{toolsUsed: []string{}, truncated: true}
	defs := s.tools.Definitions()

	for result.iterations < s.opts.MaxIterations {
		result.iterations++

		resp, err := s.provider.Generate(ctx, contract.CompletionRequest{
			Model:       s.opts.Model,
			Temperature: s.opts.Temperature,
			Messages:    transcript,
			Tools:       defs,
		})
		if err != nil {
			return nil, err
		}

		if len(resp.ToolCalls) == 0 {
			transcript = append(transcript, contract.Message{Role: contract.RoleAssistant, Content: resp.Content})
			result.reply = resp.Content
			result.truncated = false
			break
		}

		calls := normalizeToolCalls(resp.ToolCalls, result.iterations)
		transcript = append(transcript, contract.Message{Role: contract.RoleAssistant, Content: resp.Content, ToolCalls: calls})
		result.reply = resp.Content

		for _, call := range calls {
			output, err := s.tools.Execute(ctx, call)
			if err != nil {
				return nil, err
			}
			transcript = append(transcript, contract.Message{
				Role:       contract.RoleTool,
				Name:       call.Name,
				ToolCallID: call.ID,
				Content:    output,
			})
			result.toolsUsed = append(result.toolsUsed, call.Name)
		}
	}

	if result.truncated {
		slog.Warn("Iteration limit reached while the model was still calling tools", append(logger.Attrs(ctx), "max_iterations", s.opts.MaxIterations)...)
	}

	result.transcript = transcript
	return result, nil
}

// normalizeToolCalls copies the calls and fills in ids a provider left blank so
// every tool message can be keyed to its call.
func normalizeToolCalls(calls []*contract.ToolCall, iteration int) []*contract.ToolCall {
	out := make([]*contract.ToolCall, 0, len(calls))
	for i, tc := range calls {
		if tc == nil {
			continue
		}
		c := *tc
		if strings.TrimSpace(c.ID) == "" {
			c.ID = fmt.Sprintf("call_%d_%d", iteration, i+1)
		}
		out = append(out, &c)
	}
	return out
}

func (s *Service) record(ctx context.Context, resp *Response) {
	if s.recorder == nil || resp.Summary == "" {
		return
	}

	err := s.recorder.Record(ctx, activity.Entry{
		SessionID: resp.SessionID,
		Summary:   resp.Summary,
		ToolsUsed: append([]string(nil), resp.ToolsUsed...),
		Truncated: resp.Truncated,
	})
	if err != nil {
		slog.Warn("Failed to record activity", append(logger.Attrs(ctx), "error", err)...)
	}
}
