package chat

import (
	"context"
	"log/slog"
	"strings"

	"github.com/harunnryd/polaris/internal/logger"
	"github.com/harunnryd/polaris/internal/model/contract"
)

// summarize condenses the turn into a short activity line. It never fails the
// turn: any error yields an empty summary.
func (s *Service) summarize(ctx context.Context, userMessage, reply string, toolsUsed []string) string {
	if !s.opts.SummaryEnabled {
		return ""
	}

	resp, err := s.provider.Generate(ctx, contract.CompletionRequest{
		Model:       s.opts.SummaryModel,
		Temperature: s.opts.Temperature,
		Messages: []contract.Message{
			{Role: contract.RoleSystem, Content: s.opts.SummaryPrompt},
			{Role: contract.RoleUser, Content: summaryInput(userMessage, reply, toolsUsed)},
		},
	})
	if err != nil {
		slog.Warn("Summary pass failed", append(logger.Attrs(ctx), "error", err)...)
		return ""
	}

	return strings.TrimSpace(resp.Content)
}

func summaryInput(userMessage, reply string, toolsUsed []string) string {
	tools := "none"
	if len(toolsUsed) > 0 {
		tools = strings.Join(toolsUsed, ", ")
	}

	var b strings.Builder
	b.WriteString("User message:\n")
	b.WriteString(userMessage)
	b.WriteString("\n\nAssistant reply:\n")
	b.WriteString(reply)
	b.WriteString("\n\nTools used: ")
	b.WriteString(tools)
	return b.String()
}
