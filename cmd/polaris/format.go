package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/harunnryd/polaris/internal/activity"
	"github.com/harunnryd/polaris/internal/chat"
	"github.com/harunnryd/polaris/internal/tool"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
)

type formatter struct {
	headerStyle  lipgloss.Style
	oddRowStyle  lipgloss.Style
	evenRowStyle lipgloss.Style
	borderStyle  lipgloss.Style
	labelStyle   lipgloss.Style
	replyStyle   lipgloss.Style
	mutedStyle   lipgloss.Style
	warnStyle    lipgloss.Style
}

func newFormatter() *formatter {
	purple := lipgloss.Color("99")
	gray := lipgloss.Color("245")
	lightGray := lipgloss.Color("241")
	amber := lipgloss.Color("214")

	return &formatter{
		headerStyle: lipgloss.NewStyle().
			Foreground(purple).
			Bold(true).
			Align(lipgloss.Center).
			Padding(0, 1),
		oddRowStyle: lipgloss.NewStyle().
			Foreground(gray).
			Padding(0, 1),
		evenRowStyle: lipgloss.NewStyle().
			Foreground(lightGray).
			Padding(0, 1),
		borderStyle: lipgloss.NewStyle().
			Foreground(purple),
		labelStyle: lipgloss.NewStyle().
			Foreground(purple).
			Bold(true),
		replyStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(purple).
			Padding(0, 1),
		mutedStyle: lipgloss.NewStyle().
			Foreground(gray),
		warnStyle: lipgloss.NewStyle().
			Foreground(amber),
	}
}

func (f *formatter) newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return f.headerStyle
			case row%2 == 0:
				return f.evenRowStyle
			default:
				return f.oddRowStyle
			}
		}).
		Headers(headers...)
}

func (f *formatter) FormatActivity(entries []activity.Entry) string {
	if len(entries) == 0 {
		return "No activity recorded yet."
	}

	t := f.newTable("When", "Session", "Summary", "Tools")
	for _, e := range entries {
		summary := e.Summary
		if e.Truncated {
			summary += " (truncated)"
		}
		t.Row(
			e.CreatedAt.Local().Format(time.DateTime),
			truncateString(e.SessionID, 26),
			truncateString(summary, 60),
			truncateString(strings.Join(e.ToolsUsed, ", "), 40),
		)
	}
	return t.String()
}

func (f *formatter) FormatTools(descriptors []tool.ToolDescriptor) string {
	if len(descriptors) == 0 {
		return "No tools registered."
	}

	t := f.newTable("Name", "Risk", "Description")
	for _, d := range descriptors {
		t.Row(d.Definition.Name, string(d.Metadata.Risk), truncateString(d.Definition.Description, 70))
	}
	return t.String()
}

func (f *formatter) FormatReply(resp *chat.Response) string {
	var b strings.Builder
	b.WriteString(f.replyStyle.Render(resp.Reply))
	b.WriteString("\n")

	tools := "none"
	if len(resp.ToolsUsed) > 0 {
		tools = strings.Join(resp.ToolsUsed, ", ")
	}
	fmt.Fprintf(&b, "%s %s\n", f.labelStyle.Render("Tools:"), f.mutedStyle.Render(tools))
	if resp.Summary != "" {
		fmt.Fprintf(&b, "%s %s\n", f.labelStyle.Render("Summary:"), f.mutedStyle.Render(resp.Summary))
	}
	if resp.Truncated {
		b.WriteString(f.warnStyle.Render("Stopped at the tool-call limit; the answer may be incomplete."))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%s %s\n", f.labelStyle.Render("Session:"), f.mutedStyle.Render(resp.SessionID))
	return b.String()
}

func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
