// Package tui renders conversation transcripts for the terminal.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/parleyhq/parley/pkg/domain"
)

// NewRenderer returns a function that renders markdown using glamour,
// auto-detecting the terminal background.
func NewRenderer() func(string) (string, error) {
	r, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
	)
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// TranscriptMarkdown formats one processed turn as markdown for replay
// output: the user line, fixed utterances, the model reply and the call
// trail.
func TranscriptMarkdown(userText string, result *domain.TurnResult) string {
	var b strings.Builder

	if userText != "" {
		fmt.Fprintf(&b, "> **Caller:** %s\n\n", userText)
	}
	for _, u := range result.Utterances {
		fmt.Fprintf(&b, "**Assistant:** %s\n\n", u)
	}
	if result.Reply != "" {
		fmt.Fprintf(&b, "**Assistant:** %s\n\n", result.Reply)
	}

	if len(result.Calls) > 0 {
		b.WriteString("| function | outcome |\n|---|---|\n")
		for _, c := range result.Calls {
			fmt.Fprintf(&b, "| `%s` | %s |\n", c.Function, callOutcome(c))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "*node: `%s`*", result.Node)
	if result.Escalated {
		fmt.Fprintf(&b, ", **escalated (%s)**", result.EscalationCategory)
	}
	b.WriteString("\n")
	return b.String()
}

func callOutcome(c domain.CallRecord) string {
	switch {
	case c.Violation:
		return "violation"
	case c.Success:
		return "ok"
	case c.Ignored:
		return "ignored"
	default:
		return "failed"
	}
}
