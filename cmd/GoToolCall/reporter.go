package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"GoToolCall/pkg/types"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	toolStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	resultStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	ruleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// consoleReporter prints conversation progress to a terminal
type consoleReporter struct {
	out io.Writer
	// midLine is true while streamed text has been printed without a newline
	midLine bool
}

func newConsoleReporter(out io.Writer) *consoleReporter {
	return &consoleReporter{out: out}
}

func (r *consoleReporter) banner(title string) {
	rule := ruleStyle.Render(strings.Repeat("=", 60))
	fmt.Fprintln(r.out, rule)
	fmt.Fprintln(r.out, titleStyle.Render(title))
	fmt.Fprintln(r.out, rule)
}

func (r *consoleReporter) endLine() {
	if r.midLine {
		fmt.Fprintln(r.out)
		r.midLine = false
	}
}

func (r *consoleReporter) Status(message string) {
	r.endLine()
	fmt.Fprintln(r.out, statusStyle.Render("» "+message))
}

func (r *consoleReporter) Content(text string) {
	if text == "" {
		return
	}
	fmt.Fprint(r.out, text)
	r.midLine = !strings.HasSuffix(text, "\n")
}

func (r *consoleReporter) ToolCall(call types.ToolCall) {
	r.endLine()
	fmt.Fprintln(r.out, toolStyle.Render(fmt.Sprintf("Executing tool: %s with args: %s", call.Function.Name, call.Function.Arguments)))
}

func (r *consoleReporter) ToolResult(call types.ToolCall, result string) {
	fmt.Fprintln(r.out, resultStyle.Render("Tool result: "+result))
}

func (r *consoleReporter) Warning(err error) {
	r.endLine()
	fmt.Fprintln(r.out, warningStyle.Render("warning: "+err.Error()))
}
