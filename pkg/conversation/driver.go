// Package conversation runs the tool-calling round trips against a chat
// client: an initial request, local execution of any requested tools, and a
// follow-up request carrying their results.
package conversation

import (
	"context"
	"fmt"
	"log/slog"

	"GoToolCall/pkg/client"
	"GoToolCall/pkg/logging"
	"GoToolCall/pkg/tools"
	"GoToolCall/pkg/types"
)

// ChatClient is the part of client.Client the driver needs.
type ChatClient interface {
	Chat(ctx context.Context, messages []types.Message, tools []types.Tool) (*types.ChatResponse, error)
	StreamChat(ctx context.Context, messages []types.Message, tools []types.Tool, handler client.StreamHandler) (types.Message, error)
}

// Reporter receives progress as the conversation runs. Content is called
// once per response in buffered mode and once per fragment when streaming.
type Reporter interface {
	Status(message string)
	Content(text string)
	ToolCall(call types.ToolCall)
	ToolResult(call types.ToolCall, result string)
	Warning(err error)
}

// Result summarizes a finished conversation
type Result struct {
	// Final is the text of the last assistant message.
	Final     string
	ToolCalls []types.ToolCall
	Rounds    int
}

// Driver runs one prompt through the model, executing any tool calls and
// sending their results back for a final answer.
type Driver struct {
	client   ChatClient
	executor *tools.Executor
	tools    []types.Tool
	reporter Reporter
	logger   *slog.Logger
	messages []types.Message
}

// Option configures a Driver
type Option func(*Driver)

// WithTools replaces the default tool catalog sent with every request.
func WithTools(list []types.Tool) Option {
	return func(d *Driver) { d.tools = list }
}

// WithReporter sets where progress is reported. Nil is ignored.
func WithReporter(r Reporter) Option {
	return func(d *Driver) {
		if r != nil {
			d.reporter = r
		}
	}
}

// WithLogger sets the driver logger. Nil is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New returns a driver sending the default tool catalog through c.
func New(c ChatClient, executor *tools.Executor, opts ...Option) *Driver {
	d := &Driver{
		client:   c,
		executor: executor,
		tools:    tools.Catalog(),
		reporter: nopReporter{},
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.executor == nil {
		d.executor = tools.NewExecutor(d.logger)
	}
	d.logger = d.logger.With("component", "conversation")
	return d
}

// Run starts a new conversation from prompt. When the first reply requests
// tools they are executed in order and a second request produces the final
// answer; otherwise the first reply is final.
func (d *Driver) Run(ctx context.Context, prompt string, streaming bool) (Result, error) {
	d.messages = []types.Message{{Role: types.RoleUser, Content: prompt}}

	d.reporter.Status("Sending request")
	first, err := d.send(ctx, streaming)
	if err != nil {
		return Result{}, err
	}
	if len(first.ToolCalls) == 0 {
		d.messages = append(d.messages, first)
		return Result{Final: first.Content, Rounds: 1}, nil
	}

	d.messages = append(d.messages, first)
	for _, call := range first.ToolCalls {
		d.reporter.ToolCall(call)
		result := d.executor.ExecuteCall(call)
		d.logger.Debug("conversation.tool_executed", "name", call.Function.Name, "id", call.ID)
		d.reporter.ToolResult(call, result)
		d.messages = append(d.messages, types.Message{
			Role:       types.RoleTool,
			Content:    result,
			ToolCallID: call.ID,
		})
	}

	d.reporter.Status("Getting follow-up response with tool results")
	followup, err := d.send(ctx, streaming)
	if err != nil {
		return Result{}, err
	}
	d.messages = append(d.messages, followup)
	return Result{Final: followup.Content, ToolCalls: first.ToolCalls, Rounds: 2}, nil
}

// Messages returns a copy of the conversation so far.
func (d *Driver) Messages() []types.Message {
	out := make([]types.Message, len(d.messages))
	copy(out, d.messages)
	return out
}

func (d *Driver) send(ctx context.Context, streaming bool) (types.Message, error) {
	if streaming {
		msg, err := d.client.StreamChat(ctx, d.messages, d.tools, streamHandler{d.reporter})
		if err != nil {
			return types.Message{}, fmt.Errorf("streaming request failed: %w", err)
		}
		return msg, nil
	}
	resp, err := d.client.Chat(ctx, d.messages, d.tools)
	if err != nil {
		return types.Message{}, fmt.Errorf("request failed: %w", err)
	}
	msg, err := client.FirstMessage(resp)
	if err != nil {
		return types.Message{}, err
	}
	if msg.Role == "" {
		msg.Role = types.RoleAssistant
	}
	d.reporter.Content(msg.Content)
	return msg, nil
}

type streamHandler struct {
	reporter Reporter
}

func (h streamHandler) OnContent(content string) { h.reporter.Content(content) }
func (h streamHandler) OnError(err error)        { h.reporter.Warning(err) }
func (h streamHandler) OnComplete()              {}

type nopReporter struct{}

func (nopReporter) Status(string)                     {}
func (nopReporter) Content(string)                    {}
func (nopReporter) ToolCall(types.ToolCall)           {}
func (nopReporter) ToolResult(types.ToolCall, string) {}
func (nopReporter) Warning(error)                     {}
