package tools

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"GoToolCall/pkg/logging"
	"GoToolCall/pkg/types"
)

// Handler answers one tool call. Failures are reported in the returned text.
type Handler func(args map[string]any) string

// Executor dispatches tool calls by name to a fixed set of handlers.
type Executor struct {
	handlers map[string]Handler
	logger   *slog.Logger
	unknown  int
}

// NewExecutor returns an executor with the weather and calculator handlers
// registered. A nil logger discards diagnostics.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Executor{
		handlers: map[string]Handler{
			WeatherToolName:    weather,
			CalculatorToolName: calculate,
		},
		logger: logger.With("component", "tools"),
	}
}

// Execute runs the named tool. It never fails: unknown tools and bad input
// come back as descriptive strings.
func (e *Executor) Execute(name string, args map[string]any) string {
	handler, ok := e.handlers[name]
	if !ok {
		e.unknown++
		e.logger.Warn("tools.unknown_tool", "name", name, "count", e.unknown)
		return fmt.Sprintf("Unknown tool: %s", name)
	}
	if args == nil {
		args = map[string]any{}
	}
	result := handler(args)
	e.logger.Debug("tools.executed", "name", name, "result", result)
	return result
}

// ExecuteCall decodes the call's JSON arguments and runs it.
func (e *Executor) ExecuteCall(call types.ToolCall) string {
	args, err := DecodeArguments(call.Function.Arguments)
	if err != nil {
		e.logger.Warn("tools.bad_arguments", "name", call.Function.Name, "id", call.ID, "error", err.Error())
		return fmt.Sprintf("Error parsing arguments for %s: %v", call.Function.Name, err)
	}
	return e.Execute(call.Function.Name, args)
}

// UnknownCalls reports how many calls named a tool with no handler.
func (e *Executor) UnknownCalls() int {
	return e.unknown
}

// DecodeArguments parses a tool call's argument string. Blank input is an
// empty argument set.
func DecodeArguments(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func weather(args map[string]any) string {
	location := stringArg(args, "location", "Unknown")
	unit := stringArg(args, "unit", UnitCelsius)
	symbol := "F"
	if unit == UnitCelsius {
		symbol = "C"
	}
	return fmt.Sprintf("The weather in %s is 22°%s and sunny.", location, symbol)
}

func calculate(args map[string]any) string {
	expression := stringArg(args, "expression", "0")
	result, err := Evaluate(expression)
	if err != nil {
		return fmt.Sprintf("Error calculating %s: %v", expression, err)
	}
	return fmt.Sprintf("The result of %s is %s", expression, result)
}

func stringArg(args map[string]any, key, fallback string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return fallback
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
