package conversation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"GoToolCall/pkg/client"
	"GoToolCall/pkg/config"
	"GoToolCall/pkg/tools"
	"GoToolCall/pkg/types"
)

type fakeClient struct {
	replies  []types.Message
	err      error
	requests [][]types.Message
	tools    [][]types.Tool
	streamed []bool
}

func (f *fakeClient) next(messages []types.Message, list []types.Tool, streaming bool) (types.Message, error) {
	snapshot := make([]types.Message, len(messages))
	copy(snapshot, messages)
	f.requests = append(f.requests, snapshot)
	f.tools = append(f.tools, list)
	f.streamed = append(f.streamed, streaming)
	if f.err != nil {
		return types.Message{}, f.err
	}
	if len(f.replies) == 0 {
		return types.Message{}, errors.New("no more replies")
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func (f *fakeClient) Chat(ctx context.Context, messages []types.Message, list []types.Tool) (*types.ChatResponse, error) {
	msg, err := f.next(messages, list, false)
	if err != nil {
		return nil, err
	}
	return &types.ChatResponse{Choices: []types.ResponseChoice{{Message: msg}}}, nil
}

func (f *fakeClient) StreamChat(ctx context.Context, messages []types.Message, list []types.Tool, handler client.StreamHandler) (types.Message, error) {
	msg, err := f.next(messages, list, true)
	if err != nil {
		return types.Message{}, err
	}
	if msg.Content != "" {
		handler.OnContent(msg.Content)
	}
	handler.OnComplete()
	return msg, nil
}

type recordingReporter struct {
	content  strings.Builder
	calls    []string
	results  []string
	statuses []string
	warnings []error
}

func (r *recordingReporter) Status(message string) { r.statuses = append(r.statuses, message) }
func (r *recordingReporter) Content(text string)   { r.content.WriteString(text) }
func (r *recordingReporter) ToolCall(call types.ToolCall) {
	r.calls = append(r.calls, call.Function.Name)
}
func (r *recordingReporter) ToolResult(call types.ToolCall, result string) {
	r.results = append(r.results, result)
}
func (r *recordingReporter) Warning(err error) { r.warnings = append(r.warnings, err) }

func toolCall(id, name, args string) types.ToolCall {
	return types.ToolCall{ID: id, Type: types.ToolTypeFunction, Function: types.FunctionCall{Name: name, Arguments: args}}
}

func TestRunWithoutToolCalls(t *testing.T) {
	for _, streaming := range []bool{false, true} {
		t.Run(fmt.Sprintf("streaming=%v", streaming), func(t *testing.T) {
			fc := &fakeClient{replies: []types.Message{{Role: types.RoleAssistant, Content: "Hello there"}}}
			rep := &recordingReporter{}
			d := New(fc, tools.NewExecutor(nil), WithReporter(rep))

			res, err := d.Run(context.Background(), "hi", streaming)
			require.NoError(t, err)
			require.Equal(t, "Hello there", res.Final)
			require.Equal(t, 1, res.Rounds)
			require.Len(t, fc.requests, 1)
			require.Equal(t, []types.Message{{Role: types.RoleUser, Content: "hi"}}, fc.requests[0])
			require.Len(t, fc.tools[0], 2)
			require.Equal(t, streaming, fc.streamed[0])
			require.Equal(t, "Hello there", rep.content.String())
		})
	}
}

func TestRunExecutesToolsInOrderAndFollowsUp(t *testing.T) {
	first := types.Message{
		Role: types.RoleAssistant,
		ToolCalls: []types.ToolCall{
			toolCall("call_w", tools.WeatherToolName, `{"location":"London"}`),
			toolCall("call_c", tools.CalculatorToolName, `{"expression":"12 * 12 + 7"}`),
			toolCall("call_x", "lookup_stock", `{}`),
		},
	}
	fc := &fakeClient{replies: []types.Message{first, {Role: types.RoleAssistant, Content: "London is sunny; 151."}}}
	rep := &recordingReporter{}
	exec := tools.NewExecutor(nil)
	d := New(fc, exec, WithReporter(rep))

	res, err := d.Run(context.Background(), "weather and math", true)
	require.NoError(t, err)
	require.Equal(t, 2, res.Rounds)
	require.Equal(t, "London is sunny; 151.", res.Final)
	require.Len(t, res.ToolCalls, 3)
	require.Equal(t, []string{tools.WeatherToolName, tools.CalculatorToolName, "lookup_stock"}, rep.calls)
	require.Equal(t, 1, exec.UnknownCalls())

	require.Len(t, fc.requests, 2)
	followup := fc.requests[1]
	require.Len(t, followup, 5)
	require.Equal(t, types.RoleUser, followup[0].Role)
	require.Equal(t, types.RoleAssistant, followup[1].Role)
	require.Len(t, followup[1].ToolCalls, 3)
	require.Equal(t, types.Message{Role: types.RoleTool, ToolCallID: "call_w", Content: "The weather in London is 22°C and sunny."}, followup[2])
	require.Equal(t, types.Message{Role: types.RoleTool, ToolCallID: "call_c", Content: "The result of 12 * 12 + 7 is 151"}, followup[3])
	require.Equal(t, types.Message{Role: types.RoleTool, ToolCallID: "call_x", Content: "Unknown tool: lookup_stock"}, followup[4])
	require.Len(t, fc.tools[1], 2)
	require.True(t, fc.streamed[1])

	history := d.Messages()
	require.Len(t, history, 6)
	require.Equal(t, "London is sunny; 151.", history[5].Content)
}

func TestRunPropagatesErrors(t *testing.T) {
	boom := &client.TransportError{StatusCode: http.StatusBadGateway}
	fc := &fakeClient{err: boom}
	d := New(fc, nil)

	_, err := d.Run(context.Background(), "hi", false)
	require.ErrorIs(t, err, client.ErrTransport)

	_, err = d.Run(context.Background(), "hi", true)
	require.ErrorIs(t, err, client.ErrTransport)
}

func TestRunEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	d := New(newClient(t, server), nil)
	_, err := d.Run(context.Background(), "hi", false)
	require.ErrorIs(t, err, client.ErrEmptyResponse)
}

func newClient(t *testing.T, server *httptest.Server) *client.Client {
	t.Helper()
	cfg := config.Default()
	cfg.BaseURL = server.URL + "/v1"
	c, err := client.NewClient(cfg, client.WithHTTPClient(server.Client()))
	require.NoError(t, err)
	return c
}

func TestRunStreamingAgainstServer(t *testing.T) {
	var round atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := round.Add(1)
		w.Header().Set("Content-Type", "text/event-stream")
		if n == 1 {
			fmt.Fprint(w, `data: {"choices":[{"delta":{"tool_calls":[{"index":0,"id":"a","function":{"name":"cal"}}]}}]}`+"\n\n")
			fmt.Fprint(w, `data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"name":"culate","arguments":"{\"expression\""}}]}}]}`+"\n\n")
			fmt.Fprint(w, `data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":":\"12 * 12 + 7\"}"}}]}}]}`+"\n\n")
			fmt.Fprint(w, "data: [DONE]\n\n")
			return
		}
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"The answer "}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"is 151."}}]}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	rep := &recordingReporter{}
	d := New(newClient(t, server), nil, WithReporter(rep))
	res, err := d.Run(context.Background(), "What is 12 * 12 + 7?", true)
	require.NoError(t, err)
	require.Equal(t, int32(2), round.Load())
	require.Equal(t, "The answer is 151.", res.Final)
	require.Equal(t, []string{"The result of 12 * 12 + 7 is 151"}, rep.results)
	require.Equal(t, "The answer is 151.", rep.content.String())
}
