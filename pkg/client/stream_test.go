package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"GoToolCall/pkg/config"
	"GoToolCall/pkg/tools"
	"GoToolCall/pkg/types"

	"github.com/stretchr/testify/require"
)

func streamOf(body string) *ChunkStream {
	return NewChunkStream(io.NopCloser(strings.NewReader(body)), nil)
}

func collect(s *ChunkStream) []types.StreamChunk {
	var chunks []types.StreamChunk
	for s.Next() {
		chunks = append(chunks, s.Current())
	}
	return chunks
}

func TestChunkStreamParsesDataLines(t *testing.T) {
	body := strings.Join([]string{
		": keep-alive",
		"event: message",
		`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
		"",
		`data:{"choices":[{"delta":{"content":"lo"}}]}`,
		"data: [DONE]",
		"",
	}, "\n")
	s := streamOf(body)
	chunks := collect(s)
	require.NoError(t, s.Err())
	require.Len(t, chunks, 2)
	require.Equal(t, "Hel", chunks[0].Choices[0].Delta.Content)
	require.Equal(t, "lo", chunks[1].Choices[0].Delta.Content)
	require.False(t, s.Next())
}

func TestChunkStreamSkipsMalformedChunks(t *testing.T) {
	body := strings.Join([]string{
		`data: {"choices":[{"delta":{"content":"a"}}]}`,
		`data: {not json`,
		`data: {"choices":[{"delta":{"content":"b"}}]}`,
		"data: [DONE]",
	}, "\n")
	s := streamOf(body)
	var skipped []error
	s.OnSkip(func(err error) { skipped = append(skipped, err) })

	chunks := collect(s)
	require.NoError(t, s.Err())
	require.Len(t, chunks, 2)
	require.Equal(t, 1, s.Skipped())
	require.Len(t, skipped, 1)
}

func TestChunkStreamStopsAtDone(t *testing.T) {
	body := strings.Join([]string{
		`data: {"choices":[{"delta":{"content":"a"}}]}`,
		"data: [DONE]",
		`data: {"choices":[{"delta":{"content":"never"}}]}`,
	}, "\n")
	s := streamOf(body)
	chunks := collect(s)
	require.Len(t, chunks, 1)
	require.False(t, s.Next())
}

func TestChunkStreamDoesNotReadPastDone(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		_, _ = pw.Write([]byte("data: [DONE]\n"))
	}()

	s := NewChunkStream(pr, nil)
	result := make(chan bool, 1)
	go func() { result <- s.Next() }()

	select {
	case more := <-result:
		require.False(t, more)
	case <-time.After(2 * time.Second):
		t.Fatal("stream kept reading after [DONE]")
	}
	_, err := pw.Write([]byte("data: {}\n"))
	require.ErrorIs(t, err, io.ErrClosedPipe)
}

type failingReader struct{ sent bool }

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.sent {
		r.sent = true
		return copy(p, "data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n"), nil
	}
	return 0, errors.New("connection reset")
}

func TestChunkStreamReadError(t *testing.T) {
	s := NewChunkStream(io.NopCloser(&failingReader{}), nil)
	chunks := collect(s)
	require.Len(t, chunks, 1)
	require.ErrorIs(t, s.Err(), ErrTransport)
}

type recordingHandler struct {
	content   strings.Builder
	errs      []error
	completed bool
}

func (h *recordingHandler) OnContent(content string) { h.content.WriteString(content) }
func (h *recordingHandler) OnError(err error)        { h.errs = append(h.errs, err) }
func (h *recordingHandler) OnComplete()              { h.completed = true }

func sseServer(t *testing.T, lines []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range lines {
			fmt.Fprintf(w, "%s\n\n", line)
		}
	}))
}

func TestStreamChatAccumulatesToolCalls(t *testing.T) {
	server := sseServer(t, []string{
		`data: {"choices":[{"delta":{"role":"assistant","content":"Calc"}}]}`,
		`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"id":"a","function":{"name":"cal"}}]}}]}`,
		`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"name":"culate","arguments":"{\"expression\""}}]}}]}`,
		`data: garbage`,
		`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":":\"2+2\"}"}}]}}]}`,
		`data: [DONE]`,
	})
	defer server.Close()

	c := newTestClient(t, server)
	handler := &recordingHandler{}
	msg, err := c.StreamChat(context.Background(), []types.Message{{Role: types.RoleUser, Content: "2+2?"}}, tools.Catalog(), handler)
	require.NoError(t, err)
	require.True(t, handler.completed)
	require.Equal(t, "Calc", handler.content.String())
	require.Len(t, handler.errs, 1)

	require.Equal(t, "Calc", msg.Content)
	require.Len(t, msg.ToolCalls, 1)
	require.Equal(t, "a", msg.ToolCalls[0].ID)
	require.Equal(t, "calculate", msg.ToolCalls[0].Function.Name)
	require.Equal(t, `{"expression":"2+2"}`, msg.ToolCalls[0].Function.Arguments)
}

func TestStreamChatWithoutDoneSentinel(t *testing.T) {
	server := sseServer(t, []string{
		`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
		`data: {"choices":[{"delta":{"content":"lo"}}]}`,
	})
	defer server.Close()

	c := newTestClient(t, server)
	msg, err := c.StreamChat(context.Background(), nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "Hello", msg.Content)
	require.Nil(t, msg.ToolCalls)
}

func TestStreamChatHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := newTestClient(t, server)
	handler := &recordingHandler{}
	_, err := c.StreamChat(context.Background(), nil, nil, handler)
	require.ErrorIs(t, err, ErrTransport)
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	require.Equal(t, http.StatusServiceUnavailable, terr.StatusCode)
	require.Contains(t, terr.Body, "model overloaded")
	require.False(t, handler.completed)
}

func newTimeoutClient(t *testing.T, server *httptest.Server, timeout time.Duration) *Client {
	t.Helper()
	cfg := config.Default()
	cfg.BaseURL = server.URL + "/v1"
	cfg.Timeout = timeout
	c, err := NewClient(cfg)
	require.NoError(t, err)
	return c
}

func TestStreamChatOutlivesRequestTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for i := 0; i < 6; i++ {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":\"%d\"}}]}\n\n", i)
			flusher.Flush()
			time.Sleep(100 * time.Millisecond)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	c := newTimeoutClient(t, server, 300*time.Millisecond)
	msg, err := c.StreamChat(context.Background(), nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "012345", msg.Content)
}

func TestStreamChatIdleTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n")
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	c := newTimeoutClient(t, server, 100*time.Millisecond)
	handler := &recordingHandler{}
	msg, err := c.StreamChat(context.Background(), nil, nil, handler)
	require.ErrorIs(t, err, ErrTransport)
	require.ErrorIs(t, err, ErrStreamIdle)
	require.Equal(t, "partial", msg.Content)
	require.False(t, handler.completed)
}

func TestOpenStreamIdleBeforeHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	c := newTimeoutClient(t, server, 100*time.Millisecond)
	_, err := c.OpenStream(context.Background(), nil, nil)
	require.ErrorIs(t, err, ErrTransport)
	require.ErrorIs(t, err, ErrStreamIdle)
}
