package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"GoToolCall/pkg/logging"
	"GoToolCall/pkg/types"
)

const doneSentinel = "[DONE]"

// StreamHandler defines the interface for handling stream events. OnError
// receives non-fatal problems such as dropped chunks; fatal errors are
// returned by StreamChat instead.
type StreamHandler interface {
	OnContent(content string)
	OnError(err error)
	OnComplete()
}

// ChunkStream is a pull iterator over the chunks of one SSE response. It
// cannot be restarted; once Next returns false the body is closed.
type ChunkStream struct {
	body      io.ReadCloser
	scanner   *bufio.Scanner
	current   types.StreamChunk
	err       error
	done      bool
	closed    bool
	skipped   int
	onSkip    func(error)
	requestID string
	logger    *slog.Logger

	// Set by OpenStream. The timer cancels ctx with ErrStreamIdle when no
	// line arrives within idleTimeout.
	ctx         context.Context
	cancel      context.CancelCauseFunc
	idle        *time.Timer
	idleTimeout time.Duration
}

// NewChunkStream wraps an SSE body. A nil logger discards skip diagnostics.
func NewChunkStream(body io.ReadCloser, logger *slog.Logger) *ChunkStream {
	if logger == nil {
		logger = logging.Nop()
	}
	scanner := bufio.NewScanner(body)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 2*1024*1024)
	return &ChunkStream{body: body, scanner: scanner, logger: logger}
}

// OnSkip registers a hook called with the decode error of every dropped chunk
func (s *ChunkStream) OnSkip(fn func(error)) {
	s.onSkip = fn
}

// Next advances to the next chunk. Lines without a data field are ignored,
// undecodable payloads are skipped and the [DONE] sentinel ends the stream
// without reading further.
func (s *ChunkStream) Next() bool {
	if s.done {
		return false
	}
	for s.scanner.Scan() {
		s.touch()
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == doneSentinel {
			s.finish()
			return false
		}
		var chunk types.StreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			s.skip(data, err)
			continue
		}
		s.current = chunk
		return true
	}
	if err := s.scanner.Err(); err != nil {
		if s.idleExpired() {
			err = fmt.Errorf("no data for %s: %w", s.idleTimeout, ErrStreamIdle)
		}
		s.err = &TransportError{RequestID: s.requestID, Err: fmt.Errorf("failed to read stream: %w", err)}
	}
	s.finish()
	return false
}

func (s *ChunkStream) touch() {
	if s.idle != nil {
		s.idle.Reset(s.idleTimeout)
	}
}

func (s *ChunkStream) idleExpired() bool {
	return s.ctx != nil && errors.Is(context.Cause(s.ctx), ErrStreamIdle)
}

func (s *ChunkStream) skip(data string, err error) {
	s.skipped++
	s.logger.Debug("client.chunk_skipped",
		"request_id", s.requestID,
		"skipped", s.skipped,
		"data", data,
		"error", err.Error(),
	)
	if s.onSkip != nil {
		s.onSkip(fmt.Errorf("failed to unmarshal chunk: %w", err))
	}
}

// Current returns the chunk produced by the last successful Next
func (s *ChunkStream) Current() types.StreamChunk {
	return s.current
}

// Err returns the read error that ended the stream, if any
func (s *ChunkStream) Err() error {
	return s.err
}

// Skipped reports how many malformed chunks were dropped so far
func (s *ChunkStream) Skipped() int {
	return s.skipped
}

// Close releases the response body and stops the idle timer. It is safe to
// call more than once.
func (s *ChunkStream) Close() error {
	s.done = true
	if s.closed {
		return nil
	}
	s.closed = true
	if s.idle != nil {
		s.idle.Stop()
	}
	err := s.body.Close()
	if s.cancel != nil {
		s.cancel(nil)
	}
	return err
}

func (s *ChunkStream) finish() {
	_ = s.Close()
}

// OpenStream issues a streaming completion request and returns the chunk
// iterator. The caller must Close it. The stream has no overall deadline:
// it fails with ErrStreamIdle once cfg.Timeout passes without a response
// header or a new line.
func (c *Client) OpenStream(ctx context.Context, messages []types.Message, tools []types.Tool) (*ChunkStream, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	timeout := c.cfg.Timeout
	var idle *time.Timer
	if timeout > 0 {
		idle = time.AfterFunc(timeout, func() { cancel(ErrStreamIdle) })
	}
	resp, requestID, err := c.post(ctx, c.streamClient, c.request(messages, tools, true))
	if err != nil {
		if idle != nil {
			idle.Stop()
		}
		if errors.Is(context.Cause(ctx), ErrStreamIdle) {
			err = &TransportError{RequestID: requestID, Err: fmt.Errorf("no response for %s: %w", timeout, ErrStreamIdle)}
		}
		cancel(nil)
		return nil, err
	}
	stream := NewChunkStream(resp.Body, c.logger)
	stream.requestID = requestID
	stream.ctx = ctx
	stream.cancel = cancel
	stream.idle = idle
	stream.idleTimeout = timeout
	stream.touch()
	return stream, nil
}

// StreamChat streams a completion, reporting content through handler as it
// arrives, and returns the accumulated assistant message.
func (c *Client) StreamChat(ctx context.Context, messages []types.Message, tools []types.Tool, handler StreamHandler) (types.Message, error) {
	if handler == nil {
		handler = nopHandler{}
	}
	stream, err := c.OpenStream(ctx, messages, tools)
	if err != nil {
		return types.Message{}, err
	}
	defer stream.Close()
	stream.OnSkip(handler.OnError)

	acc := NewAccumulator(handler.OnContent)
	for stream.Next() {
		acc.Add(stream.Current())
	}
	if err := stream.Err(); err != nil {
		return acc.Message(), err
	}
	msg := acc.Message()
	if acc.Rejected() > 0 {
		c.logger.Warn("client.tool_fragments_rejected", "request_id", stream.requestID, "rejected", acc.Rejected())
	}
	c.logger.Debug("client.stream_complete",
		"request_id", stream.requestID,
		"skipped", stream.Skipped(),
		"tool_calls", len(msg.ToolCalls),
		"dropped_tool_calls", acc.Dropped(),
	)
	if stream.Skipped() > 0 {
		c.logger.Warn("client.stream_chunks_skipped", "request_id", stream.requestID, "skipped", stream.Skipped())
	}
	handler.OnComplete()
	return msg, nil
}

type nopHandler struct{}

func (nopHandler) OnContent(string) {}
func (nopHandler) OnError(error)    {}
func (nopHandler) OnComplete()      {}
