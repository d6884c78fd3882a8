package client

import (
	"context"
	"encoding/json"
	"fmt"

	"GoToolCall/pkg/types"
)

// Chat sends a non-streaming completion request and returns the decoded body
func (c *Client) Chat(ctx context.Context, messages []types.Message, tools []types.Tool) (*types.ChatResponse, error) {
	resp, requestID, err := c.post(ctx, c.httpClient, c.request(messages, tools, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var completion types.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		c.logger.Error("client.decode_failed", "request_id", requestID, "error", err.Error())
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	c.logger.Debug("client.response",
		"request_id", requestID,
		"choices", len(completion.Choices),
	)
	return &completion, nil
}

// FirstMessage returns the assistant message of the first choice.
func FirstMessage(resp *types.ChatResponse) (types.Message, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return types.Message{}, ErrEmptyResponse
	}
	return resp.Choices[0].Message, nil
}
