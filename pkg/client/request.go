package client

import "GoToolCall/pkg/types"

// RequestParams holds the inputs to a chat-completions request body
type RequestParams struct {
	Model       string
	Messages    []types.Message
	Tools       []types.Tool
	MaxTokens   int
	Temperature float64
	Stream      bool
}

// BuildRequest assembles the request body. Messages are forwarded as given;
// tool_choice is set to auto whenever tools are attached.
func BuildRequest(p RequestParams) types.ChatRequest {
	req := types.ChatRequest{
		Model:       p.Model,
		Messages:    p.Messages,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		Stream:      p.Stream,
	}
	if req.Messages == nil {
		req.Messages = []types.Message{}
	}
	if len(p.Tools) > 0 {
		req.Tools = p.Tools
		req.ToolChoice = types.ToolChoiceAuto
	}
	return req
}
