package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type ChatRequest struct {
	ModelName   string
	Prompt      string
	Temperature float64
	MaxTokens   int
	TopP        float64
}

type ChatResult struct {
	Content string `json:"content"`
	Tokens  int    `json:"tokens"`
}

type SourceChunk struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	DocumentID string  `json:"document_id"`
	Score      float64 `json:"score"`
}

type RAGRequest struct {
	Query   string
	Sources []SourceChunk
}

type RAGResult struct {
	Answer     string        `json:"answer"`
	Sources    []SourceChunk `json:"sources"`
	Confidence float64       `json:"confidence"`
}

// ToolSpec describes one tool an agent owns. Invoke, when set, produces the
// tool call's simulated result for the given input.
type ToolSpec struct {
	ID     string
	Name   string
	Invoke func(ctx context.Context, input string) (any, error)
}

type AgentRequest struct {
	AgentName string
	Input     string
	Tools     []ToolSpec
}

type ToolCall struct {
	ID         string         `json:"id"`
	ToolName   string         `json:"tool_name"`
	Parameters map[string]any `json:"parameters"`
	Result     any            `json:"result"`
	Timestamp  time.Time      `json:"timestamp"`
}

type AgentResult struct {
	Output    string     `json:"output"`
	ToolCalls []ToolCall `json:"tool_calls"`
}

func (d *Dispatcher) handleChat(ctx context.Context, payload any) (any, error) {
	req, ok := payload.(ChatRequest)
	if !ok {
		return nil, fmt.Errorf("dispatch: chat payload has type %T", payload)
	}

	content := fmt.Sprintf(
		"This is a simulated response from %s.\n\nParameters:\n- Temperature: %v\n- Max Tokens: %d\n- Top P: %v\n\nYour message %q was received and processed.",
		req.ModelName, req.Temperature, req.MaxTokens, req.TopP, req.Prompt,
	)

	return ChatResult{Content: content, Tokens: d.randTokens()}, nil
}

func (d *Dispatcher) handleRAG(ctx context.Context, payload any) (any, error) {
	req, ok := payload.(RAGRequest)
	if !ok {
		return nil, fmt.Errorf("dispatch: rag payload has type %T", payload)
	}

	answer := fmt.Sprintf(
		"Based on the documents in the knowledge base, here is what I found for %q.\n\nAccording to the retrieved content, the answer is... (simulated RAG generation)",
		req.Query,
	)

	return RAGResult{
		Answer:     answer,
		Sources:    req.Sources,
		Confidence: 0.85,
	}, nil
}

func (d *Dispatcher) handleAgent(ctx context.Context, payload any) (any, error) {
	req, ok := payload.(AgentRequest)
	if !ok {
		return nil, fmt.Errorf("dispatch: agent payload has type %T", payload)
	}

	now := time.Now()
	calls := make([]ToolCall, 0, len(req.Tools))
	names := make([]string, 0, len(req.Tools))
	for i, tool := range req.Tools {
		names = append(names, "- "+tool.Name)

		var result any = "simulated tool output"
		if tool.Invoke != nil {
			if r, err := tool.Invoke(ctx, req.Input); err == nil {
				result = r
			} else {
				result = map[string]any{"error": err.Error()}
			}
		}

		calls = append(calls, ToolCall{
			ID:         fmt.Sprintf("call-%d-%d", now.UnixMilli(), i),
			ToolName:   tool.Name,
			Parameters: map[string]any{"input": req.Input},
			Result:     result,
			Timestamp:  now,
		})
	}

	output := fmt.Sprintf(
		"Agent %q finished.\n\nBased on your input %q, the task has been analyzed and processed.\n\nTools invoked:\n%s",
		req.AgentName, req.Input, strings.Join(names, "\n"),
	)

	return AgentResult{Output: output, ToolCalls: calls}, nil
}

// Typed fronts over Dispatch. They keep the uniform kind/payload entry point
// while letting callers avoid the any round trip.

func (d *Dispatcher) Chat(ctx context.Context, req ChatRequest) (ChatResult, error) {
	out, err := d.Dispatch(ctx, KindChat, req)
	if err != nil {
		return ChatResult{}, err
	}
	return out.(ChatResult), nil
}

func (d *Dispatcher) RAG(ctx context.Context, req RAGRequest) (RAGResult, error) {
	out, err := d.Dispatch(ctx, KindRAG, req)
	if err != nil {
		return RAGResult{}, err
	}
	return out.(RAGResult), nil
}

func (d *Dispatcher) Agent(ctx context.Context, req AgentRequest) (AgentResult, error) {
	out, err := d.Dispatch(ctx, KindAgent, req)
	if err != nil {
		return AgentResult{}, err
	}
	return out.(AgentResult), nil
}
