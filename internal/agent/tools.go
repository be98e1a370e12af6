package agent

import (
	"context"
	"fmt"
	"time"
)

// ToolParam documents one parameter a tool accepts.
type ToolParam struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

type Tool struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []ToolParam `json:"parameters"`

	invoke func(ctx context.Context, input string) (any, error)
}

const (
	ToolCalculator   = "calculator"
	ToolWebSearch    = "web_search"
	ToolCodeExecutor = "code_executor"
)

// builtinTools is the full catalog. The calculator does real arithmetic; the
// other two return canned results.
func builtinTools() []Tool {
	return []Tool{
		{
			ID:          ToolCalculator,
			Name:        "Calculator",
			Description: "Performs basic arithmetic: addition, subtraction, multiplication and division, with parentheses",
			Parameters: []ToolParam{
				{Name: "expression", Type: "string", Description: "The arithmetic expression to evaluate", Required: true},
			},
			invoke: invokeCalculator,
		},
		{
			ID:          ToolWebSearch,
			Name:        "Web Search",
			Description: "Searches the web and returns a ranked list of results",
			Parameters: []ToolParam{
				{Name: "query", Type: "string", Description: "The search query", Required: true},
				{Name: "limit", Type: "number", Description: "Maximum number of results", Required: false},
			},
			invoke: invokeWebSearch,
		},
		{
			ID:          ToolCodeExecutor,
			Name:        "Code Executor",
			Description: "Runs a code snippet in a sandbox and returns its output",
			Parameters: []ToolParam{
				{Name: "code", Type: "string", Description: "The code to run", Required: true},
				{Name: "language", Type: "string", Description: "Language of the snippet", Required: false},
			},
			invoke: invokeCodeExecutor,
		},
	}
}

func invokeCalculator(ctx context.Context, input string) (any, error) {
	expr := extractExpression(input)
	if expr == "" {
		return nil, fmt.Errorf("no arithmetic expression found in input")
	}
	v, err := Evaluate(expr)
	if err != nil {
		return nil, err
	}
	return map[string]any{"expression": expr, "result": v}, nil
}

func invokeWebSearch(ctx context.Context, input string) (any, error) {
	return map[string]any{
		"query": input,
		"results": []map[string]string{
			{"title": "Result 1: " + input, "url": "https://example.com/1", "snippet": "A simulated search result about " + input},
			{"title": "Result 2: " + input, "url": "https://example.com/2", "snippet": "Another simulated search result"},
		},
	}, nil
}

func invokeCodeExecutor(ctx context.Context, input string) (any, error) {
	return map[string]any{
		"stdout":      "(simulated) code executed successfully",
		"exit_code":   0,
		"duration_ms": 42,
	}, nil
}

// Template is a ready-made agent definition users can instantiate.
type Template struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ToolIDs     []string `json:"tool_ids"`
}

func builtinTemplates() []Template {
	return []Template{
		{
			ID:          "research-assistant",
			Name:        "Research Assistant",
			Description: "Searches the web and summarizes what it finds",
			ToolIDs:     []string{ToolWebSearch},
		},
		{
			ID:          "math-solver",
			Name:        "Math Solver",
			Description: "Solves arithmetic problems step by step",
			ToolIDs:     []string{ToolCalculator},
		},
		{
			ID:          "coding-helper",
			Name:        "Coding Helper",
			Description: "Writes and runs code snippets, looking up references when needed",
			ToolIDs:     []string{ToolCodeExecutor, ToolWebSearch},
		},
	}
}

// Agent is a user-created assistant bound to a subset of the tool catalog.
type Agent struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ToolIDs     []string  `json:"tool_ids"`
	UserID      uint64    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}
