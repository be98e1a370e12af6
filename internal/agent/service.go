// Package agent owns the mock agent workbench: a fixed tool catalog,
// ready-made templates, user-created agents and their execution history.
package agent

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/huangzx96/llm-workbench/internal/common"
	"github.com/huangzx96/llm-workbench/internal/dispatch"
	"go.uber.org/zap"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type Execution struct {
	ID         string              `json:"id"`
	AgentID    string              `json:"agent_id"`
	AgentName  string              `json:"agent_name"`
	Input      string              `json:"input"`
	Output     string              `json:"output"`
	ToolCalls  []dispatch.ToolCall `json:"tool_calls"`
	Status     string              `json:"status"`
	Error      *string             `json:"error,omitempty"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
}

type Service struct {
	dispatcher *dispatch.Dispatcher
	log        *zap.Logger

	tools     []Tool
	toolIndex map[string]*Tool
	templates []Template

	mu     sync.Mutex
	spaces map[uint64]*space
}

type space struct {
	agentOrder []string
	agents     map[string]*Agent
	executions []*Execution
}

func NewService(dispatcher *dispatch.Dispatcher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		dispatcher: dispatcher,
		log:        log,
		tools:      builtinTools(),
		templates:  builtinTemplates(),
		toolIndex:  make(map[string]*Tool),
		spaces:     make(map[uint64]*space),
	}
	for i := range s.tools {
		s.toolIndex[s.tools[i].ID] = &s.tools[i]
	}
	return s
}

func (s *Service) Tools() []Tool {
	out := make([]Tool, len(s.tools))
	copy(out, s.tools)
	return out
}

func (s *Service) Templates() []Template {
	out := make([]Template, len(s.templates))
	copy(out, s.templates)
	return out
}

func (s *Service) spaceFor(userID uint64) *space {
	sp, ok := s.spaces[userID]
	if !ok {
		sp = &space{agents: make(map[string]*Agent)}
		s.spaces[userID] = sp
	}
	return sp
}

func (s *Service) CreateAgent(userID uint64, name, description string, toolIDs []string) (*Agent, error) {
	if strings.TrimSpace(name) == "" {
		return nil, common.NewValidationError("name", "name is required")
	}
	for _, id := range toolIDs {
		if _, ok := s.toolIndex[id]; !ok {
			return nil, common.NewValidationError("tool_ids", "unknown tool: "+id)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sp := s.spaceFor(userID)
	a := &Agent{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		ToolIDs:     append([]string(nil), toolIDs...),
		UserID:      userID,
		CreatedAt:   time.Now(),
	}
	sp.agentOrder = append(sp.agentOrder, a.ID)
	sp.agents[a.ID] = a
	return cloneAgent(a), nil
}

// CreateFromTemplate instantiates one of the built-in templates as a new
// agent owned by the user.
func (s *Service) CreateFromTemplate(userID uint64, templateID string) (*Agent, error) {
	for _, t := range s.templates {
		if t.ID == templateID {
			return s.CreateAgent(userID, t.Name, t.Description, t.ToolIDs)
		}
	}
	return nil, common.ErrNotFound
}

func (s *Service) Agents(userID uint64) []*Agent {
	s.mu.Lock()
	defer s.mu.Unlock()

	sp := s.spaceFor(userID)
	out := make([]*Agent, 0, len(sp.agentOrder))
	for _, id := range sp.agentOrder {
		out = append(out, cloneAgent(sp.agents[id]))
	}
	return out
}

// Execute runs the agent once against the input. The execution lands in the
// history either way, completed or failed.
func (s *Service) Execute(ctx context.Context, userID uint64, agentID, input string) (*Execution, error) {
	if strings.TrimSpace(input) == "" {
		return nil, common.NewValidationError("input", "input is required")
	}

	s.mu.Lock()
	sp := s.spaceFor(userID)
	a, ok := sp.agents[agentID]
	if !ok {
		s.mu.Unlock()
		return nil, common.ErrNotFound
	}

	exec := &Execution{
		ID:        uuid.NewString(),
		AgentID:   a.ID,
		AgentName: a.Name,
		Input:     input,
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}
	sp.executions = append(sp.executions, exec)

	specs := make([]dispatch.ToolSpec, 0, len(a.ToolIDs))
	for _, id := range a.ToolIDs {
		tool := s.toolIndex[id]
		specs = append(specs, dispatch.ToolSpec{
			ID:     tool.ID,
			Name:   tool.Name,
			Invoke: tool.invoke,
		})
	}
	s.mu.Unlock()

	out, err := s.dispatcher.Agent(ctx, dispatch.AgentRequest{
		AgentName: exec.AgentName,
		Input:     input,
		Tools:     specs,
	})

	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	exec.FinishedAt = &now
	if err != nil {
		msg := err.Error()
		exec.Status = StatusFailed
		exec.Error = &msg
		s.log.Warn("agent execution failed",
			zap.String("agent_id", exec.AgentID),
			zap.Error(err),
		)
		return cloneExecution(exec), err
	}
	exec.Status = StatusCompleted
	exec.Output = out.Output
	exec.ToolCalls = out.ToolCalls
	return cloneExecution(exec), nil
}

// History returns executions newest first, optionally filtered to one agent.
func (s *Service) History(userID uint64, agentID string) []*Execution {
	s.mu.Lock()
	defer s.mu.Unlock()

	sp := s.spaceFor(userID)
	out := make([]*Execution, 0, len(sp.executions))
	for i := len(sp.executions) - 1; i >= 0; i-- {
		e := sp.executions[i]
		if agentID != "" && e.AgentID != agentID {
			continue
		}
		out = append(out, cloneExecution(e))
	}
	return out
}

func cloneAgent(a *Agent) *Agent {
	cp := *a
	cp.ToolIDs = append([]string(nil), a.ToolIDs...)
	return &cp
}

func cloneExecution(e *Execution) *Execution {
	cp := *e
	cp.ToolCalls = append([]dispatch.ToolCall(nil), e.ToolCalls...)
	return &cp
}
