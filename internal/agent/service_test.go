package agent

import (
	"context"
	"testing"
	"time"

	"github.com/huangzx96/llm-workbench/internal/common"
	"github.com/huangzx96/llm-workbench/internal/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, opts dispatch.Options) *Service {
	t.Helper()
	if opts.ChatLatencyMin == 0 {
		opts.ChatLatencyMin = time.Millisecond
		opts.ChatLatencyMax = 2 * time.Millisecond
	}
	if opts.FixedLatency == 0 {
		opts.FixedLatency = time.Millisecond
	}
	if opts.Seed == 0 {
		opts.Seed = 1
	}
	return NewService(dispatch.New(opts), nil)
}

func TestToolCatalogAndTemplates(t *testing.T) {
	svc := newTestService(t, dispatch.Options{})

	tools := svc.Tools()
	require.Len(t, tools, 3)
	ids := []string{tools[0].ID, tools[1].ID, tools[2].ID}
	assert.Equal(t, []string{ToolCalculator, ToolWebSearch, ToolCodeExecutor}, ids)
	for _, tool := range tools {
		assert.NotEmpty(t, tool.Parameters)
	}

	assert.Len(t, svc.Templates(), 3)
}

func TestCreateAgentValidation(t *testing.T) {
	svc := newTestService(t, dispatch.Options{})

	_, err := svc.CreateAgent(1, "  ", "", nil)
	assert.True(t, common.IsValidationError(err))

	_, err = svc.CreateAgent(1, "Bot", "", []string{"time_machine"})
	require.Error(t, err)
	assert.True(t, common.IsValidationError(err))
	assert.Contains(t, err.Error(), "time_machine")

	assert.Empty(t, svc.Agents(1))
}

func TestCreateFromTemplate(t *testing.T) {
	svc := newTestService(t, dispatch.Options{})

	a, err := svc.CreateFromTemplate(1, "math-solver")
	require.NoError(t, err)
	assert.Equal(t, "Math Solver", a.Name)
	assert.Equal(t, []string{ToolCalculator}, a.ToolIDs)

	_, err = svc.CreateFromTemplate(1, "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestExecuteRunsCalculator(t *testing.T) {
	svc := newTestService(t, dispatch.Options{})
	a, err := svc.CreateAgent(1, "Math Bot", "", []string{ToolCalculator})
	require.NoError(t, err)

	exec, err := svc.Execute(context.Background(), 1, a.ID, "what is 2+3*4?")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, exec.Status)
	assert.NotEmpty(t, exec.Output)
	assert.Nil(t, exec.Error)
	require.NotNil(t, exec.FinishedAt)

	require.Len(t, exec.ToolCalls, 1)
	call := exec.ToolCalls[0]
	assert.Equal(t, "Calculator", call.ToolName)
	result, ok := call.Result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "2+3*4", result["expression"])
	assert.InDelta(t, 14, result["result"].(float64), 1e-9)
}

func TestExecuteValidation(t *testing.T) {
	svc := newTestService(t, dispatch.Options{})
	a, err := svc.CreateAgent(1, "Bot", "", nil)
	require.NoError(t, err)

	_, err = svc.Execute(context.Background(), 1, a.ID, "   ")
	assert.True(t, common.IsValidationError(err))
	assert.Empty(t, svc.History(1, ""))

	_, err = svc.Execute(context.Background(), 1, "missing", "hi")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestExecuteFailureRecorded(t *testing.T) {
	svc := newTestService(t, dispatch.Options{FailureRate: 1})
	a, err := svc.CreateAgent(1, "Bot", "", []string{ToolWebSearch})
	require.NoError(t, err)

	exec, err := svc.Execute(context.Background(), 1, a.ID, "search something")
	require.Error(t, err)
	var failure *dispatch.Failure
	assert.ErrorAs(t, err, &failure)
	assert.Equal(t, StatusFailed, exec.Status)
	require.NotNil(t, exec.Error)
	assert.NotEmpty(t, *exec.Error)

	hist := svc.History(1, "")
	require.Len(t, hist, 1)
	assert.Equal(t, StatusFailed, hist[0].Status)
}

func TestHistoryOrderAndFilter(t *testing.T) {
	svc := newTestService(t, dispatch.Options{})
	a, err := svc.CreateAgent(1, "A", "", nil)
	require.NoError(t, err)
	b, err := svc.CreateAgent(1, "B", "", nil)
	require.NoError(t, err)

	_, err = svc.Execute(context.Background(), 1, a.ID, "first")
	require.NoError(t, err)
	_, err = svc.Execute(context.Background(), 1, b.ID, "second")
	require.NoError(t, err)
	_, err = svc.Execute(context.Background(), 1, a.ID, "third")
	require.NoError(t, err)

	all := svc.History(1, "")
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Input)
	assert.Equal(t, "first", all[2].Input)

	onlyA := svc.History(1, a.ID)
	require.Len(t, onlyA, 2)
	assert.Equal(t, "third", onlyA[0].Input)
	assert.Equal(t, "first", onlyA[1].Input)

	// Histories are per user.
	assert.Empty(t, svc.History(2, ""))
}
