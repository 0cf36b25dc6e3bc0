package executor_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/agentoven/kpi-report/internal/executor"
	"github.com/agentoven/kpi-report/internal/mocks"
	"github.com/agentoven/kpi-report/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPrompts = executor.Prompts{
	Writer: "You are the WRITER.",
	Critic: "You are the CRITIC.",
}

func TestExecute_ApprovedOnFirstPass(t *testing.T) {
	llm := mocks.NewScriptedCompleter(mocks.WithStrictMode()).
		AddReply("# Report\n\nctr is 0.05 REPORT_DRAFT").
		AddReply("TERMINATE")

	result, err := executor.NewExecutor(llm).Execute(context.Background(), "seed", testPrompts)
	require.NoError(t, err)

	assert.True(t, result.Approved)
	assert.Len(t, result.Turns, 2)
	assert.Equal(t, 2, llm.CallCount())
	assert.Equal(t, "# Report\n\nctr is 0.05 REPORT_DRAFT", result.Report)
	assert.Equal(t, executor.RoleWriter, result.Turns[0].Role)
	assert.Equal(t, executor.RoleCritic, result.Turns[1].Role)
	assert.NotEmpty(t, result.ConversationID)
}

func TestExecute_TurnCapReturnsLastDraft(t *testing.T) {
	llm := mocks.NewScriptedCompleter(mocks.WithStrictMode()).
		AddReply("draft 1").
		AddReply("- add a summary").
		AddReply("draft 2").
		AddReply("- still missing targets")

	result, err := executor.NewExecutor(llm).Execute(context.Background(), "seed", testPrompts)
	require.NoError(t, err)

	assert.False(t, result.Approved)
	assert.Len(t, result.Turns, executor.DefaultMaxTurns)
	assert.Equal(t, 4, llm.CallCount())
	assert.Equal(t, "draft 2", result.Report)

	last, _ := result.History.Last()
	assert.Equal(t, executor.RoleCritic, last.Role)
}

func TestExecute_TokenInsideFeedbackContinues(t *testing.T) {
	llm := mocks.NewScriptedCompleter(mocks.WithStrictMode()).
		AddReply("draft 1").
		AddReply("Please TERMINATE unless you fix X").
		AddReply("draft 2").
		AddReply("TERMINATE")

	result, err := executor.NewExecutor(llm).Execute(context.Background(), "seed", testPrompts)
	require.NoError(t, err)

	assert.True(t, result.Approved)
	assert.Len(t, result.Turns, 4)
	assert.Equal(t, "draft 2", result.Report)
}

func TestExecute_FeedbackReachesWriter(t *testing.T) {
	llm := mocks.NewScriptedCompleter(mocks.WithStrictMode()).
		AddReply("draft 1").
		AddReply("- compare ctr with its target").
		AddReply("draft 2").
		AddReply("TERMINATE")

	_, err := executor.NewExecutor(llm).Execute(context.Background(), "the seed", testPrompts)
	require.NoError(t, err)

	calls := llm.Calls()
	require.Len(t, calls, 4)

	assert.Equal(t, testPrompts.Writer, calls[0].Instructions)
	assert.Equal(t, testPrompts.Critic, calls[1].Instructions)
	assert.Equal(t, testPrompts.Writer, calls[2].Instructions)

	// The revising writer sees the seed, its own draft and the critic's notes.
	assert.Equal(t, []models.ChatMessage{
		{Role: models.ChatRoleUser, Content: "the seed", Name: "user"},
		{Role: models.ChatRoleAssistant, Content: "draft 1"},
		{Role: models.ChatRoleUser, Content: "- compare ctr with its target", Name: "critic"},
	}, calls[2].History)

	// The critic reviews the latest draft.
	lastCriticView := calls[3].History
	assert.Equal(t, "draft 2", lastCriticView[len(lastCriticView)-1].Content)
}

func TestExecute_WithMaxTurns(t *testing.T) {
	llm := mocks.NewScriptedCompleter().
		AddScript(mocks.ScriptedResponse{InstructionsPattern: "WRITER", Reply: "draft", Repeatable: true}).
		AddScript(mocks.ScriptedResponse{InstructionsPattern: "CRITIC", Reply: "- more", Repeatable: true})

	exec := executor.NewExecutor(llm, executor.WithMaxTurns(6))
	assert.Equal(t, 6, exec.MaxTurns())

	result, err := exec.Execute(context.Background(), "seed", testPrompts)
	require.NoError(t, err)
	assert.False(t, result.Approved)
	assert.Len(t, result.Turns, 6)
}

func TestExecute_CustomTerminationToken(t *testing.T) {
	llm := mocks.NewScriptedCompleter(mocks.WithStrictMode()).
		AddReply("draft").
		AddReply("APPROVED")

	result, err := executor.NewExecutor(llm, executor.WithTerminationToken("APPROVED")).
		Execute(context.Background(), "seed", testPrompts)
	require.NoError(t, err)
	assert.True(t, result.Approved)
}

func TestExecute_UsageIsAccumulated(t *testing.T) {
	llm := mocks.NewScriptedCompleter(mocks.WithStrictMode()).
		AddScript(mocks.ScriptedResponse{Reply: "draft", Usage: models.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}}).
		AddScript(mocks.ScriptedResponse{Reply: "TERMINATE", Usage: models.TokenUsage{InputTokens: 20, OutputTokens: 1, TotalTokens: 21}})

	result, err := executor.NewExecutor(llm).Execute(context.Background(), "seed", testPrompts)
	require.NoError(t, err)
	assert.Equal(t, models.TokenUsage{InputTokens: 30, OutputTokens: 6, TotalTokens: 36}, result.Usage)
}

func TestExecute_CompletionErrorFailsFast(t *testing.T) {
	upstream := errors.New("connection refused")
	llm := mocks.NewScriptedCompleter(mocks.WithStrictMode()).
		AddReply("draft").
		AddError(upstream)

	result, err := executor.NewExecutor(llm).Execute(context.Background(), "seed", testPrompts)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, executor.ErrCompletion)
	assert.ErrorIs(t, err, upstream)
	assert.Equal(t, 2, llm.CallCount())
}

func TestExecute_EmptyCompletionIsAnError(t *testing.T) {
	llm := mocks.NewScriptedCompleter(mocks.WithStrictMode()).AddReply("   \n")

	_, err := executor.NewExecutor(llm).Execute(context.Background(), "seed", testPrompts)
	assert.ErrorIs(t, err, executor.ErrCompletion)
	assert.ErrorIs(t, err, executor.ErrEmptyCompletion)
}

func TestExecute_CanceledContext(t *testing.T) {
	llm := mocks.NewScriptedCompleter(mocks.WithFallback("draft"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := executor.NewExecutor(llm).Execute(ctx, "seed", testPrompts)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, llm.CallCount())
}

func TestExecute_ConcurrentConversationsAreIndependent(t *testing.T) {
	// The writer echoes the seed; the critic approves only a draft that
	// matches the seed of its own conversation.
	completer := executor.CompleterFunc(func(ctx context.Context, instructions string, history []models.ChatMessage) (*models.Completion, error) {
		seed := history[0].Content
		if instructions == testPrompts.Writer {
			return &models.Completion{Content: "report for " + seed}, nil
		}
		if history[len(history)-1].Content == "report for "+seed {
			return &models.Completion{Content: "TERMINATE"}, nil
		}
		return &models.Completion{Content: "- wrong conversation"}, nil
	})
	exec := executor.NewExecutor(completer)

	const n = 32
	var wg sync.WaitGroup
	results := make([]*executor.Result, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = exec.Execute(context.Background(), fmt.Sprintf("seed-%d", i), testPrompts)
		}(i)
	}
	wg.Wait()

	ids := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.True(t, results[i].Approved)
		assert.Len(t, results[i].Turns, 2)
		assert.Equal(t, fmt.Sprintf("report for seed-%d", i), results[i].Report)
		assert.Equal(t, 3, results[i].History.Len())
		assert.False(t, ids[results[i].ConversationID], "conversation ids must be unique")
		ids[results[i].ConversationID] = true
	}
}

func TestExecute_ReportIsNeverTheApprovalToken(t *testing.T) {
	llm := mocks.NewScriptedCompleter(mocks.WithStrictMode()).
		AddReply("draft").
		AddReply("TERMINATE")

	result, err := executor.NewExecutor(llm).Execute(context.Background(), "seed", testPrompts)
	require.NoError(t, err)

	last, _ := result.History.Last()
	assert.Equal(t, "TERMINATE", last.Content)
	assert.NotContains(t, result.Report, "TERMINATE")
}
