package executor_test

import (
	"testing"

	"github.com/agentoven/kpi-report/internal/executor"
	"github.com/agentoven/kpi-report/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_LastAndLastFrom(t *testing.T) {
	h := executor.NewHistory("seed")

	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, executor.Message{Role: executor.RoleUser, Content: "seed"}, last)

	_, ok = h.LastFrom(executor.RoleWriter)
	assert.False(t, ok)

	h.Append(executor.RoleWriter, "draft 1")
	h.Append(executor.RoleCritic, "- fix totals")
	h.Append(executor.RoleWriter, "draft 2")
	h.Append(executor.RoleCritic, "- still wrong")

	last, _ = h.Last()
	assert.Equal(t, "- still wrong", last.Content)

	draft, ok := h.LastFrom(executor.RoleWriter)
	require.True(t, ok)
	assert.Equal(t, "draft 2", draft.Content)
	assert.Equal(t, 5, h.Len())
}

func TestHistory_MessagesIsACopy(t *testing.T) {
	h := executor.NewHistory("seed")
	msgs := h.Messages()
	msgs[0].Content = "changed"

	first, _ := h.LastFrom(executor.RoleUser)
	assert.Equal(t, "seed", first.Content)
}

func TestHistory_ViewFor(t *testing.T) {
	h := executor.NewHistory("seed")
	h.Append(executor.RoleWriter, "draft")
	h.Append(executor.RoleCritic, "- feedback")

	writerView := h.ViewFor(executor.RoleWriter)
	assert.Equal(t, []models.ChatMessage{
		{Role: models.ChatRoleUser, Content: "seed", Name: "user"},
		{Role: models.ChatRoleAssistant, Content: "draft"},
		{Role: models.ChatRoleUser, Content: "- feedback", Name: "critic"},
	}, writerView)

	criticView := h.ViewFor(executor.RoleCritic)
	assert.Equal(t, []models.ChatMessage{
		{Role: models.ChatRoleUser, Content: "seed", Name: "user"},
		{Role: models.ChatRoleUser, Content: "draft", Name: "writer"},
		{Role: models.ChatRoleAssistant, Content: "- feedback"},
	}, criticView)
}
