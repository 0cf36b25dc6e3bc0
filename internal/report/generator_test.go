package report_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/agentoven/kpi-report/internal/executor"
	"github.com/agentoven/kpi-report/internal/mocks"
	"github.com/agentoven/kpi-report/internal/report"
	"github.com/agentoven/kpi-report/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ctrRequest = `{"data":[{"name":"ctr","data":[{"date":"2024-01-01","value":0.05}]}],"targets":"ctr = 0.10"}`

// Role prompts name each other, so match on the opening line only.
const (
	writerPattern = `You are \*\*ANALYST_WRITER`
	criticPattern = `You are \*\*FEEDBACK`
)

const ctrDraft = "# Executive KPI Report\n\n" +
	"| KPI | Date | Actual | Target |\n" +
	"|-----|------|--------|--------|\n" +
	"| ctr | 2024-01-01 | 0.05 | 0.10 |\n\n" +
	"CTR is half of its target.\n\n**REPORT_DRAFT**"

func decodeRequest(t *testing.T, body string) *models.ReportRequest {
	t.Helper()
	req, err := report.DecodeRequest(strings.NewReader(body))
	require.NoError(t, err)
	return req
}

func TestGenerate_ApprovedReport(t *testing.T) {
	llm := mocks.NewScriptedCompleter(mocks.WithStrictMode()).
		AddPatternReply(writerPattern, ctrDraft).
		AddPatternReply(criticPattern, "TERMINATE")
	gen := report.NewGenerator(executor.NewExecutor(llm))

	resp, result, err := gen.Generate(context.Background(), decodeRequest(t, ctrRequest), report.Options{})
	require.NoError(t, err)

	assert.True(t, resp.Approved)
	assert.Equal(t, 2, resp.Turns)
	assert.Equal(t, result.ConversationID, resp.ConversationID)
	assert.Contains(t, resp.Report, "| ctr | 2024-01-01 | 0.05 | 0.10 |")
	assert.True(t, strings.HasSuffix(resp.Report, "**REPORT_DONE**"))
	assert.Empty(t, resp.HTML)

	// The conversation returns the first draft unchanged; the response
	// differs from it only by the marker.
	assert.Equal(t, ctrDraft, result.Report)
	assert.Equal(t, strings.Replace(ctrDraft, report.DraftMarker, report.DoneMarker, 1), resp.Report)

	// Both roles see the input values verbatim.
	calls := llm.Calls()
	require.Len(t, calls, 2)
	seed := calls[0].History[0].Content
	assert.Contains(t, seed, `"name": "ctr"`)
	assert.Contains(t, seed, `"value": 0.05`)
	assert.Contains(t, seed, "ctr = 0.10")
	assert.Contains(t, calls[1].Instructions, seed)
}

func TestGenerate_UnapprovedKeepsDraftMarker(t *testing.T) {
	llm := mocks.NewScriptedCompleter().
		AddScript(mocks.ScriptedResponse{InstructionsPattern: writerPattern, Reply: ctrDraft, Repeatable: true}).
		AddScript(mocks.ScriptedResponse{InstructionsPattern: criticPattern, Reply: "- mention the gap in percent", Repeatable: true})
	gen := report.NewGenerator(executor.NewExecutor(llm))

	resp, _, err := gen.Generate(context.Background(), decodeRequest(t, ctrRequest), report.Options{})
	require.NoError(t, err)

	assert.False(t, resp.Approved)
	assert.Equal(t, 4, resp.Turns)
	assert.Equal(t, ctrDraft, resp.Report)
}

func TestGenerate_HTML(t *testing.T) {
	llm := mocks.NewScriptedCompleter(mocks.WithStrictMode()).
		AddReply(ctrDraft).
		AddReply("TERMINATE")
	gen := report.NewGenerator(executor.NewExecutor(llm))

	resp, _, err := gen.Generate(context.Background(), decodeRequest(t, ctrRequest), report.Options{HTML: true})
	require.NoError(t, err)
	assert.Contains(t, resp.HTML, "<td>0.05</td>")
}

func TestGenerate_EmptyDataMakesNoModelCalls(t *testing.T) {
	llm := mocks.NewScriptedCompleter(mocks.WithFallback("draft"))
	gen := report.NewGenerator(executor.NewExecutor(llm))

	_, _, err := gen.Generate(context.Background(), decodeRequest(t, `{"data":[]}`), report.Options{})
	assert.ErrorIs(t, err, report.ErrEmptyData)
	assert.Equal(t, 0, llm.CallCount())
}

func TestGenerate_CollaboratorFailure(t *testing.T) {
	llm := mocks.NewScriptedCompleter(mocks.WithFallbackError(errors.New("upstream 503")))
	gen := report.NewGenerator(executor.NewExecutor(llm))

	_, _, err := gen.Generate(context.Background(), decodeRequest(t, ctrRequest), report.Options{})
	assert.ErrorIs(t, err, executor.ErrCompletion)
}
