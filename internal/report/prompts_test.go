package report_test

import (
	"strings"
	"testing"

	"github.com/agentoven/kpi-report/internal/report"
	"github.com/stretchr/testify/assert"
)

func TestRenderPrompt(t *testing.T) {
	out := report.RenderPrompt("Hello {{name}}, token {{token}}.", map[string]string{
		"name":  "writer",
		"token": "TERMINATE",
	})
	assert.Equal(t, "Hello writer, token TERMINATE.", out)
}

func TestRenderPrompt_ValuesAreNotExpandedAgain(t *testing.T) {
	out := report.RenderPrompt("{{seed}} / {{token}}", map[string]string{
		"seed":  "raw {{token}} text",
		"token": "T",
	})
	assert.Equal(t, "raw {{token}} text / T", out)
}

func TestWriterInstructions(t *testing.T) {
	got := report.WriterInstructions()
	assert.Contains(t, got, "ANALYST_WRITER")
	assert.Contains(t, got, "**REPORT_DRAFT**")
	assert.Contains(t, got, "Never invent")
	assert.NotContains(t, got, "{{")
}

func TestWriterInstructions_Rubric(t *testing.T) {
	got := report.WriterInstructions()

	for _, check := range []string{
		"null values",
		"outliers and anomalies",
		"duplicate entries",
		"date range and granularity consistency",
	} {
		assert.Contains(t, got, check)
	}

	sections := []string{
		"## 📌 Prelude",
		"## 📊 Overview Table",
		"## 📈 Highlights",
		"## ✅ Pros",
		"## ❗ Cons",
		"## 🧠 Recommendations",
		"## 🔚 TL;DR",
	}
	last := -1
	for _, section := range sections {
		i := strings.Index(got, section)
		if assert.GreaterOrEqual(t, i, 0, "missing section %q", section) {
			assert.Greater(t, i, last, "section %q out of order", section)
			last = i
		}
	}

	assert.Contains(t, got, "| KPI | Current | Target | Status (✅/⚠️/❌) | Remarks |")
	assert.Contains(t, got, "At least 2 per underperforming metric")
	assert.Contains(t, got, "If data is missing, call it out")
	assert.Contains(t, got, "explain the methodology")
}

func TestInstructions_ShareTargetsPolicy(t *testing.T) {
	writer := report.WriterInstructions()
	critic := report.CriticInstructions("seed")

	for _, got := range []string{writer, critic} {
		assert.Contains(t, got, "If the Targets section is empty, targets may be inferred")
		assert.Contains(t, got, "state the method")
	}
}

func TestCriticInstructions_EmbedsSeed(t *testing.T) {
	seed := "Here are the KPI blobs:\n```json\n{}\n```\n\nTargets:\nctr = 0.10"
	got := report.CriticInstructions(seed)

	assert.Contains(t, got, "FEEDBACK")
	assert.Contains(t, got, seed)
	assert.NotContains(t, got, "{{")
}

func TestCriticInstructions_Checklist(t *testing.T) {
	got := report.CriticInstructions("seed")

	for _, section := range []string{
		"### 📊 Data Alignment",
		"### 🧠 Analysis Quality",
		"### 🗂️ Report Structure",
		"### 📈 Actionability",
		"### ⚠️ Industry Compliance",
	} {
		assert.Contains(t, got, section)
	}
	assert.Contains(t, got, "increase the\n  severity of your critique")
	assert.NotContains(t, got, "FEEDBACK_DONE")
}

func TestCriticInstructions_TokenIsPlainText(t *testing.T) {
	got := report.CriticInstructions("seed")

	// The reply must be the bare token, so the prompt never shows it decorated.
	assert.Contains(t, got, "\n  TERMINATE\n")
	assert.NotContains(t, got, "**TERMINATE**")
	assert.NotContains(t, got, "`TERMINATE`")
}
