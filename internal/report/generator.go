// Package report turns KPI blobs and targets into an executive Markdown
// report. It validates requests, builds the seed message and role prompts,
// and runs the writer/critic conversation through an executor.
package report

import (
	"context"
	"fmt"

	"github.com/agentoven/kpi-report/internal/executor"
	"github.com/agentoven/kpi-report/pkg/models"
	"github.com/rs/zerolog/log"
)

// Options tune a single Generate call.
type Options struct {
	// HTML also renders the report to HTML.
	HTML bool
}

// Generator produces reports. It is safe for concurrent use.
type Generator struct {
	exec *executor.Executor
}

// NewGenerator creates a generator that runs conversations on exec.
func NewGenerator(exec *executor.Executor) *Generator {
	return &Generator{exec: exec}
}

// Generate validates req, runs one conversation and returns the response
// body together with the conversation it came from.
func (g *Generator) Generate(ctx context.Context, req *models.ReportRequest, opts Options) (*models.ReportResponse, *executor.Result, error) {
	if err := Validate(req); err != nil {
		return nil, nil, err
	}

	seed, err := BuildSeed(req.Data, req.TargetsText())
	if err != nil {
		return nil, nil, err
	}

	log.Debug().
		Int("blobs", len(req.Data)).
		Int("seed_bytes", len(seed)).
		Msg("Starting report conversation")

	result, err := g.exec.Execute(ctx, seed, executor.Prompts{
		Writer: WriterInstructions(),
		Critic: CriticInstructions(seed),
	})
	if err != nil {
		return nil, nil, err
	}

	resp := &models.ReportResponse{
		Report:         Finalize(result.Report, result.Approved),
		ConversationID: result.ConversationID,
		Approved:       result.Approved,
		Turns:          len(result.Turns),
		Usage:          result.Usage,
	}

	if opts.HTML {
		html, err := RenderHTML(resp.Report)
		if err != nil {
			return nil, nil, fmt.Errorf("conversation %s: %w", result.ConversationID, err)
		}
		resp.HTML = html
	}

	return resp, result, nil
}
