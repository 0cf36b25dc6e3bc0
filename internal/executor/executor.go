// Package executor runs the writer/critic conversation that produces a
// KPI report:
//
//	seed → writer drafts → critic reviews → (feedback) writer revises → ...
//
// until the critic replies with the termination token or the turn cap is
// reached. Each Execute call owns its history; an Executor holds no
// per-conversation state and is safe for concurrent use.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agentoven/kpi-report/pkg/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxTurns is the number of role turns (writer, critic, writer,
// critic) after which the last draft is returned unapproved.
const DefaultMaxTurns = 4

// DefaultTerminationToken is the critic's approval reply.
const DefaultTerminationToken = "TERMINATE"

var (
	// ErrCompletion wraps every failure of the model collaborator.
	ErrCompletion = errors.New("model completion failed")

	// ErrEmptyCompletion is returned when a model answers with no text.
	ErrEmptyCompletion = errors.New("empty completion")
)

var tracer = otel.Tracer("kpi-report/executor")

// Completer is the language-model capability the loop depends on: given a
// role's instructions and the conversation as that role sees it, return
// the role's next message.
type Completer interface {
	Complete(ctx context.Context, instructions string, history []models.ChatMessage) (*models.Completion, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, instructions string, history []models.ChatMessage) (*models.Completion, error)

func (f CompleterFunc) Complete(ctx context.Context, instructions string, history []models.ChatMessage) (*models.Completion, error) {
	return f(ctx, instructions, history)
}

// Prompts are the system instructions for the two roles of one
// conversation.
type Prompts struct {
	Writer string
	Critic string
}

// Turn is one role turn of the conversation.
type Turn struct {
	Number    int               `json:"number"`
	Role      Role              `json:"role"`
	Content   string            `json:"content"`
	LatencyMs int64             `json:"latency_ms"`
	Usage     models.TokenUsage `json:"usage"`
}

// Result is the outcome of one conversation.
type Result struct {
	ConversationID string            `json:"conversation_id"`
	Report         string            `json:"report"`
	Approved       bool              `json:"approved"`
	Turns          []Turn            `json:"turns"`
	Usage          models.TokenUsage `json:"usage"`
	TotalMs        int64             `json:"total_ms"`
	History        *History          `json:"-"`
}

// Executor drives writer/critic conversations against a Completer.
type Executor struct {
	completer Completer
	maxTurns  int
	token     string
}

// Option configures an Executor.
type Option func(*Executor)

// WithMaxTurns sets the turn cap. Values below 1 keep the default.
func WithMaxTurns(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxTurns = n
		}
	}
}

// WithTerminationToken sets the critic's approval reply.
func WithTerminationToken(token string) Option {
	return func(e *Executor) {
		if token != "" {
			e.token = token
		}
	}
}

// NewExecutor creates an executor that asks c for every turn.
func NewExecutor(c Completer, opts ...Option) *Executor {
	e := &Executor{
		completer: c,
		maxTurns:  DefaultMaxTurns,
		token:     DefaultTerminationToken,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxTurns returns the configured turn cap.
func (e *Executor) MaxTurns() int { return e.maxTurns }

// Execute runs one conversation seeded with seed.
//
// Flow:
//  1. WRITER_TURN: the writer drafts from the seed (and any feedback)
//  2. CRITIC_TURN: the critic reviews the latest draft
//  3. An exact termination token ends the conversation; anything else is
//     feedback and goes back to step 1
//  4. At the turn cap the latest draft is returned with Approved=false
//
// Collaborator failures abort the conversation with an error wrapping
// ErrCompletion; nothing is retried.
func (e *Executor) Execute(ctx context.Context, seed string, prompts Prompts) (*Result, error) {
	result := &Result{
		ConversationID: uuid.New().String(),
		History:        NewHistory(seed),
	}
	start := time.Now()

	ctx, span := tracer.Start(ctx, "executor.Execute",
		trace.WithAttributes(
			attribute.String("kpireport.conversation_id", result.ConversationID),
			attribute.Int("kpireport.max_turns", e.maxTurns),
		),
	)
	defer span.End()

	logger := log.With().Str("conversation", result.ConversationID).Logger()

	state := StateWriterTurn
	for state != StateDone {
		if len(result.Turns) >= e.maxTurns {
			break
		}
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("conversation %s interrupted: %w", result.ConversationID, err)
		}

		role := state.Role()
		instructions := prompts.Writer
		if role == RoleCritic {
			instructions = prompts.Critic
		}

		turn, err := e.runTurn(ctx, len(result.Turns)+1, role, instructions, result.History)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		result.History.Append(role, turn.Content)
		result.Turns = append(result.Turns, *turn)
		result.Usage.Add(turn.Usage)

		state = Step(state, turn.Content, e.token)

		logger.Debug().
			Str("role", string(role)).
			Int("turn", turn.Number).
			Int64("latency_ms", turn.LatencyMs).
			Str("next", string(state)).
			Msg("Conversation turn complete")
	}

	result.Approved = state == StateDone
	result.TotalMs = time.Since(start).Milliseconds()

	draft, ok := result.History.LastFrom(RoleWriter)
	if !ok {
		// Only reachable with a zero turn cap, which NewExecutor prevents.
		return nil, fmt.Errorf("conversation %s produced no draft", result.ConversationID)
	}
	result.Report = draft.Content

	span.SetAttributes(
		attribute.Bool("kpireport.approved", result.Approved),
		attribute.Int("kpireport.turns", len(result.Turns)),
		attribute.Int64("kpireport.total_tokens", result.Usage.TotalTokens),
	)

	if result.Approved {
		logger.Info().
			Int("turns", len(result.Turns)).
			Int64("total_ms", result.TotalMs).
			Msg("Report approved by critic")
	} else {
		logger.Warn().
			Int("max_turns", e.maxTurns).
			Int64("total_ms", result.TotalMs).
			Msg("Turn cap reached without approval, returning last draft")
	}

	return result, nil
}

// runTurn asks the completer for role's next message.
func (e *Executor) runTurn(ctx context.Context, number int, role Role, instructions string, history *History) (*Turn, error) {
	ctx, span := tracer.Start(ctx, "executor.turn",
		trace.WithAttributes(
			attribute.String("kpireport.role", string(role)),
			attribute.Int("kpireport.turn", number),
		),
	)
	defer span.End()

	turnStart := time.Now()
	completion, err := e.completer.Complete(ctx, instructions, history.ViewFor(role))
	if err != nil {
		return nil, fmt.Errorf("%w: %s turn %d: %w", ErrCompletion, role, number, err)
	}
	if completion == nil || strings.TrimSpace(completion.Content) == "" {
		return nil, fmt.Errorf("%w: %s turn %d: %w", ErrCompletion, role, number, ErrEmptyCompletion)
	}

	span.SetAttributes(
		attribute.Int64("kpireport.input_tokens", completion.Usage.InputTokens),
		attribute.Int64("kpireport.output_tokens", completion.Usage.OutputTokens),
	)

	return &Turn{
		Number:    number,
		Role:      role,
		Content:   completion.Content,
		LatencyMs: time.Since(turnStart).Milliseconds(),
		Usage:     completion.Usage,
	}, nil
}
