// Package mocks provides test doubles for the model collaborator.
package mocks

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/agentoven/kpi-report/pkg/models"
)

// ErrNoScript is returned in strict mode when no script matches a call.
var ErrNoScript = errors.New("no scripted response matches")

// ScriptedResponse is one scripted reply.
type ScriptedResponse struct {
	// Reply is the text returned when this script is used.
	Reply string

	// Err is returned instead of Reply when set.
	Err error

	// InstructionsPattern is matched against the role instructions (regex).
	// If empty, matches any call.
	InstructionsPattern string

	// Usage is reported with the reply.
	Usage models.TokenUsage

	// Repeatable scripts are not consumed when used.
	Repeatable bool
}

// CompletionCall records one call made to the completer.
type CompletionCall struct {
	Instructions string
	History      []models.ChatMessage
}

// ScriptedCompleter implements executor.Completer with scripted replies.
// Scripts are tried in the order they were added; the first match is used.
type ScriptedCompleter struct {
	mu            sync.Mutex
	scripts       []scriptEntry
	calls         []CompletionCall
	fallbackReply string
	fallbackErr   error
	strict        bool
}

type scriptEntry struct {
	ScriptedResponse
	pattern *regexp.Regexp
	used    bool
}

// ScriptedOption configures a ScriptedCompleter.
type ScriptedOption func(*ScriptedCompleter)

// WithStrictMode makes unmatched calls fail with ErrNoScript.
func WithStrictMode() ScriptedOption {
	return func(s *ScriptedCompleter) { s.strict = true }
}

// WithFallback sets the reply used when no script matches.
func WithFallback(reply string) ScriptedOption {
	return func(s *ScriptedCompleter) { s.fallbackReply = reply }
}

// WithFallbackError sets the error returned when no script matches.
func WithFallbackError(err error) ScriptedOption {
	return func(s *ScriptedCompleter) { s.fallbackErr = err }
}

// NewScriptedCompleter creates an empty ScriptedCompleter.
func NewScriptedCompleter(opts ...ScriptedOption) *ScriptedCompleter {
	s := &ScriptedCompleter{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddScript appends a scripted response. It panics on an invalid pattern.
func (s *ScriptedCompleter) AddScript(script ScriptedResponse) *ScriptedCompleter {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := scriptEntry{ScriptedResponse: script}
	if script.InstructionsPattern != "" {
		entry.pattern = regexp.MustCompile(script.InstructionsPattern)
	}
	s.scripts = append(s.scripts, entry)
	return s
}

// AddReply appends a one-shot reply that matches any call.
func (s *ScriptedCompleter) AddReply(reply string) *ScriptedCompleter {
	return s.AddScript(ScriptedResponse{Reply: reply})
}

// AddError appends a one-shot error.
func (s *ScriptedCompleter) AddError(err error) *ScriptedCompleter {
	return s.AddScript(ScriptedResponse{Err: err})
}

// AddPatternReply appends a one-shot reply used only for calls whose
// instructions match pattern.
func (s *ScriptedCompleter) AddPatternReply(pattern, reply string) *ScriptedCompleter {
	return s.AddScript(ScriptedResponse{InstructionsPattern: pattern, Reply: reply})
}

// Complete implements executor.Completer.
func (s *ScriptedCompleter) Complete(ctx context.Context, instructions string, history []models.ChatMessage) (*models.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recorded := make([]models.ChatMessage, len(history))
	copy(recorded, history)
	s.calls = append(s.calls, CompletionCall{Instructions: instructions, History: recorded})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i := range s.scripts {
		entry := &s.scripts[i]
		if entry.used {
			continue
		}
		if entry.pattern != nil && !entry.pattern.MatchString(instructions) {
			continue
		}
		if !entry.Repeatable {
			entry.used = true
		}
		if entry.Err != nil {
			return nil, entry.Err
		}
		return &models.Completion{Content: entry.Reply, Model: "scripted", Usage: entry.Usage}, nil
	}

	if s.fallbackErr != nil {
		return nil, s.fallbackErr
	}
	if s.strict || s.fallbackReply == "" {
		return nil, fmt.Errorf("%w (call %d)", ErrNoScript, len(s.calls))
	}
	return &models.Completion{Content: s.fallbackReply, Model: "scripted"}, nil
}

// Calls returns the calls made so far.
func (s *ScriptedCompleter) Calls() []CompletionCall {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]CompletionCall, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount returns how many calls were made.
func (s *ScriptedCompleter) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}
