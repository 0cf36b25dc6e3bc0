// Package router implements the model collaborator of the KPI report
// service.
//
// The ModelRouter holds the single configured model provider, picks the
// driver for its kind (openai, azure-openai, anthropic, ollama), sends the
// request and reports usage. Calls are made once: failures are returned to
// the caller, never retried.
package router

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/agentoven/kpi-report/internal/config"
	"github.com/agentoven/kpi-report/pkg/models"
	"github.com/rs/zerolog/log"
)

// ProviderDriver talks to one kind of model API.
type ProviderDriver interface {
	Kind() string
	Call(ctx context.Context, provider *models.ModelProvider, req *models.RouteRequest) (*models.RouteResponse, error)
}

// ModelRouter routes chat requests to the configured provider.
type ModelRouter struct {
	provider    models.ModelProvider
	client      *http.Client
	temperature float64
	maxTokens   int
	tokens      *TokenCounter

	driversMu sync.RWMutex
	drivers   map[string]ProviderDriver
}

// NewModelRouter creates a router for the provider described by cfg and
// registers the built-in drivers.
func NewModelRouter(cfg config.LLMConfig) *ModelRouter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	mr := &ModelRouter{
		provider: models.ModelProvider{
			Name:     cfg.Provider,
			Kind:     cfg.Provider,
			Endpoint: cfg.BaseURL,
			Models:   []string{cfg.Model},
			Config: map[string]interface{}{
				"api_key": cfg.APIKey,
			},
		},
		client:      &http.Client{Timeout: timeout},
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		drivers:     make(map[string]ProviderDriver),
	}
	if cfg.CountTokens {
		mr.tokens = NewTokenCounter(cfg.Model)
	}

	mr.RegisterDriver(&openAIDriver{client: mr.client, kind: "openai"})
	mr.RegisterDriver(&openAIDriver{client: mr.client, kind: "azure-openai"})
	mr.RegisterDriver(&anthropicDriver{client: mr.client})
	mr.RegisterDriver(&ollamaDriver{client: mr.client})

	return mr
}

// RegisterDriver adds or replaces the driver for d.Kind().
func (mr *ModelRouter) RegisterDriver(d ProviderDriver) {
	mr.driversMu.Lock()
	defer mr.driversMu.Unlock()
	mr.drivers[d.Kind()] = d
}

// GetDriver returns the driver registered for kind, or nil.
func (mr *ModelRouter) GetDriver(kind string) ProviderDriver {
	mr.driversMu.RLock()
	defer mr.driversMu.RUnlock()
	return mr.drivers[kind]
}

// ListDrivers returns the registered driver kinds, sorted.
func (mr *ModelRouter) ListDrivers() []string {
	mr.driversMu.RLock()
	defer mr.driversMu.RUnlock()

	kinds := make([]string, 0, len(mr.drivers))
	for k := range mr.drivers {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Provider returns the configured provider.
func (mr *ModelRouter) Provider() models.ModelProvider { return mr.provider }

// Route sends req to the configured provider.
func (mr *ModelRouter) Route(ctx context.Context, req *models.RouteRequest) (*models.RouteResponse, error) {
	provider := &mr.provider

	driver := mr.GetDriver(provider.Kind)
	if driver == nil {
		// Unknown kinds are assumed to speak the OpenAI chat API.
		driver = mr.GetDriver("openai")
	}

	if req.Model == "" && len(provider.Models) > 0 {
		req.Model = provider.Models[0]
	}

	start := time.Now()
	resp, err := driver.Call(ctx, provider, req)
	if err != nil {
		log.Warn().
			Str("provider", provider.Name).
			Str("model", req.Model).
			Err(err).
			Msg("Provider call failed")
		return nil, err
	}
	resp.LatencyMs = time.Since(start).Milliseconds()

	if resp.Usage.TotalTokens == 0 && mr.tokens != nil {
		mr.estimateUsage(req, resp)
	}

	log.Debug().
		Str("provider", resp.Provider).
		Str("model", resp.Model).
		Int64("latency_ms", resp.LatencyMs).
		Int64("total_tokens", resp.Usage.TotalTokens).
		Msg("Provider call complete")

	return resp, nil
}

// Complete sends instructions as a system message followed by history and
// returns the model's reply. It implements executor.Completer.
func (mr *ModelRouter) Complete(ctx context.Context, instructions string, history []models.ChatMessage) (*models.Completion, error) {
	messages := make([]models.ChatMessage, 0, len(history)+1)
	if instructions != "" {
		messages = append(messages, models.ChatMessage{Role: models.ChatRoleSystem, Content: instructions})
	}
	messages = append(messages, history...)

	temperature := mr.temperature
	req := &models.RouteRequest{
		Messages:    messages,
		Temperature: &temperature,
	}
	if mr.maxTokens > 0 {
		maxTokens := mr.maxTokens
		req.MaxTokens = &maxTokens
	}

	resp, err := mr.Route(ctx, req)
	if err != nil {
		return nil, err
	}

	return &models.Completion{
		Content:   resp.Content,
		Model:     resp.Model,
		Usage:     resp.Usage,
		LatencyMs: resp.LatencyMs,
	}, nil
}

// estimateUsage fills in token counts for providers that report none.
func (mr *ModelRouter) estimateUsage(req *models.RouteRequest, resp *models.RouteResponse) {
	input, err := mr.tokens.CountMessages(req.Messages)
	if err != nil {
		log.Debug().Err(err).Msg("Token estimate unavailable")
		return
	}
	output, err := mr.tokens.Count(resp.Content)
	if err != nil {
		log.Debug().Err(err).Msg("Token estimate unavailable")
		return
	}
	resp.Usage = models.TokenUsage{
		InputTokens:  int64(input),
		OutputTokens: int64(output),
		TotalTokens:  int64(input + output),
	}
}

// apiKey returns the provider's API key or an error naming the provider.
func apiKey(provider *models.ModelProvider) (string, error) {
	key, _ := provider.Config["api_key"].(string)
	if key == "" {
		return "", fmt.Errorf("api_key not configured for provider %s", provider.Name)
	}
	return key, nil
}
