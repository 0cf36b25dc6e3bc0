package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/agentoven/kpi-report/pkg/models"
	"github.com/google/uuid"
)

// postJSON sends body to url and decodes a 200 response into out.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		return fmt.Errorf("status %d: %s", httpResp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ── OpenAI / Azure OpenAI Provider ──────────────────────────

type openAIRequest struct {
	Model       string               `json:"model"`
	Messages    []models.ChatMessage `json:"messages"`
	Temperature *float64             `json:"temperature,omitempty"`
	MaxTokens   *int                 `json:"max_tokens,omitempty"`
}

type openAIResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
}

func (r *openAIResponse) toRouteResponse(provider *models.ModelProvider, model string) *models.RouteResponse {
	resp := &models.RouteResponse{
		ID:       r.ID,
		Provider: provider.Name,
		Model:    model,
		Usage: models.TokenUsage{
			InputTokens:  r.Usage.PromptTokens,
			OutputTokens: r.Usage.CompletionTokens,
			TotalTokens:  r.Usage.TotalTokens,
		},
	}
	if r.Model != "" {
		resp.Model = r.Model
	}
	if len(r.Choices) > 0 {
		resp.Content = r.Choices[0].Message.Content
		resp.FinishReason = r.Choices[0].FinishReason
	}
	return resp
}

// openAIDriver serves OpenAI, Azure OpenAI and any OpenAI-compatible
// endpoint set through the provider's base URL.
type openAIDriver struct {
	client *http.Client
	kind   string
}

func (d *openAIDriver) Kind() string { return d.kind }

func (d *openAIDriver) Call(ctx context.Context, provider *models.ModelProvider, req *models.RouteRequest) (*models.RouteResponse, error) {
	endpoint := strings.TrimRight(provider.Endpoint, "/")
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1"
	}

	key, err := apiKey(provider)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.kind, err)
	}

	// Azure OpenAI uses a different auth header
	headers := map[string]string{"Authorization": "Bearer " + key}
	if d.kind == "azure-openai" {
		headers = map[string]string{"api-key": key}
	}

	var oaiResp openAIResponse
	err = postJSON(ctx, d.client, endpoint+"/chat/completions", headers, openAIRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}, &oaiResp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.kind, err)
	}

	return oaiResp.toRouteResponse(provider, req.Model), nil
}

// ── Anthropic Provider ──────────────────────────────────────

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicDriver struct {
	client *http.Client
}

func (d *anthropicDriver) Kind() string { return "anthropic" }

func (d *anthropicDriver) Call(ctx context.Context, provider *models.ModelProvider, req *models.RouteRequest) (*models.RouteResponse, error) {
	endpoint := strings.TrimRight(provider.Endpoint, "/")
	if endpoint == "" {
		endpoint = "https://api.anthropic.com"
	}

	key, err := apiKey(provider)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	maxTokens := 4096
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		maxTokens = *req.MaxTokens
	}

	// Anthropic temperature is bounded to [0, 1].
	var temperature *float64
	if req.Temperature != nil {
		t := *req.Temperature
		if t > 1 {
			t = 1
		}
		temperature = &t
	}

	system, messages := toAnthropicMessages(req.Messages)

	var anthResp anthropicResponse
	err = postJSON(ctx, d.client, endpoint+"/v1/messages", map[string]string{
		"x-api-key":         key,
		"anthropic-version": "2023-06-01",
	}, anthropicRequest{
		Model:       req.Model,
		System:      system,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}, &anthResp)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	var content strings.Builder
	for _, c := range anthResp.Content {
		if c.Type == "text" {
			content.WriteString(c.Text)
		}
	}

	model := req.Model
	if anthResp.Model != "" {
		model = anthResp.Model
	}

	return &models.RouteResponse{
		ID:           anthResp.ID,
		Provider:     provider.Name,
		Model:        model,
		Content:      content.String(),
		FinishReason: anthResp.StopReason,
		Usage: models.TokenUsage{
			InputTokens:  anthResp.Usage.InputTokens,
			OutputTokens: anthResp.Usage.OutputTokens,
			TotalTokens:  anthResp.Usage.InputTokens + anthResp.Usage.OutputTokens,
		},
	}, nil
}

// toAnthropicMessages lifts system messages into the system prompt and
// merges consecutive messages of the same role, since the Messages API
// expects user and assistant turns to alternate.
func toAnthropicMessages(in []models.ChatMessage) (string, []anthropicMessage) {
	var system []string
	out := make([]anthropicMessage, 0, len(in))
	for _, m := range in {
		if m.Role == models.ChatRoleSystem {
			system = append(system, m.Content)
			continue
		}
		if n := len(out); n > 0 && out[n-1].Role == m.Role {
			out[n-1].Content += "\n\n" + m.Content
			continue
		}
		out = append(out, anthropicMessage{Role: m.Role, Content: m.Content})
	}
	return strings.Join(system, "\n\n"), out
}

// ── Ollama Provider ─────────────────────────────────────────

type ollamaDriver struct {
	client *http.Client
}

func (d *ollamaDriver) Kind() string { return "ollama" }

func (d *ollamaDriver) Call(ctx context.Context, provider *models.ModelProvider, req *models.RouteRequest) (*models.RouteResponse, error) {
	endpoint := strings.TrimRight(provider.Endpoint, "/")
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}

	var oaiResp openAIResponse
	err := postJSON(ctx, d.client, endpoint+"/v1/chat/completions", nil, openAIRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}, &oaiResp)
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}

	resp := oaiResp.toRouteResponse(provider, req.Model)
	if resp.ID == "" {
		resp.ID = uuid.New().String()
	}
	return resp, nil
}
