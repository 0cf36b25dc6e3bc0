// Package models holds the wire types shared by the KPI report service:
// the /report request and response bodies and the chat types exchanged
// with model providers.
package models

// ── Report API ───────────────────────────────────────────────

// KPIBlob is one named KPI time series. Records are kept as open-ended
// objects; only their presence is checked.
type KPIBlob struct {
	Name string                   `json:"name"`
	Data []map[string]interface{} `json:"data"`
}

// ReportRequest is the body of POST /report.
type ReportRequest struct {
	Data    []KPIBlob `json:"data"`
	Targets *string   `json:"targets,omitempty"`
}

// TargetsText returns the targets string, or "" when none was sent.
func (r *ReportRequest) TargetsText() string {
	if r.Targets == nil {
		return ""
	}
	return *r.Targets
}

// ReportResponse is the body returned by POST /report.
type ReportResponse struct {
	Report         string     `json:"report"`
	ConversationID string     `json:"conversation_id"`
	Approved       bool       `json:"approved"`
	Turns          int        `json:"turns"`
	Usage          TokenUsage `json:"usage"`
	HTML           string     `json:"html,omitempty"`
}

// ── Model Router ─────────────────────────────────────────────

// Chat roles understood by every provider driver.
const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// ModelProvider describes the single upstream model endpoint the service
// talks to. It is built from configuration at startup.
type ModelProvider struct {
	Name     string                 `json:"name"`
	Kind     string                 `json:"kind"`
	Endpoint string                 `json:"endpoint,omitempty"`
	Models   []string               `json:"models"`
	Config   map[string]interface{} `json:"config,omitempty"`
}

type RouteRequest struct {
	Messages []ChatMessage `json:"messages"`
	Model    string        `json:"model,omitempty"`

	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

type RouteResponse struct {
	ID           string     `json:"id"`
	Provider     string     `json:"provider"`
	Model        string     `json:"model"`
	Content      string     `json:"content"`
	Usage        TokenUsage `json:"usage"`
	LatencyMs    int64      `json:"latency_ms"`
	FinishReason string     `json:"finish_reason,omitempty"`
}

type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// Add accumulates other into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}

// Completion is the text produced by one model call plus its accounting.
type Completion struct {
	Content   string     `json:"content"`
	Model     string     `json:"model,omitempty"`
	Usage     TokenUsage `json:"usage"`
	LatencyMs int64      `json:"latency_ms"`
}
