package executor

import "github.com/agentoven/kpi-report/pkg/models"

// Role identifies who produced a message in a conversation.
type Role string

const (
	RoleUser   Role = "user"
	RoleWriter Role = "writer"
	RoleCritic Role = "critic"
)

// Message is one entry of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// History is the append-only transcript of one conversation. It lives for
// a single Execute call and is never shared.
type History struct {
	messages []Message
}

// NewHistory starts a transcript with the seed message.
func NewHistory(seed string) *History {
	return &History{messages: []Message{{Role: RoleUser, Content: seed}}}
}

// Append adds a message to the end of the transcript.
func (h *History) Append(role Role, content string) {
	h.messages = append(h.messages, Message{Role: role, Content: content})
}

// Len returns the number of messages, seed included.
func (h *History) Len() int { return len(h.messages) }

// Messages returns a copy of the transcript.
func (h *History) Messages() []Message {
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Last returns the most recent message.
func (h *History) Last() (Message, bool) {
	if len(h.messages) == 0 {
		return Message{}, false
	}
	return h.messages[len(h.messages)-1], true
}

// LastFrom returns the most recent message produced by role.
func (h *History) LastFrom(role Role) (Message, bool) {
	for i := len(h.messages) - 1; i >= 0; i-- {
		if h.messages[i].Role == role {
			return h.messages[i], true
		}
	}
	return Message{}, false
}

// ViewFor renders the transcript as chat messages from role's point of
// view: its own messages become assistant turns, everything else is user
// input tagged with the speaker's name.
func (h *History) ViewFor(role Role) []models.ChatMessage {
	view := make([]models.ChatMessage, 0, len(h.messages))
	for _, m := range h.messages {
		if m.Role == role {
			view = append(view, models.ChatMessage{Role: models.ChatRoleAssistant, Content: m.Content})
			continue
		}
		view = append(view, models.ChatMessage{
			Role:    models.ChatRoleUser,
			Content: m.Content,
			Name:    string(m.Role),
		})
	}
	return view
}
