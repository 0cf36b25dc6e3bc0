package router

import (
	"fmt"
	"sync"

	"github.com/agentoven/kpi-report/pkg/models"
	"github.com/pkoukk/tiktoken-go"
)

// perMessageOverhead approximates the tokens the chat format adds around
// each message.
const perMessageOverhead = 4

// TokenCounter estimates token counts with the BPE encoding of a model,
// falling back to cl100k_base for models tiktoken does not know. The
// encoding is loaded on first use.
type TokenCounter struct {
	model string

	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

// NewTokenCounter creates a counter for model.
func NewTokenCounter(model string) *TokenCounter {
	return &TokenCounter{model: model}
}

func (c *TokenCounter) load() {
	c.enc, c.err = tiktoken.EncodingForModel(c.model)
	if c.err != nil {
		c.enc, c.err = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
	}
	if c.err != nil {
		c.err = fmt.Errorf("load token encoding for %s: %w", c.model, c.err)
	}
}

// Count returns the number of tokens in text.
func (c *TokenCounter) Count(text string) (int, error) {
	c.once.Do(c.load)
	if c.err != nil {
		return 0, c.err
	}
	return len(c.enc.Encode(text, nil, nil)), nil
}

// CountMessages estimates the prompt tokens of a chat request.
func (c *TokenCounter) CountMessages(messages []models.ChatMessage) (int, error) {
	total := 0
	for _, m := range messages {
		n, err := c.Count(m.Content)
		if err != nil {
			return 0, err
		}
		total += n + perMessageOverhead
	}
	return total, nil
}
