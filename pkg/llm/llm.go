// Package llm abstracts chat-completion providers behind one narrow
// contract: send messages, get text and the id of the model that wrote it.
package llm

import (
	"context"
	"errors"
)

// ErrNoProvider is returned when no provider is configured or available.
var ErrNoProvider = errors.New("no LLM provider available")

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider is a chat-completion backend.
type Provider interface {
	// Name returns the provider name for display/logging.
	Name() string

	// Available reports whether this provider is ready to use.
	Available() bool

	// Model returns the configured model identifier. It is the id reported
	// for degraded outputs when no completion succeeded.
	Model() string

	// Complete sends a conversation and returns the response text and the
	// identifier of the model that produced it.
	Complete(ctx context.Context, messages []Message, temperature float64) (text, model string, err error)
}

// Client selects the first available provider, in registration order.
type Client struct {
	providers []Provider
}

func NewClient(providers ...Provider) *Client {
	return &Client{providers: providers}
}

// Provider returns the active provider, or nil when none is available.
func (c *Client) Provider() Provider {
	for _, p := range c.providers {
		if p.Available() {
			return p
		}
	}
	return nil
}

func (c *Client) Available() bool {
	return c.Provider() != nil
}

// Model returns the active provider's model id, or empty when none.
func (c *Client) Model() string {
	if p := c.Provider(); p != nil {
		return p.Model()
	}
	return ""
}

// Complete sends the conversation to the best available provider.
func (c *Client) Complete(ctx context.Context, messages []Message, temperature float64) (string, string, error) {
	p := c.Provider()
	if p == nil {
		return "", "", ErrNoProvider
	}
	return p.Complete(ctx, messages, temperature)
}
