package llm

import (
	"context"
	"errors"
	"testing"
)

type stubProvider struct {
	name      string
	available bool
	reply     string
}

func (s *stubProvider) Name() string    { return s.name }
func (s *stubProvider) Available() bool { return s.available }
func (s *stubProvider) Model() string   { return s.name + "-model" }

func (s *stubProvider) Complete(context.Context, []Message, float64) (string, string, error) {
	return s.reply, s.Model(), nil
}

func TestClientPicksFirstAvailable(t *testing.T) {
	down := &stubProvider{name: "down"}
	up := &stubProvider{name: "up", available: true, reply: "hi"}
	c := NewClient(down, up)

	text, model, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hello"}}, 0.2)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "hi" || model != "up-model" {
		t.Errorf("Complete() = (%q, %q), want (hi, up-model)", text, model)
	}
	if c.Model() != "up-model" {
		t.Errorf("Model() = %q, want up-model", c.Model())
	}
}

func TestClientNoProvider(t *testing.T) {
	c := NewClient(&stubProvider{name: "down"})
	if c.Available() {
		t.Error("Available() = true, want false")
	}
	_, _, err := c.Complete(context.Background(), nil, 0)
	if !errors.Is(err, ErrNoProvider) {
		t.Errorf("Complete() error = %v, want ErrNoProvider", err)
	}
}
