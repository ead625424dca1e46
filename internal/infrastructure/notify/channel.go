package notify

import (
	"context"
	"fmt"
)

// Message is a rendered notification ready for delivery
type Message struct {
	Subject string
	Body    string
}

// Channel delivers rendered notifications to one kind of recipient address.
// Name returns the channel identifier reminders are keyed by ("EMAIL",
// "SMS", "CHAT").
type Channel interface {
	Name() string
	Send(ctx context.Context, recipient string, msg Message) error
}

// Registry resolves channels by name
type Registry struct {
	channels map[string]Channel
}

// NewRegistry creates a registry holding the given channels
func NewRegistry(channels ...Channel) *Registry {
	r := &Registry{channels: make(map[string]Channel, len(channels))}
	for _, ch := range channels {
		r.channels[ch.Name()] = ch
	}
	return r
}

// Register adds or replaces a channel
func (r *Registry) Register(ch Channel) {
	r.channels[ch.Name()] = ch
}

// Get returns the channel registered under name
func (r *Registry) Get(name string) (Channel, error) {
	ch, ok := r.channels[name]
	if !ok {
		return nil, fmt.Errorf("no notification channel registered for %q", name)
	}
	return ch, nil
}
