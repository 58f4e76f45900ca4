// Package push delivers a rendered digest over a named channel. The channel
// name is also the push-log key, so each channel tracks its own deliveries.
package push

import (
	"context"
)

// Message is the rendered digest handed to a channel.
type Message struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Notifier delivers a digest to one destination. Send returns nil only on a
// confirmed successful delivery; the push log must not be written otherwise.
type Notifier interface {
	Name() string
	Send(ctx context.Context, m *Message) error
}
