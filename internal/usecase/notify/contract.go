package notify

import "context"

// Sink delivers a rendered message to one channel.
type Sink interface {
	Name() string
	Send(ctx context.Context, text string) error
}
