package message

import "context"

// Message is one outbound notification. Body is plain text; sinks that
// support rich content derive it from Body.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Sender delivers a message through a single transport.
type Sender interface {
	Send(ctx context.Context, message Message) error
}
