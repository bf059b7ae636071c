package adapter

import "context"

// Notifier covers the fire-and-forget Telegram side calls that happen outside
// the webhook reply itself. Failures are logged by implementations and never
// affect the primary reply.
type Notifier interface {
	// SendTyping shows the typing indicator in the chat.
	SendTyping(ctx context.Context, chatID int64)
	// ReportError forwards full error detail for the given chat to the
	// configured report channel, if any.
	ReportError(ctx context.Context, chatID int64, err error)
}
