package adapter

import "context"

// EventReporter pings the optional analytics endpoint when a command
// completes. Fire-and-forget: implementations swallow failures.
type EventReporter interface {
	Report(ctx context.Context, event string)
}
