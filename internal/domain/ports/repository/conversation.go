package repository

import (
	"context"

	"telegram-caller-lookup/internal/domain/model"
)

// ConversationRepository is the port for the per-chat conversation state store.
// Absence of a record is reported as domain.ErrNotFound; callers treat it as
// model.LoggedOut. Set fully replaces the record for the chat, Delete resets
// the chat to logged-out. Implementations must give read-your-writes
// consistency within a single dispatch.
type ConversationRepository interface {
	Get(ctx context.Context, chatID int64) (model.ConversationState, error)
	Set(ctx context.Context, chatID int64, state model.ConversationState) error
	Delete(ctx context.Context, chatID int64) error
}
