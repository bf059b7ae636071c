package redis

import (
	"context"
	"errors"
	"fmt"

	"telegram-caller-lookup/internal/domain"
	"telegram-caller-lookup/internal/domain/model"
	"telegram-caller-lookup/internal/domain/ports/repository"

	"github.com/go-redis/redis/v8"
)

var _ repository.ConversationRepository = (*ConversationRepo)(nil)

// ConversationRepo stores the per-chat login state in Redis. Records carry no
// TTL: a logged-in credential stays valid until /logout or the user blocks
// the bot.
type ConversationRepo struct {
	client *Client
}

func NewConversationRepo(client *Client) *ConversationRepo {
	return &ConversationRepo{client: client}
}

func (r *ConversationRepo) stateKey(chatID int64) string {
	return fmt.Sprintf("conv_state:%d", chatID)
}

func (r *ConversationRepo) Get(ctx context.Context, chatID int64) (model.ConversationState, error) {
	data, err := r.client.Get(ctx, r.stateKey(chatID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return model.UnmarshalState([]byte(data))
}

func (r *ConversationRepo) Set(ctx context.Context, chatID int64, state model.ConversationState) error {
	data, err := model.MarshalState(state)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.stateKey(chatID), data, 0)
}

func (r *ConversationRepo) Delete(ctx context.Context, chatID int64) error {
	return r.client.Del(ctx, r.stateKey(chatID))
}
