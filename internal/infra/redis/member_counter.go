package redis

import (
	"context"
)

const membersKey = "members:chats"

// MemberCounter tracks how many distinct chats have ever started the bot.
// Chat ids live in a set so repeated first contacts cannot inflate the tally.
type MemberCounter struct {
	client *Client
}

func NewMemberCounter(client *Client) *MemberCounter {
	return &MemberCounter{client: client}
}

// Add records the chat as a member. Adding the same chat again is a no-op.
func (m *MemberCounter) Add(ctx context.Context, chatID int64) error {
	return m.client.SAdd(ctx, membersKey, chatID)
}

func (m *MemberCounter) Count(ctx context.Context) (int64, error) {
	// SCARD on a missing key is 0, no not-found mapping needed.
	return m.client.SCard(ctx, membersKey)
}
