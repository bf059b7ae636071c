//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-caller-lookup/internal/domain"
	"telegram-caller-lookup/internal/domain/model"
	"telegram-caller-lookup/internal/domain/ports/adapter"
	"telegram-caller-lookup/internal/infra/i18n"
)

// mockConversationRepo is a small in-memory store used by unit tests.
type mockConversationRepo struct {
	mu    sync.RWMutex
	store map[int64]model.ConversationState

	// Optional overrides to simulate failures.
	GetFunc    func(ctx context.Context, chatID int64) (model.ConversationState, error)
	SetFunc    func(ctx context.Context, chatID int64, state model.ConversationState) error
	DeleteFunc func(ctx context.Context, chatID int64) error

	setCalls int
}

func newMockConversationRepo() *mockConversationRepo {
	return &mockConversationRepo{store: make(map[int64]model.ConversationState)}
}

func (m *mockConversationRepo) Get(ctx context.Context, chatID int64) (model.ConversationState, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, chatID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.store[chatID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return st, nil
}

func (m *mockConversationRepo) Set(ctx context.Context, chatID int64, state model.ConversationState) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, chatID, state)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++
	m.store[chatID] = state
	return nil
}

func (m *mockConversationRepo) Delete(ctx context.Context, chatID int64) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, chatID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, chatID)
	return nil
}

// has reports whether a record exists for the chat.
func (m *mockConversationRepo) has(chatID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.store[chatID]
	return ok
}

// mockAuthGateway scripts login/verify outcomes and counts calls.
type mockAuthGateway struct {
	LoginFunc     func(ctx context.Context, phoneNumber string) (*adapter.LoginResult, error)
	VerifyOTPFunc func(ctx context.Context, phoneNumber, challenge, code string) (*adapter.OtpResult, error)

	loginCalls  int
	verifyCalls int
}

func (m *mockAuthGateway) Login(ctx context.Context, phoneNumber string) (*adapter.LoginResult, error) {
	m.loginCalls++
	if m.LoginFunc == nil {
		return &adapter.LoginResult{Status: adapter.LoginStatusSent}, nil
	}
	return m.LoginFunc(ctx, phoneNumber)
}

func (m *mockAuthGateway) VerifyOTP(ctx context.Context, phoneNumber, challenge, code string) (*adapter.OtpResult, error) {
	m.verifyCalls++
	if m.VerifyOTPFunc == nil {
		return &adapter.OtpResult{}, nil
	}
	return m.VerifyOTPFunc(ctx, phoneNumber, challenge, code)
}

// mockDirectoryGateway scripts search outcomes and counts calls.
type mockDirectoryGateway struct {
	SearchFunc func(ctx context.Context, number, countryCode, installationID string) (*adapter.SearchResult, error)

	searchCalls int
}

func (m *mockDirectoryGateway) Search(ctx context.Context, number, countryCode, installationID string) (*adapter.SearchResult, error) {
	m.searchCalls++
	if m.SearchFunc == nil {
		return &adapter.SearchResult{Name: "Jane Doe"}, nil
	}
	return m.SearchFunc(ctx, number, countryCode, installationID)
}

// mockEventReporter records reported events in order.
type mockEventReporter struct {
	mu     sync.Mutex
	events []string
}

func (m *mockEventReporter) Report(ctx context.Context, event string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *mockEventReporter) reported() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	copy(out, m.events)
	return out
}

// stubLimiter answers every Allow call with a fixed verdict.
type stubLimiter struct {
	allow bool
	err   error
}

func (s *stubLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return s.allow, s.err
}

// mockMemberCounter is an in-memory member set, dedup semantics included.
type mockMemberCounter struct {
	mu       sync.Mutex
	chats    map[int64]struct{}
	addCalls int
}

func (m *mockMemberCounter) Add(ctx context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.chats == nil {
		m.chats = make(map[int64]struct{})
	}
	m.addCalls++
	m.chats[chatID] = struct{}{}
	return nil
}

func (m *mockMemberCounter) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.chats)), nil
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// newTestTranslator loads the real embedded catalog so assertions can go
// through the same keys the use case renders with.
func newTestTranslator() *i18n.Translator {
	translator, _ := i18n.NewTranslator(i18n.LocalesFS, "fa")
	return translator
}
