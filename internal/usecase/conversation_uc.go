package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"telegram-caller-lookup/internal/domain"
	"telegram-caller-lookup/internal/domain/model"
	"telegram-caller-lookup/internal/domain/ports/adapter"
	"telegram-caller-lookup/internal/domain/ports/repository"
	"telegram-caller-lookup/internal/infra/i18n"
	"telegram-caller-lookup/internal/infra/metrics"
)

// Reply is the outbound message for the originating chat. An empty Text means
// the event is acknowledged without a message.
type Reply struct {
	Text string
	// Formatted marks the text as MarkdownV2.
	Formatted bool
}

// LookupLimiter caps directory lookups per chat. The Redis rate limiter
// satisfies it; tests plug in a permissive stub.
type LookupLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// MemberCounter tracks distinct first contacts for the /members_count
// command. Add must be idempotent per chat.
type MemberCounter interface {
	Add(ctx context.Context, chatID int64) error
	Count(ctx context.Context) (int64, error)
}

// ConversationUseCase drives the per-chat login state machine: it loads the
// chat's state, decides the transition for the inbound text, performs the
// gateway calls the decision requires, persists the new state and returns the
// reply. Chat identity is threaded explicitly through every call.
type ConversationUseCase struct {
	repo    repository.ConversationRepository
	auth    adapter.AuthGateway
	dir     adapter.DirectoryGateway
	limiter LookupLimiter
	members MemberCounter
	events  adapter.EventReporter
	tr      *i18n.Translator
	log     *zerolog.Logger

	lookupLimit int
}

func NewConversationUseCase(
	repo repository.ConversationRepository,
	auth adapter.AuthGateway,
	dir adapter.DirectoryGateway,
	limiter LookupLimiter,
	members MemberCounter,
	events adapter.EventReporter,
	tr *i18n.Translator,
	lookupLimit int,
	logger *zerolog.Logger,
) *ConversationUseCase {
	if lookupLimit <= 0 {
		lookupLimit = 20
	}
	return &ConversationUseCase{
		repo:        repo,
		auth:        auth,
		dir:         dir,
		limiter:     limiter,
		members:     members,
		events:      events,
		tr:          tr,
		log:         logger,
		lookupLimit: lookupLimit,
	}
}

// HandleRemoved handles the "user blocked/removed the bot" membership event:
// the chat's record is deleted without invoking the state machine.
func (u *ConversationUseCase) HandleRemoved(ctx context.Context, chatID int64) error {
	if err := u.repo.Delete(ctx, chatID); err != nil {
		return fmt.Errorf("delete state: %w", err)
	}
	u.events.Report(ctx, "/stop")
	return nil
}

// HandleMessage runs one dispatch for an inbound text message. Errors are
// fatal for the dispatch and handled by the caller's top-level error path;
// everything the user can recover from is expressed as a Reply.
func (u *ConversationUseCase) HandleMessage(ctx context.Context, chatID int64, text string) (Reply, error) {
	state, absent, err := u.loadState(ctx, chatID)
	if err != nil {
		return Reply{}, fmt.Errorf("load state: %w", err)
	}

	// Commands take precedence over in-flow answers, whatever the state.
	switch text {
	case "/members_count":
		metrics.IncCommand(text)
		return u.handleMembersCount(ctx)
	case "/start":
		metrics.IncCommand(text)
		return u.handleStart(ctx, chatID, absent, state)
	case "/info":
		metrics.IncCommand(text)
		return u.handleInfo(state), nil
	case "/installation_id":
		metrics.IncCommand(text)
		return u.handleImportCommand(ctx, chatID, state)
	case "/logout":
		metrics.IncCommand(text)
		return u.handleLogout(ctx, chatID)
	case "/login":
		metrics.IncCommand(text)
		return u.handleLoginCommand(ctx, chatID, state)
	}

	// In-flow answers: only plain text counts, a stray command never does.
	if !strings.HasPrefix(text, "/") {
		switch st := state.(type) {
		case model.AwaitingInstallationID:
			return u.handleInstallationID(ctx, chatID, text)
		case model.AwaitingCountryCode:
			return u.handleCountryCode(ctx, chatID, st, text)
		case model.AwaitingPhoneNumber:
			return u.handlePhoneNumber(ctx, chatID, text)
		case model.AwaitingOTP:
			return u.handleOTP(ctx, chatID, st, text)
		}
	}

	// Everything else is a lookup attempt.
	return u.handleLookup(ctx, chatID, state, text)
}

// loadState maps an absent record to LoggedOut, per the store contract.
func (u *ConversationUseCase) loadState(ctx context.Context, chatID int64) (model.ConversationState, bool, error) {
	state, err := u.repo.Get(ctx, chatID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return model.LoggedOut{}, true, nil
		}
		return nil, false, err
	}
	return state, false, nil
}

func (u *ConversationUseCase) handleMembersCount(ctx context.Context) (Reply, error) {
	count, err := u.members.Count(ctx)
	if err != nil {
		return Reply{}, fmt.Errorf("members count: %w", err)
	}
	return Reply{Text: u.tr.T("members_count", count)}, nil
}

func (u *ConversationUseCase) handleStart(ctx context.Context, chatID int64, absent bool, state model.ConversationState) (Reply, error) {
	if absent {
		if err := u.members.Add(ctx, chatID); err != nil {
			u.log.Warn().Err(err).Msg("member counter bump failed")
		}
	}
	if state.Status() == model.StatusLoggedOut {
		u.events.Report(ctx, "/start")
	}
	return Reply{Text: u.tr.T("welcome")}, nil
}

func (u *ConversationUseCase) handleInfo(state model.ConversationState) Reply {
	status := "Logged out"
	installationID := ""
	if st, ok := state.(model.LoggedIn); ok {
		status = "Logged in"
		installationID = u.tr.T("info_installation_id", st.InstallationID)
	}
	text := u.tr.T("info_status", status) + installationID + "\n\n" + u.tr.T("info_about")
	return Reply{Text: text, Formatted: true}
}

func (u *ConversationUseCase) handleImportCommand(ctx context.Context, chatID int64, state model.ConversationState) (Reply, error) {
	if state.Status() == model.StatusLoggedIn {
		return Reply{Text: u.tr.T("already_logged_in_import")}, nil
	}
	if err := u.repo.Set(ctx, chatID, model.AwaitingInstallationID{}); err != nil {
		return Reply{}, fmt.Errorf("set state: %w", err)
	}
	return Reply{Text: u.tr.T("prompt_installation_id"), Formatted: true}, nil
}

func (u *ConversationUseCase) handleLogout(ctx context.Context, chatID int64) (Reply, error) {
	if err := u.repo.Delete(ctx, chatID); err != nil {
		return Reply{}, fmt.Errorf("delete state: %w", err)
	}
	u.events.Report(ctx, "/logout")
	return Reply{Text: u.tr.T("logout_done")}, nil
}

func (u *ConversationUseCase) handleLoginCommand(ctx context.Context, chatID int64, state model.ConversationState) (Reply, error) {
	if state.Status() == model.StatusLoggedIn {
		return Reply{Text: u.tr.T("already_logged_in_login")}, nil
	}
	if err := u.repo.Set(ctx, chatID, model.AwaitingPhoneNumber{}); err != nil {
		return Reply{}, fmt.Errorf("set state: %w", err)
	}
	return Reply{Text: u.tr.T("prompt_phone")}, nil
}

func (u *ConversationUseCase) handleInstallationID(ctx context.Context, chatID int64, installationID string) (Reply, error) {
	next := model.AwaitingCountryCode{InstallationID: installationID}
	if err := u.repo.Set(ctx, chatID, next); err != nil {
		return Reply{}, fmt.Errorf("set state: %w", err)
	}
	u.events.Report(ctx, "/installation_id")
	return Reply{Text: u.tr.T("prompt_country_code"), Formatted: true}, nil
}

func (u *ConversationUseCase) handleCountryCode(ctx context.Context, chatID int64, st model.AwaitingCountryCode, countryCode string) (Reply, error) {
	next := model.LoggedIn{InstallationID: st.InstallationID, CountryCode: countryCode}
	if err := u.repo.Set(ctx, chatID, next); err != nil {
		return Reply{}, fmt.Errorf("set state: %w", err)
	}
	return Reply{Text: u.tr.T("import_success")}, nil
}

func (u *ConversationUseCase) handlePhoneNumber(ctx context.Context, chatID int64, phoneNumber string) (Reply, error) {
	if !strings.HasPrefix(phoneNumber, "+") {
		return Reply{Text: u.tr.T("phone_format_error")}, nil
	}

	res, err := u.auth.Login(ctx, phoneNumber)
	if err != nil {
		return Reply{}, fmt.Errorf("auth login: %w", err)
	}

	next, reply := u.loginOutcome(phoneNumber, res)
	if next != nil {
		if err := u.repo.Set(ctx, chatID, next); err != nil {
			return Reply{}, fmt.Errorf("set state: %w", err)
		}
	}
	return reply, nil
}

// loginOutcome decides the transition for a login-call result. A nil next
// state means the chat stays where it is and nothing is written.
func (u *ConversationUseCase) loginOutcome(phoneNumber string, res *adapter.LoginResult) (model.ConversationState, Reply) {
	switch {
	case res.RateLimited():
		return nil, Reply{Text: u.tr.T("login_rate_limited")}
	case !res.ChallengeSent():
		// Surface the provider's own message verbatim.
		return nil, Reply{Text: res.Message}
	default:
		next := model.AwaitingOTP{
			PhoneNumber:    phoneNumber,
			LoginChallenge: res.RequestID,
			CountryCode:    res.ParsedCountryCode,
		}
		return next, Reply{Text: u.tr.T("prompt_otp")}
	}
}

func (u *ConversationUseCase) handleOTP(ctx context.Context, chatID int64, st model.AwaitingOTP, code string) (Reply, error) {
	res, err := u.auth.VerifyOTP(ctx, st.PhoneNumber, st.LoginChallenge, code)
	if err != nil {
		return Reply{}, fmt.Errorf("verify otp: %w", err)
	}

	next, reply, loggedIn := u.otpOutcome(st, res)
	if next != nil {
		if err := u.repo.Set(ctx, chatID, next); err != nil {
			return Reply{}, fmt.Errorf("set state: %w", err)
		}
	}
	if loggedIn {
		u.events.Report(ctx, "/login")
	}
	return reply, nil
}

// otpOutcome decides the transition for a verification result. On every
// failure the chat remains in AwaitingOTP so the user may retry or restart
// with /login.
func (u *ConversationUseCase) otpOutcome(st model.AwaitingOTP, res *adapter.OtpResult) (model.ConversationState, Reply, bool) {
	switch {
	case res.Suspended:
		return nil, Reply{Text: u.tr.T("otp_suspended")}, false
	case res.InvalidCode():
		return nil, Reply{Text: u.tr.T("otp_invalid")}, false
	case res.MaxAttempts():
		return nil, Reply{Text: u.tr.T("otp_max_attempts")}, false
	case res.InstallationID == "":
		if res.Message != "" {
			return nil, Reply{Text: res.Message}, false
		}
		return nil, Reply{Text: u.tr.T("otp_unknown_error")}, false
	default:
		next := model.LoggedIn{
			InstallationID: res.InstallationID,
			CountryCode:    st.CountryCode,
		}
		return next, Reply{Text: u.tr.T("login_success")}, true
	}
}

func (u *ConversationUseCase) handleLookup(ctx context.Context, chatID int64, state model.ConversationState, number string) (Reply, error) {
	st, ok := state.(model.LoggedIn)
	if !ok {
		return Reply{Text: u.tr.T("login_first")}, nil
	}

	allowed, err := u.limiter.Allow(ctx, lookupKey(chatID), u.lookupLimit, time.Minute)
	if err != nil {
		return Reply{}, fmt.Errorf("lookup limiter: %w", err)
	}
	if !allowed {
		metrics.IncLookup("rate_limited")
		return Reply{Text: u.tr.T("lookup_rate_limited")}, nil
	}

	res, err := u.dir.Search(ctx, number, st.CountryCode, st.InstallationID)
	if err != nil {
		var accErr *adapter.AccountError
		if errors.As(err, &accErr) {
			metrics.IncLookup("account_error")
			return Reply{Text: u.tr.T("lookup_account_error", accErr.Message), Formatted: true}, nil
		}
		return Reply{}, fmt.Errorf("directory search: %w", err)
	}

	metrics.IncLookup("ok")
	u.events.Report(ctx, "/search")
	return Reply{Text: res.Name}, nil
}

func lookupKey(chatID int64) string {
	return fmt.Sprintf("rate_limit:%d:lookup", chatID)
}
