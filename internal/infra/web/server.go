package web

import (
	"context"
	"encoding/json"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-caller-lookup/internal/domain/ports/adapter"
	"telegram-caller-lookup/internal/infra/i18n"
	"telegram-caller-lookup/internal/infra/logging"
	"telegram-caller-lookup/internal/infra/metrics"
	"telegram-caller-lookup/internal/usecase"
)

// ConversationHandler is the surface the webhook needs from the use case.
type ConversationHandler interface {
	HandleMessage(ctx context.Context, chatID int64, text string) (usecase.Reply, error)
	HandleRemoved(ctx context.Context, chatID int64) error
}

// Server receives Telegram webhook updates and answers them with
// reply-via-webhook payloads. Every response is a transport-level success so
// Telegram never retries an event that cannot be processed differently.
type Server struct {
	handler     ConversationHandler
	notifier    adapter.Notifier
	tr          *i18n.Translator
	log         *zerolog.Logger
	webhookPath string
}

func NewServer(handler ConversationHandler, notifier adapter.Notifier, tr *i18n.Translator, webhookPath string, logger *zerolog.Logger) *Server {
	if webhookPath == "" {
		webhookPath = "/webhook"
	}
	return &Server{
		handler:     handler,
		notifier:    notifier,
		tr:          tr,
		log:         logger,
		webhookPath: webhookPath,
	}
}

// Register attaches handlers to the provided mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc(s.webhookPath, s.handleWebhook)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	ctx := logging.WithTraceID(r.Context(), uuid.NewString())

	// Malformed JSON is tolerated and treated as an empty event.
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		logging.With(ctx, s.log).Debug().Err(err).Msg("malformed update payload")
		metrics.IncWebhookUpdate("empty")
		w.WriteHeader(http.StatusOK)
		return
	}

	// "Delete & Block": drop the chat's record and exit early.
	if update.MyChatMember != nil && update.MyChatMember.NewChatMember.Status == "kicked" {
		metrics.IncWebhookUpdate("membership")
		chatID := update.MyChatMember.Chat.ID
		ctx = logging.WithChatID(ctx, chatID)
		if err := s.handler.HandleRemoved(ctx, chatID); err != nil {
			metrics.IncDispatchError()
			logging.With(ctx, s.log).Error().Err(err).Msg("membership removal dispatch failed")
			s.notifier.ReportError(ctx, chatID, err)
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	if update.Message == nil || update.Message.Chat == nil || update.Message.Text == "" {
		metrics.IncWebhookUpdate("empty")
		w.WriteHeader(http.StatusOK)
		return
	}

	metrics.IncWebhookUpdate("message")
	chatID := update.Message.Chat.ID
	ctx = logging.WithChatID(ctx, chatID)

	go s.notifier.SendTyping(context.Background(), chatID)

	reply, err := s.handler.HandleMessage(ctx, chatID, update.Message.Text)
	if err != nil {
		metrics.IncDispatchError()
		logging.With(ctx, s.log).Error().Err(err).Msg("dispatch failed")
		s.notifier.ReportError(ctx, chatID, err)
		reply = usecase.Reply{Text: s.tr.T("internal_error")}
	}

	s.writeReply(w, chatID, reply)
}

// writeReply answers the webhook with a sendMessage instruction, or with an
// empty acknowledgment when there is nothing to say.
func (s *Server) writeReply(w http.ResponseWriter, chatID int64, reply usecase.Reply) {
	if reply.Text == "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	payload := map[string]any{
		"method":                   "sendMessage",
		"chat_id":                  chatID,
		"text":                     reply.Text,
		"disable_web_page_preview": true,
	}
	if reply.Formatted {
		payload["parse_mode"] = tgbotapi.ModeMarkdownV2
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error().Err(err).Msg("encode webhook reply")
	}
}
