package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"telegram-caller-lookup/internal/config"
	"telegram-caller-lookup/internal/domain/ports/adapter"
)

var _ adapter.EventReporter = (*EventReporter)(nil)

// EventReporter pings an umami-style analytics endpoint when a command
// completes. Optional: when the endpoint or project id is missing it only
// logs. Delivery is detached from the dispatch so a slow endpoint never
// delays the reply.
type EventReporter struct {
	pingURL   string
	projectID string
	client    *http.Client
	log       *zerolog.Logger
}

func NewEventReporter(cfg *config.TelemetryConfig, logger *zerolog.Logger) *EventReporter {
	return &EventReporter{
		pingURL:   cfg.PingURL,
		projectID: cfg.ProjectID,
		client:    &http.Client{Timeout: 5 * time.Second},
		log:       logger,
	}
}

func (r *EventReporter) Report(ctx context.Context, event string) {
	if r.pingURL == "" || r.projectID == "" {
		r.log.Debug().Str("event", event).Msg("telemetry.ping_url/project_id not set; skipping event")
		return
	}

	payload := map[string]any{
		"type": "event",
		"payload": map[string]any{
			"website": r.projectID,
			"url":     event,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		r.log.Error().Err(err).Msg("marshal event payload")
		return
	}

	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(sendCtx, http.MethodPost, r.pingURL, bytes.NewReader(body))
		if err != nil {
			r.log.Error().Err(err).Msg("build event request")
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "telegram-caller-lookup")

		resp, err := r.client.Do(req)
		if err != nil {
			r.log.Warn().Err(err).Str("event", event).Msg("event ping failed")
			return
		}
		resp.Body.Close()
	}()
}
