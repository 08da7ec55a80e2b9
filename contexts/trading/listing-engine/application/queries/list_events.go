package queries

import (
	"context"
	"encoding/json"
	"log/slog"

	application "bazaar/contexts/trading/listing-engine/application"
	domainerrors "bazaar/contexts/trading/listing-engine/domain/errors"
	"bazaar/contexts/trading/listing-engine/ports"
)

const maxEventPageSize = 100

type ListEventsQuery struct {
	Limit int
}

type ListEventsResult struct {
	Items []ports.EventEnvelope
}

// ListEventsUseCase exposes the append-only notification log, newest first.
type ListEventsUseCase struct {
	Events ports.EventLog
	Logger *slog.Logger
}

func (u ListEventsUseCase) Execute(ctx context.Context, query ListEventsQuery) (ListEventsResult, error) {
	logger := application.ResolveLogger(u.Logger)
	if query.Limit < 0 || query.Limit > maxEventPageSize {
		return ListEventsResult{}, domainerrors.ErrInvalidRequest
	}

	rows, err := u.Events.ListRecordedEvents(ctx, query.Limit)
	if err != nil {
		logger.Error("list events failed",
			"event", "list_events_failed",
			"module", "trading/listing-engine",
			"layer", "application",
			"error", err.Error(),
		)
		return ListEventsResult{}, err
	}

	items := make([]ports.EventEnvelope, 0, len(rows))
	for _, row := range rows {
		var envelope ports.EventEnvelope
		if err := json.Unmarshal(row.Payload, &envelope); err != nil {
			logger.Error("event payload decode failed",
				"event", "list_events_decode_failed",
				"module", "trading/listing-engine",
				"layer", "application",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return ListEventsResult{}, err
		}
		items = append(items, envelope)
	}
	return ListEventsResult{Items: items}, nil
}
