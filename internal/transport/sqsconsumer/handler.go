package sqsconsumer

import (
	"context"

	"github.com/aws/aws-lambda-go/events"

	"pitstop/internal/notifications/core"
	"pitstop/internal/types"
)

// Handler is the Lambda entrypoint for SQS batches.
type Handler struct {
	events EventHandler
	logger types.Logger
}

func NewHandler(events EventHandler, logger types.Logger) *Handler {
	return &Handler{events: events, logger: logger}
}

// Handle dispatches every record in order. The response never lists batch
// item failures, so SQS deletes the whole batch. Records are handled on a
// detached context; a shutdown signal does not interrupt them.
func (h *Handler) Handle(ctx context.Context, batch events.SQSEvent) (events.SQSEventResponse, error) {
	ctx = context.WithoutCancel(ctx)
	for _, record := range batch.Records {
		var attrType string
		if attr, ok := record.MessageAttributes[core.MessageTypeAttribute]; ok && attr.StringValue != nil {
			attrType = *attr.StringValue
		}

		eventType, payload := resolve(attrType, record.Body)
		if eventType == "" {
			h.logger.Warn("queue message carries no event type", "message_id", record.MessageId)
		}
		h.events.HandleEvent(ctx, eventType, payload)
	}

	h.logger.Info("sqs batch processed", "records", len(batch.Records))
	return events.SQSEventResponse{}, nil
}
