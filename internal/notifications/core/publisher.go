package core

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"pitstop/internal/types"
)

// MessageTypeAttribute is the SQS message attribute carrying the event type.
const MessageTypeAttribute = "MessageType"

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// EventPublisher sends PitStop events to the notification queue. The event
// body is the JSON payload and the event type travels in the MessageType
// attribute, which is the shape the worker's SQS transport expects.
type EventPublisher struct {
	client   SQSSender
	queueURL string
	logger   types.Logger
}

// NewEventPublisher creates an EventPublisher targeting queueURL.
func NewEventPublisher(client SQSSender, queueURL string, logger types.Logger) *EventPublisher {
	return &EventPublisher{
		client:   client,
		queueURL: queueURL,
		logger:   logger,
	}
}

// Publish serializes event and sends it to the queue. It returns the SQS
// message ID.
func (p *EventPublisher) Publish(ctx context.Context, event types.Event) (string, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("event publisher: failed to marshal %s: %w", event.MessageType(), err)
	}

	out, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			MessageTypeAttribute: {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(event.MessageType())),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("event publisher: failed to send message to %s: %w", p.queueURL, err)
	}

	messageID := aws.ToString(out.MessageId)
	p.logger.Info("event published",
		"message_type", string(event.MessageType()),
		"message_id", messageID,
	)
	return messageID, nil
}
