package sqsconsumer

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"pitstop/internal/notifications/core"
	"pitstop/internal/types"
)

// receiveBackoff is the pause after a failed ReceiveMessage call.
const receiveBackoff = 2 * time.Second

// SQSReceiver is the subset of *sqs.Client used by Poller.
type SQSReceiver interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// PollerConfig configures a Poller.
type PollerConfig struct {
	Client      SQSReceiver
	QueueURL    string
	Events      EventHandler
	Logger      types.Logger
	WaitSeconds int32
	MaxMessages int32
}

// Poller long-polls the notification queue and hands each message to the
// dispatcher, one at a time and in receive order.
type Poller struct {
	cfg PollerConfig
}

func NewPoller(cfg PollerConfig) *Poller {
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = 10
	}
	return &Poller{cfg: cfg}
}

// Run polls until ctx is cancelled. Cancellation is honoured between
// messages; a message already handed to the dispatcher is finished and
// deleted first. Run returns nil on shutdown.
func (p *Poller) Run(ctx context.Context) error {
	logger := p.cfg.Logger.With("queue_url", p.cfg.QueueURL)
	logger.Info("sqs poller started")

	for {
		if ctx.Err() != nil {
			logger.Info("sqs poller stopped")
			return nil
		}

		out, err := p.cfg.Client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:              aws.String(p.cfg.QueueURL),
			MaxNumberOfMessages:   p.cfg.MaxMessages,
			WaitTimeSeconds:       p.cfg.WaitSeconds,
			MessageAttributeNames: []string{core.MessageTypeAttribute},
		})
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			logger.Error("sqs receive failed", "error", err.Error())
			select {
			case <-ctx.Done():
			case <-time.After(receiveBackoff):
			}
			continue
		}

		for _, msg := range out.Messages {
			if ctx.Err() != nil {
				break
			}
			p.process(ctx, logger, msg)
		}
	}
}

func (p *Poller) process(ctx context.Context, logger types.Logger, msg sqstypes.Message) {
	var attrType string
	if attr, ok := msg.MessageAttributes[core.MessageTypeAttribute]; ok {
		attrType = aws.ToString(attr.StringValue)
	}

	messageID := aws.ToString(msg.MessageId)
	eventType, payload := resolve(attrType, aws.ToString(msg.Body))
	if eventType == "" {
		logger.Warn("queue message carries no event type", "message_id", messageID)
	}

	// Shutdown only takes effect between messages. The event and its delete
	// run on a context that cancellation cannot reach.
	inflight := context.WithoutCancel(ctx)
	p.cfg.Events.HandleEvent(inflight, eventType, payload)

	_, err := p.cfg.Client.DeleteMessage(inflight, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(p.cfg.QueueURL),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		logger.Error("sqs delete failed", "message_id", messageID, "error", err.Error())
	}
}
