package external

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"pitstop/internal/types"
)

const sesCharset = "UTF-8"

// SESAPI is the part of the SES v2 client the worker calls.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type SESClientConfig struct {
	// ConfigSetName attaches an SES configuration set to every message.
	// Empty means none.
	ConfigSetName string
	Logger        *slog.Logger
}

// SESClient delivers PitStop notifications through AWS SES v2. Credentials
// come from the ambient AWS config (IAM role in Lambda).
type SESClient struct {
	api       SESAPI
	configSet *string
	logger    *slog.Logger
}

func NewSESClient(awsCfg aws.Config, cfg SESClientConfig) *SESClient {
	return NewSESClientWithAPI(sesv2.NewFromConfig(awsCfg), cfg)
}

// NewSESClientWithAPI wires an SESClient around an existing SESAPI, which
// lets tests substitute the SDK client.
func NewSESClientWithAPI(api SESAPI, cfg SESClientConfig) *SESClient {
	c := &SESClient{api: api, logger: cfg.Logger}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if cfg.ConfigSetName != "" {
		c.configSet = aws.String(cfg.ConfigSetName)
	}
	return c
}

// Send submits a single text/plain message and returns the SES message ID.
func (s *SESClient) Send(ctx context.Context, input types.SendInput) (string, error) {
	out, err := s.api.SendEmail(ctx, s.buildInput(input))
	if err != nil {
		s.logger.DebugContext(ctx, "ses send failed", "reference_id", input.ReferenceID, "error", err)
		return "", classifySESError(err)
	}
	return aws.ToString(out.MessageId), nil
}

func (s *SESClient) buildInput(input types.SendInput) *sesv2.SendEmailInput {
	req := &sesv2.SendEmailInput{
		FromEmailAddress:     aws.String(formatSender(input.From)),
		ConfigurationSetName: s.configSet,
		Destination:          &sestypes.Destination{ToAddresses: []string{input.To}},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: utf8Content(input.Subject),
				Body:    &sestypes.Body{Text: utf8Content(input.BodyText)},
			},
		},
	}
	if input.ReferenceID != "" {
		req.EmailTags = []sestypes.MessageTag{{
			Name:  aws.String("ReferenceID"),
			Value: aws.String(input.ReferenceID),
		}}
	}
	return req
}

func utf8Content(s string) *sestypes.Content {
	return &sestypes.Content{Data: aws.String(s), Charset: aws.String(sesCharset)}
}

// formatSender renders the From header, falling back to the bare address
// when no display name is configured.
func formatSender(from types.SenderIdentity) string {
	if from.Name == "" {
		return from.Address
	}
	return (&mail.Address{Name: from.Name, Address: from.Address}).String()
}

// classifySESError maps the SES exceptions the worker distinguishes onto
// AppError codes. Anything else is a generic provider failure.
func classifySESError(err error) error {
	var (
		rejected *sestypes.MessageRejected
		throttle *sestypes.TooManyRequestsException
		paused   *sestypes.SendingPausedException
	)
	switch {
	case errors.As(err, &rejected):
		return types.NewAppError(types.ErrCodeEmailBlocked, "ses rejected the message", err)
	case errors.As(err, &throttle):
		return types.NewAppError(types.ErrCodeUpstreamRateLimited, "ses throttled the request", err)
	case errors.As(err, &paused):
		return types.NewAppError(types.ErrCodeUpstreamUnavailable, "ses sending is paused for the account", err)
	default:
		return types.NewAppError(types.ErrCodeUpstreamEmailProvider, "ses send failed", err)
	}
}

var _ EmailProvider = (*SESClient)(nil)
