package external

import (
	"context"

	"pitstop/internal/types"
)

// EmailProvider abstracts interactions with a mail delivery service (AWS SES,
// SendGrid). Implementations transmit pre-composed plain-text content.
type EmailProvider interface {
	// Send transmits an email. Returns the provider's message ID for
	// correlation in logs.
	Send(ctx context.Context, input types.SendInput) (providerMsgID string, err error)
}

// Provider names accepted by NewEmailProvider.
const (
	ProviderSES      = "ses"
	ProviderSendGrid = "sendgrid"
	ProviderStub     = "stub"
)
