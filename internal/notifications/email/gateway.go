// Package email composes the PitStop customer notifications and delivers
// them through an external EmailProvider.
package email

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"pitstop/internal/external"
	"pitstop/internal/types"
)

// Gateway sends composed emails through an external EmailProvider. Each
// message is tagged with a fresh reference ID so provider logs can be
// correlated with worker logs.
type Gateway struct {
	provider   external.EmailProvider
	senderName string
	logger     types.Logger
	newRef     func() string
}

// GatewayConfig holds the dependencies needed to create a Gateway.
type GatewayConfig struct {
	Provider external.EmailProvider
	// SenderName is the display name shown next to the From address.
	SenderName string
	Logger     types.Logger
}

func NewGateway(cfg GatewayConfig) *Gateway {
	return &Gateway{
		provider:   cfg.Provider,
		senderName: cfg.SenderName,
		logger:     cfg.Logger,
		newRef:     uuid.NewString,
	}
}

// SendEmail transmits one plain-text email. The attempt is made exactly
// once; failures are returned as delivery AppErrors.
func (g *Gateway) SendEmail(ctx context.Context, to, from, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return types.NewAppError(types.ErrCodeEmailNoRecipient, "recipient address is empty", nil)
	}

	ref := g.newRef()
	msgID, err := g.provider.Send(ctx, types.SendInput{
		To:          to,
		From:        types.SenderIdentity{Name: g.senderName, Address: from},
		Subject:     subject,
		BodyText:    body,
		ReferenceID: ref,
	})
	if err != nil {
		return g.deliveryFailure(err, to, ref)
	}

	g.logger.Info("email handed to provider",
		"recipient", maskAddress(to),
		"subject", subject,
		"reference_id", ref,
		"provider_message_id", msgID,
	)
	return nil
}

// deliveryFailure normalises a provider error into a delivery AppError.
// Suppressed recipients get their own warning since retrying them later
// will not help.
func (g *Gateway) deliveryFailure(err error, to, ref string) error {
	if types.HasCode(err, types.ErrCodeEmailBlocked) {
		g.logger.Warn("recipient suppressed by provider",
			"recipient", maskAddress(to),
			"reference_id", ref,
		)
		return err
	}
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return types.NewAppError(types.ErrCodeUpstreamEmailProvider, "email provider failed", err)
}

// maskAddress keeps the first letter of the mailbox and the full domain,
// so "ann@example.com" is logged as "a…@example.com".
func maskAddress(addr string) string {
	mailbox, domain, ok := strings.Cut(addr, "@")
	switch {
	case addr == "":
		return ""
	case !ok:
		return "…"
	case mailbox == "":
		return "…@" + domain
	}
	return string([]rune(mailbox)[:1]) + "…@" + domain
}
