package external

import (
	"context"
	"log/slog"

	"pitstop/internal/types"
)

// StubEmailProvider writes each notification to the log instead of sending
// it. Selected with EMAIL_PROVIDER=stub for local runs.
type StubEmailProvider struct {
	logger *slog.Logger
}

func NewStubEmailProvider(logger *slog.Logger) *StubEmailProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &StubEmailProvider{logger: logger.With("provider", ProviderStub)}
}

// Send never fails. The returned ID echoes the reference ID.
func (s *StubEmailProvider) Send(ctx context.Context, input types.SendInput) (string, error) {
	s.logger.InfoContext(ctx, "notification captured",
		slog.Group("email",
			"to", input.To,
			"from", input.From.Address,
			"subject", input.Subject,
			"body", input.BodyText,
		),
		"reference_id", input.ReferenceID,
	)
	return "stub-" + input.ReferenceID, nil
}

var _ EmailProvider = (*StubEmailProvider)(nil)
