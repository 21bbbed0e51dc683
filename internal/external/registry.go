package external

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// EmailProviderConfig selects and configures a mail provider.
type EmailProviderConfig struct {
	Provider       string
	SendGridAPIKey string
	SESConfigSet   string
	HTTPTimeout    time.Duration
}

// NewEmailProvider builds the EmailProvider named by cfg.Provider.
// awsCfg is only used for SES.
func NewEmailProvider(cfg EmailProviderConfig, awsCfg aws.Config, logger *slog.Logger) (EmailProvider, error) {
	switch cfg.Provider {
	case ProviderSES:
		return NewSESClient(awsCfg, SESClientConfig{
			ConfigSetName: cfg.SESConfigSet,
			Logger:        logger,
		}), nil
	case ProviderSendGrid:
		if cfg.SendGridAPIKey == "" {
			return nil, fmt.Errorf("sendgrid provider requires an API key")
		}
		timeout := cfg.HTTPTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		return NewSendGridClient(&http.Client{Timeout: timeout}, SendGridClientConfig{
			APIKey: cfg.SendGridAPIKey,
			Logger: logger,
		}), nil
	case ProviderStub, "":
		return NewStubEmailProvider(logger), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}
