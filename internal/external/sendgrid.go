package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"pitstop/internal/types"
)

const (
	defaultSendGridURL = "https://api.sendgrid.com"
	sendGridMailPath   = "/v3/mail/send"
	sendGridUserAgent  = "PitStop-NotificationWorker/1.0"
)

type SendGridClientConfig struct {
	APIKey string
	// BaseURL points the client at a fake server in tests.
	BaseURL string
	Breaker BreakerSettings
	Logger  *slog.Logger
}

// SendGridClient posts notifications to the SendGrid v3 mail API.
type SendGridClient struct {
	base     *BaseClient
	apiKey   string
	endpoint string
	logger   *slog.Logger
}

func NewSendGridClient(httpClient *http.Client, cfg SendGridClientConfig) *SendGridClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	breaker := cfg.Breaker
	if breaker == (BreakerSettings{}) {
		breaker = DefaultBreakerSettings()
	}
	root := cfg.BaseURL
	if root == "" {
		root = defaultSendGridURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SendGridClient{
		base:     NewBaseClient(httpClient, ProviderSendGrid, breaker, sendGridUserAgent),
		apiKey:   cfg.APIKey,
		endpoint: strings.TrimRight(root, "/") + sendGridMailPath,
		logger:   logger,
	}
}

type sendGridMailPayload struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendGridContent         `json:"content"`
	CustomArgs       map[string]string         `json:"custom_args,omitempty"`
}

type sendGridPersonalization struct {
	To []sendGridAddress `json:"to"`
}

type sendGridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func newSendGridPayload(in types.SendInput) sendGridMailPayload {
	p := sendGridMailPayload{
		Personalizations: []sendGridPersonalization{{To: []sendGridAddress{{Email: in.To}}}},
		From:             sendGridAddress{Email: in.From.Address, Name: in.From.Name},
		Subject:          in.Subject,
		Content:          []sendGridContent{{Type: "text/plain", Value: in.BodyText}},
	}
	if in.ReferenceID != "" {
		p.CustomArgs = map[string]string{"reference_id": in.ReferenceID}
	}
	return p
}

// Send posts one message. SendGrid answers 202 with the message id in the
// X-Message-Id header. A 403 means the sender or recipient is blocked.
func (s *SendGridClient) Send(ctx context.Context, input types.SendInput) (string, error) {
	raw, err := json.Marshal(newSendGridPayload(input))
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "encode sendgrid payload", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(raw))
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "build sendgrid request", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.base.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted:
		return resp.Header.Get("X-Message-Id"), nil
	}
	reason := sendGridReason(resp.Body)
	s.logger.DebugContext(ctx, "sendgrid rejected message",
		"status", resp.StatusCode,
		"reason", reason,
		"reference_id", input.ReferenceID,
	)
	if resp.StatusCode == http.StatusForbidden {
		return "", types.NewAppError(types.ErrCodeEmailBlocked, "sendgrid refused delivery: "+reason, nil)
	}
	return "", types.NewAppError(types.ErrCodeUpstreamEmailProvider,
		fmt.Sprintf("sendgrid responded %d: %s", resp.StatusCode, reason), nil)
}

// sendGridReason pulls the first error message out of a SendGrid error
// body. Bodies that are not SendGrid JSON are returned verbatim.
func sendGridReason(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil {
		return "unreadable response body"
	}
	var parsed struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if json.Unmarshal(raw, &parsed) == nil && len(parsed.Errors) > 0 {
		return parsed.Errors[0].Message
	}
	return strings.TrimSpace(string(raw))
}

var _ EmailProvider = (*SendGridClient)(nil)
