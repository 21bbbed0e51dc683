// Package external holds the mail provider integrations used by the
// notification worker. HTTP providers share BaseClient, which guards every
// call with a circuit breaker and turns transport failures into delivery
// AppErrors. A notification is handed to a provider at most once.
package external

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"pitstop/internal/types"
)

// EventIDHeader forwards the id of the event being handled so provider-side
// logs can be matched to the worker's.
const EventIDHeader = "X-PitStop-Event-Id"

type BreakerSettings struct {
	// ConsecutiveFailures is the failure streak the breaker tolerates
	// before opening.
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{ConsecutiveFailures: 5, OpenTimeout: 30 * time.Second}
}

// upstreamStatusError marks a response the breaker counts as a failure.
type upstreamStatusError struct {
	status int
}

func (e *upstreamStatusError) Error() string {
	return fmt.Sprintf("mail provider responded %d", e.status)
}

// BaseClient sends provider requests through a gobreaker circuit breaker.
// An open breaker fails fast so a dead provider cannot stall the queue.
type BaseClient struct {
	http      *http.Client
	cb        *gobreaker.CircuitBreaker[*http.Response]
	userAgent string
}

func NewBaseClient(httpClient *http.Client, name string, settings BreakerSettings, userAgent string) *BaseClient {
	limit := settings.ConsecutiveFailures
	return &BaseClient{
		http:      httpClient,
		userAgent: userAgent,
		cb: gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     settings.OpenTimeout,
			ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures > limit },
		}),
	}
}

// Do performs req a single time. Throttling and 5xx responses are closed
// and reported as AppErrors; every other response goes back to the caller,
// who must close its body.
func (c *BaseClient) Do(req *http.Request) (*http.Response, error) {
	if id := types.GetEventID(req.Context()); id != "" {
		req.Header.Set(EventIDHeader, id)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.cb.Execute(func() (*http.Response, error) {
		r, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if r.StatusCode == http.StatusTooManyRequests || r.StatusCode >= 500 {
			r.Body.Close()
			return nil, &upstreamStatusError{status: r.StatusCode}
		}
		return r, nil
	})
	if err != nil {
		return nil, classifyTransportError(err)
	}
	return resp, nil
}

func classifyTransportError(err error) *types.AppError {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return types.NewAppError(types.ErrCodeUpstreamUnavailable, "mail provider circuit is open", err)
	}
	var statusErr *upstreamStatusError
	if errors.As(err, &statusErr) {
		if statusErr.status == http.StatusTooManyRequests {
			return types.NewAppError(types.ErrCodeUpstreamRateLimited, "mail provider is throttling", err)
		}
		return types.NewAppError(types.ErrCodeUpstreamUnavailable, "mail provider is unavailable", err)
	}
	return types.NewAppError(types.ErrCodeUpstreamEmailProvider, "mail provider request failed", err)
}
