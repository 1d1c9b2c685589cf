package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/Bytekeeper/xdccmon/internal/domain"
)

const (
	// Event type the daemon tags protocol messages with
	ircMessageEvent = "irc-message"

	initialReconnectDelay = time.Second
	maxReconnectDelay     = 30 * time.Second

	// SSE lines are usually short, but a chatty IRC notice can get long
	maxLineSize = 1 << 20
)

// Subscriber maintains a persistent subscription to the daemon's event
// stream and delivers decoded log events over a channel. The channel is
// the only coupling to consumers: the buffer that retains events stays
// single-writer on the receiving side.
type Subscriber struct {
	url    string
	client *retryablehttp.Client
	logger *slog.Logger
	events chan domain.LogEvent
}

// NewSubscriber creates a subscriber for the daemon at baseURL
func NewSubscriber(baseURL string, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}

	client := retryablehttp.NewClient()
	client.Logger = nil
	client.RetryMax = 3
	// No client timeout: the response body is an open-ended stream.
	client.HTTPClient.Timeout = 0

	return &Subscriber{
		url:    baseURL + "/events",
		client: client,
		logger: logger,
		events: make(chan domain.LogEvent, 32),
	}
}

// Events returns the channel decoded log events are delivered on. It is
// closed when Run returns.
func (s *Subscriber) Events() <-chan domain.LogEvent {
	return s.events
}

// Run maintains the subscription until ctx is cancelled, reconnecting with
// exponential backoff whenever the stream drops.
func (s *Subscriber) Run(ctx context.Context) {
	defer close(s.events)

	delay := initialReconnectDelay
	for {
		delivered, err := s.consume(ctx)
		if ctx.Err() != nil {
			return
		}
		if delivered > 0 {
			delay = initialReconnectDelay
		}

		s.logger.Warn("event stream disconnected", "error", err, "retry_in", delay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if delay < maxReconnectDelay {
			delay *= 2
		}
	}
}

// consume opens one stream connection and dispatches events until it
// drops. Returns how many events were delivered on this connection.
func (s *Subscriber) consume(ctx context.Context) (int, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to connect event stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	s.logger.Info("event stream connected", "url", s.url)

	delivered := 0
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	var event string
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if s.dispatch(ctx, event, data.String()) {
				delivered++
			}
			event = ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
			// Keep-alive comment
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}

	if err := scanner.Err(); err != nil {
		return delivered, err
	}
	return delivered, fmt.Errorf("event stream closed by daemon")
}

// dispatch decodes one complete frame and delivers it. A malformed payload
// fails only that event; the subscription stays up.
func (s *Subscriber) dispatch(ctx context.Context, event, data string) bool {
	if event != ircMessageEvent || data == "" {
		return false
	}

	var ev domain.LogEvent
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		s.logger.Warn("dropping malformed event payload", "error", err, "dataLen", len(data))
		return false
	}

	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
