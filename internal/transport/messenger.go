package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"dorbot/internal/util"

	"go.uber.org/zap"
)

// Messenger sends a text message to a recipient identifier over the chat
// channel. The transport behind it is external to this service.
type Messenger interface {
	Send(ctx context.Context, recipient, text string) error
}

const (
	sendAttempts = 3
	backoffUnit  = time.Second
)

// HTTPMessenger delivers outbound messages through a WhatsApp HTTP gateway
// with bounded exponential-backoff retry.
type HTTPMessenger struct {
	sendURL    string
	authToken  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPMessenger creates a new HTTP messenger
func NewHTTPMessenger(sendURL, authToken string) *HTTPMessenger {
	return &HTTPMessenger{
		sendURL:    sendURL,
		authToken:  authToken,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     util.NamedLogger("messenger"),
	}
}

type sendRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// Send posts the message to the gateway, retrying transient failures.
func (m *HTTPMessenger) Send(ctx context.Context, recipient, text string) error {
	payload, err := json.Marshal(sendRequest{To: recipient, Text: text})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		lastErr = m.post(ctx, payload)
		if lastErr == nil {
			util.MessagesSentTotal.WithLabelValues("ok").Inc()
			return nil
		}

		m.logger.Warn("Failed to send message",
			zap.String("recipient", recipient),
			zap.Int("attempt", attempt),
			zap.Error(lastErr))

		if attempt < sendAttempts {
			select {
			case <-ctx.Done():
				util.MessagesSentTotal.WithLabelValues("cancelled").Inc()
				return ctx.Err()
			case <-time.After(backoffUnit * time.Duration(attempt)):
			}
		}
	}

	util.MessagesSentTotal.WithLabelValues("failed").Inc()
	return fmt.Errorf("send to %s failed after %d attempts: %w", recipient, sendAttempts, lastErr)
}

func (m *HTTPMessenger) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.sendURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if m.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+m.authToken)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	return nil
}
