package resolver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	defaultTransportTimeout = 30 * time.Second
	defaultMaxBodyBytes     = 4 << 20
	maxErrorMessageLen      = 512
)

// Transport performs one outbound call and classifies its outcome.
type Transport interface {
	Do(ctx context.Context, req OutboundRequest) (Node, error)
}

// HTTPTransport sends OutboundRequests with net/http. It never retries.
type HTTPTransport struct {
	Client       *http.Client
	MaxBodyBytes int64
}

// NewHTTPTransport returns a transport whose client gives up after timeout.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = defaultTransportTimeout
	}
	return &HTTPTransport{
		Client:       &http.Client{Timeout: timeout},
		MaxBodyBytes: defaultMaxBodyBytes,
	}
}

// Do executes req. Non-2xx responses become AuthorizationFailed (401/403) or
// ServerError; network failures and undecodable bodies become TransportFailure.
func (t *HTTPTransport) Do(ctx context.Context, req OutboundRequest) (Node, error) {
	client := http.DefaultClient
	limit := int64(defaultMaxBodyBytes)
	if t != nil {
		if t.Client != nil {
			client = t.Client
		}
		if t.MaxBodyBytes > 0 {
			limit = t.MaxBodyBytes
		}
	}

	httpReq, err := req.HTTPRequest(ctx)
	if err != nil {
		return Node{}, TransportError(err)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return Node{}, TransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return Node{}, TransportError(fmt.Errorf("read provider response: %w", err))
	}

	if err := classifyStatus(resp.StatusCode, body); err != nil {
		return Node{}, err
	}

	raw, err := Parse(body)
	if err != nil {
		return Node{}, TransportError(err)
	}
	return raw, nil
}

func classifyStatus(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &ResolutionError{Kind: AuthorizationFailed, Status: status, Message: errorMessage(status, body)}
	default:
		return ServerError(status, errorMessage(status, body))
	}
}

// errorMessage prefers a message or error field of a JSON body, then the raw
// body text, then a generic status line.
func errorMessage(status int, body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return fmt.Sprintf("status %d", status)
	}

	if parsed, err := Parse(body); err == nil {
		if msg := fieldText(parsed, "message"); msg != "" {
			return truncate(msg)
		}
		if errNode, ok := parsed.Field("error"); ok {
			if msg := errNode.Text(); msg != "" {
				return truncate(msg)
			}
			if msg := fieldText(errNode, "message"); msg != "" {
				return truncate(msg)
			}
		}
	}

	return truncate(text)
}

func truncate(s string) string {
	if len(s) <= maxErrorMessageLen {
		return s
	}
	cut := maxErrorMessageLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
