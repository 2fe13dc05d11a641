package transport

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultAzureAPIVersion = "2024-10-01-preview"
	defaultOpenAIHost      = "api.openai.com"
	closeGracePeriod       = time.Second
)

type WebsocketDialer struct {
	dialer          *websocket.Dialer
	azureAPIVersion string
}

type WebsocketDialerOption func(*WebsocketDialer)

func WithAzureAPIVersion(version string) WebsocketDialerOption {
	return func(d *WebsocketDialer) {
		if version != "" {
			d.azureAPIVersion = version
		}
	}
}

func WithHandshakeTimeout(timeout time.Duration) WebsocketDialerOption {
	return func(d *WebsocketDialer) { d.dialer.HandshakeTimeout = timeout }
}

func NewWebsocketDialer(opts ...WebsocketDialerOption) *WebsocketDialer {
	dialer := *websocket.DefaultDialer
	d := &WebsocketDialer{dialer: &dialer, azureAPIVersion: DefaultAzureAPIVersion}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *WebsocketDialer) Dial(ctx context.Context, params ConnectParams) (Conn, error) {
	ctx, span := tracer.Start(ctx, "dial realtime websocket")
	defer span.End()
	span.SetAttributes(
		attribute.Bool("realtime.azure", params.Azure),
		attribute.String("realtime.deployment", params.Deployment),
	)

	target, header, err := d.request(params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("realtime.host", target.Host))

	conn, resp, err := d.dialer.DialContext(ctx, target.String(), header)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("failed to open realtime websocket (status %d): %w", resp.StatusCode, err)
		} else {
			err = fmt.Errorf("failed to open realtime websocket: %w", err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	logger.Debug("realtime websocket connected", "host", target.Host, "azure", params.Azure)
	return &websocketConn{conn: conn}, nil
}

func (d *WebsocketDialer) request(params ConnectParams) (*url.URL, http.Header, error) {
	target, err := realtimeURL(params, d.azureAPIVersion)
	if err != nil {
		return nil, nil, err
	}

	header := http.Header{}
	if params.Azure {
		header.Set("api-key", params.Credential)
	} else {
		header.Set("Authorization", "Bearer "+params.Credential)
		header.Set("OpenAI-Beta", "realtime=v1")
	}
	return target, header, nil
}

// realtimeURL derives the websocket URL from a configured endpoint. HTTP
// schemes are mapped to their websocket counterparts and a bare host gets the
// provider's realtime path.
func realtimeURL(params ConnectParams, azureAPIVersion string) (*url.URL, error) {
	endpoint := strings.TrimSpace(params.Endpoint)
	if endpoint == "" && !params.Azure {
		endpoint = "wss://" + defaultOpenAIHost
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "wss://" + endpoint
	}

	target, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", params.Endpoint, err)
	}
	if target.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q: missing host", params.Endpoint)
	}

	switch target.Scheme {
	case "https", "wss":
		target.Scheme = "wss"
	case "http", "ws":
		target.Scheme = "ws"
	default:
		return nil, fmt.Errorf("invalid endpoint %q: unsupported scheme %q", params.Endpoint, target.Scheme)
	}

	query := target.Query()
	if params.Azure {
		if !strings.HasSuffix(target.Path, "/realtime") {
			target.Path = strings.TrimSuffix(target.Path, "/") + "/openai/realtime"
		}
		if query.Get("api-version") == "" {
			query.Set("api-version", azureAPIVersion)
		}
		query.Set("deployment", params.Deployment)
	} else {
		if !strings.HasSuffix(target.Path, "/realtime") {
			target.Path = strings.TrimSuffix(target.Path, "/") + "/v1/realtime"
		}
		query.Set("model", params.Deployment)
	}
	target.RawQuery = query.Encode()

	return target, nil
}

type websocketConn struct {
	conn *websocket.Conn

	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func (c *websocketConn) Send(ctx context.Context, msg any) error {
	if c.closed.Load() {
		return ErrClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		if c.closed.Load() {
			return ErrClosed
		}
		return fmt.Errorf("failed to write realtime message: %w", err)
	}
	return nil
}

func (c *websocketConn) Messages() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for {
			msgType, msg, err := c.conn.ReadMessage()
			if err != nil {
				if c.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return
				}
				yield(nil, fmt.Errorf("%w: %w", ErrClosedUnexpectedly, err))
				return
			}
			if msgType != websocket.TextMessage {
				continue
			}
			if !yield(msg, nil) {
				return
			}
		}
	}
}

func (c *websocketConn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)

		// WriteControl may run concurrently with WriteJSON
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeGracePeriod),
		)

		if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			c.closeErr = fmt.Errorf("failed to close realtime websocket: %w", err)
		}
	})
	return c.closeErr
}
