// Package transport carries realtime protocol messages between the session
// controller and the conversation backend.
package transport

import (
	"context"
	"errors"
	"iter"
)

var (
	// ErrClosed is returned when sending on a connection that has been closed.
	ErrClosed = errors.New("transport closed")
	// ErrClosedUnexpectedly is yielded by Messages when the remote side drops
	// the connection without a normal close.
	ErrClosedUnexpectedly = errors.New("transport closed unexpectedly")
)

// ConnectParams identify the backend deployment to connect to.
type ConnectParams struct {
	Endpoint   string
	Credential string
	// Deployment is the Azure deployment name or the OpenAI model id.
	Deployment string
	Azure      bool
}

type Dialer interface {
	Dial(ctx context.Context, params ConnectParams) (Conn, error)
}

// Conn is a duplex message channel to the backend. Send may be called from
// any goroutine. Messages is single-use and ends when the connection closes;
// it yields an error only when the closure was not requested.
type Conn interface {
	Send(ctx context.Context, msg any) error
	Messages() iter.Seq2[[]byte, error]
	Close() error
}
