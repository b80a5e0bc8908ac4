// Package queue clears the host application's pending job queue after a
// database restore, since queued jobs referencing pre-restore state are
// invalid.
package queue

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"
)

// Queue drains whatever job backlog the deployment keeps.
type Queue interface {
	// Flush discards every pending job.
	Flush(ctx context.Context) error
}

// Noop is used when queue integration is disabled.
type Noop struct{}

// Flush does nothing.
func (Noop) Flush(context.Context) error { return nil }

// NATS flushes a JetStream stream holding the deployment's queued jobs.
type NATS struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	stream string
}

// NewNATS connects to the given NATS endpoint and binds to the named stream.
func NewNATS(url, stream string, opts ...nats.Option) (*NATS, error) {
	if stream == "" {
		return nil, errors.New("stream name is required")
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}

	return &NATS{conn: nc, js: js, stream: stream}, nil
}

// Flush purges every pending message from the stream.
func (q *NATS) Flush(ctx context.Context) error {
	if q == nil {
		return errors.New("nil queue")
	}
	return q.js.PurgeStream(q.stream, nats.Context(ctx))
}

// Close shuts down the underlying NATS connection.
func (q *NATS) Close() {
	if q == nil {
		return
	}
	if err := q.conn.Drain(); err != nil {
		q.conn.Close()
	}
}

var _ Queue = (*NATS)(nil)
