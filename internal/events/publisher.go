// Package events publishes ingestion notifications to the rest of the job
// board (cache invalidation, "new listings" digests).
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// ListingsIngestedChannel is the Redis pub/sub channel.
	ListingsIngestedChannel = "EVENT_LISTINGS_INGESTED"
	// ListingsIngestedSubject is the NATS subject.
	ListingsIngestedSubject = "listings.ingested"
)

// IngestEvent is published after a cycle committed new listings.
type IngestEvent struct {
	Type         string    `json:"type"`
	RunID        string    `json:"runId"`
	Inserted     int       `json:"inserted"`
	FallbackUsed bool      `json:"fallbackUsed"`
	At           time.Time `json:"at"`
}

// Publisher delivers an IngestEvent somewhere.
type Publisher interface {
	PublishIngested(ctx context.Context, ev IngestEvent) error
}

// RedisPublisher publishes to a Redis channel.
type RedisPublisher struct {
	rdb *redis.Client
}

// NewRedisPublisher wraps an already connected client.
func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

// PublishIngested implements Publisher.
func (p *RedisPublisher) PublishIngested(ctx context.Context, ev IngestEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ListingsIngestedChannel, err)
	}
	if err := p.rdb.Publish(ctx, ListingsIngestedChannel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", ListingsIngestedChannel, err)
	}
	return nil
}

// NATSPublisher publishes to a NATS subject.
type NATSPublisher struct {
	nc     *nats.Conn
	closed chan struct{}
	logger *zap.Logger
}

// natsCloseTimeout bounds how long Close waits for buffered events to reach
// the server.
const natsCloseTimeout = 5 * time.Second

// NewNATSPublisher connects to url.
func NewNATSPublisher(url string, logger *zap.Logger) (*NATSPublisher, error) {
	logger = logger.Named("nats")
	closed := make(chan struct{})
	opts := []nats.Option{
		nats.Name("discovery-service"),
		nats.Timeout(5 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(*nats.Conn) { close(closed) }),
		nats.DrainTimeout(natsCloseTimeout),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSPublisher{nc: nc, closed: closed, logger: logger}, nil
}

// PublishIngested implements Publisher.
func (p *NATSPublisher) PublishIngested(_ context.Context, ev IngestEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ListingsIngestedSubject, err)
	}
	if err := p.nc.Publish(ListingsIngestedSubject, payload); err != nil {
		return fmt.Errorf("nats publish %s: %w", ListingsIngestedSubject, err)
	}
	return nil
}

// Close flushes buffered events, drains the connection and waits until it
// is closed, giving up after natsCloseTimeout.
func (p *NATSPublisher) Close() {
	if p.nc == nil || p.nc.IsClosed() {
		return
	}
	if err := p.nc.FlushTimeout(natsCloseTimeout); err != nil {
		p.logger.Warn("NATS flush failed", zap.Error(err))
	}
	if err := p.nc.Drain(); err != nil {
		p.logger.Warn("NATS drain failed", zap.Error(err))
		p.nc.Close()
	}

	select {
	case <-p.closed:
	case <-time.After(natsCloseTimeout):
		p.logger.Warn("NATS close timed out")
		p.nc.Close()
	}
}

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

// PublishIngested implements Publisher.
func (m Multi) PublishIngested(ctx context.Context, ev IngestEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishIngested(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
