package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"CompetitorInsights/internal/domain"
	"CompetitorInsights/internal/ports"
)

// NATSStream carries signals over a NATS subject. It publishes on behalf of
// the detect pipeline and subscribes on behalf of the live listener.
type NATSStream struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

var (
	_ ports.SignalStream    = (*NATSStream)(nil)
	_ ports.SignalPublisher = (*NATSStream)(nil)
)

// ConnectNATS dials the server with infinite reconnects.
func ConnectNATS(url, name string, logger *slog.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return conn, nil
}

// NewNATSStream wraps an established connection.
func NewNATSStream(conn *nats.Conn, subject string, logger *slog.Logger) *NATSStream {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSStream{conn: conn, subject: subject, logger: logger}
}

// PublishSignal sends the stored signal as JSON.
func (s *NATSStream) PublishSignal(ctx context.Context, sig domain.Signal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.conn == nil {
		return fmt.Errorf("nats stream has no connection")
	}
	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}
	if err := s.conn.Publish(s.subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", s.subject, err)
	}
	return nil
}

// Subscribe blocks until ctx ends, handing every message to handler.
func (s *NATSStream) Subscribe(ctx context.Context, handler ports.SignalHandler) error {
	if s.conn == nil {
		return fmt.Errorf("nats stream has no connection")
	}

	msgs := make(chan *nats.Msg, 64)
	sub, err := s.conn.ChanSubscribe(s.subject, msgs)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.subject, err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	s.logger.Info("nats subscription started", "subject", s.subject)
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-msgs:
			deliver(ctx, handler, msg.Data, nil, s.logger, "nats")
		}
	}
}

// Close drains the connection.
func (s *NATSStream) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Drain()
}
