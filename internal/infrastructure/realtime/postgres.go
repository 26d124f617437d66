package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"CompetitorInsights/internal/domain"
	"CompetitorInsights/internal/ports"
)

const (
	minReconnect = 10 * time.Second
	maxReconnect = time.Minute
	pingEvery    = 90 * time.Second
)

// listener is the subset of *pq.Listener the stream drives.
type listener interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

// SignalLoader reads a stored signal back by id.
type SignalLoader interface {
	SignalByID(ctx context.Context, id string) (domain.Signal, error)
}

// PostgresStream receives inserted signals through LISTEN/NOTIFY. The insert
// trigger only sends {"id": ...}; with a loader set every notification is
// re-read from the table. Without one the payload is decoded as a full row.
type PostgresStream struct {
	channel string
	loader  SignalLoader
	logger  *slog.Logger
	dial    func(callback pq.EventCallbackType) listener
}

var _ ports.SignalStream = (*PostgresStream)(nil)

// NewPostgresStream builds a stream listening on channel with its own connection.
func NewPostgresStream(dsn, channel string, loader SignalLoader, logger *slog.Logger) *PostgresStream {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStream{
		channel: channel,
		loader:  loader,
		logger:  logger,
		dial: func(callback pq.EventCallbackType) listener {
			return pq.NewListener(dsn, minReconnect, maxReconnect, callback)
		},
	}
}

// Subscribe blocks until ctx ends, handing every notification to handler.
func (s *PostgresStream) Subscribe(ctx context.Context, handler ports.SignalHandler) error {
	l := s.dial(func(event pq.ListenerEventType, err error) {
		switch event {
		case pq.ListenerEventConnected:
			s.logger.Info("postgres listener connected", "channel", s.channel)
		case pq.ListenerEventDisconnected:
			s.logger.Warn("postgres listener disconnected", "channel", s.channel, "error", err)
		case pq.ListenerEventReconnected:
			s.logger.Info("postgres listener reconnected", "channel", s.channel)
		case pq.ListenerEventConnectionAttemptFailed:
			s.logger.Warn("postgres listener connection attempt failed", "channel", s.channel, "error", err)
		}
	})
	defer l.Close()

	if err := l.Listen(s.channel); err != nil {
		return fmt.Errorf("listen %s: %w", s.channel, err)
	}

	var resolve resolveFunc
	if s.loader != nil {
		resolve = s.load
	}

	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	notifications := l.NotificationChannel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-notifications:
			if !ok {
				return fmt.Errorf("listener on %s closed", s.channel)
			}
			// nil follows a reconnect; notifications may have been missed.
			if n == nil {
				s.logger.Warn("postgres listener resynchronised", "channel", s.channel)
				continue
			}
			deliver(ctx, handler, []byte(n.Extra), resolve, s.logger, "postgres")
		case <-ticker.C:
			go func() {
				if err := l.Ping(); err != nil {
					s.logger.Warn("postgres listener ping failed", "error", err)
				}
			}()
		}
	}
}

func (s *PostgresStream) load(ctx context.Context, sig domain.Signal) (domain.Signal, error) {
	if sig.ID == "" {
		return domain.Signal{}, ErrMissingID
	}
	return s.loader.SignalByID(ctx, sig.ID)
}
