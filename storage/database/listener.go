package database

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/homeroom/core"
)

const (
	minReconnectInterval = 10 * time.Second
	maxReconnectInterval = time.Minute
	listenerPingInterval = 90 * time.Second
)

// NotifyHandler receives the payload of one NOTIFY.
type NotifyHandler func(ctx context.Context, payload []byte) error

// Listener relays postgres notifications of a channel to a handler.
type Listener struct {
	dsn     string
	channel string
	handler NotifyHandler
	logger  core.Logger
}

func NewListener(dsn, channel string, handler NotifyHandler, logger core.Logger) *Listener {
	return &Listener{dsn: dsn, channel: channel, handler: handler, logger: logger}
}

// Listen blocks until ctx is done. Each notification is handled in its own goroutine.
func (l *Listener) Listen(ctx context.Context) error {
	pql := pq.NewListener(l.dsn, minReconnectInterval, maxReconnectInterval, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			l.logger.Error(fmt.Sprintf("listener %q: event %d", l.channel, ev), err)
		}
	})
	defer func() { _ = pql.Close() }()

	if err := pql.Listen(l.channel); err != nil {
		return errors.Wrapf(err, "listening on %q", l.channel)
	}
	l.logger.Info(fmt.Sprintf("listening for notifications on %q", l.channel))

	for {
		select {
		case <-ctx.Done():
			return nil

		case n := <-pql.Notify:
			if n == nil { // connection re-established, notifications may have been lost
				l.logger.Warn(fmt.Sprintf("listener %q reconnected", l.channel))
				continue
			}
			payload := []byte(n.Extra)
			go func() {
				if err := l.handler(ctx, payload); err != nil {
					l.logger.Error(fmt.Sprintf("handling %q notification", l.channel), err)
				}
			}()

		case <-time.After(listenerPingInterval):
			go func() {
				if err := pql.Ping(); err != nil {
					l.logger.Warn(fmt.Sprintf("listener %q ping", l.channel), err)
				}
			}()
		}
	}
}
