package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"postingcore/pkg/logger"
)

// DefaultNotifyChannel is the channel rule store triggers notify on.
const DefaultNotifyChannel = "posting_rules_changed"

// Invalidator is anything that can drop its cached state.
type Invalidator interface {
	Invalidate()
}

// InvalidationListener is called after an invalidation triggered by NOTIFY.
type InvalidationListener func(channel string, payload string)

// NotifyListener invalidates a cache whenever the rule store announces a
// configuration change via PostgreSQL NOTIFY.
type NotifyListener struct {
	pool    *pgxpool.Pool
	channel string
	target  Invalidator

	listeners   []InvalidationListener
	listenersMu sync.RWMutex

	// Lifecycle
	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

// NewNotifyListener creates a listener on channel. An empty channel means
// DefaultNotifyChannel.
func NewNotifyListener(pool *pgxpool.Pool, channel string, target Invalidator) *NotifyListener {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = DefaultNotifyChannel
	}
	return &NotifyListener{
		pool:    pool,
		channel: channel,
		target:  target,
		ctx:     context.Background(),
	}
}

// Channel returns the channel name listened on.
func (l *NotifyListener) Channel() string { return l.channel }

// Start begins listening in the background.
func (l *NotifyListener) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	l.lifecycleMu.Lock()
	defer l.lifecycleMu.Unlock()
	if l.started {
		return nil
	}
	l.ctx, l.cancel = context.WithCancel(ctx)
	l.started = true

	l.wg.Add(1)
	go l.listenLoop()
	logger.Info(l.ctx, "rule change listener started", "channel", l.channel)
	return nil
}

// Stop gracefully stops the listener.
func (l *NotifyListener) Stop() {
	l.lifecycleMu.Lock()
	if !l.started {
		l.lifecycleMu.Unlock()
		return
	}
	cancel := l.cancel
	l.started = false
	l.cancel = nil
	l.lifecycleMu.Unlock()

	if cancel != nil {
		cancel()
	}
	l.wg.Wait()
	logger.Info(context.Background(), "rule change listener stopped", "channel", l.channel)
}

// listenLoop keeps a dedicated connection subscribed to the channel.
func (l *NotifyListener) listenLoop() {
	defer l.wg.Done()

	for {
		if l.ctx.Err() != nil {
			return
		}

		conn, err := l.pool.Acquire(l.ctx)
		if err != nil {
			logger.Error(l.ctx, "failed to acquire connection for LISTEN", "error", err)
			l.pause()
			continue
		}

		_, err = conn.Exec(l.ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize())
		if err != nil {
			logger.Error(l.ctx, "failed to LISTEN", "channel", l.channel, "error", err)
			conn.Release()
			l.pause()
			continue
		}

		// Changes made while we were not subscribed are unknown.
		l.handleNotification(l.channel, "resubscribed")

		logger.Info(l.ctx, "listening for rule change notifications", "channel", l.channel)
		l.waitForNotifications(conn)
		conn.Release()
	}
}

func (l *NotifyListener) pause() {
	select {
	case <-l.ctx.Done():
	case <-time.After(time.Second):
	}
}

// waitForNotifications blocks waiting for NOTIFY events.
func (l *NotifyListener) waitForNotifications(conn *pgxpool.Conn) {
	for {
		if l.ctx.Err() != nil {
			return
		}

		// Wait with a timeout so a dead connection is noticed.
		ctx, cancel := context.WithTimeout(l.ctx, 30*time.Second)
		notification, err := conn.Conn().WaitForNotification(ctx)
		cancel()

		if err != nil {
			if l.ctx.Err() != nil {
				return
			}
			if ctx.Err() != nil {
				continue
			}
			logger.Warn(l.ctx, "notification wait failed, reconnecting", "error", err)
			return
		}

		logger.Debug(l.ctx, "received notification",
			"channel", notification.Channel,
			"payload", notification.Payload)

		l.handleNotification(notification.Channel, notification.Payload)
	}
}

// handleNotification invalidates the target. Any change to assignments or
// rule sets can change the resolution of any context, so the whole cache
// goes regardless of payload.
func (l *NotifyListener) handleNotification(channel, payload string) {
	if channel != l.channel {
		return
	}
	l.target.Invalidate()
	logger.Info(l.ctx, "rule cache invalidated", "channel", channel, "payload", payload)

	l.listenersMu.RLock()
	defer l.listenersMu.RUnlock()
	for _, listener := range l.listeners {
		func(fn InvalidationListener) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error(l.ctx, "listener panic recovered", "channel", channel, "panic", r)
				}
			}()
			fn(channel, payload)
		}(listener)
	}
}

// OnInvalidation registers a callback for invalidation events.
func (l *NotifyListener) OnInvalidation(listener InvalidationListener) {
	l.listenersMu.Lock()
	l.listeners = append(l.listeners, listener)
	l.listenersMu.Unlock()
}
