package store

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// DefaultChangesChannel is the redis channel carrying owner ids of changed boards.
const DefaultChangesChannel = "task-board:changes"

// Notifier announces that an owner's tasks changed. Handlers registered with
// Subscribe run once per announcement, in publish order.
type Notifier interface {
	Publish(ctx context.Context, ownerID uint64) error
	Subscribe(handler func(ctx context.Context, ownerID uint64))
	Close() error
}

// LocalNotifier delivers announcements synchronously inside the process.
type LocalNotifier struct {
	mu       sync.RWMutex
	handlers []func(ctx context.Context, ownerID uint64)
}

func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{}
}

func (n *LocalNotifier) Publish(ctx context.Context, ownerID uint64) error {
	n.mu.RLock()
	handlers := n.handlers
	n.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, ownerID)
	}
	return nil
}

func (n *LocalNotifier) Subscribe(handler func(ctx context.Context, ownerID uint64)) {
	n.mu.Lock()
	n.handlers = append(n.handlers, handler)
	n.mu.Unlock()
}

func (n *LocalNotifier) Close() error {
	return nil
}

// RedisNotifier fans announcements out over redis pub/sub, so every process
// sharing the database refreshes its subscribers after any process writes.
type RedisNotifier struct {
	rc      *redis.Client
	channel string

	mu       sync.RWMutex
	handlers []func(ctx context.Context, ownerID uint64)

	pubsub *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRedisNotifier subscribes to channel and starts the receive loop. It
// returns once redis has confirmed the subscription.
func NewRedisNotifier(ctx context.Context, rc *redis.Client, channel string) (*RedisNotifier, error) {
	if channel == "" {
		channel = DefaultChangesChannel
	}

	pubsub := rc.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	n := &RedisNotifier{
		rc:      rc,
		channel: channel,
		pubsub:  pubsub,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go n.loop(loopCtx)
	return n, nil
}

func (n *RedisNotifier) Publish(ctx context.Context, ownerID uint64) error {
	return n.rc.Publish(ctx, n.channel, strconv.FormatUint(ownerID, 10)).Err()
}

func (n *RedisNotifier) Subscribe(handler func(ctx context.Context, ownerID uint64)) {
	n.mu.Lock()
	n.handlers = append(n.handlers, handler)
	n.mu.Unlock()
}

func (n *RedisNotifier) Close() error {
	n.cancel()
	err := n.pubsub.Close()
	<-n.done
	return err
}

func (n *RedisNotifier) loop(ctx context.Context) {
	defer close(n.done)

	ch := n.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			ownerID, err := strconv.ParseUint(msg.Payload, 10, 64)
			if err != nil {
				log.Errorf("Unable to parse change notification %q: %v", msg.Payload, err)
				continue
			}

			n.mu.RLock()
			handlers := n.handlers
			n.mu.RUnlock()

			handlerCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			for _, h := range handlers {
				h(handlerCtx, ownerID)
			}
			cancel()
		}
	}
}
