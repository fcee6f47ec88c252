package redis

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/jam/internal/repository/jam"
)

func (r repo) Publish(ctx context.Context, jamId string, payload []byte) error {
	r.logger.DebugContext(ctx, "called", "jam_id", jamId, "payload", string(payload))
	if err := r.rc.Publish(ctx, r.getChannel(jamId), payload).Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

// Subscribe returns once the subscription is confirmed by the store, so no
// message published afterwards is missed.
func (r repo) Subscribe(ctx context.Context, jamId string) (jam.Subscription, error) {
	r.logger.DebugContext(ctx, "called", "jam_id", jamId)
	ps := r.rc.Subscribe(ctx, r.getChannel(jamId))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	s := &subscription{
		ps:       ps,
		messages: make(chan string),
		done:     make(chan struct{}),
	}
	go s.run()

	return s, nil
}

type subscription struct {
	ps       *redis.PubSub
	messages chan string
	done     chan struct{}
	once     sync.Once
}

func (s *subscription) run() {
	defer close(s.messages)
	for msg := range s.ps.Channel() {
		select {
		case s.messages <- msg.Payload:
		case <-s.done:
			return
		}
	}
}

func (s *subscription) Messages() <-chan string {
	return s.messages
}

func (s *subscription) Close() error {
	s.once.Do(func() { close(s.done) })
	return s.ps.Close()
}
