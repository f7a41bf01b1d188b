package cache

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	feedPrefix    = "usagereg:changes:"
	versionPrefix = "usagereg:version:"
)

// Feed broadcasts "table changed" notifications between processes over Redis
// pub/sub. Each topic carries a monotonically increasing version.
type Feed struct {
	client *redis.Client
}

// NewFeed builds a feed on client. A nil client yields a feed that never fires.
func NewFeed(client *redis.Client) *Feed {
	return &Feed{client: client}
}

// Publish bumps the topic version and notifies listeners.
func (f *Feed) Publish(ctx context.Context, topic string) error {
	if f == nil || f.client == nil {
		return nil
	}
	ver, err := f.client.Incr(ctx, versionPrefix+topic).Result()
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, feedPrefix+topic, strconv.FormatInt(ver, 10)).Err()
}

// Version returns the last published version of topic, 0 when never published.
func (f *Feed) Version(ctx context.Context, topic string) (int64, error) {
	if f == nil || f.client == nil {
		return 0, nil
	}
	ver, err := f.client.Get(ctx, versionPrefix+topic).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return ver, err
}

// Listen subscribes to topic. The returned channel gets one value per
// notification, coalescing bursts, and is closed when ctx is done or stop is
// called.
func (f *Feed) Listen(ctx context.Context, topic string) (<-chan struct{}, func(), error) {
	out := make(chan struct{}, 1)
	if f == nil || f.client == nil {
		ctx, cancel := context.WithCancel(ctx)
		go func() {
			<-ctx.Done()
			close(out)
		}()
		return out, cancel, nil
	}

	pubsub := f.client.Subscribe(ctx, feedPrefix+topic)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer close(out)
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, cancel, nil
}
