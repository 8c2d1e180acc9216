package valkey

import (
	"context"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/livetable/internal/db"
)

// Publish sends message to channel.
func (s *Store) Publish(ctx context.Context, channel, message string) error {
	cmd := s.b().Publish().Channel(channel).Message(message).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpPublish, Err: err}
	}
	return nil
}

// Subscribe blocks delivering messages on channel to fn. It returns nil once ctx is done.
func (s *Store) Subscribe(ctx context.Context, channel string, fn func(message string)) error {
	cmd := s.b().Subscribe().Channel(channel).Build()
	err := s.client.Receive(ctx, cmd, func(msg rueidis.PubSubMessage) {
		fn(msg.Message)
	})
	if err != nil && ctx.Err() == nil {
		return &db.Error{Op: db.OpSubscribe, Err: err}
	}
	return nil
}
