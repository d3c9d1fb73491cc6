package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sirahlabs/smartchat/internal/chat"
)

// RedisStore keeps transcripts in Redis under the business's storage key
// with a MaxAge TTL refreshed on every save.
type RedisStore struct {
	redis     *redis.Client
	namespace string
	tracer    trace.Tracer
	now       func() time.Time
}

func NewRedisStore(client *redis.Client, businessName string, tracer trace.Tracer) *RedisStore {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("smartchat.internal.session")
	}
	return &RedisStore{
		redis:     client,
		namespace: StorageKey(businessName),
		tracer:    tracer,
		now:       time.Now,
	}
}

func (s *RedisStore) key(id string) string {
	return fmt.Sprintf("%s:%s", s.namespace, id)
}

func (s *RedisStore) Load(ctx context.Context, id string) (*chat.Session, error) {
	ctx, span := s.tracer.Start(ctx, "session.load", trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("session: load %s: %w", id, err)
	}

	sess, err := Decode(id, data, s.now())
	if err != nil {
		span.RecordError(err)
		if delErr := s.redis.Del(ctx, s.key(id)).Err(); delErr != nil {
			span.RecordError(delErr)
		}
		return nil, err
	}
	return sess, nil
}

func (s *RedisStore) Save(ctx context.Context, sess *chat.Session) error {
	ctx, span := s.tracer.Start(ctx, "session.save", trace.WithAttributes(attribute.String("session.id", sess.ID)))
	defer span.End()

	data, err := Encode(sess)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if err := s.redis.Set(ctx, s.key(sess.ID), data, MaxAge).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: save %s: %w", sess.ID, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "session.delete", trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	if err := s.redis.Del(ctx, s.key(id)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: delete %s: %w", id, err)
	}
	return nil
}
