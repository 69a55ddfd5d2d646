package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/rueidis"

	"github.com/magnus-flipper/magnus/internal/db"
)

var errEmptyExec = errors.New("empty transaction reply")

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := s.b().Get().Key(key).Build()
	data, err := s.do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return data, nil
}

// IncrByExpireNX runs MULTI / INCRBY / EXPIRE NX / EXEC in a single DoMulti round trip.
func (s *Store) IncrByExpireNX(ctx context.Context, key string, val int64, ttl time.Duration) (int64, error) {
	cmds := rueidis.Commands{
		s.b().Multi().Build(),
		s.b().Incrby().Key(key).Increment(val).Build(),
		s.b().Expire().Key(key).Seconds(int64(ttl/time.Second)).Nx().Build(),
		s.b().Exec().Build(),
	}

	results := s.client.DoMulti(ctx, cmds...)
	last := len(results) - 1
	for _, r := range results[:last] {
		if err := r.Error(); err != nil {
			return 0, &db.Error{Op: db.OpExec, Err: err}
		}
	}

	replies, err := results[last].ToArray()
	if err != nil {
		return 0, &db.Error{Op: db.OpExec, Err: err}
	}
	if len(replies) == 0 {
		return 0, &db.Error{Op: db.OpExec, Err: errEmptyExec}
	}

	used, err := replies[0].AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpIncrBy, Err: err}
	}
	return used, nil
}
