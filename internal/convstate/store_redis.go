package convstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	id "github.com/sr13dr31/belyispisok/pkg/domain"
	"github.com/sr13dr31/belyispisok/pkg/platform/sentinel"
)

const keyPrefix = "convstate:"

// RedisStore keeps pending states in redis, one key per actor, expiring at
// the TTL so abandoned conversations clean themselves up even without the
// sweep. ExpireOlderThan remains for parity with the memory store and for
// sweeps with a shorter horizon than the key TTL.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func stateKey(actor id.ActorID) string {
	return keyPrefix + strconv.FormatInt(int64(actor), 10)
}

func (s *RedisStore) Set(ctx context.Context, state State) error {
	if !state.Action.Valid() {
		return sentinel.ErrInvalidState
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode conversation state: %w", err)
	}
	if err := s.client.Set(ctx, stateKey(state.Actor), payload, TTL).Err(); err != nil {
		return fmt.Errorf("store conversation state: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, actor id.ActorID) (*State, error) {
	payload, err := s.client.Get(ctx, stateKey(actor)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("load conversation state: %w", err)
	}
	return decodeState(payload)
}

func (s *RedisStore) Pop(ctx context.Context, actor id.ActorID) (*State, error) {
	payload, err := s.client.GetDel(ctx, stateKey(actor)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("pop conversation state: %w", err)
	}
	return decodeState(payload)
}

func (s *RedisStore) Clear(ctx context.Context, actor id.ActorID) error {
	if err := s.client.Del(ctx, stateKey(actor)).Err(); err != nil {
		return fmt.Errorf("clear conversation state: %w", err)
	}
	return nil
}

func (s *RedisStore) ExpireOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return removed, fmt.Errorf("scan conversation states: %w", err)
		}
		for _, key := range keys {
			payload, err := s.client.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				return removed, fmt.Errorf("load conversation state: %w", err)
			}
			state, err := decodeState(payload)
			if err != nil {
				// Undecodable leftovers are garbage either way.
				_ = s.client.Del(ctx, key).Err()
				removed++
				continue
			}
			if state.UpdatedAt.Before(cutoff) {
				if err := s.client.Del(ctx, key).Err(); err != nil {
					return removed, fmt.Errorf("expire conversation state: %w", err)
				}
				removed++
			}
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

func decodeState(payload []byte) (*State, error) {
	var state State
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("decode conversation state: %w", err)
	}
	if !state.Action.Valid() {
		return nil, fmt.Errorf("decode conversation state: unknown action %q", state.Action)
	}
	return &state, nil
}
