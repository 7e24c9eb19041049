package otp

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nabha-health/telehealth-auth/internal/domain"
)

const keyPrefix = "otp:"

// verifyScript runs the lookup, lockout, expiry, increment and compare as one unit.
// KEYS[1] code hash; ARGV[1] submitted code; ARGV[2] max attempts; ARGV[3] now in ms.
var verifyScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
local attempts = tonumber(redis.call('HGET', KEYS[1], 'attempts') or '0')
if attempts >= tonumber(ARGV[2]) then
  redis.call('DEL', KEYS[1])
  return 0
end
local expires = tonumber(redis.call('HGET', KEYS[1], 'expires_at') or '0')
if tonumber(ARGV[3]) > expires then
  redis.call('DEL', KEYS[1])
  return 0
end
redis.call('HINCRBY', KEYS[1], 'attempts', 1)
if redis.call('HGET', KEYS[1], 'code') == ARGV[1] then
  redis.call('DEL', KEYS[1])
  return 1
end
return 0
`)

// RedisStore keeps codes in Redis so several API replicas share them.
type RedisStore struct {
	client redis.Cmdable
	opts   Options
	now    func() time.Time
}

var _ CodeStore = (*RedisStore)(nil)

// NewRedisStore builds a Redis-backed store.
func NewRedisStore(client redis.Cmdable, opts Options) *RedisStore {
	return &RedisStore{client: client, opts: opts.withDefaults(), now: time.Now}
}

// WithClock overrides the time source used for the stored expiry.
func (s *RedisStore) WithClock(now func() time.Time) *RedisStore {
	s.now = now
	return s
}

func redisKey(contact string) string {
	return keyPrefix + contact
}

// RequestCode implements CodeStore.
func (s *RedisStore) RequestCode(ctx context.Context, contact string) (domain.OneTimeCode, error) {
	code, err := generateCode(s.opts.Length)
	if err != nil {
		return domain.OneTimeCode{}, err
	}
	expiresAt := s.now().Add(s.opts.TTL)
	key := redisKey(contact)

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"code", code,
			"attempts", 0,
			"expires_at", strconv.FormatInt(expiresAt.UnixMilli(), 10),
		)
		pipe.PExpire(ctx, key, s.opts.TTL)
		return nil
	})
	if err != nil {
		return domain.OneTimeCode{}, fmt.Errorf("store otp: %w", err)
	}

	return domain.OneTimeCode{Contact: contact, Code: code, ExpiresAt: expiresAt}, nil
}

// VerifyCode implements CodeStore.
func (s *RedisStore) VerifyCode(ctx context.Context, contact, code string) (bool, error) {
	res, err := verifyScript.Run(ctx, s.client,
		[]string{redisKey(contact)},
		code,
		s.opts.MaxAttempts,
		s.now().UnixMilli(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("verify otp: %w", err)
	}
	return res == 1, nil
}
