package otp

import (
	"context"
	"crypto/subtle"
	"hash/fnv"
	"sync"
	"time"

	"github.com/nabha-health/telehealth-auth/internal/domain"
)

const shardCount = 32

type shard struct {
	mu      sync.Mutex
	entries map[string]*domain.OneTimeCode
}

// MemoryStore keeps codes in process memory. Codes are lost on restart.
type MemoryStore struct {
	opts   Options
	now    func() time.Time
	shards [shardCount]*shard
}

var _ CodeStore = (*MemoryStore)(nil)

// NewMemoryStore builds an in-memory store.
func NewMemoryStore(opts Options) *MemoryStore {
	s := &MemoryStore{opts: opts.withDefaults(), now: time.Now}
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[string]*domain.OneTimeCode)}
	}
	return s
}

// WithClock overrides the time source.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) shardFor(contact string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(contact))
	return s.shards[h.Sum32()%shardCount]
}

// RequestCode implements CodeStore.
func (s *MemoryStore) RequestCode(_ context.Context, contact string) (domain.OneTimeCode, error) {
	code, err := generateCode(s.opts.Length)
	if err != nil {
		return domain.OneTimeCode{}, err
	}
	entry := domain.OneTimeCode{
		Contact:   contact,
		Code:      code,
		ExpiresAt: s.now().Add(s.opts.TTL),
	}

	sh := s.shardFor(contact)
	sh.mu.Lock()
	stored := entry
	sh.entries[contact] = &stored
	sh.mu.Unlock()

	return entry, nil
}

// VerifyCode implements CodeStore. The whole check runs under the shard lock.
func (s *MemoryStore) VerifyCode(_ context.Context, contact, code string) (bool, error) {
	sh := s.shardFor(contact)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	entry, ok := sh.entries[contact]
	if !ok {
		return false, nil
	}
	if entry.Attempts >= s.opts.MaxAttempts {
		delete(sh.entries, contact)
		return false, nil
	}
	if entry.Expired(s.now()) {
		delete(sh.entries, contact)
		return false, nil
	}

	entry.Attempts++
	if subtle.ConstantTimeCompare([]byte(entry.Code), []byte(code)) != 1 {
		return false, nil
	}
	delete(sh.entries, contact)
	return true, nil
}

// Sweep drops expired entries and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	now := s.now()
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for contact, entry := range sh.entries {
			if entry.Expired(now) {
				delete(sh.entries, contact)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Len returns the number of live entries.
func (s *MemoryStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.entries)
		sh.mu.Unlock()
	}
	return n
}

// RunJanitor sweeps expired entries every interval until ctx is done.
func (s *MemoryStore) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
