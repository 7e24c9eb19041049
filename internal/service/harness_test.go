package service

import (
	"context"
	"database/sql"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/nabha-health/telehealth-auth/internal/auth"
	"github.com/nabha-health/telehealth-auth/internal/config"
	"github.com/nabha-health/telehealth-auth/internal/domain"
	"github.com/nabha-health/telehealth-auth/internal/events"
	"github.com/nabha-health/telehealth-auth/internal/observability"
	"github.com/nabha-health/telehealth-auth/internal/otp"
	"github.com/nabha-health/telehealth-auth/internal/persistence"
	"github.com/nabha-health/telehealth-auth/internal/repository"
	"github.com/nabha-health/telehealth-auth/internal/worker"
)

type recordingQueue struct {
	mu       sync.Mutex
	messages []worker.Message
	reject   bool
}

func (q *recordingQueue) Enqueue(msg worker.Message) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.reject {
		return false
	}
	q.messages = append(q.messages, msg)
	return true
}

func (q *recordingQueue) last() worker.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.messages) == 0 {
		return worker.Message{}
	}
	return q.messages[len(q.messages)-1]
}

type harness struct {
	svc      *AuthService
	resolver *IdentityResolver
	tokens   *auth.TokenManager
	codes    *otp.MemoryStore
	queue    *recordingQueue
	metrics  *observability.Metrics
	db       *sql.DB
	clock    *time.Time
}

func (h *harness) advance(d time.Duration) {
	*h.clock = h.clock.Add(d)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)

	sqlite, err := persistence.OpenSQLite(context.Background(), config.SQLiteConfig{Path: ":memory:"}, logger)
	require.NoError(t, err)
	t.Cleanup(sqlite.Close)

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := &now
	nowFn := func() time.Time { return *clock }

	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		Issuer:        "nabha-telehealth",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	})
	require.NoError(t, err)
	tokens = tokens.WithClock(nowFn)

	codes := otp.NewMemoryStore(otp.DefaultOptions()).WithClock(nowFn)
	passwords := auth.NewPasswordVerifier(bcrypt.MinCost)
	resolver := NewIdentityResolver(repository.NewSQLiteIdentityRepository(sqlite.DB), passwords, time.Second)
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	queue := &recordingQueue{}
	notifications := NewNotificationService(dispatcher, queue, logger)
	notifications.now = nowFn
	notifications.RegisterHandlers()

	svc := NewAuthService(AuthDependencies{
		Codes:      codes,
		Resolver:   resolver,
		Tokens:     tokens,
		Passwords:  passwords,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	svc.now = nowFn

	return &harness{
		svc:      svc,
		resolver: resolver,
		tokens:   tokens,
		codes:    codes,
		queue:    queue,
		metrics:  metrics,
		db:       sqlite.DB,
		clock:    clock,
	}
}

// requestCode asks for a code and returns the value handed to delivery.
func (h *harness) requestCode(t *testing.T, contact string, role domain.Role) string {
	t.Helper()
	_, err := h.svc.RequestCode(context.Background(), contact, role)
	require.NoError(t, err)
	body := h.queue.last().Body
	require.NotEmpty(t, body)
	match := codePattern.FindStringSubmatch(body)
	require.Len(t, match, 2, "no code in %q", body)
	return match[1]
}

var codePattern = regexp.MustCompile(`code is (\d+)\.`)
