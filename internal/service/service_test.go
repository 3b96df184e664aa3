package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prperemyshlev/media-identity/internal/dto"
	"github.com/prperemyshlev/media-identity/internal/repository/repotest"
	"github.com/prperemyshlev/media-identity/internal/service"
	"github.com/prperemyshlev/media-identity/internal/utils"
	"github.com/prperemyshlev/media-identity/pkg/database"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret-key-that-is-at-least-32-chars"

// fakeMediaStore follows the MediaStore contract: local files are removed on
// Store regardless of outcome and on Discard.
type fakeMediaStore struct {
	mu        sync.Mutex
	fail      map[string]error
	stored    []string
	discarded []string
}

func newFakeMediaStore() *fakeMediaStore {
	return &fakeMediaStore{fail: make(map[string]error)}
}

func (f *fakeMediaStore) Store(ctx context.Context, localPath string) (string, error) {
	_ = os.Remove(localPath)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.fail[filepath.Base(localPath)]; ok {
		return "", err
	}
	f.stored = append(f.stored, localPath)
	return "https://cdn.test/" + filepath.Base(localPath), nil
}

func (f *fakeMediaStore) Discard(localPath string) {
	_ = os.Remove(localPath)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.discarded = append(f.discarded, localPath)
}

func (f *fakeMediaStore) failOn(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[name] = err
}

type recordedEvent struct {
	event   string
	outcome string
}

type eventLog struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (l *eventLog) Record(ctx context.Context, event, outcome string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, recordedEvent{event: event, outcome: outcome})
}

type fixture struct {
	svc    service.AuthService
	repo   *repotest.MemoryUserRepository
	media  *fakeMediaStore
	jwt    *utils.JWTManager
	redis  *miniredis.Miniredis
	events *eventLog
	dir    string
}

func newFixture(t *testing.T, opts ...utils.JWTOption) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{
		repo:   repotest.NewMemoryUserRepository(),
		media:  newFakeMediaStore(),
		jwt:    utils.NewJWTManager(testSecret, 15*time.Minute, 7*24*time.Hour, opts...),
		redis:  mr,
		events: &eventLog{},
		dir:    t.TempDir(),
	}
	cache := service.NewUserCache(&database.Redis{Client: client}, time.Minute, zap.NewNop())
	f.svc = service.NewAuthService(f.repo, f.jwt, utils.NewPasswordHasher(4), f.media, cache, f.events, zap.NewNop())

	return f
}

// tempFile creates a file in the fixture's upload directory
func (f *fixture) tempFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte("image-bytes"), 0o600))
	return path
}

func (f *fixture) register(t *testing.T, fullName, email, userName, password string) *dto.UserResponse {
	t.Helper()
	user, err := f.svc.Register(context.Background(), &dto.RegisterRequest{
		FullName: fullName,
		Email:    email,
		UserName: userName,
		Password: password,
	}, f.tempFile(t, userName+"-avatar.png"), "")
	require.NoError(t, err)
	return user
}

func requireKind(t *testing.T, err error, kind service.Kind) *service.Error {
	t.Helper()
	require.Error(t, err)
	var svcErr *service.Error
	require.True(t, errors.As(err, &svcErr), "expected *service.Error, got %T: %v", err, err)
	require.Equal(t, kind, svcErr.Kind, "unexpected kind for %v", err)
	return svcErr
}

func assertRemoved(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		_, err := os.Stat(p)
		assert.True(t, os.IsNotExist(err), "expected %s to be removed", p)
	}
}
