package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"local-auth/internal/domain"
	"local-auth/internal/repository/kvstore"
	"local-auth/internal/repository/memory"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newStore(t *testing.T, kv *memory.Store) *AuthStore {
	t.Helper()
	return NewAuthStore(context.Background(),
		kvstore.NewCredentialRepository(kv),
		kvstore.NewSessionRepository(kv),
		quietLogger())
}

func TestAuthStore_ExampleSequence(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	s := newStore(t, kv)

	u, err := s.Register(ctx, "Ann", "ann@x.com", "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.User{Name: "Ann", Email: "ann@x.com"}, u)

	_, err = s.Register(ctx, "Ann2", "ANN@X.com", "p2")
	require.ErrorIs(t, err, ErrUserAlreadyExists)

	u, err = s.Login(ctx, "ann@x.com", "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.User{Name: "Ann", Email: "ann@x.com"}, u)
	cur, ok := s.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, u, cur)

	_, err = s.Login(ctx, "ann@x.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	s.Logout(ctx)
	_, ok = s.CurrentUser()
	assert.False(t, ok)
	assert.NotContains(t, kv.Snapshot(), kvstore.KeyCurrentUser)
}

func TestAuthStore_RegisterPersistsRecordAndSession(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	s := newStore(t, kv)

	_, err := s.Register(ctx, "Ann", "ann@x.com", "p1")
	require.NoError(t, err)

	snap := kv.Snapshot()
	assert.JSONEq(t, `[{"name":"Ann","email":"ann@x.com","password":"p1"}]`, snap[kvstore.KeyUsers])
	assert.JSONEq(t, `{"name":"Ann","email":"ann@x.com"}`, snap[kvstore.KeyCurrentUser])
}

func TestAuthStore_DuplicateRegisterLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	s := newStore(t, kv)

	_, err := s.Register(ctx, "Ann", "ann@x.com", "p1")
	require.NoError(t, err)
	_, err = s.Register(ctx, "Bob", "bob@x.com", "p2")
	require.NoError(t, err)
	before := kv.Snapshot()

	_, err = s.Register(ctx, "Imposter", "Ann@X.COM", "p3")
	require.ErrorIs(t, err, ErrUserAlreadyExists)
	assert.Equal(t, OutcomeConflict, OutcomeOf(err))

	assert.Equal(t, before, kv.Snapshot())
	cur, ok := s.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "bob@x.com", cur.Email)
}

func TestAuthStore_LoginUsesStoredIdentity(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	s := newStore(t, kv)

	_, err := s.Register(ctx, "Ann", "Ann@X.com", "p1")
	require.NoError(t, err)
	s.Logout(ctx)

	u, err := s.Login(ctx, "ann@x.COM", "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.User{Name: "Ann", Email: "Ann@X.com"}, u)
}

func TestAuthStore_FailedLoginKeepsSession(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, memory.NewStore())

	_, err := s.Register(ctx, "Ann", "ann@x.com", "p1")
	require.NoError(t, err)

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{name: "wrong password", email: "ann@x.com", password: "p2"},
		{name: "password case matters", email: "ann@x.com", password: "P1"},
		{name: "unknown email", email: "bob@x.com", password: "p1"},
		{name: "empty", email: "", password: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Login(ctx, tc.email, tc.password)
			require.ErrorIs(t, err, ErrInvalidCredentials)
			assert.Equal(t, OutcomeNotFound, OutcomeOf(err))

			cur, ok := s.CurrentUser()
			require.True(t, ok)
			assert.Equal(t, "ann@x.com", cur.Email)
		})
	}
}

func TestAuthStore_LoginOnEmptyStorage(t *testing.T) {
	s := newStore(t, memory.NewStore())

	_, err := s.Login(context.Background(), "ann@x.com", "p1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthStore_RestoresSession(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	first := newStore(t, kv)
	_, err := first.Register(ctx, "Ann", "ann@x.com", "p1")
	require.NoError(t, err)

	second := newStore(t, kv)
	cur, ok := second.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, domain.User{Name: "Ann", Email: "ann@x.com"}, cur)
}

func TestAuthStore_CorruptSessionIsIgnored(t *testing.T) {
	kv := memory.NewStore()
	require.NoError(t, kv.Set(context.Background(), kvstore.KeyCurrentUser, "{broken"))

	s := newStore(t, kv)
	_, ok := s.CurrentUser()
	assert.False(t, ok)
}

func TestAuthStore_UnreadableSessionIsIgnored(t *testing.T) {
	kv := memory.NewStore()
	kv.FailOn("get", errors.New("locked"))

	s := newStore(t, kv)
	_, ok := s.CurrentUser()
	assert.False(t, ok)
}

func TestAuthStore_RegisterOverEmptyCredentials(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	require.NoError(t, kv.Set(ctx, kvstore.KeyUsers, ""))
	s := newStore(t, kv)

	_, err := s.Register(ctx, "Ann", "ann@x.com", "p1")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"Ann","email":"ann@x.com","password":"p1"}]`, kv.Snapshot()[kvstore.KeyUsers])
}

func TestAuthStore_CorruptCredentials(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	require.NoError(t, kv.Set(ctx, kvstore.KeyUsers, "not json"))
	s := newStore(t, kv)

	_, err := s.Login(ctx, "ann@x.com", "p1")
	require.ErrorIs(t, err, ErrStorage)
	assert.Equal(t, OutcomeStorageError, OutcomeOf(err))

	_, err = s.Register(ctx, "Ann", "ann@x.com", "p1")
	require.ErrorIs(t, err, ErrStorage)
	assert.Equal(t, "not json", kv.Snapshot()[kvstore.KeyUsers])

	_, ok := s.CurrentUser()
	assert.False(t, ok)
}

func TestAuthStore_RegisterWriteFailure(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	s := newStore(t, kv)
	kv.FailOn("set", errors.New("quota exceeded"))

	_, err := s.Register(ctx, "Ann", "ann@x.com", "p1")
	require.ErrorIs(t, err, ErrStorage)
	assert.Empty(t, kv.Snapshot())
	_, ok := s.CurrentUser()
	assert.False(t, ok)
}

// sessionFailKV fails writes to the session key only, simulating a crash
// between the two register writes.
type sessionFailKV struct {
	*memory.Store
}

func (k sessionFailKV) Set(ctx context.Context, key, value string) error {
	if key == kvstore.KeyCurrentUser {
		return errors.New("quota exceeded")
	}
	return k.Store.Set(ctx, key, value)
}

func TestAuthStore_RegisterSessionWriteFailure(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	kv := sessionFailKV{Store: mem}
	s := NewAuthStore(ctx, kvstore.NewCredentialRepository(kv), kvstore.NewSessionRepository(kv), quietLogger())

	_, err := s.Register(ctx, "Ann", "ann@x.com", "p1")
	require.ErrorIs(t, err, ErrStorage)

	_, ok := s.CurrentUser()
	assert.False(t, ok)
	assert.Contains(t, mem.Snapshot(), kvstore.KeyUsers)

	// the record survived, so a later login still fails only on the session write
	_, err = s.Login(ctx, "ann@x.com", "p1")
	require.ErrorIs(t, err, ErrStorage)
	_, err = s.Register(ctx, "Ann", "ann@x.com", "p1")
	require.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestAuthStore_LogoutIgnoresStorageFailure(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	s := newStore(t, kv)
	_, err := s.Register(ctx, "Ann", "ann@x.com", "p1")
	require.NoError(t, err)

	kv.FailOn("remove", errors.New("read-only"))
	s.Logout(ctx)

	_, ok := s.CurrentUser()
	assert.False(t, ok)
}

func TestAuthStore_LogoutWhenLoggedOut(t *testing.T) {
	s := newStore(t, memory.NewStore())
	s.Logout(context.Background())

	_, ok := s.CurrentUser()
	assert.False(t, ok)
}

func TestAuthStore_Subscribe(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, memory.NewStore())

	var seen []*domain.User
	cancel := s.Subscribe(func(u *domain.User) { seen = append(seen, u) })

	_, err := s.Register(ctx, "Ann", "ann@x.com", "p1")
	require.NoError(t, err)
	_, err = s.Login(ctx, "ann@x.com", "wrong")
	require.Error(t, err)
	s.Logout(ctx)

	require.Len(t, seen, 2)
	assert.Equal(t, &domain.User{Name: "Ann", Email: "ann@x.com"}, seen[0])
	assert.Nil(t, seen[1])

	cancel()
	cancel()
	_, err = s.Login(ctx, "ann@x.com", "p1")
	require.NoError(t, err)
	assert.Len(t, seen, 2)
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, OutcomeOK, OutcomeOf(nil))
	assert.Equal(t, OutcomeNotFound, OutcomeOf(ErrInvalidCredentials))
	assert.Equal(t, OutcomeConflict, OutcomeOf(ErrUserAlreadyExists))
	assert.Equal(t, OutcomeStorageError, OutcomeOf(ErrStorage))
	assert.Equal(t, OutcomeStorageError, OutcomeOf(errors.New("other")))
	assert.Equal(t, "conflict", OutcomeConflict.String())
}

func TestAuthStore_SubscriberCanReadStore(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, memory.NewStore())

	var seen []bool
	s.Subscribe(func(*domain.User) {
		_, ok := s.CurrentUser()
		seen = append(seen, ok)
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := s.Register(ctx, "Ann", "ann@x.com", "p1")
		assert.NoError(t, err)
		s.Logout(ctx)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("subscriber reading the store blocked")
	}
	assert.Equal(t, []bool{true, false}, seen)
}
