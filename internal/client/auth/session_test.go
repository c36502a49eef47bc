package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-todo-web/internal/client/api"
	"go-todo-web/internal/client/tokenstore"
	"go-todo-web/internal/logging"
	"go-todo-web/internal/models"
)

// fakeAPI mimics the API client: LoginUser stores the token it returns and
// GetCurrentUser resolves whatever token is stored.
type fakeAPI struct {
	tokens tokenstore.Store

	mu        sync.Mutex
	users     map[string]*models.User // token -> user
	passwords map[string]string       // email -> password
	loginErr  error
	meErr     error
	meBlock   chan struct{}
	registers []models.UserRegisterRequest

	// expiredGate, when set, holds GetCurrentUser calls made with an unknown
	// token until it is closed; expiredSeen is signalled on entry.
	expiredGate chan struct{}
	expiredSeen chan struct{}
}

func newFakeAPI(tokens tokenstore.Store) *fakeAPI {
	return &fakeAPI{
		tokens:    tokens,
		users:     map[string]*models.User{"good-token": {ID: 1, Email: "a@example.com", Name: "Alice"}},
		passwords: map[string]string{"a@example.com": "password123"},
	}
}

func (f *fakeAPI) RegisterUser(_ context.Context, in models.UserRegisterRequest) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registers = append(f.registers, in)
	if _, ok := f.passwords[in.Email]; ok {
		return nil, &api.HTTPError{StatusCode: 400, Message: "Email already registered"}
	}
	return &models.User{ID: 2, Email: in.Email, Name: in.Name}, nil
}

func (f *fakeAPI) LoginUser(ctx context.Context, email, password string) (*models.TokenResponse, error) {
	f.mu.Lock()
	loginErr := f.loginErr
	pw, ok := f.passwords[email]
	f.mu.Unlock()
	if loginErr != nil {
		return nil, loginErr
	}
	if !ok || pw != password {
		return nil, &api.HTTPError{StatusCode: 401, Message: "Incorrect email or password"}
	}
	if err := f.tokens.Set(ctx, "good-token"); err != nil {
		return nil, err
	}
	return &models.TokenResponse{AccessToken: "good-token", TokenType: "bearer"}, nil
}

func (f *fakeAPI) GetCurrentUser(ctx context.Context) (*models.User, error) {
	f.mu.Lock()
	block, meErr := f.meBlock, f.meErr
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	if meErr != nil {
		return nil, meErr
	}
	tok, err := f.tokens.Get(ctx)
	if err != nil {
		return nil, api.ErrMissingToken
	}
	f.mu.Lock()
	u, ok := f.users[tok]
	gate, seen := f.expiredGate, f.expiredSeen
	f.mu.Unlock()
	if !ok {
		if gate != nil {
			seen <- struct{}{}
			<-gate
		}
		return nil, &api.HTTPError{StatusCode: 401, Message: "Could not validate credentials"}
	}
	cp := *u
	return &cp, nil
}

func newSession(t *testing.T) (*Session, *fakeAPI, *tokenstore.MemoryStore) {
	t.Helper()
	store := tokenstore.NewMemoryStore()
	fake := newFakeAPI(store)
	return NewSession(fake, store, logging.Discard()), fake, store
}

func TestInitialize_WithValidToken(t *testing.T) {
	s, _, store := newSession(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "good-token"))

	assert.True(t, s.Loading())
	assert.Equal(t, StateInitializing, s.State())

	s.Initialize(ctx)

	assert.False(t, s.Loading())
	assert.Equal(t, StateAuthenticated, s.State())
	require.NotNil(t, s.User())
	assert.Equal(t, 1, s.User().ID)
}

func TestInitialize_InvalidTokenIsClearedAndSwallowed(t *testing.T) {
	s, _, store := newSession(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "expired-token"))

	s.Initialize(ctx)

	assert.False(t, s.Loading())
	assert.Equal(t, StateUnauthenticated, s.State())
	assert.Nil(t, s.User())
	_, err := store.Get(ctx)
	assert.ErrorIs(t, err, tokenstore.ErrNoToken)
}

func TestInitialize_NoToken(t *testing.T) {
	s, _, _ := newSession(t)

	s.Initialize(context.Background())

	assert.Equal(t, StateUnauthenticated, s.State())
	assert.Nil(t, s.User())
}

func TestInitialize_RunsOnce(t *testing.T) {
	s, _, store := newSession(t)
	ctx := context.Background()

	s.Initialize(ctx)
	require.NoError(t, store.Set(ctx, "good-token"))
	s.Initialize(ctx)

	assert.Equal(t, StateUnauthenticated, s.State())
}

func TestWait(t *testing.T) {
	s, fake, store := newSession(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "good-token"))
	fake.meBlock = make(chan struct{})

	go s.Initialize(ctx)

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Wait(short), context.DeadlineExceeded)
	assert.True(t, s.Loading())

	close(fake.meBlock)
	require.NoError(t, s.Wait(ctx))
	assert.False(t, s.Loading())
	assert.Equal(t, StateAuthenticated, s.State())
}

func TestLogin_Success(t *testing.T) {
	s, _, store := newSession(t)
	ctx := context.Background()
	s.Initialize(ctx)

	require.NoError(t, s.Login(ctx, "a@example.com", "password123"))

	assert.Equal(t, StateAuthenticated, s.State())
	require.NotNil(t, s.User())
	assert.Equal(t, "Alice", s.User().Name)
	tok, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "good-token", tok)
}

func TestLogin_FailureReturnsServerErrorUnchanged(t *testing.T) {
	s, _, store := newSession(t)
	ctx := context.Background()
	s.Initialize(ctx)

	err := s.Login(ctx, "a@example.com", "wrong")

	var httpErr *api.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, "Incorrect email or password", httpErr.Message)
	assert.Equal(t, StateUnauthenticated, s.State())
	assert.Nil(t, s.User())
	_, err = store.Get(ctx)
	assert.ErrorIs(t, err, tokenstore.ErrNoToken)
}

func TestLogin_MeFailureClearsToken(t *testing.T) {
	s, fake, store := newSession(t)
	ctx := context.Background()
	s.Initialize(ctx)
	fake.meErr = errors.New("boom")

	err := s.Login(ctx, "a@example.com", "password123")

	require.EqualError(t, err, "boom")
	assert.Equal(t, StateUnauthenticated, s.State())
	_, err = store.Get(ctx)
	assert.ErrorIs(t, err, tokenstore.ErrNoToken)
}

func TestLogin_ReloginFailureEndsSession(t *testing.T) {
	s, fake, store := newSession(t)
	ctx := context.Background()
	s.Initialize(ctx)
	require.NoError(t, s.Login(ctx, "a@example.com", "password123"))

	var notified []*models.User
	s.Subscribe(func(u *models.User) { notified = append(notified, u) })
	fake.meErr = errors.New("boom")

	require.EqualError(t, s.Login(ctx, "a@example.com", "password123"), "boom")

	assert.Equal(t, StateUnauthenticated, s.State())
	assert.Nil(t, s.User())
	_, err := store.Get(ctx)
	assert.ErrorIs(t, err, tokenstore.ErrNoToken)
	require.Len(t, notified, 1)
	assert.Nil(t, notified[0])
}

func TestLogin_RejectedCredentialsKeepExistingSession(t *testing.T) {
	s, _, store := newSession(t)
	ctx := context.Background()
	s.Initialize(ctx)
	require.NoError(t, s.Login(ctx, "a@example.com", "password123"))

	require.Error(t, s.Login(ctx, "a@example.com", "wrong"))

	assert.Equal(t, StateAuthenticated, s.State())
	require.NotNil(t, s.User())
	tok, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "good-token", tok)
}

func TestInitialize_LateFailureKeepsConcurrentLogin(t *testing.T) {
	s, fake, store := newSession(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "expired-token"))
	fake.expiredGate = make(chan struct{})
	fake.expiredSeen = make(chan struct{}, 1)

	go s.Initialize(ctx)
	<-fake.expiredSeen

	require.NoError(t, s.Login(ctx, "a@example.com", "password123"))
	close(fake.expiredGate)
	require.NoError(t, s.Wait(ctx))

	assert.Equal(t, StateAuthenticated, s.State())
	require.NotNil(t, s.User())
	assert.Equal(t, 1, s.User().ID)
	tok, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "good-token", tok)
}

func TestLogin_BeforeInitializeSettlesState(t *testing.T) {
	s, _, _ := newSession(t)

	err := s.Login(context.Background(), "nobody@example.com", "x")

	require.Error(t, err)
	assert.Equal(t, StateUnauthenticated, s.State())
}

func TestLogout_IsIdempotent(t *testing.T) {
	s, _, store := newSession(t)
	ctx := context.Background()
	s.Initialize(ctx)
	require.NoError(t, s.Login(ctx, "a@example.com", "password123"))

	var notified []*models.User
	s.Subscribe(func(u *models.User) { notified = append(notified, u) })

	s.Logout(ctx)
	s.Logout(ctx)

	assert.Equal(t, StateUnauthenticated, s.State())
	assert.Nil(t, s.User())
	_, err := store.Get(ctx)
	assert.ErrorIs(t, err, tokenstore.ErrNoToken)
	require.Len(t, notified, 1)
	assert.Nil(t, notified[0])
}

func TestRegister_DoesNotLogIn(t *testing.T) {
	s, fake, store := newSession(t)
	ctx := context.Background()
	s.Initialize(ctx)

	u, err := s.Register(ctx, "Bob", "b@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", u.Email)
	assert.Equal(t, StateUnauthenticated, s.State())
	assert.Nil(t, s.User())
	_, err = store.Get(ctx)
	assert.ErrorIs(t, err, tokenstore.ErrNoToken)
	require.Len(t, fake.registers, 1)
	assert.Equal(t, models.UserRegisterRequest{Email: "b@example.com", Name: "Bob", Password: "password123"}, fake.registers[0])
}

func TestRegister_ServerErrorPassesThrough(t *testing.T) {
	s, _, _ := newSession(t)

	_, err := s.Register(context.Background(), "Alice", "a@example.com", "password123")

	require.EqualError(t, err, "Email already registered")
}

func TestSubscribe(t *testing.T) {
	s, _, _ := newSession(t)
	ctx := context.Background()
	s.Initialize(ctx)

	var got []*models.User
	unsubscribe := s.Subscribe(func(u *models.User) { got = append(got, u) })

	require.NoError(t, s.Login(ctx, "a@example.com", "password123"))
	require.Len(t, got, 1)
	require.NotNil(t, got[0])
	assert.Equal(t, 1, got[0].ID)

	unsubscribe()
	s.Logout(ctx)
	assert.Len(t, got, 1)
}

func TestUser_ReturnsCopy(t *testing.T) {
	s, _, _ := newSession(t)
	ctx := context.Background()
	s.Initialize(ctx)
	require.NoError(t, s.Login(ctx, "a@example.com", "password123"))

	s.User().Name = "changed"

	assert.Equal(t, "Alice", s.User().Name)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "initializing", StateInitializing.String())
	assert.Equal(t, "unauthenticated", StateUnauthenticated.String())
	assert.Equal(t, "authenticated", StateAuthenticated.String())
	assert.Equal(t, "unknown", State(42).String())
}
