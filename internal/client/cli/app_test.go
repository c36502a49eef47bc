package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-todo-web/internal/client/api"
	"go-todo-web/internal/client/auth"
	"go-todo-web/internal/client/tasks"
	"go-todo-web/internal/client/tokenstore"
	"go-todo-web/internal/logging"
	"go-todo-web/internal/models"
	"go-todo-web/testutil"
)

type testEnv struct {
	app     *App
	out     *bytes.Buffer
	store   *tokenstore.MemoryStore
	client  *api.Client
	session *auth.Session
}

// newTestEnv wires the app against a real API server backed by memory
// repositories. script is fed to the app as stdin.
func newTestEnv(t *testing.T, script ...string) *testEnv {
	t.Helper()
	router, _, _ := testutil.SetupTestRouter(t)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	store := tokenstore.NewMemoryStore()
	client := api.New(srv.URL+"/api", store)
	session := auth.NewSession(client, store, logging.Discard())
	view := tasks.NewView(client, session, logging.Discard())
	t.Cleanup(view.Close)

	var out bytes.Buffer
	in := strings.NewReader(strings.Join(script, "\n") + "\n")
	return &testEnv{
		app:     NewApp(session, view, WithIO(in, &out)),
		out:     &out,
		store:   store,
		client:  client,
		session: session,
	}
}

func TestRun_TaskLifecycle(t *testing.T) {
	env := newTestEnv(t,
		"login", testutil.NormalUserEmail, testutil.TestPassword,
		"add", "Buy milk", "Semi-skimmed", "2024-05-31",
		"list",
		"toggle 1",
		"show 1",
		"edit 1", "Buy oat milk", "-", "",
		"list",
		"delete 1", "y",
		"list",
		"logout",
		"exit",
	)

	require.NoError(t, env.app.Run(context.Background()))
	out := env.out.String()

	assert.Contains(t, out, "Welcome. Type 'signup'")
	assert.Contains(t, out, "Logged in as Normal User")
	assert.Contains(t, out, "No tasks yet.")
	assert.Contains(t, out, "Created task #1.")
	assert.Contains(t, out, "Buy milk")
	assert.Contains(t, out, "due 2024-05-31")
	assert.Contains(t, out, "Total: 1 task(s), 0 completed")
	assert.Contains(t, out, "[x] Buy milk")
	assert.Contains(t, out, "Status:      completed")
	assert.Contains(t, out, "Description: Semi-skimmed")
	assert.Contains(t, out, "Updated task #1.")
	assert.Contains(t, out, "Buy oat milk")
	assert.Contains(t, out, "Total: 1 task(s), 1 completed")
	assert.Contains(t, out, `Are you sure you want to delete task "Buy oat milk"?`)
	assert.Contains(t, out, "Deleted task #1.")
	assert.Contains(t, out, "Logged out.")
	assert.Contains(t, out, "Bye!")
	assert.NotContains(t, out, "Error:")

	_, err := env.store.Get(context.Background())
	assert.ErrorIs(t, err, tokenstore.ErrNoToken)
}

func TestRun_TaskCommandRedirectsToLogin(t *testing.T) {
	env := newTestEnv(t,
		"list", testutil.NormalUserEmail, testutil.TestPassword,
		"whoami",
	)

	require.NoError(t, env.app.Run(context.Background()))
	out := env.out.String()

	assert.Contains(t, out, "Please log in first.")
	assert.Contains(t, out, "Logged in as Normal User")
	assert.Contains(t, out, "No tasks yet.")
	assert.Contains(t, out, "Normal User <normal_user@example.com> (id 1")
	assert.Contains(t, out, "todo (normal_user@example.com)> ")
}

func TestRun_LoginFailure(t *testing.T) {
	env := newTestEnv(t, "login", testutil.NormalUserEmail, "wrong-password", "whoami")

	require.NoError(t, env.app.Run(context.Background()))
	out := env.out.String()

	assert.Contains(t, out, "Error: login failed: Incorrect email or password")
	assert.NotContains(t, out, "session has expired")
	assert.Contains(t, out, "Not logged in.")
	assert.Nil(t, env.session.User())
}

func TestRun_Signup(t *testing.T) {
	env := newTestEnv(t,
		"signup", "New User", "new@example.com", "password123", "password123",
		"whoami",
		"signup", "Dup", testutil.NormalUserEmail, "password123", "password123",
		"signup", "X", "x@example.com", "password123", "different1",
		"login", "new@example.com", "password123",
	)

	require.NoError(t, env.app.Run(context.Background()))
	out := env.out.String()

	assert.Contains(t, out, "Registration successful. Please log in.")
	assert.Contains(t, out, "Not logged in.")
	assert.Contains(t, out, "Error: registration failed: Email already registered")
	assert.Contains(t, out, "Error: passwords do not match")
	assert.Contains(t, out, "Logged in as New User")
}

func TestRun_ResumesStoredSessionAndLoadsTasks(t *testing.T) {
	env := newTestEnv(t, "whoami")
	ctx := context.Background()
	_, err := env.client.LoginUser(ctx, testutil.NormalUserEmail, testutil.TestPassword)
	require.NoError(t, err)
	_, err = env.client.CreateTask(ctx, 1, models.TaskInput{Title: "Left from last time"})
	require.NoError(t, err)

	require.NoError(t, env.app.Run(ctx))
	out := env.out.String()

	assert.Contains(t, out, "Welcome back, Normal User.")
	assert.Contains(t, out, "Left from last time")
	assert.Contains(t, out, "Total: 1 task(s), 0 completed")
	assert.Less(t, strings.Index(out, "Left from last time"), strings.Index(out, "todo (normal_user@example.com)> "))
	assert.Equal(t, auth.StateAuthenticated, env.session.State())
}

func TestRun_InvalidStoredTokenIsCleared(t *testing.T) {
	env := newTestEnv(t, "whoami")
	require.NoError(t, env.store.Set(context.Background(), "mock-jwt-token"))

	require.NoError(t, env.app.Run(context.Background()))

	assert.Contains(t, env.out.String(), "Welcome. Type 'signup'")
	assert.Contains(t, env.out.String(), "Not logged in.")
	_, err := env.store.Get(context.Background())
	assert.ErrorIs(t, err, tokenstore.ErrNoToken)
}

func TestRun_ErrorsAndHelp(t *testing.T) {
	env := newTestEnv(t,
		"help",
		"foobar",
		"login", testutil.NormalUserEmail, testutil.TestPassword,
		"help",
		"show abc",
		"show",
		"show 99",
		"add", "",
		"add", "Title", "", "31/05/2024",
		"delete 99", "n",
	)

	require.NoError(t, env.app.Run(context.Background()))
	out := env.out.String()

	assert.Contains(t, out, helpLoggedOut)
	assert.Contains(t, out, helpLoggedIn)
	assert.Contains(t, out, "Unknown command: foobar.")
	assert.Contains(t, out, `Error: invalid task id "abc"`)
	assert.Contains(t, out, "Error: missing task id")
	assert.Contains(t, out, "Error: Task not found")
	assert.Contains(t, out, "Error: title is required")
	assert.Contains(t, out, `Error: invalid date "31/05/2024"`)
	assert.Contains(t, out, "Cancelled.")
}

func TestDispatch_ExpiredSessionLogsOut(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.session.Initialize(ctx)
	require.NoError(t, env.session.Login(ctx, testutil.NormalUserEmail, testutil.TestPassword))

	require.NoError(t, env.store.Clear(ctx))
	assert.True(t, env.app.dispatch(ctx, "list", nil))

	assert.Contains(t, env.out.String(), "Your session has expired. Please log in again.")
	assert.Nil(t, env.session.User())
}

func TestDispatch_ExitStops(t *testing.T) {
	env := newTestEnv(t)

	assert.False(t, env.app.dispatch(context.Background(), "exit", nil))
	assert.False(t, env.app.dispatch(context.Background(), "quit", nil))
	assert.True(t, env.app.dispatch(context.Background(), "help", nil))
}
