// Package tasks keeps the client's local copy of the logged-in user's task
// list in step with the server.
//
// Local state only changes after the server confirms an operation, and then
// it takes the server's version of the task. A failed operation leaves the
// list as it was.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go-todo-web/internal/client/api"
	"go-todo-web/internal/logging"
	"go-todo-web/internal/models"
)

var (
	// ErrNotAuthenticated means there is no logged-in user; callers should
	// send the user to the login screen.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrStale is returned when the view was closed or the user changed
	// while a request was in flight. The response was discarded.
	ErrStale = errors.New("view changed while request was in flight")
)

// API is the subset of the API client the view calls.
type API interface {
	GetTasks(ctx context.Context, userID int) ([]models.Task, error)
	GetTask(ctx context.Context, userID, taskID int) (*models.Task, error)
	CreateTask(ctx context.Context, userID int, in models.TaskInput) (*models.Task, error)
	UpdateTask(ctx context.Context, userID, taskID int, upd models.TaskUpdate) (*models.Task, error)
	DeleteTask(ctx context.Context, userID, taskID int) error
	ToggleTaskCompletion(ctx context.Context, userID, taskID int) (*models.Task, error)
}

// Session is what the view needs from auth.Session.
type Session interface {
	User() *models.User
	Logout(ctx context.Context)
	Subscribe(fn func(*models.User)) func()
}

type View struct {
	api     API
	session Session
	log     logging.Logger

	mu          sync.Mutex
	tasks       []models.Task
	loading     bool
	lastErr     string
	generation  uint64
	closed      bool
	unsubscribe func()
}

// NewView creates a view bound to the session. A user change empties the
// list and discards responses still in flight.
func NewView(a API, session Session, log logging.Logger) *View {
	v := &View{api: a, session: session, log: log, tasks: []models.Task{}}
	v.unsubscribe = session.Subscribe(func(*models.User) {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.generation++
		v.tasks = []models.Task{}
		v.loading = false
	})
	return v
}

// Close stops the view. Responses arriving afterwards are dropped.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.generation++
	unsubscribe := v.unsubscribe
	v.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// begin returns the user to act for and the generation to check the
// response against.
func (v *View) begin() (int, uint64, error) {
	u := v.session.User()
	if u == nil {
		return 0, 0, ErrNotAuthenticated
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return 0, 0, ErrStale
	}
	return u.ID, v.generation, nil
}

// commit runs apply under the lock if gen is still current.
func (v *View) commit(gen uint64, apply func()) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.generation != gen {
		return ErrStale
	}
	v.lastErr = ""
	apply()
	return nil
}

// fail records a failed operation. Auth failures end the session.
func (v *View) fail(ctx context.Context, gen uint64, action string, err error) error {
	v.mu.Lock()
	if v.generation != gen {
		v.mu.Unlock()
		return ErrStale
	}
	v.lastErr = fmt.Sprintf("Failed to %s: %s", action, err.Error())
	v.mu.Unlock()

	v.log.Error(ctx, "task operation failed", "action", action, "error", err)
	if api.IsAuthError(err) {
		v.session.Logout(ctx)
	}
	return err
}

// Load fetches the full list and replaces local state with it.
func (v *View) Load(ctx context.Context) error {
	userID, gen, err := v.begin()
	if err != nil {
		return err
	}

	v.mu.Lock()
	if v.generation == gen {
		v.loading = true
	}
	v.mu.Unlock()

	list, err := v.api.GetTasks(ctx, userID)

	v.mu.Lock()
	if v.generation == gen {
		v.loading = false
	}
	v.mu.Unlock()

	if err != nil {
		return v.fail(ctx, gen, "load tasks", err)
	}
	return v.commit(gen, func() {
		v.tasks = append(make([]models.Task, 0, len(list)), list...)
	})
}

// Get fetches one task and refreshes the local copy if the list has it.
func (v *View) Get(ctx context.Context, taskID int) (*models.Task, error) {
	userID, gen, err := v.begin()
	if err != nil {
		return nil, err
	}
	t, err := v.api.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, v.fail(ctx, gen, "load task", err)
	}
	if err := v.commit(gen, func() { v.replace(*t) }); err != nil {
		return nil, err
	}
	return t, nil
}

func (v *View) Create(ctx context.Context, in models.TaskInput) (*models.Task, error) {
	userID, gen, err := v.begin()
	if err != nil {
		return nil, err
	}
	t, err := v.api.CreateTask(ctx, userID, in)
	if err != nil {
		return nil, v.fail(ctx, gen, "create task", err)
	}
	if err := v.commit(gen, func() { v.tasks = append(v.tasks, *t) }); err != nil {
		return nil, err
	}
	return t, nil
}

func (v *View) Update(ctx context.Context, taskID int, upd models.TaskUpdate) (*models.Task, error) {
	userID, gen, err := v.begin()
	if err != nil {
		return nil, err
	}
	t, err := v.api.UpdateTask(ctx, userID, taskID, upd)
	if err != nil {
		return nil, v.fail(ctx, gen, "update task", err)
	}
	if err := v.commit(gen, func() { v.replace(*t) }); err != nil {
		return nil, err
	}
	return t, nil
}

func (v *View) Toggle(ctx context.Context, taskID int) (*models.Task, error) {
	userID, gen, err := v.begin()
	if err != nil {
		return nil, err
	}
	t, err := v.api.ToggleTaskCompletion(ctx, userID, taskID)
	if err != nil {
		return nil, v.fail(ctx, gen, "update task", err)
	}
	if err := v.commit(gen, func() { v.replace(*t) }); err != nil {
		return nil, err
	}
	return t, nil
}

func (v *View) Delete(ctx context.Context, taskID int) error {
	userID, gen, err := v.begin()
	if err != nil {
		return err
	}
	if err := v.api.DeleteTask(ctx, userID, taskID); err != nil {
		return v.fail(ctx, gen, "delete task", err)
	}
	return v.commit(gen, func() {
		kept := v.tasks[:0]
		for _, t := range v.tasks {
			if t.ID != taskID {
				kept = append(kept, t)
			}
		}
		v.tasks = kept
	})
}

// replace swaps in t for the task with the same id. Callers hold mu.
func (v *View) replace(t models.Task) {
	for i := range v.tasks {
		if v.tasks[i].ID == t.ID {
			v.tasks[i] = t
			return
		}
	}
}

// Tasks returns a copy of the local list in server order.
func (v *View) Tasks() []models.Task {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]models.Task(nil), v.tasks...)
}

// Find returns the local copy of a task.
func (v *View) Find(taskID int) (models.Task, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, t := range v.tasks {
		if t.ID == taskID {
			return t, true
		}
	}
	return models.Task{}, false
}

func (v *View) Loading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loading
}

// LastError is the message of the most recent failure, cleared by the next
// success.
func (v *View) LastError() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastErr
}

// Stats returns the total and completed counts of the local list.
func (v *View) Stats() (total, completed int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, t := range v.tasks {
		if t.Completed {
			completed++
		}
	}
	return len(v.tasks), completed
}
