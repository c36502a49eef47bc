package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"go-todo-web/internal/models"
)

// MemoryUserRepo はプロセス内メモリにユーザーを保持するUserRepositoryです。
// STORAGE=memory での起動とテストで使います。
type MemoryUserRepo struct {
	mu     sync.RWMutex
	nextID int
	users  map[int]*models.User
	now    func() time.Time
}

// NewMemoryUserRepo は空のMemoryUserRepoを作成します。
func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{nextID: 1, users: make(map[int]*models.User), now: time.Now}
}

func (r *MemoryUserRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == u.Email {
			return nil, ErrDuplicateEmail
		}
	}

	stored := *u
	stored.ID = r.nextID
	stored.CreatedAt = r.now().UTC()
	r.nextID++
	r.users[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (r *MemoryUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *MemoryUserRepo) FindByID(_ context.Context, id int) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := *u
	return &out, nil
}

// MemoryTaskRepo はプロセス内メモリにタスクを保持するTaskRepositoryです。
type MemoryTaskRepo struct {
	mu     sync.RWMutex
	nextID int
	tasks  map[int]*models.Task
	now    func() time.Time
}

// NewMemoryTaskRepo は空のMemoryTaskRepoを作成します。
func NewMemoryTaskRepo() *MemoryTaskRepo {
	return &MemoryTaskRepo{nextID: 1, tasks: make(map[int]*models.Task), now: time.Now}
}

func copyTask(t *models.Task) *models.Task {
	out := *t
	if t.Description != nil {
		d := *t.Description
		out.Description = &d
	}
	if t.DueDate != nil {
		d := *t.DueDate
		out.DueDate = &d
	}
	return &out
}

func (r *MemoryTaskRepo) Create(_ context.Context, t *models.Task) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := copyTask(t)
	stored.ID = r.nextID
	r.nextID++
	now := r.now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.tasks[stored.ID] = stored

	return copyTask(stored), nil
}

func (r *MemoryTaskRepo) FindByUserID(_ context.Context, userID int) ([]*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]*models.Task, 0)
	for _, t := range r.tasks {
		if t.UserID == userID {
			tasks = append(tasks, copyTask(t))
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

func (r *MemoryTaskRepo) FindByID(_ context.Context, id, userID int) (*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok || t.UserID != userID {
		return nil, ErrTaskNotFound
	}
	return copyTask(t), nil
}

func (r *MemoryTaskRepo) Update(_ context.Context, t *models.Task) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.tasks[t.ID]
	if !ok || existing.UserID != t.UserID {
		return nil, ErrTaskNotFound
	}

	stored := copyTask(t)
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = r.now().UTC()
	r.tasks[t.ID] = stored

	return copyTask(stored), nil
}

func (r *MemoryTaskRepo) ToggleCompleted(_ context.Context, id, userID int) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok || t.UserID != userID {
		return nil, ErrTaskNotFound
	}
	t.Completed = !t.Completed
	t.UpdatedAt = r.now().UTC()

	return copyTask(t), nil
}

func (r *MemoryTaskRepo) Delete(_ context.Context, id, userID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok || t.UserID != userID {
		return ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}
