// Package cli is the interactive terminal client: a small REPL over the
// auth session and the task view.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"golang.org/x/term"

	"go-todo-web/internal/client/auth"
	"go-todo-web/internal/client/tasks"
	"go-todo-web/internal/models"
)

var errLoginFailed = errors.New("login failed")

type App struct {
	session *auth.Session
	view    *tasks.View
	reader  *bufio.Reader
	out     io.Writer
	style   styles
	now     func() time.Time

	// interactive reads passwords from the terminal without echo. When
	// stdin is not a terminal they are read as plain lines.
	interactive bool
}

type Option func(*App)

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(a *App) {
		a.reader = bufio.NewReader(in)
		a.out = out
		a.style = newStyles(out)
		a.interactive = false
	}
}

func NewApp(session *auth.Session, view *tasks.View, opts ...Option) *App {
	a := &App{
		session:     session,
		view:        view,
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
		style:       newStyles(os.Stdout),
		now:         time.Now,
		interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) prompt(label string) (string, error) {
	return GetSimpleText(a.reader, label, a.out)
}

func (a *App) password(label string) (string, error) {
	if a.interactive {
		return GetPassword(label, a.out)
	}
	return a.prompt(label)
}

func (a *App) isLoggedIn() bool {
	return a.session.User() != nil
}

// Signup creates an account. The user logs in separately afterwards.
func (a *App) Signup(ctx context.Context) error {
	name, err := a.prompt("Name")
	if err != nil {
		return err
	}
	email, err := a.prompt("Email")
	if err != nil {
		return err
	}
	pw, err := a.password("Password")
	if err != nil {
		return err
	}
	confirm, err := a.password("Confirm password")
	if err != nil {
		return err
	}
	if pw != confirm {
		return errors.New("passwords do not match")
	}

	if _, err := a.session.Register(ctx, name, email, pw); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	a.println(a.style.ok.Render("Registration successful. Please log in."))
	return nil
}

func (a *App) Login(ctx context.Context) error {
	if err := a.authenticate(ctx); err != nil {
		return err
	}
	return a.List(ctx)
}

func (a *App) authenticate(ctx context.Context) error {
	email, err := a.prompt("Email")
	if err != nil {
		return err
	}
	pw, err := a.password("Password")
	if err != nil {
		return err
	}
	if err := a.session.Login(ctx, email, pw); err != nil {
		return fmt.Errorf("%w: %w", errLoginFailed, err)
	}
	a.println(a.style.ok.Render("Logged in as " + displayName(a.session.User())))
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		a.println("Not logged in.")
		return nil
	}
	a.session.Logout(ctx)
	a.println("Logged out.")
	return nil
}

func (a *App) Whoami(_ context.Context) error {
	u := a.session.User()
	if u == nil {
		a.println("Not logged in.")
		return nil
	}
	a.printf("%s <%s> (id %d, joined %s)\n", displayName(u), u.Email, u.ID, relTime(u.CreatedAt, a.now()))
	return nil
}

func displayName(u *models.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// requireLogin sends an anonymous user through the login prompt first.
func (a *App) requireLogin(ctx context.Context) error {
	if a.isLoggedIn() {
		return nil
	}
	a.println("Please log in first.")
	return a.authenticate(ctx)
}

func (a *App) List(ctx context.Context) error {
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	if err := a.view.Load(ctx); err != nil {
		return err
	}

	list := a.view.Tasks()
	if len(list) == 0 {
		a.println("No tasks yet. Use 'add' to create one.")
		return nil
	}
	now := a.now()
	for _, t := range list {
		a.println(a.style.taskLine(t, now))
	}
	total, completed := a.view.Stats()
	a.println(a.style.muted.Render(fmt.Sprintf("Total: %d task(s), %d completed", total, completed)))
	return nil
}

func parseTaskID(args []string) (int, error) {
	if len(args) == 0 {
		return 0, errors.New("missing task id")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", args[0])
	}
	return id, nil
}

func (a *App) Show(ctx context.Context, args []string) error {
	id, err := parseTaskID(args)
	if err != nil {
		return err
	}
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	t, err := a.view.Get(ctx, id)
	if err != nil {
		return err
	}
	a.println(a.style.taskDetail(*t, a.now()))
	return nil
}

func (a *App) Add(ctx context.Context) error {
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	title, err := a.prompt("Title")
	if err != nil {
		return err
	}
	if title == "" {
		return errors.New("title is required")
	}
	desc, err := a.prompt("Description (optional)")
	if err != nil {
		return err
	}
	dueRaw, err := a.prompt("Due date YYYY-MM-DD (optional)")
	if err != nil {
		return err
	}

	in := models.TaskInput{Title: title}
	if desc != "" {
		in.Description = &desc
	}
	if dueRaw != "" {
		due, err := models.ParseDate(dueRaw)
		if err != nil {
			return err
		}
		in.DueDate = &due
	}

	t, err := a.view.Create(ctx, in)
	if err != nil {
		return err
	}
	a.println(a.style.ok.Render(fmt.Sprintf("Created task #%d.", t.ID)))
	return nil
}

// Edit prompts for each editable field. An empty answer keeps the current
// value and "-" clears the description.
func (a *App) Edit(ctx context.Context, args []string) error {
	id, err := parseTaskID(args)
	if err != nil {
		return err
	}
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	current, ok := a.view.Find(id)
	if !ok {
		t, err := a.view.Get(ctx, id)
		if err != nil {
			return err
		}
		current = *t
	}

	var upd models.TaskUpdate
	title, err := a.prompt(fmt.Sprintf("Title [%s]", current.Title))
	if err != nil {
		return err
	}
	if title != "" && title != current.Title {
		upd.Title = &title
	}

	curDesc := ""
	if current.Description != nil {
		curDesc = *current.Description
	}
	desc, err := a.prompt(fmt.Sprintf("Description [%s]", curDesc))
	if err != nil {
		return err
	}
	switch desc {
	case "":
	case "-":
		empty := ""
		upd.Description = &empty
	default:
		upd.Description = &desc
	}

	curDue := ""
	if current.DueDate != nil {
		curDue = current.DueDate.String()
	}
	dueRaw, err := a.prompt(fmt.Sprintf("Due date [%s]", curDue))
	if err != nil {
		return err
	}
	if dueRaw != "" {
		due, err := models.ParseDate(dueRaw)
		if err != nil {
			return err
		}
		upd.DueDate = &due
	}

	if upd == (models.TaskUpdate{}) {
		a.println("Nothing to change.")
		return nil
	}
	if _, err := a.view.Update(ctx, id, upd); err != nil {
		return err
	}
	a.println(a.style.ok.Render(fmt.Sprintf("Updated task #%d.", id)))
	return nil
}

func (a *App) Toggle(ctx context.Context, args []string) error {
	id, err := parseTaskID(args)
	if err != nil {
		return err
	}
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	t, err := a.view.Toggle(ctx, id)
	if err != nil {
		return err
	}
	a.println(a.style.taskLine(*t, a.now()))
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	id, err := parseTaskID(args)
	if err != nil {
		return err
	}
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	title := fmt.Sprintf("#%d", id)
	if t, ok := a.view.Find(id); ok {
		title = t.Title
	}
	yes, err := Confirm(a.reader, fmt.Sprintf("Are you sure you want to delete task %q?", title), a.out)
	if err != nil {
		return err
	}
	if !yes {
		a.println("Cancelled.")
		return nil
	}
	if err := a.view.Delete(ctx, id); err != nil {
		return err
	}
	a.println(a.style.ok.Render(fmt.Sprintf("Deleted task #%d.", id)))
	return nil
}
