package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go-todo-web/internal/client/api"
	"go-todo-web/internal/client/tasks"
)

const (
	helpLoggedOut = "Available commands: signup, login, help, exit"
	helpLoggedIn  = "Available commands: list, show <id>, add, edit <id>, toggle <id>, delete <id>, whoami, logout, help, exit"
)

// Run resolves any stored session, then reads commands until exit or EOF.
func (a *App) Run(ctx context.Context) error {
	a.session.Initialize(ctx)
	if u := a.session.User(); u != nil {
		a.println("Welcome back, " + displayName(u) + ".")
		a.report(a.List(ctx))
	} else {
		a.println("Welcome. Type 'signup' to create an account or 'login' to sign in.")
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(a.out, a.promptLine())
		line, err := a.reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if !a.dispatch(ctx, fields[0], fields[1:]) {
			return nil
		}
	}
}

func (a *App) promptLine() string {
	if u := a.session.User(); u != nil {
		return fmt.Sprintf("todo (%s)> ", u.Email)
	}
	return "todo> "
}

// dispatch runs one command and reports whether the loop should continue.
func (a *App) dispatch(ctx context.Context, cmd string, args []string) bool {
	var err error
	switch cmd {
	case "help", "?":
		if a.isLoggedIn() {
			a.println(helpLoggedIn)
		} else {
			a.println(helpLoggedOut)
		}
	case "signup", "register":
		err = a.Signup(ctx)
	case "login":
		err = a.Login(ctx)
	case "logout":
		err = a.Logout(ctx)
	case "whoami":
		err = a.Whoami(ctx)
	case "list", "ls", "l":
		err = a.List(ctx)
	case "show":
		err = a.Show(ctx, args)
	case "add", "new":
		err = a.Add(ctx)
	case "edit":
		err = a.Edit(ctx, args)
	case "toggle", "done":
		err = a.Toggle(ctx, args)
	case "delete", "rm":
		err = a.Delete(ctx, args)
	case "exit", "quit":
		a.println("Bye!")
		return false
	default:
		a.println("Unknown command: " + cmd + ". Type 'help' for a list.")
	}
	a.report(err)
	return true
}

func (a *App) report(err error) {
	switch {
	case err == nil, errors.Is(err, tasks.ErrStale):
	case errors.Is(err, errLoginFailed):
		a.println(a.style.err.Render("Error: " + err.Error()))
	case errors.Is(err, tasks.ErrNotAuthenticated), api.IsAuthError(err):
		a.println(a.style.err.Render("Your session has expired. Please log in again."))
	default:
		a.println(a.style.err.Render("Error: " + err.Error()))
	}
}
