// Package tokenstore persists the client's bearer token between runs.
//
// The token is kept under a single fixed key. Its contents are never
// inspected; only the server decides whether a token is still valid.
package tokenstore

import (
	"context"
	"errors"
)

// Key is the storage key the token is persisted under.
const Key = "todo_app_token"

// ErrNoToken is returned by Get when no token is stored.
var ErrNoToken = errors.New("no token stored")

type Store interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	// Clear removes the token. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}
