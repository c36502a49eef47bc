// Package api is a typed client for the todo REST API.
//
// Authenticated operations read the bearer token from a tokenstore.Store on
// every call and fail with ErrMissingToken, without touching the network,
// when none is stored. Nothing is retried.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go-todo-web/internal/client/tokenstore"
	"go-todo-web/internal/models"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:8080/api"

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     tokenstore.Store
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(baseURL string, tokens tokenstore.Store, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		tokens:     tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tokens returns the store the client reads its bearer token from.
func (c *Client) Tokens() tokenstore.Store {
	return c.tokens
}

type request struct {
	method      string
	path        string
	auth        bool
	body        io.Reader
	contentType string
}

func jsonRequest(method, path string, auth bool, v any) (request, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return request{}, fmt.Errorf("encode request: %w", err)
	}
	return request{method: method, path: path, auth: auth, body: bytes.NewReader(b), contentType: "application/json"}, nil
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	var token string
	if r.auth {
		t, err := c.tokens.Get(ctx)
		if errors.Is(err, tokenstore.ErrNoToken) || (err == nil && t == "") {
			return ErrMissingToken
		}
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
		token = t
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorFromResponse(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", r.method, r.path, err)
	}
	return nil
}

// Health checks the server's /health endpoint, which lives at the server
// root rather than under the API base path.
func (c *Client) Health(ctx context.Context) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("parse base url: %w", err)
	}
	u.Path = "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errorFromResponse(resp)
	}
	return nil
}

func (c *Client) RegisterUser(ctx context.Context, in models.UserRegisterRequest) (*models.User, error) {
	r, err := jsonRequest(http.MethodPost, "/users/register", false, in)
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := c.do(ctx, r, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// LoginUser exchanges credentials for a token and stores it.
func (c *Client) LoginUser(ctx context.Context, email, password string) (*models.TokenResponse, error) {
	form := url.Values{"email": {email}, "password": {password}}
	r := request{
		method:      http.MethodPost,
		path:        "/users/login",
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	}
	var tok models.TokenResponse
	if err := c.do(ctx, r, &tok); err != nil {
		return nil, err
	}
	if err := c.tokens.Set(ctx, tok.AccessToken); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	return &tok, nil
}

func (c *Client) GetCurrentUser(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, request{method: http.MethodGet, path: "/users/me", auth: true}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func tasksPath(userID int) string {
	return fmt.Sprintf("/%d/tasks", userID)
}

func taskPath(userID, taskID int) string {
	return fmt.Sprintf("/%d/tasks/%d", userID, taskID)
}

func (c *Client) GetTasks(ctx context.Context, userID int) ([]models.Task, error) {
	var tasks []models.Task
	if err := c.do(ctx, request{method: http.MethodGet, path: tasksPath(userID), auth: true}, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) GetTask(ctx context.Context, userID, taskID int) (*models.Task, error) {
	var t models.Task
	if err := c.do(ctx, request{method: http.MethodGet, path: taskPath(userID, taskID), auth: true}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) CreateTask(ctx context.Context, userID int, in models.TaskInput) (*models.Task, error) {
	return c.sendTask(ctx, http.MethodPost, tasksPath(userID), in)
}

// UpdateTask sends only the fields set in upd.
func (c *Client) UpdateTask(ctx context.Context, userID, taskID int, upd models.TaskUpdate) (*models.Task, error) {
	return c.sendTask(ctx, http.MethodPut, taskPath(userID, taskID), upd)
}

func (c *Client) sendTask(ctx context.Context, method, path string, body any) (*models.Task, error) {
	r, err := jsonRequest(method, path, true, body)
	if err != nil {
		return nil, err
	}
	var t models.Task
	if err := c.do(ctx, r, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) DeleteTask(ctx context.Context, userID, taskID int) error {
	return c.do(ctx, request{method: http.MethodDelete, path: taskPath(userID, taskID), auth: true}, nil)
}

func (c *Client) ToggleTaskCompletion(ctx context.Context, userID, taskID int) (*models.Task, error) {
	var t models.Task
	if err := c.do(ctx, request{method: http.MethodPatch, path: taskPath(userID, taskID) + "/complete", auth: true}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
