package backend

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

	"github.com/google/uuid"
)

// TimerAPI is the subset of the backend the timer reconciler drives.
// *Client implements it; tests substitute fakes.
type TimerAPI interface {
	StartTimer(ctx context.Context, taskID string) (*Task, error)
	PauseTimer(ctx context.Context, taskID string) (*Task, error)
	ResumeTimer(ctx context.Context, taskID string) (*Task, error)
	TimerStatus(ctx context.Context, taskID string) (*TimerStatus, error)
}

// TaskLister fetches the authoritative task list.
type TaskLister interface {
	ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error)
}

// Ensure Client implements both interfaces at compile time.
var (
	_ TimerAPI   = (*Client)(nil)
	_ TaskLister = (*Client)(nil)
)

// Client talks to the task backend's HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	token     string
	userAgent string
}

const (
	// DefaultAPIURL is used when no api_url is configured.
	DefaultAPIURL    = "http://127.0.0.1:5000/api"
	defaultUserAgent = "taskclock/dev"
	requestTimeout   = 5 * time.Second
	maxErrorBody     = 64 << 10
)

// NewClient builds a Client rooted at apiURL. The token may be empty; every
// request then fails with ErrNoToken.
func NewClient(apiURL, token string) (*Client, error) {
	base, err := parseBaseURL(apiURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		token:     strings.TrimSpace(token),
		userAgent: defaultUserAgent,
	}, nil
}

// SetUserAgent overrides the User-Agent header, usually to carry the build version.
func (c *Client) SetUserAgent(ua string) {
	if ua = strings.TrimSpace(ua); ua != "" {
		c.userAgent = ua
	}
}

// TaskFilter narrows ListTasks. Empty fields are not sent.
type TaskFilter struct {
	Status   string
	Assignee string
	Priority string
}

// ListTasks retrieves the task list, optionally filtered.
func (c *Client) ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	values := url.Values{}
	if status := strings.TrimSpace(filter.Status); status != "" {
		values.Set("status", ServerStatus(status))
	}
	if assignee := strings.TrimSpace(filter.Assignee); assignee != "" {
		values.Set("assignee", assignee)
	}
	if priority := strings.TrimSpace(filter.Priority); priority != "" {
		values.Set("priority", priority)
	}
	var payload TaskListResponse
	if err := c.do(ctx, http.MethodGet, values, "Failed to fetch tasks", &payload, "tasks", "alltasks"); err != nil {
		return nil, err
	}
	return payload.Tasks, nil
}

// StartTimer opens a server-side session for taskID.
func (c *Client) StartTimer(ctx context.Context, taskID string) (*Task, error) {
	return c.timerAction(ctx, taskID, "start", "Failed to start timer")
}

// PauseTimer closes the server-side session for taskID.
func (c *Client) PauseTimer(ctx context.Context, taskID string) (*Task, error) {
	return c.timerAction(ctx, taskID, "pause", "Failed to pause timer")
}

// ResumeTimer reopens a session for taskID.
func (c *Client) ResumeTimer(ctx context.Context, taskID string) (*Task, error) {
	return c.timerAction(ctx, taskID, "resume", "Failed to resume timer")
}

// TimerStatus fetches the server's current timer snapshot for taskID.
func (c *Client) TimerStatus(ctx context.Context, taskID string) (*TimerStatus, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if err := validTaskID(taskID); err != nil {
		return nil, err
	}
	var payload TimerStatusResponse
	if err := c.do(ctx, http.MethodGet, nil, "Failed to get timer status", &payload, "tasks", taskID, "timer", "status"); err != nil {
		return nil, err
	}
	status := payload.Timer
	status.TaskID = taskID
	return &status, nil
}

func (c *Client) timerAction(ctx context.Context, taskID, action, fallback string) (*Task, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if err := validTaskID(taskID); err != nil {
		return nil, err
	}
	var payload TaskResponse
	if err := c.do(ctx, http.MethodPost, nil, fallback, &payload, "tasks", taskID, "timer", action); err != nil {
		return nil, err
	}
	if payload.Task == nil {
		return nil, &APIError{Path: "/tasks/" + taskID + "/timer/" + action, Status: http.StatusOK, Message: fallback}
	}
	if payload.Task.Key() == "" {
		payload.Task.ID = taskID
	}
	return payload.Task, nil
}

func (c *Client) do(ctx context.Context, method string, query url.Values, fallback string, dest any, segments ...string) error {
	if c.token == "" {
		return ErrNoToken
	}
	reqURL := c.baseURL.JoinPath(segments...)
	if len(query) > 0 {
		reqURL.RawQuery = query.Encode()
	}
	path := "/" + strings.Join(segments, "/")

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Path: path, Message: fallback, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Path: path, Status: resp.StatusCode, Message: errorMessage(body, fallback)}
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage prefers the body's message field, then its error field.
func errorMessage(body []byte, fallback string) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if len(bytes.TrimSpace(body)) > 0 && json.Unmarshal(body, &payload) == nil {
		if msg := strings.TrimSpace(payload.Message); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(payload.Error); msg != "" {
			return msg
		}
	}
	return fallback
}

func validTaskID(taskID string) error {
	trimmed := strings.TrimSpace(taskID)
	if trimmed == "" {
		return errors.New("task id required")
	}
	if strings.ContainsAny(trimmed, "/?#") {
		return fmt.Errorf("invalid task id %q", taskID)
	}
	return nil
}

func parseBaseURL(apiURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiURL)
	if trimmed == "" {
		trimmed = DefaultAPIURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_url %q: %w", apiURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api_url %q: missing host", apiURL)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
