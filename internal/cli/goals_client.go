package cli

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

	"wealthwise/internal/core"
	"wealthwise/internal/goals"
)

// GoalService is the goal collection as wealthctl sees it. The running
// server owns the store, so commands go through GoalClient by default and
// only use LocalGoals when told the server is stopped.
type GoalService interface {
	List(ctx context.Context) ([]core.Goal, error)
	Create(ctx context.Context, in core.GoalInput) (core.Goal, []core.Goal, error)
	Delete(ctx context.Context, id string) ([]core.Goal, error)
	Complete(ctx context.Context, id string) ([]core.Goal, error)
	// UpdateProgress keeps the stored savings when savings is nil.
	UpdateProgress(ctx context.Context, id string, progress float64, savings *float64) ([]core.Goal, error)
}

// Get finds one goal through a GoalService.
func Get(ctx context.Context, svc GoalService, id string) (core.Goal, []core.Goal, error) {
	all, err := svc.List(ctx)
	if err != nil {
		return core.Goal{}, nil, err
	}
	for _, g := range all {
		if g.ID == id {
			return g, all, nil
		}
	}
	return core.Goal{}, all, fmt.Errorf("%w: %s", goals.ErrGoalNotFound, id)
}

// APIError is a non-2xx answer from the goals API that has no matching
// repository error.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// GoalClient talks to the /api/goals endpoints of a wealthwise server.
type GoalClient struct {
	baseURL string
	client  *http.Client
}

// NewGoalClient builds a client for the server at baseURL. A nil client
// uses http.DefaultClient.
func NewGoalClient(baseURL string, client *http.Client) *GoalClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &GoalClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  client,
	}
}

type goalsBody struct {
	Goal  *core.Goal  `json:"goal,omitempty"`
	Goals []core.Goal `json:"goals"`
}

func (c *GoalClient) List(ctx context.Context) ([]core.Goal, error) {
	var out goalsBody
	if err := c.do(ctx, http.MethodGet, "/api/goals", nil, &out); err != nil {
		return nil, err
	}
	return out.Goals, nil
}

func (c *GoalClient) Create(ctx context.Context, in core.GoalInput) (core.Goal, []core.Goal, error) {
	var out goalsBody
	if err := c.do(ctx, http.MethodPost, "/api/goals", in, &out); err != nil {
		return core.Goal{}, nil, err
	}
	if out.Goal == nil {
		return core.Goal{}, nil, errors.New("server response is missing the created goal")
	}
	return *out.Goal, out.Goals, nil
}

func (c *GoalClient) Delete(ctx context.Context, id string) ([]core.Goal, error) {
	var out goalsBody
	if err := c.do(ctx, http.MethodDelete, goalPath(id, ""), nil, &out); err != nil {
		return nil, err
	}
	return out.Goals, nil
}

func (c *GoalClient) Complete(ctx context.Context, id string) ([]core.Goal, error) {
	var out goalsBody
	if err := c.do(ctx, http.MethodPost, goalPath(id, "/complete"), nil, &out); err != nil {
		return nil, err
	}
	return out.Goals, nil
}

func (c *GoalClient) UpdateProgress(ctx context.Context, id string, progress float64, savings *float64) ([]core.Goal, error) {
	body := map[string]float64{"progress": progress}
	if savings != nil {
		body["currentSavings"] = *savings
	}
	var out goalsBody
	if err := c.do(ctx, http.MethodPatch, goalPath(id, "/progress"), body, &out); err != nil {
		return nil, err
	}
	return out.Goals, nil
}

func goalPath(id, suffix string) string {
	return "/api/goals/" + url.PathEscape(id) + suffix
}

func (c *GoalClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("reach wealthwise server at %s (use --local if it is stopped): %w", c.baseURL, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg := http.StatusText(res.StatusCode)
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		switch res.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w (%s)", goals.ErrGoalNotFound, msg)
		case http.StatusConflict:
			return fmt.Errorf("%w (%s)", goals.ErrGoalCompleted, msg)
		default:
			return &APIError{Status: res.StatusCode, Message: msg}
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// LocalGoals serves GoalService from a repository opened on the store
// directly. Only safe while no server holds the same store.
type LocalGoals struct {
	Repo *goals.Repository
}

func (l LocalGoals) List(context.Context) ([]core.Goal, error) {
	return l.Repo.List(), nil
}

func (l LocalGoals) Create(ctx context.Context, in core.GoalInput) (core.Goal, []core.Goal, error) {
	return l.Repo.Create(ctx, in)
}

func (l LocalGoals) Delete(ctx context.Context, id string) ([]core.Goal, error) {
	return l.Repo.Delete(ctx, id)
}

func (l LocalGoals) Complete(ctx context.Context, id string) ([]core.Goal, error) {
	return l.Repo.Complete(ctx, id)
}

func (l LocalGoals) UpdateProgress(ctx context.Context, id string, progress float64, savings *float64) ([]core.Goal, error) {
	if savings == nil {
		current, err := l.Repo.Get(id)
		if err != nil {
			return nil, err
		}
		savings = &current.CurrentSavings
	}
	return l.Repo.UpdateProgress(ctx, id, progress, *savings)
}
