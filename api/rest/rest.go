// Package rest implements api.Client against the dashboard's HTTP API.
// It injects the bearer token on every request and owns the centralized
// error-to-notice mapping: callers only branch on the returned error.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"taskboard/api"
	"taskboard/internal/notice"
	"taskboard/internal/utils"
)

// Session provides the bearer token and receives forced-logout signals.
type Session interface {
	Token() string
	Clear() error
}

// Config holds REST client settings.
type Config struct {
	BaseURL string
	Timeout time.Duration

	// OnAuthFailure is invoked after a 401 forces a logout. Optional.
	OnAuthFailure func()
}

// Client implements api.Client over HTTP.
type Client struct {
	cfg     Config
	session Session
	notices *notice.Queue
	client  *http.Client
	log     *utils.Logger
}

// New creates a REST client.
func New(cfg Config, session Session, notices *notice.Queue) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:     cfg,
		session: session,
		notices: notices,
		client:  &http.Client{Timeout: timeout},
		log:     utils.GetLogger(),
	}, nil
}

// doRequest performs an authenticated request and decodes the response
// into out (when out is non-nil). Every failure path runs through
// handleError before returning, so the user notice is already queued by
// the time the caller sees the error.
func (c *Client) doRequest(ctx context.Context, method, path string, body, out interface{}) error {
	var bodyReader *bytes.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(jsonBody)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.notices.Push(notice.Error, "Server is not responding")
		return utils.ErrServerUnreachable(err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeError(resp)
		c.handleError(apiErr)
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.notices.Push(notice.Error, "Server returned an unreadable response")
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// decodeError builds an *api.Error from a non-2xx response body. The
// server reports failures as {"detail": "..."}.
func decodeError(resp *http.Response) *api.Error {
	var body struct {
		Detail string `json:"detail"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return &api.Error{
		StatusCode: resp.StatusCode,
		Detail:     body.Detail,
	}
}

// handleError maps a server error to a user notice. 401 distinguishes
// expired-token from invalid-token messaging and forces a logout; other
// statuses show the server detail verbatim.
func (c *Client) handleError(apiErr *api.Error) {
	switch {
	case apiErr.TokenExpired():
		c.notices.Push(notice.Error, "Session expired, please sign in again")
		c.forceLogout()
	case apiErr.TokenInvalid():
		c.notices.Push(notice.Error, "Session is no longer valid, please sign in again")
		c.forceLogout()
	default:
		detail := apiErr.Detail
		if detail == "" {
			detail = fmt.Sprintf("Request failed with status %d", apiErr.StatusCode)
		}
		c.notices.Push(notice.Error, detail)
	}
}

func (c *Client) forceLogout() {
	if err := c.session.Clear(); err != nil {
		c.log.Debug("failed to clear session: %v", err)
	}
	if c.cfg.OnAuthFailure != nil {
		c.cfg.OnAuthFailure()
	}
}

// Login authenticates and returns the session credentials.
func (c *Client) Login(ctx context.Context, username, password string) (*api.LoginResult, error) {
	body := map[string]string{"username": username, "password": password}
	var result api.LoginResult
	if err := c.doRequest(ctx, http.MethodPost, "/login", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RefreshToken rotates the long-lived session token.
func (c *Client) RefreshToken(ctx context.Context) (*api.TokenRefresh, error) {
	var result api.TokenRefresh
	if err := c.doRequest(ctx, http.MethodPost, "/token/refresh", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// StreamToken requests a new short-lived stream credential.
func (c *Client) StreamToken(ctx context.Context) (string, error) {
	var result struct {
		SSEToken string `json:"sse_token"`
	}
	if err := c.doRequest(ctx, http.MethodPost, "/sse/token", nil, &result); err != nil {
		return "", err
	}
	return result.SSEToken, nil
}

// Ping probes the liveness endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/health", nil)
	if err != nil {
		return err
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return &api.Error{StatusCode: resp.StatusCode}
	}
	return nil
}

// FetchAll loads the complete board snapshot in one request.
func (c *Client) FetchAll(ctx context.Context) (*api.Snapshot, error) {
	var snap api.Snapshot
	if err := c.doRequest(ctx, http.MethodGet, "/tasks/all", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// CreateCategory creates a category and returns the persisted entity.
func (c *Client) CreateCategory(ctx context.Context, cat *api.Category) (*api.Category, error) {
	var created api.Category
	if err := c.doRequest(ctx, http.MethodPost, "/categories", cat, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateCategory updates a category and returns the persisted entity.
func (c *Client) UpdateCategory(ctx context.Context, cat *api.Category) (*api.Category, error) {
	var updated api.Category
	path := fmt.Sprintf("/categories/%d", cat.ID)
	if err := c.doRequest(ctx, http.MethodPut, path, cat, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteCategory deletes a category; the server cascades to children.
func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	return c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/categories/%d", id), nil, nil)
}

// CreateItem creates an item and returns the persisted entity.
func (c *Client) CreateItem(ctx context.Context, it *api.Item) (*api.Item, error) {
	var created api.Item
	if err := c.doRequest(ctx, http.MethodPost, "/items", it, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateItem updates an item and returns the persisted entity.
func (c *Client) UpdateItem(ctx context.Context, it *api.Item) (*api.Item, error) {
	var updated api.Item
	path := fmt.Sprintf("/items/%d", it.ID)
	if err := c.doRequest(ctx, http.MethodPut, path, it, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteItem deletes an item.
func (c *Client) DeleteItem(ctx context.Context, id int64) error {
	return c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/items/%d", id), nil, nil)
}

// CreateProgress creates a progress entry and returns the persisted entity.
func (c *Client) CreateProgress(ctx context.Context, p *api.Progress) (*api.Progress, error) {
	var created api.Progress
	if err := c.doRequest(ctx, http.MethodPost, "/progresses", p, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateProgress updates a progress entry and returns the persisted entity.
func (c *Client) UpdateProgress(ctx context.Context, p *api.Progress) (*api.Progress, error) {
	var updated api.Progress
	path := fmt.Sprintf("/progresses/%d", p.ID)
	if err := c.doRequest(ctx, http.MethodPut, path, p, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteProgress deletes a progress entry.
func (c *Client) DeleteProgress(ctx context.Context, id int64) error {
	return c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/progresses/%d", id), nil, nil)
}

// SetProgressStatus changes only the status field of a progress entry.
func (c *Client) SetProgressStatus(ctx context.Context, id int64, status api.ProgressStatus) error {
	body := map[string]int{"status": int(status)}
	var result struct {
		OK     bool `json:"ok"`
		Status int  `json:"status"`
	}
	path := fmt.Sprintf("/progresses/%d/status", id)
	return c.doRequest(ctx, http.MethodPut, path, body, &result)
}

// ProgressDetails fetches the denormalized display strings for a progress.
func (c *Client) ProgressDetails(ctx context.Context, categoryID, itemID, progressID int64) (*api.ProgressDetail, error) {
	q := url.Values{}
	q.Set("category_id", fmt.Sprintf("%d", categoryID))
	q.Set("item_id", fmt.Sprintf("%d", itemID))
	q.Set("progress_id", fmt.Sprintf("%d", progressID))

	var detail api.ProgressDetail
	if err := c.doRequest(ctx, http.MethodGet, "/progress/details?"+q.Encode(), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// CreateNotify creates a notification schedule and returns the persisted entity.
func (c *Client) CreateNotify(ctx context.Context, n *api.Notify) (*api.Notify, error) {
	var created api.Notify
	if err := c.doRequest(ctx, http.MethodPost, "/notifies", n, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateNotify updates a notification schedule and returns the persisted entity.
func (c *Client) UpdateNotify(ctx context.Context, n *api.Notify) (*api.Notify, error) {
	var updated api.Notify
	path := fmt.Sprintf("/notifies/%d", n.ID)
	if err := c.doRequest(ctx, http.MethodPut, path, n, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteNotify deletes a notification schedule.
func (c *Client) DeleteNotify(ctx context.Context, id int64) error {
	return c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/notifies/%d", id), nil, nil)
}

// ControlNotifyService starts or stops the server-side scheduler.
func (c *Client) ControlNotifyService(ctx context.Context, enabled bool) (*api.ControlResult, error) {
	var result api.ControlResult
	path := fmt.Sprintf("/admin/task-notify/control?enabled=%t", enabled)
	if err := c.doRequest(ctx, http.MethodPost, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// NotifyList returns the server-side schedule listing (admin only).
func (c *Client) NotifyList(ctx context.Context) ([]api.NotifySchedule, error) {
	var list []api.NotifySchedule
	if err := c.doRequest(ctx, http.MethodGet, "/admin/get-notify-list/", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// RefreshNotifyList rebuilds and returns the server-side schedule listing
// (admin only).
func (c *Client) RefreshNotifyList(ctx context.Context) ([]api.NotifySchedule, error) {
	var list []api.NotifySchedule
	if err := c.doRequest(ctx, http.MethodPost, "/admin/update-notify-list/", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// SendTestPush asks the server to push a test message to a user's devices.
func (c *Client) SendTestPush(ctx context.Context, userID int64) error {
	return c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/test/send-to-user/%d", userID), nil, nil)
}

// Verify interface compliance at compile time
var _ api.Client = (*Client)(nil)
