// Package api defines the task board data model and the client interface
// used to talk to the dashboard server.
package api

import (
	"context"
)

// Category is the top level of the board hierarchy. Categories own items.
type Category struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"user_id,omitempty"`
	CategoryName string `json:"category_name"`
	Content      string `json:"content"`
	Items        []Item `json:"items,omitempty"`

	// Expanded is local display state and is never sent to the server.
	Expanded bool `json:"-"`
}

// Item belongs to exactly one category and owns progress entries.
type Item struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id,omitempty"`
	CategoryID int64      `json:"category_id"`
	ItemName   string     `json:"item_name"`
	Content    string     `json:"content"`
	ItemAt     string     `json:"item_at"`
	Progresses []Progress `json:"progresses,omitempty"`

	// Expanded is local display state and is never sent to the server.
	Expanded bool `json:"-"`
}

// Progress belongs to exactly one item. The model carries a slice of
// notifies, but the business rule caps it at one active notify per
// progress; the server enforces the cap.
type Progress struct {
	ID           int64          `json:"id"`
	UserID       int64          `json:"user_id,omitempty"`
	ItemID       int64          `json:"item_id"`
	ProgressName string         `json:"progress_name"`
	Content      string         `json:"content"`
	ProgressAt   string         `json:"progress_at"`
	Status       ProgressStatus `json:"status"`
	Notifies     []Notify       `json:"notifies,omitempty"`
}

// Notify is a scheduled notification attached to a progress entry.
// CategoryID and ItemID are denormalized for fast lookup.
type Notify struct {
	ID           int64   `json:"id"`
	UserID       int64   `json:"user_id,omitempty"`
	CategoryID   int64   `json:"category_id"`
	ItemID       int64   `json:"item_id"`
	ProgressID   int64   `json:"progress_id"`
	StartAt      string  `json:"start_at"`
	StopAt       string  `json:"stop_at"`
	RunMode      RunMode `json:"run_mode"`
	RunCode      int     `json:"run_code"`
	TimeAt       *string `json:"time_at,omitempty"`
	WeekAt       *int    `json:"week_at,omitempty"`
	LastExecuted *string `json:"last_executed,omitempty"`
}

// ServiceState reports the server-side notification scheduler status.
type ServiceState struct {
	Running bool `json:"running"`
	Count   int  `json:"count"`
}

// Snapshot is the aggregate payload returned by GET /tasks/all. Entities
// arrive flat; the board store assembles them into a tree.
type Snapshot struct {
	Categories    []Category   `json:"categories"`
	Items         []Item       `json:"items"`
	Progresses    []Progress   `json:"progresses"`
	Notifies      []Notify     `json:"notifies"`
	NotifyService ServiceState `json:"task_notify_service"`
}

// ProgressDetail is the denormalized display record returned by
// GET /progress/details.
type ProgressDetail struct {
	CategoryName string `json:"category_name"`
	ItemName     string `json:"item_name"`
	ProgressName string `json:"progress_name"`
	Content      string `json:"content"`
}

// NotifySchedule is one entry of the admin-only server schedule listing.
type NotifySchedule struct {
	NotifyID   int64  `json:"notify_id"`
	UserID     int64  `json:"user_id"`
	ProgressID int64  `json:"progress_id"`
	NextRun    string `json:"next_run,omitempty"`
}

// ControlResult is the response of the notify-service control endpoint.
type ControlResult struct {
	Running bool   `json:"running"`
	Message string `json:"message"`
}

// TokenRefresh is the response of POST /token/refresh.
type TokenRefresh struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// LoginResult is the response of POST /login.
type LoginResult struct {
	Token           string `json:"token"`
	ExpiresIn       int64  `json:"expires_in"`
	UserID          int64  `json:"user_id"`
	DisplayName     string `json:"display_name"`
	IsAdmin         bool   `json:"is_admin"`
	MessagingLinked bool   `json:"messaging_linked"`
}

// Client is the contract the board store, stream supervisor, and CLI use
// to reach the server. The REST implementation lives in api/rest.
type Client interface {
	// Auth and stream credentials
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	RefreshToken(ctx context.Context) (*TokenRefresh, error)
	StreamToken(ctx context.Context) (string, error)
	Ping(ctx context.Context) error

	// Aggregate fetch
	FetchAll(ctx context.Context) (*Snapshot, error)

	// Category CRUD
	CreateCategory(ctx context.Context, c *Category) (*Category, error)
	UpdateCategory(ctx context.Context, c *Category) (*Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	// Item CRUD
	CreateItem(ctx context.Context, it *Item) (*Item, error)
	UpdateItem(ctx context.Context, it *Item) (*Item, error)
	DeleteItem(ctx context.Context, id int64) error

	// Progress CRUD
	CreateProgress(ctx context.Context, p *Progress) (*Progress, error)
	UpdateProgress(ctx context.Context, p *Progress) (*Progress, error)
	DeleteProgress(ctx context.Context, id int64) error
	SetProgressStatus(ctx context.Context, id int64, status ProgressStatus) error
	ProgressDetails(ctx context.Context, categoryID, itemID, progressID int64) (*ProgressDetail, error)

	// Notify CRUD
	CreateNotify(ctx context.Context, n *Notify) (*Notify, error)
	UpdateNotify(ctx context.Context, n *Notify) (*Notify, error)
	DeleteNotify(ctx context.Context, id int64) error

	// Admin and diagnostics
	ControlNotifyService(ctx context.Context, enabled bool) (*ControlResult, error)
	NotifyList(ctx context.Context) ([]NotifySchedule, error)
	RefreshNotifyList(ctx context.Context) ([]NotifySchedule, error)
	SendTestPush(ctx context.Context, userID int64) error
}
