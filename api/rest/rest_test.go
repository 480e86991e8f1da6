package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"taskboard/api"
	"taskboard/internal/notice"
	"taskboard/internal/utils"
)

// fakeSession hands out a fixed token and counts Clear calls.
type fakeSession struct {
	token   string
	cleared int32
}

func (f *fakeSession) Token() string { return f.token }
func (f *fakeSession) Clear() error {
	atomic.AddInt32(&f.cleared, 1)
	return nil
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *fakeSession, *notice.Queue, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sess := &fakeSession{token: "test-token"}
	notices := notice.New()
	t.Cleanup(notices.Close)

	client, err := New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, sess, notices)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client, sess, notices, srv
}

func waitForNotice(t *testing.T, q *notice.Queue) notice.Notice {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if n, ok := q.Current(); ok {
			return n
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no notice surfaced")
	return notice.Notice{}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(Config{}, &fakeSession{}, notice.New()); err == nil {
		t.Fatal("expected error for missing base URL")
	}
}

func TestBearerTokenOnEveryRequest(t *testing.T) {
	var gotAuth, gotContentType string
	client, _, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewEncoder(w).Encode(api.Snapshot{})
	}))

	if _, err := client.FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
}

func TestNoAuthHeaderWhenSignedOut(t *testing.T) {
	var gotAuth string
	client, sess, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(api.LoginResult{Token: "fresh", UserID: 1})
	}))
	sess.token = ""

	res, err := client.Login(context.Background(), "user", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("Authorization sent while signed out: %q", gotAuth)
	}
	if res.Token != "fresh" || res.UserID != 1 {
		t.Errorf("Login result = %+v", res)
	}
}

func TestFetchAllDecodesSnapshot(t *testing.T) {
	client, _, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tasks/all" || r.Method != http.MethodGet {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(api.Snapshot{
			Categories:    []api.Category{{ID: 1, CategoryName: "Chores"}},
			Items:         []api.Item{{ID: 10, CategoryID: 1, ItemName: "Laundry"}},
			NotifyService: api.ServiceState{Running: true, Count: 3},
		})
	}))

	snap, err := client.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(snap.Categories) != 1 || snap.Categories[0].CategoryName != "Chores" {
		t.Errorf("categories = %+v", snap.Categories)
	}
	if !snap.NotifyService.Running || snap.NotifyService.Count != 3 {
		t.Errorf("service state = %+v", snap.NotifyService)
	}
}

func TestCreateCategorySendsBodyAndReturnsPersisted(t *testing.T) {
	client, _, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/categories" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var in api.Category
		_ = json.NewDecoder(r.Body).Decode(&in)
		in.ID = 77
		_ = json.NewEncoder(w).Encode(in)
	}))

	created, err := client.CreateCategory(context.Background(), &api.Category{CategoryName: "Work"})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if created.ID != 77 || created.CategoryName != "Work" {
		t.Errorf("created = %+v", created)
	}
}

func TestUpdateAndDeleteUseEntityPaths(t *testing.T) {
	var paths []string
	client, _, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{})
	}))

	ctx := context.Background()
	_, _ = client.UpdateItem(ctx, &api.Item{ID: 5})
	_ = client.DeleteProgress(ctx, 9)
	_ = client.DeleteNotify(ctx, 4)
	_ = client.SetProgressStatus(ctx, 9, api.StatusCompleted)

	want := []string{
		"PUT /items/5",
		"DELETE /progresses/9",
		"DELETE /notifies/4",
		"PUT /progresses/9/status",
	}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v", paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("request %d = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestStreamToken(t *testing.T) {
	client, _, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sse/token" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"sse_token": "short-lived"})
	}))

	token, err := client.StreamToken(context.Background())
	if err != nil {
		t.Fatalf("StreamToken: %v", err)
	}
	if token != "short-lived" {
		t.Errorf("token = %q", token)
	}
}

func TestProgressDetailsQuery(t *testing.T) {
	client, _, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("category_id") != "1" || q.Get("item_id") != "10" || q.Get("progress_id") != "100" {
			t.Errorf("query = %v", q)
		}
		_ = json.NewEncoder(w).Encode(api.ProgressDetail{
			CategoryName: "Chores", ItemName: "Laundry", ProgressName: "Wash",
		})
	}))

	detail, err := client.ProgressDetails(context.Background(), 1, 10, 100)
	if err != nil {
		t.Fatalf("ProgressDetails: %v", err)
	}
	if detail.ProgressName != "Wash" {
		t.Errorf("detail = %+v", detail)
	}
}

func TestServerErrorSurfacesDetailAsNotice(t *testing.T) {
	client, _, notices, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "category name already exists"})
	}))

	_, err := client.CreateCategory(context.Background(), &api.Category{CategoryName: "dup"})
	if err == nil {
		t.Fatal("expected error")
	}
	apiErr, ok := api.AsError(err)
	if !ok || apiErr.StatusCode != http.StatusConflict {
		t.Fatalf("error = %v", err)
	}

	n := waitForNotice(t, notices)
	if n.Severity != notice.Error || n.Message != "category name already exists" {
		t.Errorf("notice = %+v", n)
	}
}

func TestUnreadableResponseSurfacesNotice(t *testing.T) {
	client, _, notices, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))

	_, err := client.FetchAll(context.Background())
	if err == nil {
		t.Fatal("expected decode error")
	}

	n := waitForNotice(t, notices)
	if n.Severity != notice.Error || n.Message != "Server returned an unreadable response" {
		t.Errorf("notice = %+v", n)
	}
}

func TestExpiredTokenForcesLogout(t *testing.T) {
	var authFailures int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Token has expired"})
	}))
	defer srv.Close()

	sess := &fakeSession{token: "stale"}
	notices := notice.New()
	defer notices.Close()
	client, err := New(Config{
		BaseURL:       srv.URL,
		OnAuthFailure: func() { atomic.AddInt32(&authFailures, 1) },
	}, sess, notices)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := client.FetchAll(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if got := atomic.LoadInt32(&sess.cleared); got != 1 {
		t.Errorf("session cleared %d times, want 1", got)
	}
	if got := atomic.LoadInt32(&authFailures); got != 1 {
		t.Errorf("OnAuthFailure called %d times, want 1", got)
	}
	n := waitForNotice(t, notices)
	if n.Message != "Session expired, please sign in again" {
		t.Errorf("notice = %q", n.Message)
	}
}

func TestInvalidTokenForcesLogout(t *testing.T) {
	client, sess, notices, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid token"})
	}))

	if _, err := client.FetchAll(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if got := atomic.LoadInt32(&sess.cleared); got != 1 {
		t.Errorf("session cleared %d times, want 1", got)
	}
	n := waitForNotice(t, notices)
	if n.Message != "Session is no longer valid, please sign in again" {
		t.Errorf("notice = %q", n.Message)
	}
}

func TestUnreachableServerPushesNotice(t *testing.T) {
	sess := &fakeSession{}
	notices := notice.New()
	defer notices.Close()
	// a closed server, so every request fails at the transport level
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client, err := New(Config{BaseURL: srv.URL}, sess, notices)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = client.FetchAll(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	var suggested *utils.ErrorWithSuggestion
	if !errors.As(err, &suggested) {
		t.Errorf("error carries no suggestion: %v", err)
	}
	n := waitForNotice(t, notices)
	if n.Message != "Server is not responding" {
		t.Errorf("notice = %q", n.Message)
	}
}

func TestErrorWithoutDetailUsesStatusText(t *testing.T) {
	client, _, notices, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.FetchAll(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	n := waitForNotice(t, notices)
	if n.Message != "Request failed with status 500" {
		t.Errorf("notice = %q", n.Message)
	}
}

func TestPing(t *testing.T) {
	status := int32(http.StatusOK)
	client, _, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.WriteHeader(int(atomic.LoadInt32(&status)))
	}))

	if err := client.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
	atomic.StoreInt32(&status, http.StatusServiceUnavailable)
	if err := client.Ping(context.Background()); err == nil {
		t.Error("Ping should fail on 503")
	}
}
