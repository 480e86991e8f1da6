package analytics

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// TestTracker_TrackOperation verifies operation tracking records events correctly
func TestTracker_TrackOperation(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "analytics.db")

	tracker, err := NewTracker(dbPath, true)
	if err != nil {
		t.Fatalf("NewTracker() error = %v", err)
	}
	defer func() { _ = tracker.Close() }()

	// Track a successful operation
	err = tracker.TrackOperation("add", "category", func() error {
		time.Sleep(10 * time.Millisecond) // Simulate some work
		return nil
	})
	if err != nil {
		t.Fatalf("TrackOperation() error = %v", err)
	}

	// Wait for async logging to complete
	time.Sleep(100 * time.Millisecond)

	events, err := tracker.QueryEvents("SELECT * FROM events WHERE name = 'add'")
	if err != nil {
		t.Fatalf("QueryEvents() error = %v", err)
	}

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	event := events[0]
	if event.Kind != "operation" {
		t.Errorf("expected kind = 'operation', got %q", event.Kind)
	}
	if event.Entity != "category" {
		t.Errorf("expected entity = 'category', got %q", event.Entity)
	}
	if !event.Success {
		t.Errorf("expected success = true, got false")
	}
	if event.DurationMs < 10 {
		t.Errorf("expected duration >= 10ms, got %d", event.DurationMs)
	}
}

// TestTracker_TrackOperationError verifies error tracking and categorization
func TestTracker_TrackOperationError(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "analytics.db")

	tracker, err := NewTracker(dbPath, true)
	if err != nil {
		t.Fatalf("NewTracker() error = %v", err)
	}
	defer func() { _ = tracker.Close() }()

	testErr := errors.New("network timeout")
	err = tracker.TrackOperation("refresh", "", func() error {
		return testErr
	})
	if err != testErr {
		t.Errorf("expected error = %v, got %v", testErr, err)
	}

	time.Sleep(100 * time.Millisecond)

	events, err := tracker.QueryEvents("SELECT * FROM events WHERE name = 'refresh'")
	if err != nil {
		t.Fatalf("QueryEvents() error = %v", err)
	}

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	event := events[0]
	if event.Success {
		t.Errorf("expected success = false, got true")
	}
	if event.ErrorType != "timeout" {
		t.Errorf("expected error_type = 'timeout', got %q", event.ErrorType)
	}
}

// TestTracker_RecordStream verifies connection lifecycle events are recorded
func TestTracker_RecordStream(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "analytics.db")

	tracker, err := NewTracker(dbPath, true)
	if err != nil {
		t.Fatalf("NewTracker() error = %v", err)
	}
	defer func() { _ = tracker.Close() }()

	tracker.RecordStream("retry", "attempt=2 delay=20s")
	tracker.RecordStream("exhausted", "")

	time.Sleep(100 * time.Millisecond)

	events, err := tracker.QueryEvents("SELECT * FROM events WHERE kind = 'stream' ORDER BY id")
	if err != nil {
		t.Fatalf("QueryEvents() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Name != "retry" || events[0].Detail != "attempt=2 delay=20s" {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	if events[1].Success {
		t.Errorf("exhausted event should record success = false")
	}
}

// TestTracker_Cleanup verifies automatic retention cleanup works
func TestTracker_Cleanup(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "analytics.db")

	tracker, err := NewTracker(dbPath, true)
	if err != nil {
		t.Fatalf("NewTracker() error = %v", err)
	}
	defer func() { _ = tracker.Close() }()

	// Insert an old event directly (simulating an event from 10 days ago)
	oldTimestamp := time.Now().Unix() - (10 * 86400)
	_, err = tracker.db.Exec(`
		INSERT INTO events (timestamp, kind, name, success, duration_ms)
		VALUES (?, 'operation', 'old_op', 1, 100)
	`, oldTimestamp)
	if err != nil {
		t.Fatalf("failed to insert old event: %v", err)
	}

	recentTimestamp := time.Now().Unix() - (2 * 86400)
	_, err = tracker.db.Exec(`
		INSERT INTO events (timestamp, kind, name, success, duration_ms)
		VALUES (?, 'operation', 'recent_op', 1, 100)
	`, recentTimestamp)
	if err != nil {
		t.Fatalf("failed to insert recent event: %v", err)
	}

	// Run cleanup with 7 day retention
	deleted, err := tracker.Cleanup(7)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}

	if deleted != 1 {
		t.Errorf("expected 1 event deleted, got %d", deleted)
	}

	events, err := tracker.QueryEvents("SELECT * FROM events WHERE name = 'old_op'")
	if err != nil {
		t.Fatalf("QueryEvents() error = %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected old event to be deleted, but found %d", len(events))
	}

	events, err = tracker.QueryEvents("SELECT * FROM events WHERE name = 'recent_op'")
	if err != nil {
		t.Fatalf("QueryEvents() error = %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected recent event to remain, but found %d", len(events))
	}
}

// TestAnalytics_Disabled verifies analytics can be disabled via config
func TestAnalytics_Disabled(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "analytics.db")

	tracker, err := NewTracker(dbPath, false)
	if err != nil {
		t.Fatalf("NewTracker() error = %v", err)
	}
	defer func() { _ = tracker.Close() }()

	// Track an operation - should not record anything
	callCount := 0
	err = tracker.TrackOperation("add", "item", func() error {
		callCount++
		return nil
	})
	if err != nil {
		t.Fatalf("TrackOperation() error = %v", err)
	}

	// The function should still be called
	if callCount != 1 {
		t.Errorf("expected function to be called once, got %d", callCount)
	}

	tracker.RecordStream("connect", "")

	// Wait for any potential async logging
	time.Sleep(100 * time.Millisecond)

	events, err := tracker.QueryEvents("SELECT * FROM events")
	if err != nil {
		t.Fatalf("QueryEvents() error = %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected 0 events when disabled, got %d", len(events))
	}
}

// TestAnalytics_EnvironmentOverride verifies TASKBOARD_ANALYTICS_ENABLED override
func TestAnalytics_EnvironmentOverride(t *testing.T) {
	t.Run("env disables analytics", func(t *testing.T) {
		t.Setenv("TASKBOARD_ANALYTICS_ENABLED", "false")

		enabled := IsEnabledFromEnv(true) // config says enabled
		if enabled {
			t.Errorf("expected analytics disabled by env, got enabled")
		}
	})

	t.Run("env enables analytics", func(t *testing.T) {
		t.Setenv("TASKBOARD_ANALYTICS_ENABLED", "true")

		enabled := IsEnabledFromEnv(false) // config says disabled
		if !enabled {
			t.Errorf("expected analytics enabled by env, got disabled")
		}
	})

	t.Run("no env uses config value", func(t *testing.T) {
		_ = os.Unsetenv("TASKBOARD_ANALYTICS_ENABLED")

		enabled := IsEnabledFromEnv(false)
		if enabled {
			t.Errorf("expected analytics disabled (from config), got enabled")
		}

		enabled = IsEnabledFromEnv(true)
		if !enabled {
			t.Errorf("expected analytics enabled (from config), got disabled")
		}
	})
}

// TestTracker_DatabaseCreation verifies analytics database is created at correct path
func TestTracker_DatabaseCreation(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "analytics.db")

	tracker, err := NewTracker(dbPath, true)
	if err != nil {
		t.Fatalf("NewTracker() error = %v", err)
	}
	defer func() { _ = tracker.Close() }()

	// Verify database file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("database file not created at %s", dbPath)
	}

	// Verify schema was created
	var tableName string
	err = tracker.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='events'").Scan(&tableName)
	if err != nil {
		t.Fatalf("failed to query schema: %v", err)
	}
	if tableName != "events" {
		t.Errorf("expected table 'events', got %q", tableName)
	}
}

// TestTracker_ConcurrentReadWrite verifies no SQLITE_BUSY errors under concurrent access
func TestTracker_ConcurrentReadWrite(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "analytics.db")

	tracker, err := NewTracker(dbPath, true)
	if err != nil {
		t.Fatalf("NewTracker() error = %v", err)
	}
	defer func() { _ = tracker.Close() }()

	// Seed some initial data
	for i := 0; i < 10; i++ {
		_, err := tracker.db.Exec(`
			INSERT INTO events (timestamp, kind, name, success, duration_ms)
			VALUES (?, 'operation', 'seed', 1, 100)
		`, time.Now().Unix())
		if err != nil {
			t.Fatalf("failed to seed event: %v", err)
		}
	}

	// Simulate concurrent writes (async event logging) and reads (stats queries)
	var wg sync.WaitGroup
	errCh := make(chan error, 200)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_, err := tracker.db.Exec(`
					INSERT INTO events (timestamp, kind, name, success, duration_ms)
					VALUES (?, 'operation', ?, 1, 50)
				`, time.Now().Unix(), "write_op")
				if err != nil {
					errCh <- fmt.Errorf("write goroutine %d iter %d: %w", n, j, err)
					return
				}
			}
		}(i)
	}

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				rows, err := tracker.db.Query(`
					SELECT name, COUNT(*) as total, SUM(success) as successful
					FROM events
					GROUP BY name
					ORDER BY total DESC
				`)
				if err != nil {
					errCh <- fmt.Errorf("read goroutine %d iter %d: %w", n, j, err)
					return
				}
				_ = rows.Close()
			}
		}(i)
	}

	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		t.Errorf("concurrent read/write produced %d errors (expected 0):", len(errs))
		for i, err := range errs {
			if i >= 5 {
				t.Errorf("  ... and %d more", len(errs)-5)
				break
			}
			t.Errorf("  %v", err)
		}
	}
}

// Helper function to access db for tests
func (t *Tracker) QueryEvents(query string) ([]Event, error) {
	rows, err := t.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		var e Event
		var entityNull sql.NullString
		var errorTypeNull sql.NullString
		var detailNull sql.NullString
		var durationNull sql.NullInt64
		var createdAt int64

		err := rows.Scan(
			&e.ID,
			&e.Timestamp,
			&e.Kind,
			&e.Name,
			&entityNull,
			&e.Success,
			&durationNull,
			&errorTypeNull,
			&detailNull,
			&createdAt,
		)
		if err != nil {
			return nil, err
		}

		if entityNull.Valid {
			e.Entity = entityNull.String
		}
		if durationNull.Valid {
			e.DurationMs = durationNull.Int64
		}
		if errorTypeNull.Valid {
			e.ErrorType = errorTypeNull.String
		}
		if detailNull.Valid {
			e.Detail = detailNull.String
		}

		events = append(events, e)
	}

	return events, rows.Err()
}
