package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type mockRefresher struct {
	mu    sync.Mutex
	seen  []string
	calls int
}

func (m *mockRefresher) RefreshStale(_ context.Context, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, userID)
	m.calls++
}

type mockUsers struct {
	users []string
	err   error
}

func (m *mockUsers) Users(_ context.Context) ([]string, error) {
	return m.users, m.err
}

func TestSweepVisitsEveryUser(t *testing.T) {
	refresher := &mockRefresher{}
	w := NewRefreshWorker(refresher, &mockUsers{users: []string{"a", "b", "c"}}, time.Hour)

	w.sweep(context.Background())

	if refresher.calls != 3 {
		t.Errorf("calls = %d, want 3", refresher.calls)
	}
	if len(refresher.seen) != 3 || refresher.seen[0] != "a" || refresher.seen[2] != "c" {
		t.Errorf("seen = %v", refresher.seen)
	}
}

func TestSweepSkipsOnListError(t *testing.T) {
	refresher := &mockRefresher{}
	w := NewRefreshWorker(refresher, &mockUsers{err: errors.New("disk gone")}, time.Hour)

	w.sweep(context.Background())

	if refresher.calls != 0 {
		t.Errorf("calls = %d, want 0 when listing fails", refresher.calls)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	refresher := &mockRefresher{}
	w := NewRefreshWorker(refresher, &mockUsers{users: []string{"a"}}, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	// Initial sweep plus at least one tick.
	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on cancel")
	}

	refresher.mu.Lock()
	defer refresher.mu.Unlock()
	if refresher.calls < 2 {
		t.Errorf("calls = %d, want at least 2 (startup + tick)", refresher.calls)
	}
}
