package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type fakeTarget struct {
	mu      sync.Mutex
	offline bool
	onlined int
}

func (f *fakeTarget) IsOffline() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.offline
}

func (f *fakeTarget) Online() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offline = false
	f.onlined++
}

func (f *fakeTarget) onlineCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.onlined
}

func TestHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if !New(srv.URL).Healthy(context.Background()) {
		t.Error("expected healthy on 200")
	}
}

func TestHealthyFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	if New(srv.URL).Healthy(context.Background()) {
		t.Error("expected unhealthy on 503")
	}

	srv.Close()
	if New(srv.URL).Healthy(context.Background()) {
		t.Error("expected unhealthy when the server is gone")
	}
}

func TestRunRecoversOfflineTarget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	target := &fakeTarget{offline: true}
	p := New(srv.URL, WithInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx, target)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !target.IsOffline() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("probe never recovered the target")
}

func TestRunSkipsOnlineTarget(t *testing.T) {
	var polls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		polls++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	target := &fakeTarget{offline: false}
	p := New(srv.URL, WithInterval(10*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	p.Run(ctx, target)

	if polls != 0 {
		t.Errorf("online targets must not be polled, saw %d polls", polls)
	}
	if target.onlineCalls() != 0 {
		t.Errorf("Online() must not fire for an online target")
	}
}
