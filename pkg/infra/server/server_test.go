package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// mockRunnable implements Runnable for testing and records call order in a shared log.
type mockRunnable struct {
	name     string
	startErr error
	stopErr  error
	log      *callLog
}

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, s)
}

func (l *callLog) get() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (r *mockRunnable) Name() string { return r.name }

func (r *mockRunnable) Start(_ context.Context) error {
	r.log.add("start:" + r.name)
	return r.startErr
}

func (r *mockRunnable) Stop(_ context.Context) error {
	r.log.add("stop:" + r.name)
	return r.stopErr
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestManagerStartStopOrder(t *testing.T) {
	log := &callLog{}
	m := NewManager(nil,
		&mockRunnable{name: "a", log: log},
		&mockRunnable{name: "b", log: log},
	)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := m.Start(context.Background()); err == nil {
		t.Error("expected error on second Start()")
	}
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	want := []string{"start:a", "start:b", "stop:b", "stop:a"}
	if got := log.get(); !equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestManagerStartRollsBackOnFailure(t *testing.T) {
	log := &callLog{}
	m := NewManager(nil,
		&mockRunnable{name: "a", log: log},
		&mockRunnable{name: "b", log: log, startErr: errors.New("bind: address already in use")},
	)

	if err := m.Start(context.Background()); err == nil {
		t.Fatal("expected start error")
	}

	want := []string{"start:a", "start:b", "stop:a"}
	if got := log.get(); !equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestManagerNoServers(t *testing.T) {
	if err := NewManager(nil).Start(context.Background()); err == nil {
		t.Error("expected error when no servers are configured")
	}
}

func TestManagerStopAggregatesErrors(t *testing.T) {
	log := &callLog{}
	m := NewManager(nil)
	m.AddServer(&mockRunnable{name: "a", log: log, stopErr: errors.New("a failed")})
	m.AddServer(&mockRunnable{name: "b", log: log, stopErr: errors.New("b failed")})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	err := m.Stop(context.Background())
	if err == nil {
		t.Fatal("expected aggregated stop error")
	}
	if got := len(log.get()); got != 4 {
		t.Errorf("expected every server to be stopped, got %d calls", got)
	}
}

func TestManagerRunStopsOnContextCancel(t *testing.T) {
	log := &callLog{}
	opts := NewOptions()
	opts.ShutdownTimeout = time.Second
	m := NewManager(opts, &mockRunnable{name: "http", log: log})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	want := []string{"start:http", "stop:http"}
	if got := log.get(); !equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestOptionsValidate(t *testing.T) {
	opts := NewOptions()
	if errs := opts.Validate(); len(errs) != 0 {
		t.Fatalf("default options should be valid: %v", errs)
	}

	opts.ShutdownTimeout = 0
	opts.HTTP.Addr = ""
	if errs := opts.Validate(); len(errs) != 2 {
		t.Errorf("expected 2 errors, got %v", errs)
	}
}
