// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package services

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/killfeed/internal/logging"
)

type mockAPIServer struct {
	listenErr     error
	block         bool
	shutdownCount atomic.Int32
	stopCh        chan struct{}
}

func newMockAPIServer() *mockAPIServer {
	return &mockAPIServer{stopCh: make(chan struct{})}
}

func (m *mockAPIServer) ListenAndServe() error {
	if m.listenErr != nil {
		return m.listenErr
	}
	if m.block {
		<-m.stopCh
		return http.ErrServerClosed
	}
	return nil
}

func (m *mockAPIServer) Shutdown(context.Context) error {
	m.shutdownCount.Add(1)
	close(m.stopCh)
	return nil
}

func TestAPIServerService(t *testing.T) {
	t.Run("graceful shutdown on cancel", func(t *testing.T) {
		srv := newMockAPIServer()
		srv.block = true
		svc := NewAPIServerService(srv, APIServerConfig{Addr: "127.0.0.1:8080", ShutdownTimeout: time.Second})

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- svc.Serve(ctx) }()

		time.Sleep(20 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Serve() = %v, want context.Canceled", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Serve did not return after cancel")
		}
		if srv.shutdownCount.Load() != 1 {
			t.Errorf("Shutdown called %d times", srv.shutdownCount.Load())
		}
	})

	t.Run("listen failure is returned", func(t *testing.T) {
		srv := newMockAPIServer()
		srv.listenErr = errors.New("address in use")
		err := NewAPIServerService(srv, APIServerConfig{}).Serve(context.Background())
		if err == nil || !errors.Is(err, srv.listenErr) {
			t.Errorf("Serve() = %v", err)
		}
	})

	t.Run("external close is not restarted", func(t *testing.T) {
		srv := newMockAPIServer()
		err := NewAPIServerService(srv, APIServerConfig{}).Serve(context.Background())
		if !errors.Is(err, suture.ErrDoNotRestart) {
			t.Errorf("Serve() = %v, want suture.ErrDoNotRestart", err)
		}
	})

	t.Run("logs the bound address", func(t *testing.T) {
		var buf bytes.Buffer
		logging.SetLogger(logging.NewTestLogger(&buf))
		defer logging.Init(logging.DefaultConfig())

		srv := newMockAPIServer()
		srv.listenErr = errors.New("address in use")
		_ = NewAPIServerService(srv, APIServerConfig{Addr: "0.0.0.0:9000"}).Serve(context.Background())

		out := buf.String()
		for _, want := range []string{`"component":"command-api"`, `"addr":"0.0.0.0:9000"`} {
			if !strings.Contains(out, want) {
				t.Errorf("log output missing %s: %s", want, out)
			}
		}
	})

	names := []struct {
		cfg  APIServerConfig
		want string
	}{
		{APIServerConfig{}, "command-api"},
		{APIServerConfig{Name: "admin-api"}, "admin-api"},
	}
	for _, tt := range names {
		if got := NewAPIServerService(newMockAPIServer(), tt.cfg).String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

type fakeRouter struct {
	err error
}

func (f *fakeRouter) Run(ctx context.Context) error {
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return nil
}

func TestRouterService(t *testing.T) {
	t.Run("cancel is a clean stop", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := NewRouterService(&fakeRouter{}).Serve(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	})

	t.Run("unexpected stop terminates the tree", func(t *testing.T) {
		cause := errors.New("subscriber closed")
		err := NewRouterService(&fakeRouter{err: cause}).Serve(context.Background())
		if !errors.Is(err, suture.ErrTerminateSupervisorTree) {
			t.Errorf("Serve() = %v, want ErrTerminateSupervisorTree", err)
		}
		if !errors.Is(err, cause) {
			t.Errorf("Serve() = %v, want cause preserved", err)
		}
	})
}

type countingService struct {
	started atomic.Int32
}

func (c *countingService) Serve(ctx context.Context) error {
	c.started.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func TestGatedService(t *testing.T) {
	ready := make(chan struct{})
	inner := &countingService{}
	svc := NewGatedService("ingest", ready, inner)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	if inner.started.Load() != 0 {
		t.Fatal("inner service started before the gate opened")
	}

	close(ready)
	deadline := time.Now().Add(time.Second)
	for inner.started.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if inner.started.Load() != 1 {
		t.Fatal("inner service did not start after the gate opened")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v", err)
	}
	if svc.String() != "ingest" {
		t.Errorf("String() = %q", svc.String())
	}
}

func TestGatedServiceCanceledWhileWaiting(t *testing.T) {
	inner := &countingService{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewGatedService("ingest", make(chan struct{}), inner).Serve(ctx)
	if !errors.Is(err, context.Canceled) || inner.started.Load() != 0 {
		t.Errorf("Serve() = %v, started = %d", err, inner.started.Load())
	}
}
