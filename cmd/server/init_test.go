// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package main

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/tomtom215/killfeed/internal/auth"
	"github.com/tomtom215/killfeed/internal/config"
	"github.com/tomtom215/killfeed/internal/eventprocessor"
	"github.com/tomtom215/killfeed/internal/ingest"
	"github.com/tomtom215/killfeed/internal/lease"
	"github.com/tomtom215/killfeed/internal/subscription"
)

func TestOpenSubscriptionBackend(t *testing.T) {
	ctx := context.Background()

	t.Run("file", func(t *testing.T) {
		b, closeFn, err := openSubscriptionBackend(ctx, config.SubscriptionsConfig{
			Backend: config.BackendFile,
			Dir:     t.TempDir(),
		})
		if err != nil {
			t.Fatalf("openSubscriptionBackend() error = %v", err)
		}
		defer closeFn()
		if _, ok := b.(*subscription.FileBackend); !ok {
			t.Errorf("backend = %T, want *subscription.FileBackend", b)
		}
	})

	t.Run("badger", func(t *testing.T) {
		b, closeFn, err := openSubscriptionBackend(ctx, config.SubscriptionsConfig{
			Backend:    config.BackendBadger,
			BadgerPath: filepath.Join(t.TempDir(), "subs"),
		})
		if err != nil {
			t.Fatalf("openSubscriptionBackend() error = %v", err)
		}
		if _, ok := b.(*subscription.BadgerBackend); !ok {
			t.Errorf("backend = %T, want *subscription.BadgerBackend", b)
		}
		if err := closeFn(); err != nil {
			t.Errorf("close error = %v", err)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		_, _, err := openSubscriptionBackend(ctx, config.SubscriptionsConfig{Backend: "sqlite"})
		if err == nil || !strings.Contains(err.Error(), "sqlite") {
			t.Errorf("error = %v, want unknown backend error", err)
		}
	})
}

func TestOpenLocker(t *testing.T) {
	ctx := context.Background()

	l, closeFn, err := openLocker(ctx, config.LeaseConfig{Backend: config.LeaseMemory})
	if err != nil {
		t.Fatalf("openLocker() error = %v", err)
	}
	if _, ok := l.(*lease.Memory); !ok {
		t.Errorf("locker = %T, want *lease.Memory", l)
	}
	if err := closeFn(); err != nil {
		t.Errorf("close error = %v", err)
	}

	if _, _, err := openLocker(ctx, config.LeaseConfig{Backend: "etcd"}); err == nil {
		t.Error("expected error for unknown lease backend")
	}
}

func TestOpenTransport(t *testing.T) {
	ctx := context.Background()
	logger := watermill.NopLogger{}

	tr, err := openTransport(ctx, config.MessagingConfig{
		Transport:  config.TransportChannel,
		BufferSize: 16,
	}, logger)
	if err != nil {
		t.Fatalf("openTransport() error = %v", err)
	}
	if tr.Publisher == nil || tr.Subscriber == nil {
		t.Error("transport missing publisher or subscriber")
	}
	if err := tr.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if _, err := openTransport(ctx, config.MessagingConfig{Transport: "kafka"}, logger); err == nil {
		t.Error("expected error for unknown transport")
	}
}

func TestNewAuthenticator(t *testing.T) {
	hash, err := auth.HashAPIKey("operator-key")
	if err != nil {
		t.Fatalf("HashAPIKey() error = %v", err)
	}

	tests := []struct {
		name        string
		cfg         config.APIConfig
		wantErr     bool
		wantEnabled bool
	}{
		{name: "open", cfg: config.APIConfig{}},
		{name: "jwt", cfg: config.APIConfig{JWTSecret: strings.Repeat("s", 32)}, wantEnabled: true},
		{name: "api key", cfg: config.APIConfig{APIKeyHash: hash}, wantEnabled: true},
		{name: "short secret", cfg: config.APIConfig{JWTSecret: "short"}, wantErr: true},
		{name: "bad hash", cfg: config.APIConfig{APIKeyHash: "plaintext"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := newAuthenticator(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("newAuthenticator() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && a.Enabled() != tt.wantEnabled {
				t.Errorf("Enabled() = %v, want %v", a.Enabled(), tt.wantEnabled)
			}
		})
	}
}

func TestNewKillSource(t *testing.T) {
	cfg := &config.Config{}

	cfg.ZKill.Source = config.SourceRedisQ
	if _, ok := newKillSource(cfg, nil).(*ingest.RedisQ); !ok {
		t.Error("redisq source should build a RedisQ poller")
	}

	cfg.ZKill.Source = config.SourceWebsocket
	if _, ok := newKillSource(cfg, nil).(*ingest.Stream); !ok {
		t.Error("websocket source should build a Stream")
	}
}

func TestAppCloseOrder(t *testing.T) {
	var order []string
	a := &app{}
	for _, name := range []string{"store", "transport", "router"} {
		a.onClose(name, func() error {
			order = append(order, name)
			if name == "transport" {
				return errors.New("already closed")
			}
			return nil
		})
	}

	a.close()

	want := []string{"router", "transport", "store"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("close order = %v, want %v", order, want)
	}
}

func TestRouterRunningCheck(t *testing.T) {
	tr := eventprocessor.NewChannelTransport(4, watermill.NopLogger{})
	defer tr.Close()

	r, err := eventprocessor.NewRouter(eventprocessor.DefaultRouterConfig(), tr.Publisher, watermill.NopLogger{})
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	defer r.Close()

	a := &app{router: r}
	if err := a.routerRunning(context.Background()); err == nil {
		t.Error("routerRunning() should fail before the router starts")
	}
}
