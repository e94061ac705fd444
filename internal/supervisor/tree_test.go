// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package supervisor

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

type countingService struct {
	runs atomic.Int32
}

func (s *countingService) Serve(ctx context.Context) error {
	s.runs.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTreeRunsServices(t *testing.T) {
	tree := NewTree(testLogger(), DefaultTreeConfig())
	apiSvc := &countingService{}
	bgSvc := &countingService{}
	tree.AddAPIService(apiSvc)
	tree.AddBackgroundService(bgSvc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.After(2 * time.Second)
	for apiSvc.runs.Load() == 0 || bgSvc.runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatalf("services did not start: api=%d background=%d", apiSvc.runs.Load(), bgSvc.runs.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not stop after cancellation")
	}
}

func TestTreeConfigDefaults(t *testing.T) {
	tree := NewTree(testLogger(), TreeConfig{})
	if tree.config.FailureThreshold != 5.0 {
		t.Errorf("failure threshold = %f, want 5.0", tree.config.FailureThreshold)
	}
	if tree.config.ShutdownTimeout != 10*time.Second {
		t.Errorf("shutdown timeout = %v, want 10s", tree.config.ShutdownTimeout)
	}
}
