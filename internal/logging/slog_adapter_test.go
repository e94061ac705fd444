// Stockpilot - Inventory Recommendation Engine for Market Vendors
// Copyright 2026 Stockpilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stockpilot/stockpilot

package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSlogHandlerWritesThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	zl := NewTestLogger(&buf)

	slogger := slog.New(NewSlogHandlerWithLogger(zl))
	slogger.Info("scheduler started", "component", "retrain_scheduler", "pending", int64(3))

	out := buf.String()
	if !strings.Contains(out, "scheduler started") {
		t.Errorf("output %q missing message", out)
	}
	if !strings.Contains(out, `"component":"retrain_scheduler"`) {
		t.Errorf("output %q missing string attr", out)
	}
	if !strings.Contains(out, `"pending":3`) {
		t.Errorf("output %q missing int attr", out)
	}
}

func TestSlogHandlerGroupsPrefixKeys(t *testing.T) {
	var buf bytes.Buffer
	zl := NewTestLogger(&buf)

	slogger := slog.New(NewSlogHandlerWithLogger(zl)).WithGroup("supervisor")
	slogger.Warn("service restarting", "name", "http-server")

	if !strings.Contains(buf.String(), `"supervisor.name":"http-server"`) {
		t.Errorf("output %q missing grouped key", buf.String())
	}
}

func TestSlogHandlerWithAttrsCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	zl := NewTestLogger(&buf)

	slogger := slog.New(NewSlogHandlerWithLogger(zl)).With("tree", "stockpilot")
	slogger.Info("started")

	if !strings.Contains(buf.String(), `"tree":"stockpilot"`) {
		t.Errorf("output %q missing pre-configured attr", buf.String())
	}
}
