package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

func TestLogger_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "driver-service", LevelDebug)

	ctx := wrap.WithRideID(wrap.WithAction(context.Background(), "accept_ride"), "ride-1")
	ctx = wrap.WithDriverID(ctx, "c1")
	l.Info(ctx, "ride accepted")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not json: %v (%s)", err, buf.String())
	}

	want := map[string]string{
		"message":   "ride accepted",
		"service":   "driver-service",
		"action":    "accept_ride",
		"ride_id":   "ride-1",
		"driver_id": "c1",
	}
	for k, v := range want {
		if rec[k] != v {
			t.Errorf("field %s: got %v want %s", k, rec[k], v)
		}
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "svc", LevelWarn)

	l.Debug(context.Background(), "hidden")
	l.Info(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing below WARN, got %s", buf.String())
	}

	l.Warn(context.Background(), "shown")
	if buf.Len() == 0 {
		t.Fatalf("expected warn to be written")
	}
}

func TestLogger_ErrorCarriesLogCtx(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "svc", LevelDebug)

	inner := wrap.WithAction(context.Background(), "publish_event")
	err := wrap.Error(inner, errors.New("channel closed"))
	err = fmt.Errorf("create ride: %w", err)

	l.Error(wrap.ErrorCtx(context.Background(), err), "failed", err)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not json: %v", err)
	}
	if rec["action"] != "publish_event" {
		t.Fatalf("expected action restored from error, got %v", rec["action"])
	}
	group, ok := rec["error"].(map[string]any)
	if !ok || group["msg"] != "create ride: channel closed" {
		t.Fatalf("unexpected error group: %v", rec["error"])
	}
}

func TestValidateLogLevel(t *testing.T) {
	for _, lvl := range []string{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		if !ValidateLogLevel(lvl) {
			t.Errorf("%s must be valid", lvl)
		}
	}
	if ValidateLogLevel("TRACE") {
		t.Errorf("TRACE must be invalid")
	}
}
