package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf)
	log.Info().Str("component", "test").Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if line["message"] != "hello" || line["component"] != "test" {
		t.Errorf("line = %v", line)
	}
	if _, ok := line["time"]; !ok {
		t.Error("timestamp missing")
	}
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf)

	ctx := WithContext(context.Background(), log)
	stored, ok := FromContext(ctx)
	if !ok {
		t.Fatal("stored logger not found")
	}
	stored.Info().Msg("from context")

	if !bytes.Contains(buf.Bytes(), []byte("from context")) {
		t.Errorf("stored logger not returned, buffer = %q", buf.String())
	}
}

func TestFromContextMissing(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("bare context must report no logger")
	}
}
