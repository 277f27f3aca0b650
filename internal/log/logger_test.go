package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Component = ComponentEvents
	cfg.Handler = slog.NewTextHandler(&buf, nil)

	logger := New(cfg)
	logger.Info("something happened", "id", 7)

	out := buf.String()
	if !strings.Contains(out, "component=events") {
		t.Errorf("missing component tag: %s", out)
	}
	if !strings.Contains(out, "id=7") {
		t.Errorf("missing attribute: %s", out)
	}
}

func TestWithComponentRetags(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Handler = slog.NewTextHandler(&buf, nil)

	New(cfg).WithComponent(ComponentExport).Info("exported")

	if !strings.Contains(buf.String(), "component=export") {
		t.Errorf("missing retagged component: %s", buf.String())
	}
}
