package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestSpanTree(t *testing.T) {
	ctx, root := Start(context.Background(), "scan", "req-1")
	_, open := Start(ctx, "open", "ignored")
	open.End()
	_, run := Start(ctx, "run", "")
	run.SetAttr("lines", 42)
	time.Sleep(time.Millisecond)
	run.End()
	root.End()
	first := root.Duration
	root.End()

	if root.Duration != first {
		t.Fatal("second End changed the duration")
	}
	children := root.Children()
	if len(children) != 2 || children[0].Name != "open" || children[1].TraceID != "req-1" {
		t.Fatalf("children = %+v", children)
	}
	if FromContext(ctx) != root {
		t.Fatal("FromContext did not return the root span")
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	root.Log(context.Background(), logger)
	out := buf.String()
	if strings.Count(out, "msg=span") != 3 || !strings.Contains(out, "lines=42") || !strings.Contains(out, "depth=1") {
		t.Fatalf("log output:\n%s", out)
	}
}

func TestFromContextEmpty(t *testing.T) {
	if FromContext(context.Background()) != nil {
		t.Fatal("expected no span")
	}
}
