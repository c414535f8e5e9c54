package cmd

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/cdaltas/x64em/internal/core"
	"github.com/cdaltas/x64em/internal/log"
	"github.com/cdaltas/x64em/internal/snapshot"
)

func TestWatchSnapshotsLogsAPublishedSnapshot(t *testing.T) {
	prev := log.LogLevel.Level()
	log.LogLevel.Set(slog.LevelDebug)

	t.Cleanup(func() { log.LogLevel.Set(prev) })

	var buf bytes.Buffer
	logger := log.NewFormattedLogger(&buf)

	snap := snapshot.New()

	m := core.New()
	m.Reg[core.PC] = 0x1234
	snap.Publish(m)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		watchSnapshots(ctx, snap, logger)
		close(done)
	}()

	<-done

	if !strings.Contains(buf.String(), "snapshot") {
		t.Errorf("watchSnapshots() did not log a published snapshot; output = %q", buf.String())
	}
}

func TestWatchSnapshotsReturnsWhenContextDone(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewFormattedLogger(&buf)
	snap := snapshot.New()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		watchSnapshots(ctx, snap, logger)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watchSnapshots() did not return after context cancellation")
	}
}
