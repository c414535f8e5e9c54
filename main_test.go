package main_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cdaltas/x64em/internal/core"
	"github.com/cdaltas/x64em/internal/loader"
)

// timeout is how long to wait for the machine to stop running. It is very likely to take far less.
const timeout = 1 * time.Second

func TestMainHalts(t *testing.T) {
	start := time.Now()

	m := core.New()
	ld := loader.New(m)

	// A single HLT instruction: shape NO (4), opcode HLT (18).
	image := []byte{(4 << 5) | 18}

	if err := ld.Load(image, 0); err != nil {
		t.Fatalf("load: %s", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	errCh := make(chan error, 1)

	go func() {
		errCh <- m.Run(ctx, nil)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, core.ErrHalted) {
			t.Errorf("Run() = %v, want %v", err, core.ErrHalted)
		}
	case <-ctx.Done():
		t.Fatalf("machine did not halt within %s", timeout)
	}

	if !m.Halted() {
		t.Error("machine.Halted() = false after HLT")
	}

	t.Logf("halted after %s, PC=%s", time.Since(start), m.Reg[core.PC])
}
