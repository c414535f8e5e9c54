package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/cdaltas/x64em/internal/cli"
	"github.com/cdaltas/x64em/internal/core"
	"github.com/cdaltas/x64em/internal/devices"
	"github.com/cdaltas/x64em/internal/loader"
	"github.com/cdaltas/x64em/internal/log"
	"github.com/cdaltas/x64em/internal/snapshot"
)

// snapshotInterval is how many steps elapse between register-file snapshots, so observing the
// machine's state doesn't serialize with its execution.
const snapshotInterval = 1000

// snapshotPollPeriod is how often the watcher goroutine checks for a freshly published snapshot.
const snapshotPollPeriod = 100 * time.Millisecond

// Run returns the "run" sub-command, which loads a flat binary image and executes it until halt,
// timeout, or host cancellation.
func Run() cli.Command {
	return &runner{log: log.DefaultLogger()}
}

type runner struct {
	logLevel slog.Level
	timeout  time.Duration
	loadAddr uint64
	log      *log.Logger
}

func (runner) Description() string {
	return "run a flat binary image"
}

func (runner) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `run [-timeout duration] [-load addr] program.bin

Loads a raw binary image into the machine and runs it until it halts.`)

	return err
}

func (r *runner) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	fs.DurationVar(&r.timeout, "timeout", 10*time.Second, "maximum time to run before aborting")
	fs.Uint64Var(&r.loadAddr, "load", 0, "physical address to load the image at")
	fs.Func("loglevel", "set log `level`", func(s string) error {
		return r.logLevel.UnmarshalText([]byte(s))
	})

	return fs
}

// Run loads and executes the named image.
func (r *runner) Run(ctx context.Context, args []string, stdout io.Writer, logger *log.Logger) int {
	if len(args) == 0 {
		logger.Error("run: missing image argument")
		return 1
	}

	log.LogLevel.Set(r.logLevel)

	image, err := os.ReadFile(args[0])
	if err != nil {
		logger.Error("run: failed to read image", "err", err)
		return 1
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(context.Canceled)

	ctx, cancelTimeout := context.WithTimeout(ctx, r.timeout)
	defer cancelTimeout()

	kbd := devices.NewKeyboard()
	fb := devices.NewFramebuffer(devices.DefaultWidth, devices.DefaultHeight)
	gpu := devices.NewGPUControl(fb)
	snap := snapshot.New()

	m := core.New(
		core.WithHook(kbd.Hook()),
		core.WithHook(fb.Hook()),
		core.WithHook(gpu.Hook()),
		core.WithPoller(kbd.Poll),
		core.WithPoller(snap.Poller(snapshotInterval)),
	)

	ld := loader.New(m)
	if err := ld.Load(image, core.Word(r.loadAddr)); err != nil {
		logger.Error("run: load failed", "err", err)
		return 1
	}

	logger.Info("starting machine", "file", args[0], "bytes", len(image), "load", r.loadAddr)

	rc := &core.RunControl{}

	go func() {
		<-ctx.Done()
		rc.Halt()
	}()

	go watchSnapshots(ctx, snap, logger)

	err = m.Run(ctx, rc)

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("run: timeout")
		return 2
	case errors.Is(err, core.ErrHalted), err == nil:
		logger.Info("program halted", "pc", m.Reg[core.PC])
		return 0
	default:
		logger.Error("run: error", "err", err)
		return 2
	}
}

// watchSnapshots drains the machine's register-file snapshot at a fixed cadence and logs it, so a
// host observing the run command's output sees periodic state without touching core registers
// directly. It returns once ctx is done.
func watchSnapshots(ctx context.Context, snap *snapshot.Snapshot, logger *log.Logger) {
	ticker := time.NewTicker(snapshotPollPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if regs, ok := snap.Take(); ok {
				logger.Debug("snapshot", "pc", regs[core.PC], "fr", regs[core.FR])
			}
		}
	}
}
