package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"photoimport/internal/services"
)

// terminationSignals cancel a run; the lock is released on the way out.
var terminationSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, terminationSignals...)
}

func main() {
	ctx, stop := signalContext(context.Background())
	cmd := newRootCommand()
	err := cmd.ExecuteContext(ctx)
	stop()

	code := services.ExitCode(err)
	if code != 0 && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(code)
}
