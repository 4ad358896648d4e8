package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cinefetch/internal/services"
)

const (
	exitFailure = 1
	// exitSetup marks batches that never started: bad configuration,
	// unreadable input, unwritable directories or a held lock.
	exitSetup = 2
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		cancel()
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case services.IsFatal(err):
		return exitSetup
	default:
		return exitFailure
	}
}
