package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/klauern/treesync/internal/cli"
	"github.com/klauern/treesync/internal/sync"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the CLI and returns the process exit status.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	if err := cli.Run(ctx, args); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return sync.ExitCode(err)
	}
	return 0
}
