package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/keboola/etcd-keys-client/internal/pkg/cli"
)

func main() {
	// Interrupt stops outstanding watches
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// Run command
	cmd := cli.NewRootCommand(os.Stdin, os.Stdout, os.Stderr)
	exitCode := cmd.Execute(ctx)
	cancel()
	os.Exit(exitCode)
}
