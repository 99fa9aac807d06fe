package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vnykmshr/taskexec/cmd/taskexec/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
