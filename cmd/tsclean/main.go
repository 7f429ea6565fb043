package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tsclean/internal/cmd"
)

func main() {
	// Interrupts stop the walk between directories
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := cmd.NewRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(cmd.ExitCode(err))
}
