package main

import (
	"fmt"
	"os"

	"tsclean/internal/cmd"
)

func main() {
	err := cmd.NewQueryCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(cmd.ExitCode(err))
}
