package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/harun/handoff/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		// A failed run has already been reported as JSON on stdout
		if !errors.Is(err, cli.ErrRunFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
