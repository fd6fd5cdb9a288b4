package main

import (
	"errors"
	"fmt"
	"os"

	"trade_console/internal"
	"trade_console/internal/cli"
)

func main() {
	if err := internal.Run(); err != nil {
		if !errors.Is(err, cli.ErrCommandFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
