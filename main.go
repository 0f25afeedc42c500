package main

import (
	"context"
	"fmt"
	"os"

	"tradebot-config/internal/cli"
)

func main() {
	if err := cli.NewRootCommand(&cli.Container{}).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
