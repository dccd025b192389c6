package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Sopamo/curlydots-cli/cmd/curlydots/commands"
)

func main() {
	if err := commands.Execute(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
