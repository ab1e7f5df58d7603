package main

import (
	"os"

	"github.com/x-research-team/post-query/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
