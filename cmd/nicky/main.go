package main

import (
	"os"

	"github.com/nickybot/nicky-go/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
