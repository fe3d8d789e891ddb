package main

import (
	"os"

	"github.com/shehryarbajwa/tabtrace/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
