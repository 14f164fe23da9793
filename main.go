package main

import (
	"os"

	"github.com/coinlens/coinlens/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
