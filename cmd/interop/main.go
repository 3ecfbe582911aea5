package main

import (
	"os"

	"github.com/netrixframework/interop/cmd"
)

func main() {
	if err := cmd.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
