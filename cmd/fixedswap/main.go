package main

import (
	"os"

	"github.com/lugondev/go-fixedswap/cmd/fixedswap/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
