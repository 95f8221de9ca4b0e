package main

import (
	"os"

	"github.com/bnema/oneiro/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
