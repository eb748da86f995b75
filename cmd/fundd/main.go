package main

import (
	"os"

	"github.com/guru-fund/fundd/cmd/fundd/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
