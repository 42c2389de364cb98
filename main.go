package main

import (
	"os"

	"github.com/coparent/rota/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
