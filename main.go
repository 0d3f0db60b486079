package main

import (
	"os"

	"github.com/aleksandrbar00/kulai-app/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
