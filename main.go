package main

import (
	"os"

	"github.com/spigell/sontaku-scheduler/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
