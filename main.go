package main

import (
	"os"

	"github.com/abhisek/tutorpilot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
