package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/spigell/resume-ranker/cmd"
)

func main() {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
