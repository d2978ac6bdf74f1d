package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"studio/internal/cli"
)

func main() {
	_ = godotenv.Load()
	if err := cli.RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
