package main

import (
	"os"

	"github.com/joho/godotenv"

	paperscmder "github.com/papercomputeco/papers/cmd/papers"
)

func main() {
	_ = godotenv.Load()

	cmd := paperscmder.NewPapersCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
