package main

import (
	"log"
	"os"

	"github.com/fekuna/omnipos-stock-verifier/internal/cli"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	if err := cli.NewRootCommand(&cli.RootOptions{}).Execute(); err != nil {
		os.Exit(1)
	}
}
