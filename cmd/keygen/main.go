package main

import (
	"fmt"
	"os"

	"github.com/arnavshah/care-coverage-api/pkg/auth"
	"github.com/arnavshah/care-coverage-api/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: keygen <integration-name>")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if cfg.APIMasterSecret == "" {
		fmt.Println("Error: API_MASTER_SECRET not set")
		os.Exit(1)
	}

	name := os.Args[1]
	key := auth.New(cfg.JWTSecret, cfg.APIMasterSecret).GenerateHMACKey(name)
	fmt.Printf("Generated Key for %s:\n%s\n", name, key)
}
