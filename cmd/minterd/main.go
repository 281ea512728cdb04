package main

import (
	"log"

	"github.com/alpha-fi/cheddar-maze-minter/cmd/internal/passphrase"
	"github.com/alpha-fi/cheddar-maze-minter/services/minterd"
)

func main() {
	resolve := func(envVar string) (string, error) {
		return passphrase.NewSource(envVar).Get()
	}
	if err := minterd.Main(resolve); err != nil {
		log.Fatalf("minterd: %v", err)
	}
}
