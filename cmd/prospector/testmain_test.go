package main

import (
	"os"
	"testing"

	"github.com/joho/godotenv"
)

// TestMain loads .env if present so integration settings apply to local runs.
func TestMain(m *testing.M) {
	_ = godotenv.Load()
	os.Exit(m.Run())
}
