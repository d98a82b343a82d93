package main

import (
	"github.com/joho/godotenv"

	"github.com/example/tablesched/cmd"
)

func main() {
	// a missing .env is fine; the environment wins either way
	_ = godotenv.Load()
	cmd.Execute()
}
