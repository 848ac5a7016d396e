package main

import (
	"fmt"
	"os"

	"github.com/AnhPhix3405/bpsclub-web/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "bpsclub: %v\n", err)
		os.Exit(1)
	}
}
