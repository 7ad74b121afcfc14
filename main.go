package main

import (
	"os"

	"github.com/mynitor/mynitor-go/cmd/root"
)

func main() {
	if err := root.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
