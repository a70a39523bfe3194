// Package main is the entry point for the shadowhtml CLI.
package main

import (
	"fmt"
	"os"

	"github.com/shadowhtml/shadowhtml/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
