// main is the entry point for the apprank CLI.
package main

import (
	"fmt"
	"os"

	"github.com/huangsam/apprank/cmd"
	"github.com/huangsam/apprank/internal/store"
)

func main() {
	err := cmd.Execute()
	store.CloseStore()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
