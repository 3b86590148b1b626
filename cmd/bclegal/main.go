// Command bclegal is the entry point for the BC legal assistant. It provides
// a CLI for retrieval, recommendations and reports, and an HTTP server that
// exposes the same operations as a JSON/SSE API.
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/bclegal-go/cmd/bclegal/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
