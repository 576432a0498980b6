// Command agents is the entry point for the room question answering service.
// It provides a CLI interface (via Cobra) and an HTTP server that answers
// questions about recorded rooms using transcript retrieval.
package main

import (
	"fmt"
	"os"

	"github.com/Popotomimi/NLWBACKEND/cmd/agents/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
