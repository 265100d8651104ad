// Command policyrag is the entry point for the ALPHAS HR-policy
// question-answering service. It provides a CLI interface (via Cobra) and an
// HTTP server exposing the retrieval-augmented API.
package main

import (
	"fmt"
	"os"

	"github.com/alphas/policyrag-go/cmd/policyrag/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
