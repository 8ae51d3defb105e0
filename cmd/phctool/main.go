// Command phctool is the operator's CLI for a running PubHubs
// deployment: inspecting a server's discovery info, driving convergence
// against PHC, and bootstrapping a hub's private key.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "phctool",
	Short: "PubHubs operator CLI",
	Long: `phctool inspects and drives a running PubHubs deployment: fetching a
server's discovery info, triggering constellation convergence, and
bootstrapping a hub's private key from PHC and the Transcryptor.`,
}

func main() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
