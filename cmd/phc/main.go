// Command phc runs PubHubs Central: the user registry, hub ticket
// issuer, and the PPP/HHPP conversion endpoints. It owns
// the authoritative constellation every other server role converges on.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "phc",
	Short: "PubHubs Central server",
	Long: `phc runs PubHubs Central: the user registry, hub ticket issuer, and
polymorphic-pseudonym / hashed-hub-pseudonym conversion endpoints. It
assembles and publishes the constellation the Transcryptor and
authentication server converge on at startup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(configDir)
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "config", "directory containing default.yaml and <env>.yaml")
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
