// Command transcryptor runs the Transcryptor (T): the EHPP conversion
// endpoint and T's half of hub key delivery. T holds no
// per-user state and only ever follows the constellation PHC publishes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "transcryptor",
	Short: "PubHubs Transcryptor",
	Long: `transcryptor runs the Transcryptor: the EHPP conversion endpoint and
half of the hub key delivery protocol. It converges on the constellation
PHC publishes rather than assembling its own.`,
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
