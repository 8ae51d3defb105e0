// Command authserver runs the authentication server (AS): the Yivi-
// backed attribute disclosure flow. AS never sees a user's
// polymorphic pseudonym; it only ever signs attributes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "authserver",
	Short: "PubHubs authentication server",
	Long: `authserver runs the authentication server: the Yivi-backed attribute
disclosure flow that issues Signed<Attr> credentials. It converges on the
constellation PHC publishes rather than assembling its own.`,
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
