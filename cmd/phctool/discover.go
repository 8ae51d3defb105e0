package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/pubhubs/pubhubs-core/client"
	"github.com/pubhubs/pubhubs-core/constellation"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "discover <phc-url>",
		Short: "drive constellation convergence against PHC and print the agreed constellation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.HTTPDiscoveryClient{HTTPClient: &http.Client{Timeout: 10 * time.Second}}
			agreed, err := constellation.Converge(context.Background(), c, args[0], constellation.DefaultBackoffPolicy())
			if err != nil {
				return fmt.Errorf("phctool: %w", err)
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(agreed)
		},
	}
	rootCmd.AddCommand(cmd)
}
