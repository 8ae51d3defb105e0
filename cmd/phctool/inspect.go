package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/pubhubs/pubhubs-core/client"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "inspect <server-url>",
		Short: "fetch and print a server's discovery info",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.HTTPDiscoveryClient{HTTPClient: &http.Client{Timeout: 10 * time.Second}}
			info, err := c.Info(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("phctool: %w", err)
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	}
	rootCmd.AddCommand(cmd)
}
