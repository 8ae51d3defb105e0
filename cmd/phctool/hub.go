package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pubhubs/pubhubs-core/client"
	"github.com/pubhubs/pubhubs-core/internal/keyseed"
	"github.com/spf13/cobra"
)

func init() {
	var phcURL, transcryptorURL, handle, keySeed string

	cmd := &cobra.Command{
		Use:   "hub-bootstrap",
		Short: "request a ticket and redeem it for a hub's private key",
		RunE: func(cmd *cobra.Command, args []string) error {
			signingKey, err := keyseed.Ed25519KeyFromSeed(keySeed)
			if err != nil {
				return fmt.Errorf("phctool: derive hub signing key: %w", err)
			}

			c := &client.HubClient{
				HTTPClient:      &http.Client{Timeout: 10 * time.Second},
				PHCURL:          phcURL,
				TranscryptorURL: transcryptorURL,
				SigningKey:      signingKey,
				HubHandle:       handle,
			}

			ctx := context.Background()
			ticket, err := c.RequestTicket(ctx)
			if err != nil {
				return fmt.Errorf("phctool: request ticket: %w", err)
			}
			key, err := c.PrivateKey(ctx, ticket.Ticket)
			if err != nil {
				return fmt.Errorf("phctool: redeem key: %w", err)
			}

			fmt.Printf("ticket: %s\n", ticket.Ticket)
			fmt.Printf("private_key: %s\n", key.ToHex())
			return nil
		},
	}
	cmd.Flags().StringVar(&phcURL, "phc-url", "", "PHC base URL")
	cmd.Flags().StringVar(&transcryptorURL, "transcryptor-url", "", "Transcryptor base URL")
	cmd.Flags().StringVar(&handle, "handle", "", "this hub's handle")
	cmd.Flags().StringVar(&keySeed, "key-seed", "", "hex seed for this hub's Ed25519 signing key")
	cmd.MarkFlagRequired("phc-url")
	cmd.MarkFlagRequired("transcryptor-url")
	cmd.MarkFlagRequired("handle")
	cmd.MarkFlagRequired("key-seed")

	rootCmd.AddCommand(cmd)
}
