package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/expensesync/expensesync/internal/config"
	"github.com/expensesync/expensesync/internal/sheets"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to the Google Sheets ledger",
		Long: `Run the one-time OAuth2 consent flow for the Google Sheets recorder and
print the refresh token to store in the configuration.`,
		RunE: runAuth,
	}

	cmd.Flags().String("token-file", "", "file to save the token to (optional)")

	return cmd
}

func runAuth(cmd *cobra.Command, _ []string) error {
	clientID := viper.GetString("sheets.client_id")
	if clientID == "" {
		clientID = os.Getenv("GOOGLE_SHEETS_CLIENT_ID")
	}
	clientSecret := viper.GetString("sheets.client_secret")
	if clientSecret == "" {
		clientSecret = os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET")
	}
	if clientID == "" || clientSecret == "" {
		return fmt.Errorf("sheets client ID and secret are required (sheets.client_id / sheets.client_secret)")
	}

	tokenFile, _ := cmd.Flags().GetString("token-file")

	token, err := sheets.Authorize(cmd.Context(), sheets.OAuth2Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenFile:    config.ExpandPath(tokenFile),
	})
	if err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	fmt.Println("Authorization complete.")
	fmt.Printf("Refresh token: %s\n", token.RefreshToken)
	fmt.Println("Store it as sheets.refresh_token in your config or GOOGLE_SHEETS_REFRESH_TOKEN in the environment.")
	return nil
}
