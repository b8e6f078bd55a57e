package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"
)

const (
	keyringService = "keyops"
	keyringUser    = "backend-token"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the backend token stored in the OS keyring.",
}

var tokenSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store a backend token in the OS keyring.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		token, err := promptSecret("Enter backend token: ")
		if err != nil {
			return err
		}
		if token == "" {
			return fmt.Errorf("token cannot be empty")
		}
		if err := keyring.Set(keyringService, keyringUser, token); err != nil {
			return fmt.Errorf("failed to store token: %w", err)
		}
		fmt.Printf("Stored token %s\n", tokenFingerprint(token))
		return nil
	},
}

var tokenClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored backend token.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		if err := keyring.Delete(keyringService, keyringUser); err != nil {
			return fmt.Errorf("failed to remove token: %w", err)
		}
		fmt.Println("Token removed")
		return nil
	},
}

var tokenStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a backend token is stored.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		token, err := keyringToken()
		if err != nil {
			fmt.Println("No token stored")
			return nil
		}
		fmt.Printf("Token stored: %s\n", tokenFingerprint(token))
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenSetCmd)
	tokenCmd.AddCommand(tokenClearCmd)
	tokenCmd.AddCommand(tokenStatusCmd)
}

func keyringToken() (string, error) {
	return keyring.Get(keyringService, keyringUser)
}

// tokenFingerprint renders a short identifier for a token without
// revealing it.
func tokenFingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:4])
}
