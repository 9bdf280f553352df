package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/fit-agent/internal/server"
)

var tokenClientID string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage API client credentials",
}

var hashSecretCmd = &cobra.Command{
	Use:   "hash-secret [secret]",
	Short: "Hash a client secret for auth.clients[].secret_hash",
	Long: `Print the bcrypt hash of a client secret using auth.bcrypt_cost and auth.pepper.
Without an argument the secret is read from the first line of stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHashSecret,
}

var issueTokenCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a bearer token for a client without contacting the server",
	RunE:  runIssueToken,
}

func init() {
	issueTokenCmd.Flags().StringVar(&tokenClientID, "client-id", "", "Client ID to embed in the token")
	_ = issueTokenCmd.MarkFlagRequired("client-id")

	tokenCmd.AddCommand(hashSecretCmd, issueTokenCmd)
	rootCmd.AddCommand(tokenCmd)
}

func runHashSecret(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var secret string
	if len(args) == 1 {
		secret = args[0]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return errors.New("no secret given")
		}
		secret = strings.TrimRight(line, "\r\n")
	}

	hash, err := cfg.Auth.Hasher().Hash(secret)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
	return err
}

func runIssueToken(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Auth.Enabled {
		return errors.New("auth is disabled; set auth.enabled and auth.jwt_secret")
	}

	token, expiresAt, err := server.NewJWTService(cfg.Auth).GenerateToken(tokenClientID)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n# expires %s\n", token, expiresAt.Format(time.RFC3339))
	return err
}
