package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"journal-digest/internal/auth"
	"journal-digest/internal/config"
)

var tokenUser string
var tokenNewUser bool

func NewTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a user",
		Long:  "Issue an access token signed with auth.jwt_secret. Use --new-user to create a fresh user id.",
		RunE:  runToken,
	}
	cmd.Flags().StringVarP(&tokenUser, "user", "u", "", "User id (UUID)")
	cmd.Flags().BoolVar(&tokenNewUser, "new-user", false, "Generate a new user id")
	cmd.MarkFlagsMutuallyExclusive("user", "new-user")
	cmd.MarkFlagsOneRequired("user", "new-user")
	return cmd
}

func runToken(cmd *cobra.Command, args []string) error {
	var userID uuid.UUID
	if tokenNewUser {
		userID = uuid.New()
	} else {
		var err error
		if userID, err = parseUserID(tokenUser); err != nil {
			return err
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	m, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	token, err := m.GenerateAccessToken(userID)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "User:    %s\n", userID)
	fmt.Fprintf(w, "Expires: in %s\n", cfg.Auth.TokenTTL)
	fmt.Fprintf(w, "Token:   %s\n", token)
	return nil
}
