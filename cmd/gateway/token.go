package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/meepleai/gateway/auth"
	"github.com/meepleai/gateway/config"
	"github.com/meepleai/gateway/sessionstore"
)

// newTokenCmd mints a session token and registers it in the session
// store. Meant for local development and operational break-glass, not
// as a login flow.
func newTokenCmd() *cobra.Command {
	var (
		userID string
		tier   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a session token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}

			principal := &auth.Principal{
				ID:     userID,
				UserID: userID,
				Tier:   auth.ParseTier(tier),
			}

			codec := auth.NewTokenCodec(auth.TokenCodecConfig{SigningKey: []byte(cfg.SigningKey)})
			token, err := codec.Mint(principal, ttl)
			if err != nil {
				return fmt.Errorf("mint token: %w", err)
			}

			store, err := sessionstore.OpenSQLite(cfg.SessionDBPath)
			if err != nil {
				return fmt.Errorf("open session store: %w", err)
			}
			defer store.Close()

			now := time.Now()
			err = store.Put(ctx, &sessionstore.Session{
				ID:        uuid.NewString(),
				TokenHash: auth.HashToken(token),
				UserID:    userID,
				Tier:      principal.Tier,
				CreatedAt: now,
				ExpiresAt: now.Add(ttl),
			})
			if err != nil {
				return fmt.Errorf("register session: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID the token identifies")
	cmd.Flags().StringVar(&tier, "tier", string(auth.TierAuthenticated), "rate-limit tier")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "session lifetime")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
