package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dtroode/dirsync/internal/config"
	"github.com/dtroode/dirsync/internal/token"
)

func newTokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin API bearer token signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.NewConfig()
			if err != nil {
				return err
			}
			tok, err := token.NewJWT(cfg.JWT.Secret).GenerateAccessToken(subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Operator the token is issued to")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}
