// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/killfeed/internal/api"
	"github.com/tomtom215/killfeed/internal/auth"
)

// jwtSecretEnv is read when --secret is not given.
const jwtSecretEnv = "JWT_SECRET"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "killfeedctl",
		Short:         "Operator tool for the killfeed service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newTokenCmd())
	root.AddCommand(newHashKeyCmd())
	root.AddCommand(newParseLinkCmd())
	return root
}

func newTokenCmd() *cobra.Command {
	var (
		secret   string
		operator string
		issuer   string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the command API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv(jwtSecretEnv)
			}
			if strings.TrimSpace(operator) == "" {
				return errors.New("--operator is required")
			}
			if ttl <= 0 {
				return fmt.Errorf("invalid --ttl %s", ttl)
			}
			m, err := auth.NewJWTManager(secret, issuer)
			if err != nil {
				return err
			}
			token, err := m.GenerateToken(operator, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "signing secret (default $"+jwtSecretEnv+")")
	cmd.Flags().StringVar(&operator, "operator", "", "operator name recorded in the token")
	cmd.Flags().StringVar(&issuer, "issuer", "killfeed", "token issuer")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func newHashKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-key [key]",
		Short: "Print the bcrypt hash of an API key for api.api_key_hash",
		Long:  "Print the bcrypt hash of an API key. The key is read from stdin when no argument is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				line, err := readLine(cmd.InOrStdin())
				if err != nil {
					return err
				}
				key = line
			}
			hash, err := auth.HashAPIKey(key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func newParseLinkCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "parse-link <url>",
		Short: "Show the subscription a zKillboard link maps to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			link, err := api.ParseLink(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"type":      link.Type,
					"id":        link.ID,
					"direction": link.Direction,
					"key":       link.Key().String(),
				})
			}
			fmt.Fprintf(out, "Type: %s | ID: %d | Kill Type: %s\n", link.Type, link.ID, link.Direction)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
