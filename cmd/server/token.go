package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/jrsteele09/go-jwt-grant/bearerclient"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	tokenIssuer    string
	tokenAssertion string
	tokenScopes    []string
	tokenMint      mintFlags
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Exchange an assertion for an access token",
	Long: `Discovers the token endpoint of --issuer and exchanges an assertion for an
access token. Without --assertion one is minted from the mint flags.`,
	Example: `  jwtgrant token --issuer http://localhost:8080 --client-id my-app --secret s3cret --sub alice --scope read`,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := tokenAssertion
		if raw == "" {
			var err error
			if raw, err = tokenMint.mint(); err != nil {
				return err
			}
		}

		client, err := bearerclient.New(cmd.Context(), tokenIssuer, tokenMint.clientID, tokenMint.secret)
		if err != nil {
			return err
		}
		log.Debug().Str("token_url", client.TokenURL).Msg("exchanging assertion")

		tok, err := client.Exchange(cmd.Context(), raw, tokenScopes...)
		if err != nil {
			return fmt.Errorf("exchanging assertion: %w", err)
		}

		bold := color.New(color.Bold).SprintFunc()
		faint := color.New(color.Faint).SprintfFunc()

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.AppendRow(table.Row{"Access token", bold(tok.AccessToken)})
		t.AppendRow(table.Row{"Type", tok.TokenType})
		if !tok.Expiry.IsZero() {
			t.AppendRow(table.Row{"Expires", fmt.Sprintf("%s (%s)",
				tok.Expiry.Format(time.RFC3339), faint(time.Until(tok.Expiry).Round(time.Second).String()))})
		}
		if scope, _ := tok.Extra("scope").(string); scope != "" {
			t.AppendRow(table.Row{"Scope", scope})
		}
		if tok.RefreshToken != "" {
			t.AppendRow(table.Row{"Refresh token", faint(tok.RefreshToken)})
		}

		s := table.StyleRounded
		s.Format.Header = text.FormatDefault
		t.SetStyle(s)
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVar(&tokenIssuer, "issuer", "http://localhost:8080", "Base URL of the token server")
	tokenCmd.Flags().StringVar(&tokenAssertion, "assertion", "", "Signed assertion to exchange")
	tokenCmd.Flags().StringSliceVar(&tokenScopes, "scope", nil, "Scopes to request")
	tokenMint.register(tokenCmd)
}
