package main

import (
	"fmt"
	"time"

	"github.com/jrsteele09/go-jwt-grant/bearerclient"
	"github.com/spf13/cobra"
)

type mintFlags struct {
	clientID string
	secret   string
	subject  string
	audience string
	ttl      time.Duration
}

func (f *mintFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.clientID, "client-id", "", "Client identifier, used as the iss claim")
	cmd.Flags().StringVar(&f.secret, "secret", "", "Client secret the assertion is signed with")
	cmd.Flags().StringVar(&f.subject, "sub", "", "Subject claim naming the resource owner")
	cmd.Flags().StringVar(&f.audience, "aud", "", "Audience claim, usually the token endpoint")
	cmd.Flags().DurationVar(&f.ttl, "ttl", bearerclient.DefaultTTL, "Assertion lifetime")
}

func (f *mintFlags) mint() (string, error) {
	if f.clientID == "" || f.secret == "" {
		return "", fmt.Errorf("--client-id and --secret are required")
	}
	return bearerclient.MintAssertion(bearerclient.Assertion{
		Issuer:   f.clientID,
		Subject:  f.subject,
		Audience: f.audience,
		TTL:      f.ttl,
	}, f.secret)
}

var mintOptions mintFlags

var mintCmd = &cobra.Command{
	Use:     "mint",
	Short:   "Sign a JWT bearer assertion with a client secret",
	Example: `  jwtgrant mint --client-id my-app --secret s3cret --sub alice`,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := mintOptions.mint()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), raw)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mintCmd)
	mintOptions.register(mintCmd)
}
