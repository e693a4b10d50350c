package main

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-jwt-grant/token"
	"github.com/spf13/cobra"
)

// generateSigningKey returns a PKCS#8 PEM private key usable as
// oauth.signing.private_key_file for alg.
func generateSigningKey(alg string) ([]byte, error) {
	method := jwt.GetSigningMethod(alg)
	if method == nil {
		return nil, fmt.Errorf("unknown algorithm %q", alg)
	}
	keyPair, err := token.GenerateKeyPair("", method)
	if err != nil {
		return nil, err
	}
	return keyPair.PrivateKeyPEM()
}

var keygenCmd = &cobra.Command{
	Use:     "keygen",
	Short:   "Generate a private key for signing access tokens",
	Example: `  jwtgrant keygen --alg ES256 > signing.pem`,
	RunE: func(cmd *cobra.Command, args []string) error {
		alg, _ := cmd.Flags().GetString("alg")
		pemData, err := generateSigningKey(alg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(pemData)
		return err
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	keygenCmd.Flags().String("alg", "RS256", "RS, PS or ES signing algorithm the key is for")
}
