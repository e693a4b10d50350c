package main

import (
	"os"

	"github.com/jrsteele09/go-jwt-grant/internal/config"
	"github.com/jrsteele09/go-jwt-grant/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "jwtgrant",
	Short: "OAuth2 JWT bearer assertion grant server",
	Long: `jwtgrant exchanges JWT bearer assertions (RFC 7523) for access tokens.
Clients sign an assertion with their secret, and the server resolves the
resource owner it names before issuing a token.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.ReadInConfig(viper.GetViper(), configFile)
		logging.Init(config.New(viper.GetViper()))
		if err != nil { // reported once logging is set up
			return err
		}
		if path != "" {
			log.Debug().Str("path", path).Msg("using config file")
		}
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("execution failed")
		os.Exit(1)
	}
}

func init() {
	logging.InitDefault()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default is ./jwtgrant.yaml or $HOME/jwtgrant.yaml)")

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.PersistentFlags().String("log-format", "console", "Log format (console, json)")
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	config.BindEnv(viper.GetViper())

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}
