package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	fakeclientrepo "github.com/jrsteele09/go-jwt-grant/clients/fakerepo"
	"github.com/jrsteele09/go-jwt-grant/internal/config"
	"github.com/jrsteele09/go-jwt-grant/internal/seed"
	"github.com/jrsteele09/go-jwt-grant/internal/storage"
	"github.com/jrsteele09/go-jwt-grant/server"
	fakeuserrepo "github.com/jrsteele09/go-jwt-grant/users/repofake"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Run the token server",
	Example: `  jwtgrant serve --addr :8080 --seed seed.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.New(viper.GetViper())

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, closer, err := storage.NewTokenStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("opening token store: %w", err)
		}
		defer func() {
			if err := closer.Close(); err != nil {
				log.Warn().Err(err).Msg("closing token store")
			}
		}()

		repos := server.Repos{
			Clients: fakeclientrepo.NewFakeClientRepo(),
			Users:   fakeuserrepo.NewFakeUserRepo(),
		}
		if path := cfg.GetSeedFile(); path != "" {
			result, err := seed.LoadFile(path, repos.Clients, repos.Users)
			if err != nil {
				return err
			}
			log.Info().
				Int("applications", result.Applications).
				Int("resource_owners", result.ResourceOwners).
				Msg("seed data loaded")
		}

		handler, err := server.New(cfg, repos, store)
		if err != nil {
			return fmt.Errorf("building server: %w", err)
		}

		displayAppName(cfg.GetAppName())
		httpServer := &http.Server{
			Addr:              cfg.GetPort(),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			log.Info().Str("addr", httpServer.Addr).Str("base_url", cfg.GetBaseURL()).Msg("server listening")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			log.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server forced to shutdown: %w", err)
			}
			return nil
		})

		if err := g.Wait(); err != nil {
			return err
		}
		log.Info().Msg("server stopped")
		return nil
	},
}

func displayAppName(name string) {
	figure.NewFigure(name, "cybermedium", true).Print()
	fmt.Println()
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("addr"))

	serveCmd.Flags().String("seed", "", "YAML file of applications and resource owners to load at startup")
	_ = viper.BindPFlag("seed.file", serveCmd.Flags().Lookup("seed"))

	serveCmd.Flags().String("signing-key", "", "PEM private key for RS, PS and ES signing algorithms (see keygen)")
	_ = viper.BindPFlag("oauth.signing.private_key_file", serveCmd.Flags().Lookup("signing-key"))
}
