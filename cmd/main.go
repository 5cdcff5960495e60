// Package main runs the payment transaction engine API.
package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-petr/pet-pay/cmd/httpserver"
	"github.com/go-petr/pet-pay/internal/middleware"
	"github.com/go-petr/pet-pay/pkg/configpkg"
	"github.com/go-petr/pet-pay/pkg/randompkg"

	_ "github.com/lib/pq"
)

const shutdownTimeout = 10 * time.Second

func main() {
	rootCmd := &cobra.Command{
		Use:   "pet-pay",
		Short: "Account-based payment transaction engine",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(keygenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := configpkg.Load(configPath)
			if err != nil {
				return fmt.Errorf("cannot load config: %w", err)
			}

			return serve(cmd.Context(), config)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "./configs", "Directory containing app.env")

	return cmd
}

func serve(ctx context.Context, config configpkg.Config) error {
	logger := middleware.CreateLogger(config)

	st, db, err := httpserver.OpenStore(config)
	if err != nil {
		return fmt.Errorf("cannot open store: %w", err)
	}

	if db != nil {
		defer db.Close()
	}

	server, err := httpserver.New(st, logger, config)
	if err != nil {
		return fmt.Errorf("cannot create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              config.ServerAddress,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info().Str("address", config.ServerAddress).Str("driver", config.DBDriver).Msg("PAYMENT API SERVER HAS STARTED")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Print freshly generated payload and token keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			key := make([]byte, 32)
			if _, err := rand.Read(key); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "PAYLOAD_SECRET_KEY=%s\n", base64.StdEncoding.EncodeToString(key))
			fmt.Fprintf(out, "TOKEN_SYMMETRIC_KEY=%s\n", randompkg.String(32))

			return nil
		},
	}
}
