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

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Ruscigno/IndexPulse/pkg/app"
	"github.com/Ruscigno/IndexPulse/pkg/config"
	"github.com/Ruscigno/IndexPulse/pkg/database"
	"github.com/Ruscigno/IndexPulse/pkg/logging"
)

const shutdownTimeout = 15 * time.Second

// v is shared by every command so flags and environment resolve the same way.
var v *viper.Viper

var rootCmd = &cobra.Command{
	Use:   "indexpulse",
	Short: "Kite Connect index-quote proxy",
	Long:  `Serves Indian index quotes from Kite Connect to a dashboard and exchanges Kite request tokens.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env is the normal case outside local development.
		_ = godotenv.Load()
	},
}

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Starts an HTTP server exposing /api/kite-data, /.netlify/functions/kite-data and /health`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(config.FromViper(v))
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply session store migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromViper(v)
		logger := logging.Setup(cfg.Log)
		defer logger.Sync()

		db, err := database.NewDB(cfg.Database, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		steps, _ := cmd.Flags().GetInt("down")
		if steps > 0 {
			return db.RollbackMigrations(steps)
		}
		return db.RunMigrations()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), app.Version)
	},
}

func init() {
	v = config.New()

	rootCmd.AddCommand(serveCmd, migrateCmd, versionCmd)

	rootCmd.PersistentFlags().String("log-level", "", "log level: dev, prod or elk")
	rootCmd.PersistentFlags().String("log-file", "", "also write logs to this file")
	rootCmd.PersistentFlags().String("database-url", "", "Postgres URL for the session store")
	_ = v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("log.file", rootCmd.PersistentFlags().Lookup("log-file"))
	_ = v.BindPFlag("database.url", rootCmd.PersistentFlags().Lookup("database-url"))

	serveCmd.Flags().StringP("port", "p", "", "listen port")
	serveCmd.Flags().String("allowed-origins", "", "comma separated CORS origins, * for any")
	serveCmd.Flags().Duration("kite-timeout", 0, "timeout for each Kite API call")
	_ = v.BindPFlag("http.port", serveCmd.Flags().Lookup("port"))
	_ = v.BindPFlag("http.allowed_origins", serveCmd.Flags().Lookup("allowed-origins"))
	_ = v.BindPFlag("kite.timeout", serveCmd.Flags().Lookup("kite-timeout"))

	migrateCmd.Flags().Int("down", 0, "roll back this many migrations instead of applying")
}

func serve(cfg config.Config) error {
	logger := logging.Setup(cfg.Log)
	a, err := app.New(cfg, app.WithLogger(logger))
	if err != nil {
		logger.Error("Failed to initialize service", zap.Error(err))
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           a.Handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.Kite.Timeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Server failed", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
		return err
	}
	logger.Info("Server stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
