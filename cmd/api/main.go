package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"playground/internal/app"
	"playground/internal/domain"
	"playground/internal/infra"
)

var hasImageFlag bool

var rootCmd = &cobra.Command{
	Use:   "api",
	Short: "Image playground API",
	Long: `Serves the image playground: prompt interpretation plus generate,
analyze, upscale, and background removal behind one HTTP API.

Examples:
  api
  api serve
  api interpret --has-image "upscale this 4x please"`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var interpretCmd = &cobra.Command{
	Use:   "interpret <prompt>",
	Short: "Interpret one prompt and print the result as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runInterpret,
}

func init() {
	interpretCmd.Flags().BoolVar(&hasImageFlag, "has-image", false, "Interpret as if an image were attached")
	rootCmd.AddCommand(serveCmd, interpretCmd)
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return err
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialise app")
		return err
	}
	defer container.Close()

	server := infra.NewHTTPServer(cfg, container.Handler())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().
			Str("addr", server.Addr()).
			Str("history", cfg.HistoryBackend).
			Msg("API listening")
		return server.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server")
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func shutdownTimeout(cfg *infra.Config) time.Duration {
	if cfg.HTTPIdleTimeout > 0 {
		return cfg.HTTPIdleTimeout
	}
	return 10 * time.Second
}

func runInterpret(cmd *cobra.Command, args []string) error {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.GoogleAPIKey == "" {
		return errors.New("GOOGLE_API_KEY is required")
	}
	// Keep stdout clean for the JSON result.
	logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel).With().Timestamp().Logger()

	container, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer container.Close()

	result, err := container.Interpreter.Interpret(cmd.Context(), domain.InterpretationRequest{
		Prompt:   strings.Join(args, " "),
		HasImage: hasImageFlag,
	})
	if err != nil {
		return fmt.Errorf("interpret: %w", err)
	}
	return writeJSON(cmd.OutOrStdout(), result)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
