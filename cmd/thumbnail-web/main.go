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

	"github.com/fpang/thumbnail-studio/internal/cli"
	"github.com/fpang/thumbnail-studio/internal/config"
	"github.com/fpang/thumbnail-studio/internal/lambdaboot"
	"github.com/fpang/thumbnail-studio/internal/logging"
	"github.com/fpang/thumbnail-studio/internal/metrics"
	"github.com/fpang/thumbnail-studio/internal/studio"
	"github.com/fpang/thumbnail-studio/internal/web"
	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// sweepInterval is how often idle sessions are expired.
const sweepInterval = time.Minute

// CLI flags
var (
	portFlag        string
	modelFlag       string
	imageModelFlag  string
	openFlag        bool
	validateKeyFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "thumbnail-web",
	Short: "Web UI for generating YouTube thumbnails",
	Long: `Thumbnail Web starts a local web server with the thumbnail studio form.
Paste a YouTube link to get a description, ask for prompt ideas, pick styles
and generate thumbnails with Gemini.

Examples:
  thumbnail-web
  thumbnail-web --port 9090 --open
  thumbnail-web --model gemini-2.5-flash-lite --image-model imagen-3.0-generate-002`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVar(&portFlag, "port", "", "Port to listen on (default $PORT or 8080)")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Gemini text model (default $GEMINI_MODEL)")
	rootCmd.Flags().StringVar(&imageModelFlag, "image-model", "", "Image model (default $IMAGE_MODEL)")
	rootCmd.Flags().BoolVar(&openFlag, "open", false, "Open the UI in the default browser")
	rootCmd.Flags().BoolVar(&validateKeyFlag, "validate-key", true, "Validate the Gemini API key at startup")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	initStart := time.Now()
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if portFlag != "" {
		cfg.Port = portFlag
	}
	if modelFlag != "" {
		cfg.TextModel = modelFlag
	}
	if imageModelFlag != "" {
		cfg.ImageModel = imageModelFlag
	}
	if cfg.EMFMetrics {
		metrics.EnableStdout()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, apiKey := cli.InitGeminiClient(ctx, cfg.TextModel, validateKeyFlag)
	adapters, err := cli.BuildAdapters(ctx, cfg, apiKey, client)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build adapters")
	}

	registry := studio.NewRegistry(adapters, cfg.SessionTTL)
	registry.SetMaxSessions(cfg.MaxSessions)
	opts := web.Options{Registry: registry}
	if cfg.ExportBucket != "" {
		aws := lambdaboot.InitAWS(ctx)
		if exporter := lambdaboot.InitExporter(aws.Config, cfg.ExportBucket); exporter != nil {
			opts.Exporter = exporter
		}
	}
	server, err := web.New(opts)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create web server")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go registry.Run(ctx, sweepInterval)

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Graceful shutdown failed")
		}
	}()

	cli.StartupLog("thumbnail-web", cfg, initStart).
		CommitHash(commitHash).
		BuildTime(buildTime).
		Config("port", cfg.Port).
		Log()

	url := fmt.Sprintf("http://localhost:%s", cfg.Port)
	fmt.Printf("\n  Thumbnail Studio: %s\n\n", url)
	if openFlag {
		go func() {
			if err := browser.OpenURL(url); err != nil {
				log.Warn().Err(err).Msg("Failed to open browser")
			}
		}()
	}

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
