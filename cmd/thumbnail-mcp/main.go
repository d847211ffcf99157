package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fpang/thumbnail-studio/internal/cli"
	"github.com/fpang/thumbnail-studio/internal/config"
	"github.com/fpang/thumbnail-studio/internal/logging"
	"github.com/fpang/thumbnail-studio/internal/mcpserver"
	"github.com/fpang/thumbnail-studio/internal/studio"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var modelFlag string

var rootCmd = &cobra.Command{
	Use:   "thumbnail-mcp",
	Short: "MCP server for generating YouTube thumbnails",
	Long: `Thumbnail MCP serves the thumbnail studio over stdio so an agent can
analyze a video link, brainstorm descriptions and generate thumbnails.
Logs go to stderr; stdout carries the protocol.

Examples:
  thumbnail-mcp
  thumbnail-mcp --model gemini-2.5-flash-lite`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Gemini text model (default $GEMINI_MODEL)")
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
	if modelFlag != "" {
		cfg.TextModel = modelFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, apiKey := cli.InitGeminiClient(ctx, cfg.TextModel, false)
	adapters, err := cli.BuildAdapters(ctx, cfg, apiKey, client)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build adapters")
	}

	sess := studio.NewSession(uuid.NewString(), adapters)
	defer sess.Close()

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "thumbnail-studio",
		Version: commitHash,
	}, nil)
	mcpserver.RegisterTools(server, sess)

	cli.StartupLog("thumbnail-mcp", cfg, initStart).
		CommitHash(commitHash).
		BuildTime(buildTime).
		Log()

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("MCP server failed")
	}
}
