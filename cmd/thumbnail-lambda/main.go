// Package main serves the thumbnail studio web surface from AWS Lambda
// behind an API Gateway HTTP API.
//
// Sessions live in the memory of one execution environment, so the function
// should run with reserved concurrency of 1 or behind sticky routing.
package main

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/fpang/thumbnail-studio/internal/cli"
	"github.com/fpang/thumbnail-studio/internal/config"
	"github.com/fpang/thumbnail-studio/internal/lambdaboot"
	"github.com/fpang/thumbnail-studio/internal/logging"
	"github.com/fpang/thumbnail-studio/internal/metrics"
	"github.com/fpang/thumbnail-studio/internal/studio"
	"github.com/fpang/thumbnail-studio/internal/web"
)

var adapter *httpadapter.HandlerAdapterV2

func init() {
	initStart := time.Now()
	logging.Init()
	metrics.EnableStdout()
	ctx := context.Background()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	aws := lambdaboot.InitAWS(ctx)
	if err := lambdaboot.LoadGeminiKey(ctx, aws.SSM); err != nil {
		log.Fatal().Err(err).Msg("Failed to load Gemini API key")
	}

	client, apiKey := cli.InitGeminiClient(ctx, cfg.TextModel, false)
	adapters, err := cli.BuildAdapters(ctx, cfg, apiKey, client)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build adapters")
	}

	registry := studio.NewRegistry(adapters, cfg.SessionTTL)
	registry.SetMaxSessions(cfg.MaxSessions)
	opts := web.Options{Registry: registry, SecureCookies: true}
	if exporter := lambdaboot.InitExporter(aws.Config, cfg.ExportBucket); exporter != nil {
		opts.Exporter = exporter
	}
	server, err := web.New(opts)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create web server")
	}

	// Sweeps only run while the execution environment is thawed.
	go registry.Run(context.Background(), time.Minute)

	adapter = httpadapter.NewV2(server.Handler())

	cli.StartupLog("thumbnail-lambda", cfg, initStart).
		CommitHash(commitHash).
		BuildTime(buildTime).
		Log()
}

func main() {
	lambda.Start(adapter.ProxyWithContext)
}
