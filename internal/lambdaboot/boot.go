// Package lambdaboot provides the AWS cold-start bootstrap shared by the
// thumbnail studio binaries: AWS config, S3 export and SSM key loading.
package lambdaboot

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/fpang/thumbnail-studio/internal/s3util"
)

// DefaultAPIKeyParam is the SSM parameter read when SSM_API_KEY_PARAM is unset.
const DefaultAPIKeyParam = "/thumbnail-studio/prod/gemini-api-key"

// AWSClients holds the core AWS SDK clients.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
}

// ParameterGetter is the subset of *ssm.Client used to read secrets.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// InitAWS loads the default AWS config and returns it along with common clients.
func InitAWS(ctx context.Context) AWSClients {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{
		Config: cfg,
		SSM:    ssm.NewFromConfig(cfg),
	}
}

// InitExporter returns an S3 exporter for bucket, or nil when bucket is empty.
func InitExporter(cfg aws.Config, bucket string) *s3util.Exporter {
	if bucket == "" {
		log.Debug().Msg("EXPORT_S3_BUCKET not set - export disabled")
		return nil
	}
	log.Info().Str("bucket", bucket).Msg("S3 export enabled")
	return s3util.NewExporterFromClient(s3.NewFromConfig(cfg), bucket)
}

// LoadGeminiKey fetches the Gemini API key from SSM Parameter Store into
// GEMINI_API_KEY unless a key is already configured.
func LoadGeminiKey(ctx context.Context, client ParameterGetter) error {
	if os.Getenv("GEMINI_API_KEY") != "" || os.Getenv("API_KEY") != "" {
		return nil
	}
	paramName := os.Getenv("SSM_API_KEY_PARAM")
	if paramName == "" {
		paramName = DefaultAPIKeyParam
	}

	start := time.Now()
	result, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &paramName,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("read API key from SSM parameter %s: %w", paramName, err)
	}
	if result.Parameter == nil || aws.ToString(result.Parameter.Value) == "" {
		return fmt.Errorf("SSM parameter %s is empty", paramName)
	}
	if err := os.Setenv("GEMINI_API_KEY", aws.ToString(result.Parameter.Value)); err != nil {
		return err
	}
	log.Debug().Str("param", paramName).Dur("elapsed", time.Since(start)).Msg("Gemini API key loaded from SSM")
	return nil
}
