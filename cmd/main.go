package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"contact-vault/handler"
	"contact-vault/internal/integrations/carrier"
	"contact-vault/internal/integrations/mediastore"
	"contact-vault/internal/integrations/paramstore"
	"contact-vault/internal/repository"
	"contact-vault/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	stateTable := mustEnv("STATE_TABLE")
	paramPrefix := mustEnv("PARAM_PREFIX")
	recordingsBucket := os.Getenv("RECORDINGS_BUCKET") // optional
	maxPinAttempts := envInt("MAX_PIN_ATTEMPTS", 5)
	sessionIdleTTL := time.Duration(envInt("SESSION_IDLE_TTL_SECONDS", 300)) * time.Second

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	store, err := repository.New(awsdynamodb.NewFromConfig(cfg), stateTable)
	if err != nil {
		slog.Error("failed to create state store", "err", err)
		os.Exit(1)
	}

	carrierClient, err := carrier.NewClient(ssmClient, paramPrefix)
	if err != nil {
		slog.Error("failed to create carrier client", "err", err)
		os.Exit(1)
	}

	// Assign through the interface only when a bucket is configured; a typed
	// nil pointer would defeat the signer == nil checks downstream.
	var signer usecase.RecordingSigner
	if recordingsBucket != "" {
		mediaClient, err := mediastore.New(awss3.NewPresignClient(awss3.NewFromConfig(cfg)), recordingsBucket)
		if err != nil {
			slog.Error("failed to create media store client", "err", err)
			os.Exit(1)
		}
		signer = mediaClient
	}

	// ---- Services ----
	callService, err := usecase.NewCallService(ssmClient, store, store, paramPrefix, maxPinAttempts, sessionIdleTTL)
	if err != nil {
		slog.Error("failed to create call service", "err", err)
		os.Exit(1)
	}
	vaultService, err := usecase.NewVaultService(ssmClient, store, signer, carrierClient, paramPrefix)
	if err != nil {
		slog.Error("failed to create vault service", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	h, err := handler.NewHandler(callService, vaultService)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
