package main

import (
	"context"
	"os"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/ammiranda/treepath/config"
	"github.com/ammiranda/treepath/internal/app"
	"github.com/ammiranda/treepath/internal/lambda"
	"github.com/ammiranda/treepath/logger"
)

func main() {
	ctx := context.Background()
	log := logger.NewWithFormat(logger.FormatJSON, os.Getenv("DEBUG") == "true", os.Stdout)
	defer log.Sync()

	// Secrets Manager is used when AWS_SECRET_NAME is set
	provider, err := config.NewProvider(ctx)
	if err != nil {
		log.Fatal("failed to create config provider", zap.Error(err))
	}
	cfg, err := config.GetAppConfig(ctx, provider)
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}

	router, closeAll, err := app.NewRouter(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to build router", zap.Error(err))
	}
	defer closeAll()

	handler := lambda.NewHandler(router, log.Named("lambda"))
	awslambda.Start(handler.Handle)
}
