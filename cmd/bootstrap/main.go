package main

import (
	"context"
	"os"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-xray-sdk-go/xray"
	adapterlogger "posadmin/internal/adapters/logger"
	"posadmin/internal/config"
	platformlambda "posadmin/internal/platform/lambda"
	"posadmin/internal/server"
)

// bootstrap is the Lambda custom runtime entry point behind API Gateway.
func main() {
	ctx := context.Background()

	cfg, err := config.Load(os.Getenv)
	if err != nil {
		adapterlogger.New("posadmin-lambda", adapterlogger.DefaultLevel).Error(ctx, "configuration error", "error", err)
		os.Exit(1)
	}
	logger := adapterlogger.New("posadmin-lambda", cfg.LogLevel)
	xray.Configure(xray.Config{LogLevel: "error"})

	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "failed to initialize server", "error", err)
		os.Exit(1)
	}
	awslambda.Start(platformlambda.NewLambdaHandler(srv.Echo, logger))
}
