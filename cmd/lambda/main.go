package main

import (
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/Ruscigno/IndexPulse/pkg/app"
	"github.com/Ruscigno/IndexPulse/pkg/config"
	"github.com/Ruscigno/IndexPulse/pkg/logging"
	lambdatransport "github.com/Ruscigno/IndexPulse/pkg/transport/lambda"
)

func main() {
	cfg := config.LoadConfig()
	logger := logging.Setup(cfg.Log)

	a, err := app.New(cfg, app.WithLogger(logger))
	if err != nil {
		logger.Fatal("Failed to initialize service", zap.Error(err))
	}
	defer a.Close()

	lambda.Start(lambdatransport.NewHandler(a.Handler).Invoke)
}
