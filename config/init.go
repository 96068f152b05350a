package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/customeros/mailmigrate/internal/logger"
	"github.com/customeros/mailmigrate/internal/tracing"
)

// InitConfig builds a TransferConfig skeleton with the environment-backed
// sections filled in. Connection settings come from CLI flags afterwards.
func InitConfig() (*TransferConfig, error) {
	config := &TransferConfig{
		Logger:  &logger.Config{},
		Tracing: &tracing.JaegerConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		return nil, err
	}

	return config, nil
}
