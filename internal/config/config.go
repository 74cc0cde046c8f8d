package config

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

// Config holds runtime configuration for the equipment service.
type Config struct {
	DBDSN            string  `env:"DB_DSN,required"`
	NATSURL          string  `env:"NATS_URL,default=nats://127.0.0.1:4222"`
	SubjectPrefix    string  `env:"SUBJECT_PREFIX,default=equipment.details"`
	QueueGroup       string  `env:"QUEUE_GROUP,default=equipment"`
	HealthAddr       string  `env:"HEALTH_ADDR,default=:8080"`
	FailureThreshold float64 `env:"FAILURE_THRESHOLD,default=0.05"`
	OTLPEndpoint     string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load returns a Config populated from environment variables.
func Load(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
