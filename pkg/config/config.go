package config

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/caarlos0/env/v11"
)

// ErrInvalidSanitizer is returned by Load when the sanitizer section is out
// of range.
var ErrInvalidSanitizer = errors.New("invalid sanitizer config")

// Config captures the full runtime configuration for the evidence service.
type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Kafka     KafkaConfig
	Storage   StorageConfig
	Tracing   TracingConfig
	Metrics   MetricsConfig
	Upload    UploadConfig
	Sanitizer SanitizerConfig
}

type AppConfig struct {
	Name        string `env:"APP_NAME" envDefault:"evidenceflow"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	Version     string `env:"APP_VERSION" envDefault:"0.1.0"`
	LogLevel    string `env:"APP_LOG_LEVEL" envDefault:"info"`
	LogEncoding string `env:"APP_LOG_ENCODING" envDefault:"json"`
}

type HTTPConfig struct {
	Addr           string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout    time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout   time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout    time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"2m"`
}

type KafkaConfig struct {
	Brokers          []string      `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	EvidenceTopic    string        `env:"KAFKA_EVIDENCE_TOPIC" envDefault:"evidenceflow.sanitized"`
	Retries          int           `env:"KAFKA_RETRIES" envDefault:"3"`
	CompressionCodec string        `env:"KAFKA_COMPRESSION_CODEC" envDefault:"snappy"`
	BatchSize        int           `env:"KAFKA_BATCH_SIZE" envDefault:"100"`
	BatchTimeout     time.Duration `env:"KAFKA_BATCH_TIMEOUT" envDefault:"1s"`
}

type StorageConfig struct {
	Provider  string `env:"STORAGE_PROVIDER" envDefault:"minio"`
	Endpoint  string `env:"STORAGE_ENDPOINT" envDefault:"localhost:9000"`
	Region    string `env:"STORAGE_REGION" envDefault:"us-east-1"`
	Bucket    string `env:"STORAGE_BUCKET" envDefault:"evidence"`
	Prefix    string `env:"STORAGE_PREFIX" envDefault:"evidence"`
	AccessKey string `env:"STORAGE_ACCESS_KEY" envDefault:"minioadmin"`
	SecretKey string `env:"STORAGE_SECRET_KEY" envDefault:"minioadmin"`
	UseSSL    bool   `env:"STORAGE_USE_SSL" envDefault:"false"`
}

type TracingConfig struct {
	Endpoint     string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	Insecure     bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	SampleRatio  float64 `env:"OTEL_TRACES_SAMPLER_RATIO" envDefault:"1.0"`
	ResourceAttr string  `env:"OTEL_RESOURCE_ATTRIBUTES" envDefault:"service.namespace=evidenceflow"`
}

type MetricsConfig struct {
	Addr      string `env:"METRICS_ADDR" envDefault:":9102"`
	Namespace string `env:"METRICS_NAMESPACE" envDefault:"evidenceflow"`
}

// UploadConfig holds the per-submission limits enforced by the upload boundary.
type UploadConfig struct {
	MaxFiles          int   `env:"UPLOAD_MAX_FILES" envDefault:"5"`
	MaxFileBytes      int64 `env:"UPLOAD_MAX_FILE_BYTES" envDefault:"10485760"`
	MultipartMemBytes int64 `env:"UPLOAD_MULTIPART_MEM_BYTES" envDefault:"33554432"`
}

type SanitizerConfig struct {
	MaxWidth       int     `env:"SANITIZER_MAX_WIDTH" envDefault:"1920"`
	MaxHeight      int     `env:"SANITIZER_MAX_HEIGHT" envDefault:"1080"`
	Quality        float64 `env:"SANITIZER_QUALITY" envDefault:"0.85"`
	AddNoise       bool    `env:"SANITIZER_ADD_NOISE" envDefault:"true"`
	NoiseIntensity float64 `env:"SANITIZER_NOISE_INTENSITY" envDefault:"0.3"`
	StripMetadata  bool    `env:"SANITIZER_STRIP_METADATA" envDefault:"true"`
	MaxPixels      int64   `env:"SANITIZER_MAX_PIXELS" envDefault:"50000000"`
	Workers        int     `env:"SANITIZER_WORKERS" envDefault:"4"`
}

func (c SanitizerConfig) validate() error {
	switch {
	case c.MaxWidth <= 0 || c.MaxHeight <= 0:
		return fmt.Errorf("%w: max dimensions %dx%d", ErrInvalidSanitizer, c.MaxWidth, c.MaxHeight)
	case math.IsNaN(c.Quality) || c.Quality <= 0 || c.Quality > 100:
		return fmt.Errorf("%w: quality %v", ErrInvalidSanitizer, c.Quality)
	case math.IsNaN(c.NoiseIntensity) || math.IsInf(c.NoiseIntensity, 0) || c.NoiseIntensity < 0:
		return fmt.Errorf("%w: noise intensity %v", ErrInvalidSanitizer, c.NoiseIntensity)
	case c.MaxPixels < 0:
		return fmt.Errorf("%w: max pixels %d", ErrInvalidSanitizer, c.MaxPixels)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers %d", ErrInvalidSanitizer, c.Workers)
	}
	return nil
}

// Load parses environment variables into Config and validates the
// sanitizer section.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Sanitizer.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
