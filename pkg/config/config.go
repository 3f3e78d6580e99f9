package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures the full runtime configuration for the uploader service.
type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Upload    UploadConfig
	Processor ProcessorConfig
	Kafka     KafkaConfig
	Storage   StorageConfig
	Tracing   TracingConfig
}

type AppConfig struct {
	Name        string `env:"APP_NAME" envDefault:"videoproc-uploader"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	Version     string `env:"APP_VERSION" envDefault:"0.1.0"`
	LogLevel    string `env:"APP_LOG_LEVEL" envDefault:"info"`
}

// HTTPConfig has no write timeout by default: a request blocks for as long
// as the external processor runs.
type HTTPConfig struct {
	Addr         string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15m"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"0s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
}

// UploadConfig.TempDir is where request bodies are spooled before being
// renamed into Dir. It must live on the same filesystem as Dir; when unset
// it defaults to a "tmp" directory next to Dir.
type UploadConfig struct {
	Dir          string `env:"UPLOAD_DIR" envDefault:"uploads"`
	ProcessedDir string `env:"PROCESSED_DIR" envDefault:"processed"`
	TempDir      string `env:"UPLOAD_TEMP_DIR"`
	Field        string `env:"UPLOAD_FIELD" envDefault:"video"`
	MaxSizeBytes int64  `env:"UPLOAD_MAX_SIZE_BYTES" envDefault:"10737418240"`
	MaxFileBytes int64  `env:"UPLOAD_MAX_FILE_BYTES" envDefault:"0"`
	LegacyStatus bool   `env:"UPLOAD_LEGACY_STATUS" envDefault:"false"`
}

type ProcessorConfig struct {
	Command string        `env:"PROCESSOR_COMMAND" envDefault:"python3"`
	Args    []string      `env:"PROCESSOR_ARGS" envSeparator:"," envDefault:"process_video.py"`
	Dir     string        `env:"PROCESSOR_DIR"`
	Timeout time.Duration `env:"PROCESSOR_TIMEOUT" envDefault:"0s"`
}

type KafkaConfig struct {
	Enabled          bool          `env:"KAFKA_ENABLED" envDefault:"false"`
	Brokers          []string      `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	ProcessingTopic  string        `env:"KAFKA_PROCESSING_TOPIC" envDefault:"videoproc.processing"`
	Retries          int           `env:"KAFKA_RETRIES" envDefault:"3"`
	CompressionCodec string        `env:"KAFKA_COMPRESSION_CODEC" envDefault:"snappy"`
	BatchSize        int           `env:"KAFKA_BATCH_SIZE" envDefault:"1"`
	BatchTimeout     time.Duration `env:"KAFKA_BATCH_TIMEOUT" envDefault:"100ms"`
}

type StorageConfig struct {
	Enabled   bool   `env:"STORAGE_ENABLED" envDefault:"false"`
	Provider  string `env:"STORAGE_PROVIDER" envDefault:"minio"`
	Endpoint  string `env:"STORAGE_ENDPOINT" envDefault:"localhost:9000"`
	Region    string `env:"STORAGE_REGION" envDefault:"us-east-1"`
	Bucket    string `env:"STORAGE_BUCKET" envDefault:"videoproc-processed"`
	AccessKey string `env:"STORAGE_ACCESS_KEY" envDefault:"minioadmin"`
	SecretKey string `env:"STORAGE_SECRET_KEY" envDefault:"minioadmin"`
	UseSSL    bool   `env:"STORAGE_USE_SSL" envDefault:"false"`
}

type TracingConfig struct {
	Endpoint     string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure     bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	SampleRatio  float64 `env:"OTEL_TRACES_SAMPLER_RATIO" envDefault:"1.0"`
	ResourceAttr string  `env:"OTEL_RESOURCE_ATTRIBUTES" envDefault:"service.namespace=videoproc"`
}

// Load parses environment variables into Config and resolves directories.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize turns the upload, processed, temp and processor directories into
// absolute paths so the processor always receives absolute arguments.
func (c *Config) Normalize() error {
	if c.Upload.TempDir == "" {
		c.Upload.TempDir = filepath.Join(filepath.Dir(filepath.Clean(c.Upload.Dir)), "tmp")
	}
	dirs := []*string{&c.Upload.Dir, &c.Upload.ProcessedDir, &c.Upload.TempDir}
	if c.Processor.Dir != "" {
		dirs = append(dirs, &c.Processor.Dir)
	}
	for _, d := range dirs {
		abs, err := filepath.Abs(*d)
		if err != nil {
			return fmt.Errorf("resolve %q: %w", *d, err)
		}
		*d = abs
	}
	if c.Upload.Field == "" {
		return fmt.Errorf("upload field name must not be empty")
	}
	if c.Processor.Command == "" {
		return fmt.Errorf("processor command must not be empty")
	}
	return nil
}
