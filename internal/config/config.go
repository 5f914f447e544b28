package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage backends accepted by PHOTOAUTH_STORAGE_BACKEND.
const (
	StorageGateway = "gateway"
	StorageS3      = "s3"
)

// Config holds the kiosk settings read from the environment.
//
// The environment is read once, when a command starts; later changes need a
// restart. APIURL and BucketPath are used verbatim to build request URLs and
// are not validated, so a missing value produces a malformed URL on the first
// upload.
type Config struct {
	APIURL      string        `env:"API_URL"`
	BucketPath  string        `env:"BUCKET_PATH"`
	Addr        string        `env:"ADDR" envDefault:":8080"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`

	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"gateway"`
	S3Bucket       string `env:"S3_BUCKET"`
	AWSRegion      string `env:"AWS_REGION" envDefault:"us-east-1"`

	DatabaseDSN string `env:"DATABASE_DSN"`
	RedisAddr   string `env:"REDIS_ADDR"`

	JWTSecret   string `env:"JWT_SECRET"`
	JWTAudience string `env:"JWT_AUDIENCE"`

	CameraDevice string `env:"CAMERA_DEVICE" envDefault:"/dev/video0"`
	CameraFormat string `env:"CAMERA_FORMAT" envDefault:"v4l2"`
	FFmpeg       string `env:"FFMPEG" envDefault:"ffmpeg"`
}

// Prefix is prepended to every variable name in Config.
const Prefix = "PHOTOAUTH_"

// Load parses Config from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv loads a prefixed configuration struct from environment variables.
func ParseEnv(target any) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: Prefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
