package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/photoauth/internal/capture"
	"github.com/example/photoauth/internal/config"
	"github.com/example/photoauth/internal/recognition"
	"github.com/example/photoauth/internal/repository"
	"github.com/example/photoauth/internal/upload"
	"github.com/example/photoauth/internal/usecase"
)

// app holds everything a command needs. close releases connections in
// reverse order of acquisition.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	usecase *usecase.AuthenticationUseCase
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// buildApp wires clients from cfg. Endpoints are fixed for the life of the
// process.
func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	uploader, err := newUploader(ctx, cfg, httpClient, logger)
	if err != nil {
		return nil, err
	}

	var repo usecase.AttemptRepository
	if cfg.DatabaseDSN != "" {
		r, closeDB, err := openAttemptLog(ctx, cfg.DatabaseDSN, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, closeDB)
		repo = r
	}

	var cache usecase.Cache
	if cfg.RedisAddr != "" {
		client, err := openRedis(ctx, cfg.RedisAddr)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		cache = usecase.NewRedisCache(client)
	}

	a.usecase = usecase.NewAuthenticationUseCase(
		uploader,
		recognition.NewClient(cfg.APIURL, httpClient, logger),
		repo,
		cache,
		logger,
	)
	return a, nil
}

func newUploader(ctx context.Context, cfg config.Config, httpClient *http.Client, logger *zap.Logger) (upload.Uploader, error) {
	switch cfg.StorageBackend {
	case config.StorageGateway, "":
		return upload.NewGatewayUploader(cfg.APIURL, cfg.BucketPath, httpClient, logger), nil
	case config.StorageS3:
		if cfg.S3Bucket == "" {
			return nil, errors.New("PHOTOAUTH_S3_BUCKET is required for the s3 storage backend")
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return upload.NewS3Uploader(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.BucketPath, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func openAttemptLog(ctx context.Context, dsn string, logger *zap.Logger) (*repository.AttemptRepository, func(), error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("access db handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetConnMaxLifetime(time.Hour)
	closeDB := func() { _ = sqlDB.Close() }

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("database ping: %w", err)
	}

	repo := repository.NewAttemptRepository(db, logger)
	if err := repo.AutoMigrate(ctx); err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("auto migrate: %w", err)
	}
	return repo, closeDB, nil
}

func openRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func newCamera(cfg config.Config, logger *zap.Logger) *capture.Session {
	if cfg.CameraDevice == "" {
		return nil
	}
	return capture.NewSession(&capture.FFmpegDevice{
		Binary: cfg.FFmpeg,
		Format: cfg.CameraFormat,
		Input:  cfg.CameraDevice,
		Logger: logger,
	})
}
