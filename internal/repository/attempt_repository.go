package repository

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/photoauth/internal/logging"
)

// ErrNotFound is returned when no attempt matches the lookup.
var ErrNotFound = errors.New("attempt not found")

// AttemptLog is one recorded authentication attempt. Photos themselves are
// never stored here.
type AttemptLog struct {
	ID        uint      `gorm:"primaryKey"`
	ObjectKey string    `gorm:"column:object_key;uniqueIndex;size:64"`
	Outcome   string    `gorm:"column:outcome;size:32;index"`
	FirstName string    `gorm:"column:first_name;size:128"`
	LastName  string    `gorm:"column:last_name;size:128"`
	Message   string    `gorm:"column:message;type:text"`
	LatencyMs int64     `gorm:"column:latency_ms"`
	CreatedAt time.Time `gorm:"column:created_at;index"`
}

// TableName overrides the default table name.
func (AttemptLog) TableName() string {
	return "authentication_attempts"
}

// OutcomeCount is the number of attempts that ended with Outcome.
type OutcomeCount struct {
	Outcome string
	Count   int64
}

// OutcomeAggregation summarises the attempt log.
type OutcomeAggregation struct {
	TotalCount       int64
	Counts           []OutcomeCount
	AverageLatencyMs float64
}

// AttemptRepository persists attempt logs with gorm.
type AttemptRepository struct {
	db             *gorm.DB
	logger         *zap.Logger
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewAttemptRepository creates a new repository instance.
func NewAttemptRepository(db *gorm.DB, logger *zap.Logger) *AttemptRepository {
	return &AttemptRepository{
		db:             db,
		logger:         logger.Named("attempt_repository"),
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

// AutoMigrate ensures the schema is available.
func (r *AttemptRepository) AutoMigrate(ctx context.Context) error {
	return r.executeWithRetry(ctx, "repository.auto_migrate", "", func() error {
		return r.db.WithContext(ctx).AutoMigrate(&AttemptLog{})
	})
}

// SaveAttempt persists one attempt.
func (r *AttemptRepository) SaveAttempt(ctx context.Context, log *AttemptLog) error {
	return r.executeWithRetry(ctx, "repository.save_attempt", log.ObjectKey, func() error {
		return r.db.WithContext(ctx).Create(log).Error
	})
}

// FindByObjectKey loads the attempt recorded for objectKey.
func (r *AttemptRepository) FindByObjectKey(ctx context.Context, objectKey string) (*AttemptLog, error) {
	var log AttemptLog
	err := r.executeWithRetry(ctx, "repository.find_attempt", objectKey, func() error {
		return r.db.WithContext(ctx).First(&log, "object_key = ?", objectKey).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// AggregateOutcomes counts attempts per outcome.
func (r *AttemptRepository) AggregateOutcomes(ctx context.Context) (*OutcomeAggregation, error) {
	agg := &OutcomeAggregation{}
	err := r.executeWithRetry(ctx, "repository.aggregate_outcomes", "", func() error {
		var counts []OutcomeCount
		if err := r.db.WithContext(ctx).Model(&AttemptLog{}).
			Select("outcome, COUNT(*) AS count").
			Group("outcome").
			Order("outcome").
			Scan(&counts).Error; err != nil {
			return err
		}

		var totals struct {
			Total      int64
			AvgLatency float64
		}
		if err := r.db.WithContext(ctx).Model(&AttemptLog{}).
			Select("COUNT(*) AS total, COALESCE(AVG(latency_ms), 0) AS avg_latency").
			Scan(&totals).Error; err != nil {
			return err
		}

		agg.Counts = counts
		agg.TotalCount = totals.Total
		agg.AverageLatencyMs = totals.AvgLatency
		return nil
	})
	if err != nil {
		return nil, err
	}
	return agg, nil
}

func (r *AttemptRepository) executeWithRetry(ctx context.Context, operation, objectKey string, fn func() error) error {
	attempts := r.retryAttempts
	if attempts < 1 {
		attempts = 1
	}

	opLogger := logging.WithOperation(r.logger, operation, objectKey)
	backoff := r.initialBackoff
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, objectKey, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= r.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if !logging.IsTransient(err) || attempt == attempts-1 {
			opLogger.Error("database operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewOperationError(operation, objectKey, err)
		}
		opLogger.Warn("transient database error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, objectKey, err)
}
