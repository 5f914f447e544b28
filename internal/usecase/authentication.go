package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/photoauth/internal/logging"
	"github.com/example/photoauth/internal/recognition"
	"github.com/example/photoauth/internal/repository"
	"github.com/example/photoauth/internal/upload"
)

var (
	// ErrNoImage is returned when Authenticate is called without photo bytes.
	ErrNoImage = errors.New("no photo to authenticate")
	// ErrUploadFailed marks failures of the storage upload.
	ErrUploadFailed = errors.New("photo upload failed")
	// ErrRecognitionFailed marks transport, status and decoding failures of
	// the recognition query.
	ErrRecognitionFailed = errors.New("recognition query failed")
	// ErrAttemptNotFound is returned when no attempt is known for a key.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrHistoryDisabled is returned when no attempt log is configured.
	ErrHistoryDisabled = errors.New("attempt history is not configured")
)

// Outcome is how an attempt ended.
type Outcome string

const (
	OutcomeMatched           Outcome = "matched"
	OutcomeNotFound          Outcome = "not_found"
	OutcomeUnrecognized      Outcome = "unrecognized"
	OutcomeUploadFailed      Outcome = "upload_failed"
	OutcomeRecognitionFailed Outcome = "recognition_failed"
)

const attemptCacheTTL = 10 * time.Minute

// Recognizer looks up who is in a stored photo.
type Recognizer interface {
	Lookup(ctx context.Context, objectKey string) (*recognition.Result, error)
}

// AttemptRepository defines the persistence operations needed by the use case.
type AttemptRepository interface {
	SaveAttempt(ctx context.Context, log *repository.AttemptLog) error
	FindByObjectKey(ctx context.Context, objectKey string) (*repository.AttemptLog, error)
	AggregateOutcomes(ctx context.Context) (*repository.OutcomeAggregation, error)
}

// Attempt is the record of one upload and recognition round.
type Attempt struct {
	ObjectKey string    `json:"object_key" yaml:"object_key"`
	Outcome   Outcome   `json:"outcome" yaml:"outcome"`
	FirstName string    `json:"first_name,omitempty" yaml:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty" yaml:"last_name,omitempty"`
	Message   string    `json:"message,omitempty" yaml:"message,omitempty"`
	LatencyMs int64     `json:"latency_ms" yaml:"latency_ms"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// AuthenticationUseCase uploads a photo and asks the recognition service who
// is on it. Each call makes exactly one upload and at most one lookup.
type AuthenticationUseCase struct {
	uploader   upload.Uploader
	recognizer Recognizer
	repo       AttemptRepository
	cache      Cache
	logger     *zap.Logger

	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration

	newID func() string
	now   func() time.Time
}

// NewAuthenticationUseCase constructs a new use case instance. repo and cache
// are optional; without them attempts are not recorded.
func NewAuthenticationUseCase(uploader upload.Uploader, recognizer Recognizer, repo AttemptRepository, cache Cache, logger *zap.Logger) *AuthenticationUseCase {
	return &AuthenticationUseCase{
		uploader:       uploader,
		recognizer:     recognizer,
		repo:           repo,
		cache:          cache,
		logger:         logger.Named("authentication_usecase"),
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
		newID:          uuid.NewString,
		now:            time.Now,
	}
}

// Authenticate uploads data under a fresh key and classifies the recognition
// answer. The returned Attempt is non-nil whenever a key was generated, also
// on error. Recognition is never queried when the upload fails.
func (uc *AuthenticationUseCase) Authenticate(ctx context.Context, data []byte) (*Attempt, error) {
	if len(data) == 0 {
		return nil, ErrNoImage
	}

	start := uc.now()
	objectKey := upload.ObjectKey(uc.newID())
	opLogger := logging.WithOperation(uc.logger, "usecase.authenticate", objectKey)
	attempt := &Attempt{ObjectKey: objectKey, CreatedAt: start.UTC()}

	if err := uc.uploader.Upload(ctx, objectKey, data); err != nil {
		attempt.Outcome = OutcomeUploadFailed
		uc.record(ctx, attempt, start)
		wrapped := logging.NewOperationError("usecase.upload", objectKey, fmt.Errorf("%w: %w", ErrUploadFailed, err))
		opLogger.Error("upload failed", zap.Error(wrapped))
		return attempt, wrapped
	}

	result, err := uc.recognizer.Lookup(ctx, objectKey)
	if err != nil {
		attempt.Outcome = OutcomeRecognitionFailed
		uc.record(ctx, attempt, start)
		wrapped := logging.NewOperationError("usecase.recognize", objectKey, fmt.Errorf("%w: %w", ErrRecognitionFailed, err))
		opLogger.Error("recognition failed", zap.Error(wrapped))
		return attempt, wrapped
	}

	attempt.Outcome = Outcome(result.Outcome)
	attempt.Message = result.Message
	if result.Outcome == recognition.Matched {
		attempt.FirstName = result.FirstName
		attempt.LastName = result.LastName
	}
	uc.record(ctx, attempt, start)
	opLogger.Info("authentication finished", zap.String("outcome", string(attempt.Outcome)))
	return attempt, nil
}

// record stores the attempt in the cache and the attempt log. Failures are
// logged and never change the outcome.
func (uc *AuthenticationUseCase) record(ctx context.Context, attempt *Attempt, start time.Time) {
	attempt.LatencyMs = uc.now().Sub(start).Milliseconds()
	opLogger := logging.WithOperation(uc.logger, "usecase.record", attempt.ObjectKey)

	if uc.repo != nil {
		if err := uc.repo.SaveAttempt(ctx, toLog(attempt)); err != nil {
			opLogger.Warn("failed to persist attempt", zap.Error(err))
		}
	}

	if uc.cache != nil {
		serialized, err := json.Marshal(attempt)
		if err != nil {
			opLogger.Warn("failed to serialize attempt", zap.Error(err))
			return
		}
		if err := uc.withCacheRetry(ctx, attempt.ObjectKey, "cache.set.attempt", func() error {
			return uc.cache.Set(ctx, attemptCacheKey(attempt.ObjectKey), string(serialized), attemptCacheTTL)
		}); err != nil {
			opLogger.Warn("failed to cache attempt", zap.Error(err))
		}
	}
}

// GetAttempt returns a recorded attempt, from the cache when possible.
func (uc *AuthenticationUseCase) GetAttempt(ctx context.Context, objectKey string) (*Attempt, error) {
	if uc.cache != nil {
		opLogger := logging.WithOperation(uc.logger, "usecase.get_attempt", objectKey)
		cached, err := uc.withCacheGet(ctx, objectKey, "cache.get.attempt", attemptCacheKey(objectKey))
		switch {
		case err == nil:
			var attempt Attempt
			if err := json.Unmarshal([]byte(cached), &attempt); err != nil {
				opLogger.Warn("failed to decode cached attempt", zap.Error(err))
				break
			}
			return &attempt, nil
		case !errors.Is(err, redis.Nil):
			opLogger.Warn("failed to read cache", zap.Error(err))
		}
	}

	if uc.repo == nil {
		return nil, ErrAttemptNotFound
	}
	log, err := uc.repo.FindByObjectKey(ctx, objectKey)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromLog(log), nil
}

func toLog(a *Attempt) *repository.AttemptLog {
	return &repository.AttemptLog{
		ObjectKey: a.ObjectKey,
		Outcome:   string(a.Outcome),
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Message:   a.Message,
		LatencyMs: a.LatencyMs,
		CreatedAt: a.CreatedAt,
	}
}

func fromLog(l *repository.AttemptLog) *Attempt {
	return &Attempt{
		ObjectKey: l.ObjectKey,
		Outcome:   Outcome(l.Outcome),
		FirstName: l.FirstName,
		LastName:  l.LastName,
		Message:   l.Message,
		LatencyMs: l.LatencyMs,
		CreatedAt: l.CreatedAt,
	}
}

func (uc *AuthenticationUseCase) withCacheRetry(ctx context.Context, objectKey, operation string, fn func() error) error {
	if uc.retryAttempts <= 1 {
		return logging.NewOperationError(operation, objectKey, fn())
	}

	backoff := uc.initialBackoff
	opLogger := logging.WithOperation(uc.logger, operation, objectKey)
	var err error
	for attempt := 0; attempt < uc.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, objectKey, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= uc.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("redis operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}
		if errors.Is(err, redis.Nil) {
			return err
		}
		if !logging.IsTransient(err) || attempt == uc.retryAttempts-1 {
			opLogger.Error("redis operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewOperationError(operation, objectKey, err)
		}
		opLogger.Warn("transient redis error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, objectKey, err)
}

func (uc *AuthenticationUseCase) withCacheGet(ctx context.Context, objectKey, operation, cacheKey string) (string, error) {
	var result string
	err := uc.withCacheRetry(ctx, objectKey, operation, func() error {
		value, err := uc.cache.Get(ctx, cacheKey)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}
