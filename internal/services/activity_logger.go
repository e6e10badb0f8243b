package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/seannyti/kfcweb/internal/models"
)

// ActivityLogRepository defines the persistence slice the activity logger needs.
type ActivityLogRepository interface {
	Create(ctx context.Context, log *models.ActivityLog) (*models.ActivityLog, error)
	List(ctx context.Context, category string, limit int) ([]*models.ActivityLog, error)
	Cleanup(ctx context.Context, olderThanDays int) (int64, error)
}

// ActivityEntry is a single site-activity event.
type ActivityEntry struct {
	Category string
	Action   string
	UserID   string
	UserName string
	IP       string
	Details  string
}

// ActivityRecorder records activity events without blocking the caller.
type ActivityRecorder interface {
	Record(entry ActivityEntry)
}

// ActivityLogger persists activity events asynchronously. Recording never
// blocks or fails the request that triggered it; persistence errors go to
// the structured log only.
type ActivityLogger struct {
	repo   ActivityLogRepository
	logger *slog.Logger
	wg     sync.WaitGroup
}

func NewActivityLogger(repo ActivityLogRepository, logger *slog.Logger) *ActivityLogger {
	return &ActivityLogger{repo: repo, logger: logger}
}

// Record fires the write on a background goroutine.
func (l *ActivityLogger) Record(entry ActivityEntry) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		log := &models.ActivityLog{
			Timestamp: time.Now(),
			Category:  entry.Category,
			Action:    entry.Action,
		}
		if entry.UserID != "" {
			log.UserID = &entry.UserID
		}
		if entry.UserName != "" {
			log.UserName = &entry.UserName
		}
		if entry.IP != "" {
			log.IPAddress = &entry.IP
		}
		if entry.Details != "" {
			log.Details = &entry.Details
		}

		if _, err := l.repo.Create(ctx, log); err != nil {
			l.logger.Error("failed to record activity",
				slog.String("action", entry.Action),
				slog.Any("error", err))
		}
	}()
}

// Wait blocks until in-flight writes finish. Called on shutdown and in tests.
func (l *ActivityLogger) Wait() {
	l.wg.Wait()
}

var _ ActivityRecorder = (*ActivityLogger)(nil)
