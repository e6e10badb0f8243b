package backup

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/seannyti/kfcweb/internal/models"
)

// SettingsStore is the schedule persistence the scheduler needs.
type SettingsStore interface {
	Get(ctx context.Context) (*models.BackupSettings, error)
	Upsert(ctx context.Context, settings *models.BackupSettings) (*models.BackupSettings, error)
	SetLastBackup(ctx context.Context, at time.Time) error
}

// Scheduler runs automatic backups on a cron schedule derived from the
// persisted backup settings. At most one recurring job exists at a time.
type Scheduler struct {
	engine   *Engine
	settings SettingsStore
	logger   *slog.Logger

	cron *cron.Cron

	mu      sync.Mutex
	entryID cron.EntryID
	active  bool
}

func NewScheduler(engine *Engine, settings SettingsStore, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		engine:   engine,
		settings: settings,
		logger:   logger,
		cron:     cron.New(),
	}
}

// Start begins the cron loop and syncs the job with the stored schedule.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron.Start()
	return s.Sync(ctx)
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Sync reads the stored schedule and adds, replaces, or removes the
// recurring job to match it.
func (s *Scheduler) Sync(ctx context.Context) error {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to load backup settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		s.cron.Remove(s.entryID)
		s.active = false
	}

	if !settings.AutoBackupEnabled {
		s.logger.Info("automatic backups disabled")
		return nil
	}

	spec := cronExpression(settings.Frequency, settings.ScheduledTime)
	entryID, err := s.cron.AddFunc(spec, s.runScheduledBackup)
	if err != nil {
		return fmt.Errorf("failed to schedule backup job: %w", err)
	}
	s.entryID = entryID
	s.active = true

	s.logger.Info("automatic backups scheduled",
		slog.String("frequency", settings.Frequency),
		slog.String("time", settings.ScheduledTime),
		slog.String("cron", spec))
	return nil
}

// UpdateSchedule validates and persists a new schedule, then resyncs the
// recurring job.
func (s *Scheduler) UpdateSchedule(ctx context.Context, enabled bool, frequency, scheduledTime string) (*models.BackupSettings, error) {
	frequency = strings.ToLower(strings.TrimSpace(frequency))
	switch frequency {
	case models.BackupFrequencyDaily, models.BackupFrequencyWeekly, models.BackupFrequencyMonthly:
	default:
		return nil, models.BadRequestf("Frequency must be daily, weekly or monthly")
	}

	if _, _, err := parseScheduledTime(scheduledTime); err != nil {
		return nil, models.BadRequestf("Scheduled time must be in HH:MM format")
	}

	saved, err := s.settings.Upsert(ctx, &models.BackupSettings{
		AutoBackupEnabled: enabled,
		Frequency:         frequency,
		ScheduledTime:     scheduledTime,
	})
	if err != nil {
		s.logger.Error("failed to save backup settings", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.Sync(ctx); err != nil {
		s.logger.Error("failed to resync backup schedule", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return saved, nil
}

// Settings returns the current stored schedule.
func (s *Scheduler) Settings(ctx context.Context) (*models.BackupSettings, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		s.logger.Error("failed to load backup settings", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return settings, nil
}

// runScheduledBackup is the recurring job body. Failures are logged and the
// schedule keeps running; the next tick tries again.
func (s *Scheduler) runScheduledBackup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	s.logger.Info("starting scheduled backup")

	if _, err := s.engine.CreateBackup(ctx, models.BackupTypeAutomatic); err != nil {
		s.logger.Error("scheduled backup failed", slog.Any("error", err))
		return
	}

	if err := s.settings.SetLastBackup(ctx, time.Now()); err != nil {
		s.logger.Error("failed to stamp last backup time", slog.Any("error", err))
	}

	s.logger.Info("scheduled backup completed")
}

// cronExpression maps a frequency and HH:MM time of day onto a five-field
// cron spec. Weekly runs Sunday, monthly runs the 1st. Unknown input falls
// back to daily.
func cronExpression(frequency, scheduledTime string) string {
	hour, minute, err := parseScheduledTime(scheduledTime)
	if err != nil {
		hour, minute = 2, 0
	}

	switch strings.ToLower(frequency) {
	case models.BackupFrequencyWeekly:
		return fmt.Sprintf("%d %d * * 0", minute, hour)
	case models.BackupFrequencyMonthly:
		return fmt.Sprintf("%d %d 1 * *", minute, hour)
	default:
		return fmt.Sprintf("%d %d * * *", minute, hour)
	}
}

func parseScheduledTime(value string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q", value)
	}

	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", value)
	}

	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", value)
	}

	return hour, minute, nil
}
