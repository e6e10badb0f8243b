package models

import "time"

// Backup types.
const (
	BackupTypeManual    = "manual"
	BackupTypeAutomatic = "automatic"
)

// Backup lifecycle states. A backup starts in-progress and transitions once
// to completed or failed.
const (
	BackupStatusInProgress = "in-progress"
	BackupStatusCompleted  = "completed"
	BackupStatusFailed     = "failed"
)

// Backup is the database record for one snapshot artifact.
type Backup struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	FileName     string    `json:"fileName"`
	SizeInBytes  int64     `json:"sizeInBytes"`
	CreatedAt    time.Time `json:"createdAt"`
	Type         string    `json:"type"`
	DatabaseName string    `json:"databaseName"`
	Status       string    `json:"status"`
}

// Backup frequencies.
const (
	BackupFrequencyDaily   = "daily"
	BackupFrequencyWeekly  = "weekly"
	BackupFrequencyMonthly = "monthly"
)

// BackupSettings is the singleton configuration for automatic backups.
// ScheduledTime is a 24-hour "HH:MM" local time of day.
type BackupSettings struct {
	ID                int        `json:"id"`
	AutoBackupEnabled bool       `json:"autoBackupEnabled"`
	Frequency         string     `json:"frequency"`
	ScheduledTime     string     `json:"scheduledTime"`
	LastBackupAt      *time.Time `json:"lastBackupDate,omitempty"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}
