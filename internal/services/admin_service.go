package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/seannyti/kfcweb/internal/models"
	"github.com/seannyti/kfcweb/internal/settings"
	pkgauth "github.com/seannyti/kfcweb/pkg/auth"
)

// adminLockDuration is the window applied by an explicit admin lock. It is
// effectively indefinite; unlock is the intended release path.
const adminLockDuration = 365 * 24 * time.Hour

// AdminService implements the privileged user-management surface.
type AdminService struct {
	repo     UserRepository
	logs     ActivityLogRepository
	settings settings.Client
	email    EmailService
	activity ActivityRecorder
	logger   *slog.Logger
}

func NewAdminService(repo UserRepository, logs ActivityLogRepository, settingsClient settings.Client, email EmailService, activity ActivityRecorder, logger *slog.Logger) *AdminService {
	return &AdminService{
		repo:     repo,
		logs:     logs,
		settings: settingsClient,
		email:    email,
		activity: activity,
		logger:   logger,
	}
}

// UserStats summarizes the account base for the admin dashboard.
type UserStats struct {
	TotalUsers    int `json:"totalUsers"`
	AdminUsers    int `json:"adminUsers"`
	VerifiedUsers int `json:"verifiedUsers"`
	LockedUsers   int `json:"lockedUsers"`
}

// ListUsers returns a page of accounts, newest first.
func (s *AdminService) ListUsers(ctx context.Context, limit, offset int) ([]*UserResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	users, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	responses := make([]*UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, userModelToResponse(user))
	}
	return responses, nil
}

// GetStats aggregates account counts.
func (s *AdminService) GetStats(ctx context.Context) (*UserStats, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, models.ErrInternalServer
	}

	admins, err := s.repo.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return nil, models.ErrInternalServer
	}
	superAdmins, err := s.repo.CountByRole(ctx, models.RoleSuperAdmin)
	if err != nil {
		return nil, models.ErrInternalServer
	}

	verified, err := s.repo.CountVerified(ctx)
	if err != nil {
		return nil, models.ErrInternalServer
	}

	locked, err := s.repo.CountLocked(ctx, time.Now())
	if err != nil {
		return nil, models.ErrInternalServer
	}

	return &UserStats{
		TotalUsers:    total,
		AdminUsers:    admins + superAdmins,
		VerifiedUsers: verified,
		LockedUsers:   locked,
	}, nil
}

// LockUser applies an admin lock. Admins cannot lock themselves or, unless
// they are SuperAdmin, any SuperAdmin account.
func (s *AdminService) LockUser(ctx context.Context, actorID, targetID string) error {
	actor, target, err := s.loadActorAndTarget(ctx, actorID, targetID)
	if err != nil {
		return err
	}
	if actorID == targetID {
		return models.BadRequestf("You cannot lock your own account")
	}
	if err := s.guardSuperAdminTarget(actor, target); err != nil {
		return err
	}

	if err := s.repo.Lock(ctx, targetID, time.Now().Add(adminLockDuration)); err != nil {
		s.logger.Error("failed to lock user", slog.String("target_id", targetID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.recordAdminAction(actor, target, "Locked user account")
	return nil
}

// UnlockUser clears any lockout and resets the failure counter.
func (s *AdminService) UnlockUser(ctx context.Context, actorID, targetID string) error {
	actor, target, err := s.loadActorAndTarget(ctx, actorID, targetID)
	if err != nil {
		return err
	}
	if err := s.guardSuperAdminTarget(actor, target); err != nil {
		return err
	}

	if err := s.repo.Unlock(ctx, targetID); err != nil {
		s.logger.Error("failed to unlock user", slog.String("target_id", targetID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.recordAdminAction(actor, target, "Unlocked user account")
	return nil
}

// DeleteUser removes an account permanently.
func (s *AdminService) DeleteUser(ctx context.Context, actorID, targetID string) error {
	actor, target, err := s.loadActorAndTarget(ctx, actorID, targetID)
	if err != nil {
		return err
	}
	if actorID == targetID {
		return models.BadRequestf("You cannot delete your own account")
	}
	if err := s.guardSuperAdminTarget(actor, target); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, targetID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete user", slog.String("target_id", targetID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.recordAdminAction(actor, target, "Deleted user account")
	return nil
}

// ChangeRole reassigns a user's role. Only SuperAdmins may grant the
// SuperAdmin role or touch SuperAdmin accounts.
func (s *AdminService) ChangeRole(ctx context.Context, actorID, targetID string, newRole models.Role) (*UserResponse, error) {
	if !newRole.Valid() {
		return nil, models.BadRequestf("Invalid role")
	}

	actor, target, err := s.loadActorAndTarget(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}
	if actorID == targetID {
		return nil, models.BadRequestf("You cannot change your own role")
	}
	if err := s.guardSuperAdminTarget(actor, target); err != nil {
		return nil, err
	}
	if newRole == models.RoleSuperAdmin && actor.Role != models.RoleSuperAdmin {
		return nil, models.Forbiddenf("Only a SuperAdmin can assign the SuperAdmin role")
	}

	updated, err := s.repo.UpdateRole(ctx, targetID, newRole)
	if err != nil {
		s.logger.Error("failed to update role", slog.String("target_id", targetID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.recordAdminAction(actor, target, "Changed user role to "+newRole.String())
	return userModelToResponse(updated), nil
}

// UpdateName renames a user.
func (s *AdminService) UpdateName(ctx context.Context, actorID, targetID, name string) (*UserResponse, error) {
	if name = strings.TrimSpace(name); name == "" {
		return nil, models.BadRequestf("Name is required")
	}

	actor, target, err := s.loadActorAndTarget(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}
	if err := s.guardSuperAdminTarget(actor, target); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateName(ctx, targetID, name)
	if err != nil {
		s.logger.Error("failed to update name", slog.String("target_id", targetID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.recordAdminAction(actor, target, "Updated user name")
	return userModelToResponse(updated), nil
}

// ForceResetPassword replaces a user's password. The new password is held
// to the current policy like any other.
func (s *AdminService) ForceResetPassword(ctx context.Context, actorID, targetID, newPassword string) error {
	actor, target, err := s.loadActorAndTarget(ctx, actorID, targetID)
	if err != nil {
		return err
	}
	if err := s.guardSuperAdminTarget(actor, target); err != nil {
		return err
	}

	snapshot := s.settings.Get(ctx)
	if violations := pkgauth.ValidatePassword(newPassword, snapshot.PasswordPolicy()); len(violations) > 0 {
		return models.BadRequestf("%s", strings.Join(violations, "; "))
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.repo.UpdatePasswordHash(ctx, targetID, hash); err != nil {
		s.logger.Error("failed to reset password", slog.String("target_id", targetID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	// Notify the user. The reset already happened, so a send failure is
	// logged but does not fail the operation.
	if err := s.email.SendPasswordChangedEmail(ctx, target.Email, target.Name); err != nil {
		s.logger.Error("failed to send password changed email",
			slog.String("target_id", targetID),
			slog.Any("error", err))
	}

	s.recordAdminAction(actor, target, "Reset user password")
	return nil
}

// MarkVerified manually flags an account as email-verified.
func (s *AdminService) MarkVerified(ctx context.Context, actorID, targetID string) error {
	actor, target, err := s.loadActorAndTarget(ctx, actorID, targetID)
	if err != nil {
		return err
	}
	if err := s.guardSuperAdminTarget(actor, target); err != nil {
		return err
	}

	if target.EmailVerified {
		return &models.Error{
			Kind:    models.ErrAlreadyVerified,
			Message: "Email is already verified",
		}
	}

	if err := s.repo.MarkVerified(ctx, targetID); err != nil {
		s.logger.Error("failed to mark user verified", slog.String("target_id", targetID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.recordAdminAction(actor, target, "Manually verified user email")
	return nil
}

// ActivityLogs returns recent activity, optionally filtered by category.
func (s *AdminService) ActivityLogs(ctx context.Context, category string, limit int) ([]*models.ActivityLog, error) {
	if category != "" && !validActivityCategory(category) {
		return nil, models.BadRequestf("Invalid activity type")
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	logs, err := s.logs.List(ctx, category, limit)
	if err != nil {
		s.logger.Error("failed to list activity logs", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return logs, nil
}

func validActivityCategory(category string) bool {
	switch category {
	case models.ActivityUser, models.ActivityAdmin, models.ActivitySystem, models.ActivitySecurity:
		return true
	}
	return false
}

func (s *AdminService) loadActorAndTarget(ctx context.Context, actorID, targetID string) (*models.User, *models.User, error) {
	actor, err := s.repo.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil, models.ErrUnauthorized
		}
		return nil, nil, models.ErrInternalServer
	}

	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil, models.ErrNotFound
		}
		return nil, nil, models.ErrInternalServer
	}

	return actor, target, nil
}

// guardSuperAdminTarget keeps non-SuperAdmins away from SuperAdmin accounts.
func (s *AdminService) guardSuperAdminTarget(actor, target *models.User) error {
	if target.Role == models.RoleSuperAdmin && actor.Role != models.RoleSuperAdmin {
		return models.Forbiddenf("Cannot modify a SuperAdmin account")
	}
	return nil
}

func (s *AdminService) recordAdminAction(actor, target *models.User, action string) {
	s.activity.Record(ActivityEntry{
		Category: models.ActivityAdmin,
		Action:   action,
		UserID:   actor.ID,
		UserName: actor.Name,
		Details:  "target: " + target.Email,
	})
}
