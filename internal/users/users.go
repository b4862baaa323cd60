// Package users resolves chat-platform identities to stored users and
// manages roles.
package users

import (
	"errors"
	"fmt"

	"github.com/cartdesk/cartdesk/internal/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned when no user matches a platform ID.
var ErrNotFound = errors.New("users: not found")

// Service looks up and registers users keyed by their chat platform ID.
type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Resolve returns the user for a platform ID, or ErrNotFound.
func (s *Service) Resolve(platformID string) (*models.User, error) {
	var u models.User
	err := s.db.Where("platform_id = ?", platformID).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("users: resolve %s: %w", platformID, err)
	}
	return &u, nil
}

// Register returns the existing user for a platform ID or creates one with
// the branch_user role. The username is refreshed on every call so renames
// on the chat platform propagate.
func (s *Service) Register(platformID, username string) (*models.User, error) {
	u, err := s.Resolve(platformID)
	if err == nil {
		if username != "" && u.Username != username {
			if err := s.db.Model(u).Update("username", username).Error; err != nil {
				return nil, fmt.Errorf("users: refresh username %s: %w", platformID, err)
			}
			u.Username = username
		}
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	u = &models.User{
		PlatformID: platformID,
		Username:   username,
		Role:       models.RoleBranchUser,
		IsActive:   true,
	}
	if err := s.db.Create(u).Error; err != nil {
		// Lost a race with a concurrent register for the same platform ID.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.Resolve(platformID)
		}
		return nil, fmt.Errorf("users: register %s: %w", platformID, err)
	}
	return u, nil
}

// SetRole changes a user's role.
func (s *Service) SetRole(platformID, role string) error {
	if role != models.RoleBranchUser && role != models.RoleExecutor && role != models.RoleAdmin {
		return fmt.Errorf("users: role %q is not one of branch_user, executor, admin", role)
	}
	res := s.db.Model(&models.User{}).Where("platform_id = ?", platformID).Update("role", role)
	if res.Error != nil {
		return fmt.Errorf("users: set role %s: %w", platformID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetActive enables or disables a user.
func (s *Service) SetActive(platformID string, active bool) error {
	res := s.db.Model(&models.User{}).Where("platform_id = ?", platformID).Update("is_active", active)
	if res.Error != nil {
		return fmt.Errorf("users: set active %s: %w", platformID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
