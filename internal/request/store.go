// Package request provides request lifecycle operations and the audit log.
package request

import (
	"errors"
	"fmt"
	"time"

	"github.com/cartdesk/cartdesk/internal/models"
	"gorm.io/gorm"
)

// Store persists requests and their audit trail. All multi-row writes run in
// a transaction so a request is never visible without its items and log.
type Store struct {
	db *gorm.DB
}

// NewStore wraps a GORM connection. The connection must be opened with
// TranslateError enabled (see db.Connect) or code collision retries won't
// trigger.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ItemInput is one requested cartridge line.
type ItemInput struct {
	CartridgeTypeID uint
	Quantity        int
}

// CreateOpts holds parameters for creating a new request.
type CreateOpts struct {
	BranchID uint
	UserID   uint
	Priority string
	Comment  *string
	Items    []ItemInput
}

// ListFilters holds optional filters for listing requests.
type ListFilters struct {
	Status   string
	BranchID uint
	Limit    int
}

// StatusCount holds a status and its row count for summaries.
type StatusCount struct {
	Status string
	Count  int
}

// PriorityCount holds a priority and its row count for summaries.
type PriorityCount struct {
	Priority string
	Count    int
}

// CreateRequest atomically creates a request, its items, and a "created" log
// entry, and returns the stored request with its fresh code. Uniqueness of
// the code is enforced by inserting under the unique index and retrying with
// a new candidate on a duplicate-key error, never by checking first.
func (s *Store) CreateRequest(opts CreateOpts) (*models.Request, error) {
	if opts.BranchID == 0 {
		return nil, &ValidationError{Field: "branch", Msg: "is required"}
	}
	if opts.UserID == 0 {
		return nil, &ValidationError{Field: "user", Msg: "is required"}
	}
	if opts.Priority == "" {
		opts.Priority = models.PriorityNormal
	}
	if !models.ValidPriority(opts.Priority) {
		return nil, &ValidationError{Field: "priority", Msg: fmt.Sprintf("%q is not one of low, normal, high", opts.Priority)}
	}
	if len(opts.Items) == 0 {
		return nil, &ValidationError{Field: "items", Msg: "at least one item is required"}
	}
	for i, it := range opts.Items {
		if it.CartridgeTypeID == 0 {
			return nil, &ValidationError{Field: fmt.Sprintf("items[%d].cartridge", i), Msg: "is required"}
		}
		if it.Quantity <= 0 {
			return nil, &ValidationError{Field: fmt.Sprintf("items[%d].quantity", i), Msg: "must be a positive integer"}
		}
	}
	if err := s.resolveRefs(opts); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := GenerateCode(time.Now())
		if err != nil {
			return nil, err
		}

		req := models.Request{
			Code:     code,
			BranchID: opts.BranchID,
			UserID:   opts.UserID,
			Priority: opts.Priority,
			Status:   models.StatusNew,
			Comment:  opts.Comment,
		}
		for _, it := range opts.Items {
			req.Items = append(req.Items, models.RequestItem{
				CartridgeTypeID: it.CartridgeTypeID,
				Quantity:        it.Quantity,
			})
		}

		err = s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&req).Error; err != nil {
				return err
			}
			toStatus := models.StatusNew
			entry := models.LogEntry{
				RequestID: req.ID,
				UserID:    &opts.UserID,
				Action:    models.ActionCreated,
				ToStatus:  &toStatus,
				Note:      opts.Comment,
			}
			return tx.Create(&entry).Error
		})
		if err == nil {
			return &req, nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			continue
		}
		return nil, fmt.Errorf("request: create: %w", err)
	}
	return nil, ErrCodeExhausted
}

// resolveRefs verifies the branch, user, and cartridge type ids point at real
// rows. Bot flows pick them from the catalog, but CLI callers can pass
// anything, and SQLite does not enforce foreign keys by default.
func (s *Store) resolveRefs(opts CreateOpts) error {
	var n int64
	if err := s.db.Model(&models.Branch{}).Where("id = ?", opts.BranchID).Count(&n).Error; err != nil {
		return fmt.Errorf("request: resolve branch %d: %w", opts.BranchID, err)
	}
	if n == 0 {
		return &ValidationError{Field: "branch", Msg: fmt.Sprintf("id %d does not exist", opts.BranchID)}
	}
	if err := s.db.Model(&models.User{}).Where("id = ?", opts.UserID).Count(&n).Error; err != nil {
		return fmt.Errorf("request: resolve user %d: %w", opts.UserID, err)
	}
	if n == 0 {
		return &ValidationError{Field: "user", Msg: fmt.Sprintf("id %d does not exist", opts.UserID)}
	}
	for i, it := range opts.Items {
		if err := s.db.Model(&models.CartridgeType{}).Where("id = ?", it.CartridgeTypeID).Count(&n).Error; err != nil {
			return fmt.Errorf("request: resolve cartridge type %d: %w", it.CartridgeTypeID, err)
		}
		if n == 0 {
			return &ValidationError{Field: fmt.Sprintf("items[%d].cartridge", i), Msg: fmt.Sprintf("id %d does not exist", it.CartridgeTypeID)}
		}
	}
	return nil
}

// UpdateStatus moves the request with the given code from its current status
// to the target status, appending a status_changed log entry in the same
// transaction. The UPDATE is guarded by the observed status so two concurrent
// movers cannot both win: the loser gets a TransitionError with Conflict set.
// actorID is nil for system-driven changes (auto-archive).
func (s *Store) UpdateStatus(code, to string, actorID *uint, note *string) (*models.Request, error) {
	var req models.Request
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("code = ?", code).First(&req).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("request: get %s: %w", code, err)
		}

		from := req.Status
		if !CanTransition(from, to) {
			return &TransitionError{Code: code, From: from, To: to}
		}

		updates := map[string]interface{}{"status": to}
		if actorID != nil && to == models.StatusInProgress {
			updates["assigned_executor_id"] = *actorID
		}
		var completedAt *time.Time
		if to == models.StatusDone {
			now := time.Now()
			completedAt = &now
			updates["completed_at"] = now
		}

		res := tx.Model(&models.Request{}).
			Where("id = ? AND status = ?", req.ID, from).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("request: update %s: %w", code, res.Error)
		}
		if res.RowsAffected == 0 {
			return &TransitionError{Code: code, From: from, To: to, Conflict: true}
		}

		entry := models.LogEntry{
			RequestID:  req.ID,
			UserID:     actorID,
			Action:     models.ActionStatusChanged,
			FromStatus: &from,
			ToStatus:   &to,
			Note:       note,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("request: log %s: %w", code, err)
		}

		req.Status = to
		if actorID != nil && to == models.StatusInProgress {
			req.AssignedExecutorID = actorID
		}
		if completedAt != nil {
			req.CompletedAt = completedAt
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// GetByCode retrieves a request by code, preloading items, branch and user.
func (s *Store) GetByCode(code string) (*models.Request, error) {
	var req models.Request
	err := s.db.Preload("Items").Preload("Items.CartridgeType").
		Preload("Branch").Preload("User").
		Where("code = ?", code).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("request: get %s: %w", code, err)
	}
	return &req, nil
}

// GetUserRequests returns the most recent requests of one user, newest first.
// A limit of 0 means no limit.
func (s *Store) GetUserRequests(userID uint, limit int) ([]models.Request, error) {
	q := s.db.Preload("Items").Preload("Items.CartridgeType").Preload("Branch").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var reqs []models.Request
	if err := q.Find(&reqs).Error; err != nil {
		return nil, fmt.Errorf("request: list for user %d: %w", userID, err)
	}
	return reqs, nil
}

// List returns requests matching the filters, newest first.
func (s *Store) List(filters ListFilters) ([]models.Request, error) {
	q := s.db.Preload("Items").Preload("Items.CartridgeType").
		Preload("Branch").Preload("User").
		Order("created_at DESC, id DESC")
	if filters.Status != "" {
		q = q.Where("status = ?", filters.Status)
	}
	if filters.BranchID != 0 {
		q = q.Where("branch_id = ?", filters.BranchID)
	}
	if filters.Limit > 0 {
		q = q.Limit(filters.Limit)
	}
	var reqs []models.Request
	if err := q.Find(&reqs).Error; err != nil {
		return nil, fmt.Errorf("request: list: %w", err)
	}
	return reqs, nil
}

// History returns the full audit trail of a request in chronological order,
// oldest entry first.
func (s *Store) History(code string) ([]models.LogEntry, error) {
	req, err := s.GetByCode(code)
	if err != nil {
		return nil, err
	}
	var entries []models.LogEntry
	err = s.db.Where("request_id = ?", req.ID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("request: history %s: %w", code, err)
	}
	return entries, nil
}

// Summary returns row counts per status across all requests.
func (s *Store) Summary() ([]StatusCount, error) {
	var results []StatusCount
	err := s.db.Model(&models.Request{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Order("status ASC").
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("request: summary: %w", err)
	}
	return results, nil
}

// SummaryByPriority returns row counts per priority across all requests.
func (s *Store) SummaryByPriority() ([]PriorityCount, error) {
	var results []PriorityCount
	err := s.db.Model(&models.Request{}).
		Select("priority, COUNT(*) as count").
		Group("priority").
		Order("priority ASC").
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("request: summary by priority: %w", err)
	}
	return results, nil
}

// ListOverdue returns high-priority requests still new after the cutoff and
// not yet flagged, for the SLA scan.
func (s *Store) ListOverdue(cutoff time.Time) ([]models.Request, error) {
	var reqs []models.Request
	err := s.db.Preload("Branch").Preload("User").
		Where("priority = ? AND status = ? AND created_at < ? AND sla_notified_at IS NULL",
			models.PriorityHigh, models.StatusNew, cutoff).
		Order("created_at ASC").
		Find(&reqs).Error
	if err != nil {
		return nil, fmt.Errorf("request: list overdue: %w", err)
	}
	return reqs, nil
}

// MarkSLANotified stamps sla_notified_at so the SLA scan alerts once per
// request.
func (s *Store) MarkSLANotified(id uint) error {
	err := s.db.Model(&models.Request{}).
		Where("id = ? AND sla_notified_at IS NULL", id).
		Update("sla_notified_at", time.Now()).Error
	if err != nil {
		return fmt.Errorf("request: mark sla notified %d: %w", id, err)
	}
	return nil
}

// ListArchivable returns done or cancelled requests older than the cutoff,
// candidates for the auto-archive sweep.
func (s *Store) ListArchivable(cutoff time.Time) ([]models.Request, error) {
	var reqs []models.Request
	err := s.db.
		Where("status IN ? AND created_at < ?",
			[]string{models.StatusDone, models.StatusCancelled}, cutoff).
		Order("created_at ASC").
		Find(&reqs).Error
	if err != nil {
		return nil, fmt.Errorf("request: list archivable: %w", err)
	}
	return reqs, nil
}
