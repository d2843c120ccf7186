// Package history persists quota snapshots over time so the operator can
// see how an account's remaining quota evolved between refreshes.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/l11223/kiro-ai-gateway/internal/models"
)

// Store records and queries quota history rows.
type Store struct {
	db    *gorm.DB
	nowFn func() time.Time
}

// NewStore constructs a Store. nowFn may be nil to use time.Now.
func NewStore(db *gorm.DB, nowFn func() time.Time) *Store {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Store{db: db, nowFn: nowFn}
}

// Record persists the account's current quota snapshot. Accounts without a
// snapshot are ignored.
func (s *Store) Record(ctx context.Context, account models.Account) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("history: store not initialized")
	}
	if strings.TrimSpace(account.ID) == "" {
		return fmt.Errorf("history: missing account id")
	}
	if account.Quota == nil {
		return nil
	}

	entries := account.Quota.Models
	if entries == nil {
		entries = []models.ModelQuota{}
	}
	payload, errMarshal := json.Marshal(entries)
	if errMarshal != nil {
		return fmt.Errorf("history: marshal models: %w", errMarshal)
	}

	row := models.QuotaHistory{
		AccountID:  account.ID,
		Email:      account.Email,
		Tier:       account.Quota.SubscriptionTier,
		Forbidden:  account.Quota.IsForbidden,
		Models:     datatypes.JSON(payload),
		RecordedAt: s.nowFn().UTC(),
	}
	if errCreate := s.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		return fmt.Errorf("history: insert: %w", errCreate)
	}
	return nil
}

// Entry is one decoded history row.
type Entry struct {
	AccountID  string              `json:"account_id"`
	Email      string              `json:"email"`
	Tier       string              `json:"tier,omitempty"`
	Forbidden  bool                `json:"forbidden"`
	Models     []models.ModelQuota `json:"models"`
	RecordedAt time.Time           `json:"recorded_at"`
}

// Recent returns the latest entries for an account, newest first.
func (s *Store) Recent(ctx context.Context, accountID string, limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("history: store not initialized")
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, fmt.Errorf("history: missing account id")
	}
	if limit < 1 || limit > 500 {
		limit = 50
	}

	var rows []models.QuotaHistory
	if errFind := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("recorded_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("history: query: %w", errFind)
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entry := Entry{
			AccountID:  row.AccountID,
			Email:      row.Email,
			Tier:       row.Tier,
			Forbidden:  row.Forbidden,
			RecordedAt: row.RecordedAt,
		}
		if len(row.Models) > 0 {
			if errUnmarshal := json.Unmarshal(row.Models, &entry.Models); errUnmarshal != nil {
				continue
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Prune deletes entries recorded before the cutoff and returns the number
// of rows removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("history: store not initialized")
	}
	res := s.db.WithContext(ctx).
		Where("recorded_at < ?", cutoff.UTC()).
		Delete(&models.QuotaHistory{})
	if res.Error != nil {
		return 0, fmt.Errorf("history: prune: %w", res.Error)
	}
	return res.RowsAffected, nil
}
