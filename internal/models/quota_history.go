package models

import (
	"time"

	"gorm.io/datatypes"
)

// QuotaHistory stores one recorded quota snapshot for an account.
type QuotaHistory struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	AccountID string `gorm:"type:varchar(64);not null;index"`  // Owning account ID.
	Email     string `gorm:"type:varchar(255);not null;index"` // Account email at record time.

	Tier      string         `gorm:"type:varchar(32)"`         // Subscription tier at record time.
	Forbidden bool           `gorm:"not null;default:false"`   // Quota was inaccessible.
	Models    datatypes.JSON `gorm:"not null;default:'[]'"`    // ModelQuota list payload.

	RecordedAt time.Time `gorm:"not null;index"` // Snapshot timestamp.
}

// TableName overrides the default table name.
func (QuotaHistory) TableName() string {
	return "quota_history"
}
