package domain

import "time"

// ContextSnapshot is a pre-computed context blob with a TTL, used to keep
// expensive aggregations out of the scheduler's hot path. Expired rows are
// removed by the periodic cleanup.
type ContextSnapshot struct {
	SnapshotID  string    `json:"snapshot_id" gorm:"primaryKey;column:snapshot_id"`
	ContextType string    `json:"context_type" gorm:"index;not null"`
	Data        string    `json:"data" gorm:"column:context_data;not null"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null"`
	ExpiresAt   time.Time `json:"expires_at" gorm:"index:idx_context_expires;not null"`
	AccessCount int       `json:"access_count" gorm:"default:0"`
}

func (ContextSnapshot) TableName() string {
	return "context_snapshots"
}
