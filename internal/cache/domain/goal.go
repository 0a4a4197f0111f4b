package domain

import "time"

// Goal status values mirrored from the long-term store
const (
	GoalStatusActive    = "active"
	GoalStatusPaused    = "paused"
	GoalStatusCompleted = "completed"
)

// GoalSnapshot is a denormalized mirror of a long-term goal, optimized
// for staleness queries. The whole table is replaced on every sync pass
// and DaysSinceUpdate is computed at sync time, never at read time.
type GoalSnapshot struct {
	GoalID          string     `json:"goal_id" gorm:"primaryKey;column:goal_id"`
	Title           string     `json:"title" gorm:"not null"`
	Description     string     `json:"description,omitempty"`
	Progress        int        `json:"progress" gorm:"default:0"` // 0-100
	TargetDate      *time.Time `json:"target_date,omitempty" gorm:"index:idx_goals_deadline"`
	LastUpdated     time.Time  `json:"last_updated" gorm:"not null"`
	Priority        int        `json:"priority" gorm:"default:1"`
	Status          string     `json:"status" gorm:"index:idx_goals_stale;default:active"`
	DaysSinceUpdate int        `json:"days_since_update" gorm:"index:idx_goals_stale"`
}

func (GoalSnapshot) TableName() string {
	return "goals_cache"
}
