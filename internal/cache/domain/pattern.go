package domain

import (
	"encoding/json"
	"strconv"
	"time"
)

// Well-known pattern types the sync coordinator maintains
const (
	PatternActiveHours        = "active_hours"
	PatternInterests          = "interests"
	PatternRecentInsights     = "recent_insights"
	PatternCommunicationStyle = "communication_style"
	PatternNotificationTiming = "notification_timing"
)

// UserPattern is a named snapshot of learned behavior. Data is an opaque
// JSON payload whose shape is owned by the consumer; Confidence weights
// how much the scheduler should trust it. AccessCount is observability
// only and has no behavioral effect.
type UserPattern struct {
	PatternType string    `json:"pattern_type" gorm:"primaryKey;column:pattern_type"`
	Data        string    `json:"data" gorm:"column:pattern_data;not null"`
	Confidence  float64   `json:"confidence" gorm:"not null"`
	LastUpdated time.Time `json:"last_updated" gorm:"not null"`
	AccessCount int       `json:"access_count" gorm:"default:0"`
}

func (UserPattern) TableName() string {
	return "user_patterns"
}

// HourCounts decodes patterns shaped as {"<hour>": count}, the layout of
// active_hours and notification_timing. Missing hours read as zero.
func (p *UserPattern) HourCounts() map[int]int {
	var raw map[string]int
	if err := json.Unmarshal([]byte(p.Data), &raw); err != nil {
		return nil
	}
	counts := make(map[int]int, len(raw))
	for k, v := range raw {
		if hour, err := strconv.Atoi(k); err == nil && hour >= 0 && hour < 24 {
			counts[hour] = v
		}
	}
	return counts
}

// StringList decodes patterns shaped as a JSON array of strings
// (interests, recent_insights).
func (p *UserPattern) StringList() []string {
	var items []string
	if err := json.Unmarshal([]byte(p.Data), &items); err != nil {
		return nil
	}
	return items
}
