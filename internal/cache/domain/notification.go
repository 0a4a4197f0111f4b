package domain

import "time"

// User response values recorded against a sent notification
const (
	ResponseClicked       = "clicked"
	ResponseDismissed     = "dismissed"
	ResponseSnoozed       = "snoozed"
	ResponseActed         = "acted"
	ResponseAutoDismissed = "auto_dismissed"
)

// ManualRuleID is the sentinel trigger_rule_id for notifications sent
// outside the trigger pipeline (immediate sends from the control plane).
const ManualRuleID = "manual"

// NotificationRecord is one sent notification. ID is the delivery
// collaborator's opaque handle, or a locally generated uuid when delivery
// provides none. UserResponse/ResponseTime are set at most once.
type NotificationRecord struct {
	ID            string    `json:"id" gorm:"primaryKey;column:notification_id"`
	TriggerRuleID string    `json:"trigger_rule_id" gorm:"index;not null"`
	Content       string    `json:"content" gorm:"not null"`
	SentAt        time.Time `json:"sent_at" gorm:"index:idx_notifications_recent,sort:desc;not null"`
	UserResponse  *string   `json:"user_response,omitempty"`
	ResponseTime  *float64  `json:"response_time,omitempty"` // seconds from SentAt to response
}

func (NotificationRecord) TableName() string {
	return "notification_history"
}

// PositiveResponse reports whether a response action counts as a success
// for the originating rule's learning loop.
func PositiveResponse(action string) bool {
	switch action {
	case ResponseClicked, ResponseActed, "action_view", "action_ok", "action_yes":
		return true
	}
	return false
}

// NotificationStats aggregates response behavior over a window.
type NotificationStats struct {
	TotalSent       int64                     `json:"total_sent"`
	TotalResponses  int64                     `json:"total_responses"`
	AvgResponseTime float64                   `json:"avg_response_time"`
	Clicked         int64                     `json:"clicked"`
	Dismissed       int64                     `json:"dismissed"`
	ResponseRate    float64                   `json:"response_rate"`
	ByType          map[RuleType]TypeStats    `json:"by_type"`
}

// TypeStats is the per-rule-type slice of NotificationStats.
type TypeStats struct {
	Count           int64   `json:"count"`
	Responses       int64   `json:"responses"`
	AvgResponseTime float64 `json:"avg_response_time"`
}
