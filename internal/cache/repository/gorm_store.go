package repository

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"proactive-backend/internal/cache/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// gormCacheStore implements CacheStore using GORM over a local sqlite file.
// A single writer mutex serializes every read-modify-write so concurrent
// callers (scheduler loop, sync coordinator, response callbacks) cannot
// lose updates to trigger_count/success_rate.
type gormCacheStore struct {
	db *gorm.DB
	mu sync.Mutex
}

// NewGormCacheStore creates a CacheStore and migrates the cache schema
func NewGormCacheStore(db *gorm.DB) (CacheStore, error) {
	if err := db.AutoMigrate(
		&domain.TriggerRule{},
		&domain.UserPattern{},
		&domain.GoalSnapshot{},
		&domain.NotificationRecord{},
		&domain.ContextSnapshot{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate cache schema: %w", err)
	}
	return &gormCacheStore{db: db}, nil
}

// preferenceOrder ranks user_preference for ORDER BY without relying on
// lexical ordering of the enum strings
const preferenceOrder = "CASE user_preference WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END DESC"

func (s *gormCacheStore) Upsert(rule *domain.TriggerRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		var existing domain.TriggerRule
		err := tx.Where("rule_id = ?", rule.ID).First(&existing).Error
		switch {
		case err == nil:
			// Keep accumulated learning state across config rewrites
			rule.TriggerCount = existing.TriggerCount
			rule.SuccessRate = existing.SuccessRate
			if rule.LastTriggered == nil {
				rule.LastTriggered = existing.LastTriggered
			}
			return tx.Save(rule).Error
		case err == gorm.ErrRecordNotFound:
			return tx.Create(rule).Error
		default:
			return err
		}
	})
}

func (s *gormCacheStore) ActiveRules(ruleType *domain.RuleType) ([]*domain.TriggerRule, error) {
	query := s.db.Where("enabled = ?", true)
	if ruleType != nil {
		query = query.Where("rule_type = ?", *ruleType)
	}

	var rules []*domain.TriggerRule
	err := query.Order(preferenceOrder).Order("success_rate DESC").Find(&rules).Error
	return rules, err
}

func (s *gormCacheStore) UpdateTriggerSuccess(ruleID string, wasSuccessful bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	outcome := 0.0
	if wasSuccessful {
		outcome = 1.0
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var rule domain.TriggerRule
		if err := tx.Where("rule_id = ?", ruleID).First(&rule).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrNotFound
			}
			return err
		}

		now := time.Now()
		rule.SuccessRate = (rule.SuccessRate*float64(rule.TriggerCount) + outcome) / float64(rule.TriggerCount+1)
		rule.TriggerCount++
		rule.LastTriggered = &now
		return tx.Save(&rule).Error
	})
}

func (s *gormCacheStore) MarkTriggered(ruleID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Model(&domain.TriggerRule{}).Where("rule_id = ?", ruleID).
		Update("last_triggered", at).Error
}

func (s *gormCacheStore) FindRule(ruleID string) (*domain.TriggerRule, error) {
	var rule domain.TriggerRule
	err := s.db.Where("rule_id = ?", ruleID).First(&rule).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rule, nil
}

func (s *gormCacheStore) UpdatePattern(patternType string, data interface{}, confidence float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode pattern %s: %w", patternType, err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var existing domain.UserPattern
		err := tx.Where("pattern_type = ?", patternType).First(&existing).Error
		pattern := domain.UserPattern{
			PatternType: patternType,
			Data:        string(payload),
			Confidence:  confidence,
			LastUpdated: time.Now(),
		}
		switch {
		case err == nil:
			pattern.AccessCount = existing.AccessCount
			return tx.Save(&pattern).Error
		case err == gorm.ErrRecordNotFound:
			return tx.Create(&pattern).Error
		default:
			return err
		}
	})
}

func (s *gormCacheStore) Pattern(patternType string) (*domain.UserPattern, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pattern domain.UserPattern
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Access tracking is observability only; bump before the read
		if err := tx.Model(&domain.UserPattern{}).Where("pattern_type = ?", patternType).
			UpdateColumn("access_count", gorm.Expr("access_count + 1")).Error; err != nil {
			return err
		}
		return tx.Where("pattern_type = ?", patternType).First(&pattern).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &pattern, nil
}

func (s *gormCacheStore) SyncGoals(goals []domain.GoalSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&domain.GoalSnapshot{}).Error; err != nil {
			return err
		}
		for i := range goals {
			if goals[i].GoalID == "" {
				goals[i].GoalID = goals[i].Title
			}
			if err := tx.Create(&goals[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *gormCacheStore) StaleGoals(daysThreshold int) ([]*domain.GoalSnapshot, error) {
	var goals []*domain.GoalSnapshot
	err := s.db.
		Where("status = ? AND days_since_update >= ? AND progress < ?", domain.GoalStatusActive, daysThreshold, 100).
		Order("days_since_update DESC, priority DESC").
		Find(&goals).Error
	return goals, err
}

func (s *gormCacheStore) DeadlineApproaching(daysAhead int) ([]*domain.GoalSnapshot, error) {
	cutoff := time.Now().AddDate(0, 0, daysAhead)

	var goals []*domain.GoalSnapshot
	err := s.db.
		Where("status = ? AND target_date IS NOT NULL AND target_date <= ? AND progress < ?",
			domain.GoalStatusActive, cutoff, 100).
		Order("target_date ASC").
		Find(&goals).Error
	return goals, err
}

func (s *gormCacheStore) Record(rec *domain.NotificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.SentAt.IsZero() {
		rec.SentAt = time.Now()
	}
	return s.db.Create(rec).Error
}

func (s *gormCacheStore) UpdateResponse(id, response string, responseTime float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A recorded response is final: the guard keeps auto_dismiss timers
	// from clobbering a real click that arrived first
	result := s.db.Model(&domain.NotificationRecord{}).
		Where("notification_id = ? AND user_response IS NULL", id).
		Updates(map[string]interface{}{
			"user_response": response,
			"response_time": responseTime,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := s.db.Model(&domain.NotificationRecord{}).Where("notification_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
	}
	return nil
}

func (s *gormCacheStore) FindNotification(id string) (*domain.NotificationRecord, error) {
	var rec domain.NotificationRecord
	err := s.db.Where("notification_id = ?", id).First(&rec).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (s *gormCacheStore) RecentNotifications(limit int) ([]*domain.NotificationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []*domain.NotificationRecord
	err := s.db.Order("sent_at DESC").Limit(limit).Find(&records).Error
	return records, err
}

func (s *gormCacheStore) Stats(daysBack int) (*domain.NotificationStats, error) {
	since := time.Now().AddDate(0, 0, -daysBack)

	var overall struct {
		TotalSent       int64
		TotalResponses  int64
		AvgResponseTime float64
		Clicked         int64
		Dismissed       int64
	}
	err := s.db.Model(&domain.NotificationRecord{}).
		Select(`COUNT(*) as total_sent,
			COUNT(user_response) as total_responses,
			COALESCE(AVG(response_time), 0) as avg_response_time,
			COUNT(CASE WHEN user_response = 'clicked' THEN 1 END) as clicked,
			COUNT(CASE WHEN user_response = 'dismissed' THEN 1 END) as dismissed`).
		Where("sent_at >= ?", since).
		Scan(&overall).Error
	if err != nil {
		return nil, err
	}

	var rows []struct {
		RuleType        domain.RuleType
		Count           int64
		Responses       int64
		AvgResponseTime float64
	}
	err = s.db.Table("notification_history nh").
		Select(`tr.rule_type as rule_type,
			COUNT(*) as count,
			COUNT(nh.user_response) as responses,
			COALESCE(AVG(nh.response_time), 0) as avg_response_time`).
		Joins("JOIN trigger_rules tr ON nh.trigger_rule_id = tr.rule_id").
		Where("nh.sent_at >= ?", since).
		Group("tr.rule_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &domain.NotificationStats{
		TotalSent:       overall.TotalSent,
		TotalResponses:  overall.TotalResponses,
		AvgResponseTime: overall.AvgResponseTime,
		Clicked:         overall.Clicked,
		Dismissed:       overall.Dismissed,
		ByType:          make(map[domain.RuleType]domain.TypeStats, len(rows)),
	}
	if overall.TotalSent > 0 {
		stats.ResponseRate = float64(overall.TotalResponses) / float64(overall.TotalSent)
	}
	for _, row := range rows {
		stats.ByType[row.RuleType] = domain.TypeStats{
			Count:           row.Count,
			Responses:       row.Responses,
			AvgResponseTime: row.AvgResponseTime,
		}
	}
	return stats, nil
}

func (s *gormCacheStore) StoreSnapshot(contextType string, data interface{}, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s snapshot: %w", contextType, err)
	}

	now := time.Now()
	snapshot := domain.ContextSnapshot{
		SnapshotID:  fmt.Sprintf("%s_%s", contextType, now.Format("20060102_150405.000")),
		ContextType: contextType,
		Data:        string(payload),
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
	if err := s.db.Create(&snapshot).Error; err != nil {
		return "", err
	}
	return snapshot.SnapshotID, nil
}

func (s *gormCacheStore) Snapshot(contextType string) (*domain.ContextSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var snapshot domain.ContextSnapshot
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.ContextSnapshot{}).
			Where("context_type = ? AND expires_at > ?", contextType, now).
			UpdateColumn("access_count", gorm.Expr("access_count + 1")).Error; err != nil {
			return err
		}
		return tx.Where("context_type = ? AND expires_at > ?", contextType, now).
			Order("created_at DESC").First(&snapshot).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &snapshot, nil
}

func (s *gormCacheStore) SeedDefaultRules() error {
	defaults := []domain.TriggerRule{
		{
			ID:       "calendar_upcoming_30min",
			RuleType: domain.RuleTypeCalendar,
			Conditions: domain.EncodeConditions(domain.CalendarConditions{
				MinutesBefore: [2]int{30, 120},
				EventTypes:    []string{"meeting", "appointment"},
			}),
			Threshold:      0.8,
			Enabled:        true,
			UserPreference: domain.PreferenceHigh,
		},
		{
			ID:       "goal_stale_3days",
			RuleType: domain.RuleTypeGoal,
			Conditions: domain.EncodeConditions(domain.GoalConditions{
				DaysSinceUpdate:   3,
				ProgressThreshold: 100,
			}),
			Threshold:      0.7,
			Enabled:        true,
			UserPreference: domain.PreferenceMedium,
		},
		{
			ID:       "pattern_active_hours",
			RuleType: domain.RuleTypePattern,
			Conditions: domain.EncodeConditions(domain.PatternConditions{
				ActiveHourThreshold: 5,
				InterestMatch:       true,
			}),
			Threshold:      0.6,
			Enabled:        true,
			UserPreference: domain.PreferenceLow,
		},
		{
			ID:       "learning_insights_ready",
			RuleType: domain.RuleTypeLearning,
			Conditions: domain.EncodeConditions(domain.LearningConditions{
				InsightCount:        3,
				ConfidenceThreshold: 0.7,
			}),
			Threshold:      0.8,
			Enabled:        true,
			UserPreference: domain.PreferenceMedium,
		},
	}

	for i := range defaults {
		if err := s.Upsert(&defaults[i]); err != nil {
			return fmt.Errorf("failed to seed rule %s: %w", defaults[i].ID, err)
		}
	}
	return nil
}

func (s *gormCacheStore) CleanupExpiredData() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("expires_at <= ?", time.Now()).Delete(&domain.ContextSnapshot{}).Error; err != nil {
			return err
		}
		retention := time.Now().AddDate(0, 0, -30)
		return tx.Where("sent_at < ?", retention).Delete(&domain.NotificationRecord{}).Error
	})
}

func (s *gormCacheStore) CacheStats() (map[string]int64, error) {
	stats := make(map[string]int64, 5)
	for _, model := range []struct {
		name  string
		value interface{}
	}{
		{"user_patterns", &domain.UserPattern{}},
		{"goals_cache", &domain.GoalSnapshot{}},
		{"trigger_rules", &domain.TriggerRule{}},
		{"notification_history", &domain.NotificationRecord{}},
		{"context_snapshots", &domain.ContextSnapshot{}},
	} {
		var count int64
		if err := s.db.Model(model.value).Count(&count).Error; err != nil {
			return nil, err
		}
		stats[model.name] = count
	}
	return stats, nil
}

func (s *gormCacheStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
