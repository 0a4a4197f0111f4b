package memory

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Profile is the user profile assembled from the key/value profile table.
// Missing keys fall back to defaults so callers never see partial data.
type Profile struct {
	CommunicationStyle string         `json:"communication_style"`
	Interests          []string       `json:"interests"`
	ActiveHours        map[string]int `json:"active_hours"` // "<hour>" -> interaction count
	TotalInteractions  int            `json:"total_interactions"`
}

// Goal is one long-term user goal
type Goal struct {
	ID          int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	Title       string     `json:"title" gorm:"not null"`
	Description string     `json:"description"`
	Progress    int        `json:"progress" gorm:"default:0"`
	TargetDate  *time.Time `json:"target_date"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUpdated *time.Time `json:"last_updated"`
	Status      string     `json:"status" gorm:"default:active"`
}

func (Goal) TableName() string { return "goals" }

// Insight is one learning insight extracted from past interactions
type Insight struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	InsightType string    `json:"insight_type" gorm:"not null"`
	Content     string    `json:"content" gorm:"not null"`
	Confidence  float64   `json:"confidence" gorm:"not null"`
	Timestamp   time.Time `json:"timestamp" gorm:"index;not null"`
	Applied     bool      `json:"applied" gorm:"default:false"`
}

func (Insight) TableName() string { return "insights" }

// profileEntry is one row of the key/value profile table
type profileEntry struct {
	Key         string    `gorm:"primaryKey;column:key"`
	Value       string    `gorm:"not null"`
	LastUpdated time.Time `gorm:"not null"`
}

func (profileEntry) TableName() string { return "user_profile" }

// Store reads the user's long-term memory. It is the slow-path source
// the sync coordinator copies into the hot cache; the trigger loop never
// touches it directly.
type Store interface {
	UserProfile() (Profile, error)
	Goals() ([]Goal, error)
	RecentInsights(limit int) ([]Insight, error)
	AddInsight(insightType, content string, confidence float64) error
}

type gormStore struct {
	db *gorm.DB
}

// NewGormStore opens the memory store over an existing connection and
// runs migrations for the tables it owns.
func NewGormStore(db *gorm.DB) (Store, error) {
	if err := db.AutoMigrate(&profileEntry{}, &Goal{}, &Insight{}); err != nil {
		return nil, fmt.Errorf("failed to migrate memory tables: %w", err)
	}
	return &gormStore{db: db}, nil
}

func (s *gormStore) UserProfile() (Profile, error) {
	profile := Profile{
		CommunicationStyle: "adaptive",
		Interests:          []string{},
		ActiveHours:        map[string]int{},
	}

	var entries []profileEntry
	if err := s.db.Find(&entries).Error; err != nil {
		return profile, fmt.Errorf("failed to load user profile: %w", err)
	}

	for _, e := range entries {
		switch e.Key {
		case "communication_style":
			// stored as a JSON string or bare text
			var style string
			if err := json.Unmarshal([]byte(e.Value), &style); err != nil {
				style = e.Value
			}
			profile.CommunicationStyle = style
		case "interests":
			var interests []string
			if err := json.Unmarshal([]byte(e.Value), &interests); err == nil {
				profile.Interests = interests
			}
		case "active_hours":
			var hours map[string]int
			if err := json.Unmarshal([]byte(e.Value), &hours); err == nil {
				profile.ActiveHours = hours
			}
		case "total_interactions":
			var n int
			if err := json.Unmarshal([]byte(e.Value), &n); err == nil {
				profile.TotalInteractions = n
			}
		}
	}
	return profile, nil
}

func (s *gormStore) Goals() ([]Goal, error) {
	var goals []Goal
	err := s.db.
		Where("status = ?", "active").
		Order("created_at DESC").
		Find(&goals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load goals: %w", err)
	}
	return goals, nil
}

func (s *gormStore) RecentInsights(limit int) ([]Insight, error) {
	if limit <= 0 {
		limit = 10
	}
	var insights []Insight
	err := s.db.
		Order("timestamp DESC").
		Limit(limit).
		Find(&insights).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load insights: %w", err)
	}
	return insights, nil
}

func (s *gormStore) AddInsight(insightType, content string, confidence float64) error {
	insight := Insight{
		InsightType: insightType,
		Content:     content,
		Confidence:  confidence,
		Timestamp:   time.Now(),
	}
	if err := s.db.Create(&insight).Error; err != nil {
		return fmt.Errorf("failed to store insight: %w", err)
	}
	return nil
}
