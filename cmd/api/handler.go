package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"proactive-backend/internal/cache/domain"
	"proactive-backend/internal/proactive/usecase"
)

// ProactiveHandler exposes the proactive subsystem over HTTP. The
// control plane is single-user and local; there is no auth middleware.
type ProactiveHandler struct {
	manager *usecase.ProactiveManager
}

func NewProactiveHandler(manager *usecase.ProactiveManager) *ProactiveHandler {
	return &ProactiveHandler{manager: manager}
}

// GetStatus returns the scheduler, sync and notification snapshot
func (h *ProactiveHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.manager.Status())
}

type updateConfigRequest struct {
	CheckIntervalSeconds    *int `json:"check_interval_seconds"`
	MaxNotificationsPerHour *int `json:"max_notifications_per_hour"`
	QuietHoursStart         *int `json:"quiet_hours_start"`
	QuietHoursEnd           *int `json:"quiet_hours_end"`
}

// UpdateConfig hot-applies scheduler settings; absent fields are left
// unchanged
func (h *ProactiveHandler) UpdateConfig(c *gin.Context) {
	var req updateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	interval := time.Duration(0)
	if req.CheckIntervalSeconds != nil {
		if *req.CheckIntervalSeconds <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "check_interval_seconds must be positive"})
			return
		}
		interval = time.Duration(*req.CheckIntervalSeconds) * time.Second
	}

	maxPerHour, quietStart, quietEnd := 0, -1, -1
	if req.MaxNotificationsPerHour != nil {
		maxPerHour = *req.MaxNotificationsPerHour
	}
	if req.QuietHoursStart != nil {
		if *req.QuietHoursStart < 0 || *req.QuietHoursStart > 23 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "quiet_hours_start must be 0-23"})
			return
		}
		quietStart = *req.QuietHoursStart
	}
	if req.QuietHoursEnd != nil {
		if *req.QuietHoursEnd < 0 || *req.QuietHoursEnd > 23 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "quiet_hours_end must be 0-23"})
			return
		}
		quietEnd = *req.QuietHoursEnd
	}

	h.manager.UpdateConfig(interval, maxPerHour, quietStart, quietEnd)
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// ForceCheck runs one evaluation pass now, optionally for a single rule
// type (?rule_type=calendar)
func (h *ProactiveHandler) ForceCheck(c *gin.Context) {
	var ruleType *domain.RuleType
	if raw := c.Query("rule_type"); raw != "" {
		rt := domain.RuleType(raw)
		switch rt {
		case domain.RuleTypeCalendar, domain.RuleTypeGoal, domain.RuleTypePattern, domain.RuleTypeLearning:
			ruleType = &rt
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown rule_type: " + raw})
			return
		}
	}

	sent, err := h.manager.ForceCheck(ruleType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications_sent": sent})
}

type sendNotificationRequest struct {
	Title    string `json:"title"`
	Message  string `json:"message" binding:"required"`
	Priority string `json:"priority"`
}

// SendNotification delivers an immediate manual notification
func (h *ProactiveHandler) SendNotification(c *gin.Context) {
	var req sendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	id, err := h.manager.SendImmediateNotification(c.Request.Context(), req.Title, req.Message, req.Priority)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"notification_id": id})
}

type notificationResponseRequest struct {
	Action string `json:"action" binding:"required"`
}

// NotificationResponse is the delivery webhook: the client reports what
// the user did with a notification. Response time is computed
// server-side from the recorded sent_at.
func (h *ProactiveHandler) NotificationResponse(c *gin.Context) {
	id := c.Param("id")

	var req notificationResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action is required"})
		return
	}

	h.manager.OnUserResponse(id, req.Action)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// GetHistory lists recent notifications with aggregate stats
func (h *ProactiveHandler) GetHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))

	records, stats, err := h.manager.History(limit, days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"notifications": records,
		"stats":         stats,
	})
}
